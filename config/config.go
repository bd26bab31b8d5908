// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Deployment params: Immutable, must match across all nodes of a network
//   - Node settings: Runtime configuration, can vary per node
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// =============================================================================
// Node Configuration (runtime, per-node settings)
// =============================================================================

// Config holds node-specific runtime configuration.
// These settings can vary between nodes without breaking the deployment.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Event feed networking
	Feed FeedConfig

	// RPC server
	RPC RPCConfig

	// Prometheus metrics
	Metrics MetricsConfig

	// Logging
	Log LogConfig
}

// FeedConfig holds event feed (gossip) network settings.
type FeedConfig struct {
	Enabled    bool     `conf:"feed.enabled"`
	ListenAddr string   `conf:"feed.listen"`
	Port       int      `conf:"feed.port"`
	Seeds      []string `conf:"feed.seeds"`
	MaxPeers   int      `conf:"feed.maxpeers"`
	NoDiscover bool     `conf:"feed.nodiscover"`
	DHTServer  bool     `conf:"feed.dhtserver"` // Run DHT in server mode (for seed nodes)
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// MetricsConfig holds Prometheus metrics settings. Metrics are served
// on the RPC listener under /metrics when enabled.
type MetricsConfig struct {
	Enabled bool `conf:"metrics.enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.trending
//	macOS:   ~/Library/Application Support/Trending
//	Windows: %APPDATA%\Trending
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trending"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Trending")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Trending")
		}
		return filepath.Join(home, "AppData", "Roaming", "Trending")
	default:
		return filepath.Join(home, ".trending")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// DBDir returns the state database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.NetworkDataDir(), "db")
}

// FeedDir returns the feed identity/state directory.
func (c *Config) FeedDir() string {
	return filepath.Join(c.NetworkDataDir(), "feed")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "trending.conf")
}

// DeploymentFile returns the deployment params file path.
func (c *Config) DeploymentFile() string {
	return filepath.Join(c.NetworkDataDir(), "deployment.json")
}
