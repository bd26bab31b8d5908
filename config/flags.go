package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Flags holds command-line flag values.
type Flags struct {
	// Core
	Help    bool
	Version bool
	Network string
	DataDir string
	Config  string

	// Feed
	Feed       bool
	FeedPort   int
	Seeds      string
	MaxPeers   int
	NoDiscover bool
	DHTServer  bool

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Metrics
	Metrics bool

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Positional args (subcommands)
	Args []string

	// Track which flags were explicitly set
	SetFeed       bool
	SetRPC        bool
	SetNoDiscover bool
	SetDHTServer  bool
	SetMetrics    bool
	SetLogJSON    bool
}

// ParseFlags parses command-line arguments.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("trendingd", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	// Core
	fs.BoolVar(&f.Help, "help", false, "Show help")
	fs.BoolVar(&f.Version, "version", false, "Show version")
	fs.StringVar(&f.Network, "network", "", "Network: mainnet or testnet")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory")
	fs.StringVar(&f.Config, "config", "", "Config file path")

	// Feed
	fs.BoolVar(&f.Feed, "feed", true, "Enable event feed")
	fs.IntVar(&f.FeedPort, "feedport", 0, "Feed listen port")
	fs.StringVar(&f.Seeds, "seeds", "", "Seed nodes (comma-separated multiaddrs)")
	fs.IntVar(&f.MaxPeers, "maxpeers", 0, "Maximum feed peers")
	fs.BoolVar(&f.NoDiscover, "nodiscover", false, "Disable peer discovery")
	fs.BoolVar(&f.DHTServer, "dhtserver", false, "Run DHT in server mode")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpcaddr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpcport", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpcallowed", "", "Allowed RPC client IPs (comma-separated)")
	fs.StringVar(&f.RPCCORS, "rpccors", "", "Allowed CORS origins (comma-separated)")

	// Metrics
	fs.BoolVar(&f.Metrics, "metrics", false, "Serve Prometheus metrics under /metrics")

	// Logging
	fs.StringVar(&f.LogLevel, "loglevel", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.LogFile, "logfile", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "logjson", false, "Log in JSON format")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if f.Help {
		fs.Usage()
	}

	// Record which boolean flags were explicitly set so defaults
	// from file config are not clobbered.
	f.SetFeed = isFlagSet(fs, "feed")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetNoDiscover = isFlagSet(fs, "nodiscover")
	f.SetDHTServer = isFlagSet(fs, "dhtserver")
	f.SetMetrics = isFlagSet(fs, "metrics")
	f.SetLogJSON = isFlagSet(fs, "logjson")

	f.Args = fs.Args()
	return f, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			set = true
		}
	})
	return set
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `trendingd - Trending series node

Usage:
  trendingd [flags]

Flags:
`)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  trendingd                          Start a mainnet node
  trendingd -network testnet         Start a testnet node
  trendingd -rpcport 9000            Custom RPC port
  trendingd -seeds /ip4/1.2.3.4/tcp/30343/p2p/12D3KooW...
`)
}

// ApplyFlags applies command-line flags to a Config struct.
// Flags take precedence over file configuration.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Feed
	if f.SetFeed {
		cfg.Feed.Enabled = f.Feed
	}
	if f.FeedPort != 0 {
		cfg.Feed.Port = f.FeedPort
	}
	if f.Seeds != "" {
		cfg.Feed.Seeds = parseStringList(f.Seeds)
	}
	if f.MaxPeers != 0 {
		cfg.Feed.MaxPeers = f.MaxPeers
	}
	if f.SetNoDiscover {
		cfg.Feed.NoDiscover = f.NoDiscover
	}
	if f.SetDHTServer {
		cfg.Feed.DHTServer = f.DHTServer
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Metrics
	if f.SetMetrics {
		cfg.Metrics.Enabled = f.Metrics
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// Load builds the full configuration with precedence:
// defaults < config file < command-line flags.
func Load(args []string) (*Config, *Flags, error) {
	f, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}

	if f.Help {
		return nil, f, nil
	}
	if f.Version {
		fmt.Println("trendingd version 0.1.0")
		return nil, f, nil
	}

	// Start with defaults for the selected network
	network := Mainnet
	if f.Network != "" {
		n, err := NormalizeNetwork(f.Network)
		if err != nil {
			return nil, nil, err
		}
		network = n
		f.Network = string(n)
	}
	cfg := Default(network)

	// Flags may override datadir before paths are resolved
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("create data dirs: %w", err)
	}

	// Config file (explicit path or default location)
	configPath := f.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	values, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, values); err != nil {
		return nil, nil, err
	}

	// Flags win over file config
	ApplyFlags(cfg, f)

	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, f, nil
}

// EnsureDataDirs creates the data directory layout if missing and
// writes a default config file on first run.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.DBDir(),
		cfg.FeedDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// NormalizeNetwork maps short aliases to canonical network names.
func NormalizeNetwork(s string) (NetworkType, error) {
	switch strings.ToLower(s) {
	case "mainnet", "main", "":
		return Mainnet, nil
	case "testnet", "test":
		return Testnet, nil
	default:
		return "", fmt.Errorf("unknown network %q (use mainnet or testnet)", s)
	}
}
