// Package node assembles a complete trending node from configuration:
// storage, the operation host, the event feed, and the RPC server. It
// can be embedded in any binary.
package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/QingfengHuu/trending-nft/config"
	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/feed"
	"github.com/QingfengHuu/trending-nft/internal/host"
	klog "github.com/QingfengHuu/trending-nft/internal/log"
	"github.com/QingfengHuu/trending-nft/internal/metrics"
	"github.com/QingfengHuu/trending-nft/internal/rpc"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
	"github.com/rs/zerolog"
)

// Node is a fully-initialized trending node.
type Node struct {
	cfg        *config.Config
	deployment *config.Deployment
	logger     zerolog.Logger

	db        storage.DB
	host      *host.Host
	feed      *feed.Feed
	rpcServer *rpc.Server
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, deployment, storage, host, feed, RPC) but does NOT start
// the listeners. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	cfg.DataDir = expandHome(cfg.DataDir)

	// ── 1. Set address HRP ──────────────────────────────────────────
	if cfg.Network == config.Testnet {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "trending.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	// ── 3. Deployment ───────────────────────────────────────────────
	deployment, fromFile, err := resolveDeployment(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve deployment: %w", err)
	}
	depHash, err := deployment.Hash()
	if err != nil {
		return nil, fmt.Errorf("hash deployment: %w", err)
	}
	controller, err := deployment.ControllerAddress()
	if err != nil {
		return nil, fmt.Errorf("parse controller: %w", err)
	}

	logger.Info().
		Str("network", deployment.Network).
		Str("deployment", depHash.String()[:16]+"...").
		Bool("from_file", fromFile).
		Uint64("unit_price", deployment.UnitPrice).
		Msg("Starting Trending Node")

	// ── 4. Open storage ─────────────────────────────────────────────
	db, err := storage.NewBadger(cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}
	logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")

	// ── 5. Seed allocations ─────────────────────────────────────────
	seeded, err := seedAllocations(db, deployment, depHash)
	if err != nil {
		db.Close()
		return nil, err
	}
	if seeded {
		logger.Info().Int("accounts", len(deployment.Alloc)).Msg("Initial allocations credited")
	} else {
		logger.Info().Msg("State resumed from database")
	}

	// ── 6. Host ─────────────────────────────────────────────────────
	evLog := events.NewLog(db)
	recorder := metrics.New(cfg.Metrics.Enabled, func() float64 {
		head, err := evLog.Head()
		if err != nil {
			return 0
		}
		return float64(head)
	})

	h := host.New(db, host.Config{
		Deployment: depHash,
		Controller: controller,
		Treasury:   deployment.TreasuryAddress(),
		UnitPrice:  deployment.UnitPrice,
		Metrics:    recorder,
	})

	// ── 7. Feed ─────────────────────────────────────────────────────
	var fd *feed.Feed
	if cfg.Feed.Enabled {
		fd = feed.New(feed.Config{
			ListenAddr: cfg.Feed.ListenAddr,
			Port:       cfg.Feed.Port,
			Seeds:      cfg.Feed.Seeds,
			MaxPeers:   cfg.Feed.MaxPeers,
			NoDiscover: cfg.Feed.NoDiscover,
			DB:         storage.NewPrefixDB(db, []byte("feed/")),
			DHTServer:  cfg.Feed.DHTServer,
			NetworkID:  deployment.Network,
			DataDir:    cfg.FeedDir(),
		})
	} else {
		logger.Warn().Msg("Feed disabled by config; events will not be broadcast")
	}

	// ── 8. RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, h, fd, deployment, cfg.RPC)
		if cfg.Metrics.Enabled {
			rpcServer.EnableMetrics()
		}
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	return &Node{
		cfg:        cfg,
		deployment: deployment,
		logger:     logger,
		db:         db,
		host:       h,
		feed:       fd,
		rpcServer:  rpcServer,
	}, nil
}

// Start brings up the feed and the RPC server.
func (n *Node) Start() error {
	if n.feed != nil {
		if err := n.feed.Start(); err != nil {
			return fmt.Errorf("start feed: %w", err)
		}
		n.logger.Info().
			Str("id", n.feed.ID().String()).
			Int("port", n.cfg.Feed.Port).
			Bool("discovery", !n.cfg.Feed.NoDiscover).
			Msg("Feed started")
	}

	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			if n.feed != nil {
				n.feed.Stop()
			}
			return fmt.Errorf("start RPC: %w", err)
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	}

	head, _ := n.host.EventsHead()
	n.logger.Info().
		Uint64("event_head", head).
		Str("network", n.deployment.Network).
		Msg("Node started successfully")

	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		n.rpcServer.Stop()
	}
	if n.feed != nil {
		n.feed.Stop()
	}
	if n.db != nil {
		n.db.Close()
	}

	n.logger.Info().Msg("Goodbye!")
}

// Host returns the operation host for direct embedding.
func (n *Node) Host() *host.Host {
	return n.host
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Head returns the newest event log sequence.
func (n *Node) Head() uint64 {
	head, _ := n.host.EventsHead()
	return head
}
