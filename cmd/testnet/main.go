// Command testnet boots a 2-node local deployment from scratch.
//
// Usage: go run ./cmd/testnet/
//
// It loads the well-known testnet controller key, seeds an in-memory
// deployment on two in-process nodes (one executing operations, one
// watching), runs a full day-one scenario (create series, mint, move
// an edition, write a record, sweep the treasury), gossips every event
// via libp2p, and verifies the watcher received the whole log.
// Ctrl+C for early shutdown.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/QingfengHuu/trending-nft/config"
	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/feed"
	"github.com/QingfengHuu/trending-nft/internal/host"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	klog "github.com/QingfengHuu/trending-nft/internal/log"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/coin"
	"github.com/QingfengHuu/trending-nft/pkg/crypto"
	"github.com/QingfengHuu/trending-nft/pkg/op"
	"github.com/QingfengHuu/trending-nft/pkg/types"
	libp2ppeer "github.com/libp2p/go-libp2p/core/peer"
)

const verifyTimeout = 10 * time.Second

// nodeBundle groups all components for one logical node.
type nodeBundle struct {
	name string
	host *host.Host
	feed *feed.Feed
}

// eventSink collects gossiped events on the watcher node.
type eventSink struct {
	mu   sync.Mutex
	seen []events.Event
}

func (s *eventSink) add(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, ev)
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func main() {
	klog.Init("info", false, "")
	logger := klog.WithComponent("testnet")
	types.SetAddressHRP(types.TestnetHRP)

	logger.Info().Msg("=== Trending 2-Node Local Testnet ===")

	// ── Phase 1: Load well-known testnet identity + deployment ──────────

	keyBytes, err := hex.DecodeString(config.TestnetControllerKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("decode testnet controller key")
	}
	controllerKey, err := crypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		logger.Fatal().Err(err).Msg("load testnet controller key")
	}
	controllerAddr := crypto.AddressFromPubKey(controllerKey.PublicKey())

	minterKey, err := crypto.GenerateKey()
	if err != nil {
		logger.Fatal().Err(err).Msg("generate minter key")
	}
	minterAddr := crypto.AddressFromPubKey(minterKey.PublicKey())

	dep := config.TestnetDeployment()
	dep.Network = "trending-testnet-local"
	dep.Timestamp = uint64(time.Now().Unix())
	dep.Alloc[minterAddr.Hex()] = 100 * coin.Coin
	depHash, err := dep.Hash()
	if err != nil {
		logger.Fatal().Err(err).Msg("hash deployment")
	}

	logger.Info().
		Str("network", dep.Network).
		Str("controller", controllerAddr.String()).
		Str("minter", minterAddr.String()).
		Uint64("unit_price", dep.UnitPrice).
		Msg("Deployment created")

	// ── Phase 2: Build nodes ────────────────────────────────────────────

	node1, err := buildNode("node-1", dep, depHash)
	if err != nil {
		logger.Fatal().Err(err).Msg("build node-1")
	}
	node2, err := buildNode("node-2", dep, depHash)
	if err != nil {
		logger.Fatal().Err(err).Msg("build node-2")
	}

	sink := &eventSink{}
	node2.feed.SetEventHandler(func(_ libp2ppeer.ID, data []byte) {
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Error().Err(err).Msg("unmarshal event")
			return
		}
		logger.Info().
			Uint64("seq", ev.Seq).
			Str("kind", ev.Kind).
			Msg("node-2: event received via gossip")
		sink.add(ev)
	})

	// ── Phase 3: Start feeds + connect ──────────────────────────────────

	if err := node1.feed.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-1 feed")
	}
	if err := node2.feed.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start node-2 feed")
	}
	defer cleanup(node1, node2)

	connectFeeds(node1.feed, node2.feed)
	time.Sleep(500 * time.Millisecond) // GossipSub mesh stabilization.

	logger.Info().
		Int("node1_peers", node1.feed.PeerCount()).
		Int("node2_peers", node2.feed.PeerCount()).
		Msg("Nodes connected")

	// ── Phase 4: Signal handling ────────────────────────────────────────

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info().Msg("Shutdown signal received")
		cancel()
	}()

	// ── Phase 5: Day-one scenario ───────────────────────────────────────

	nonces := map[types.Address]uint64{}
	next := func(addr types.Address) uint64 {
		nonces[addr]++
		return nonces[addr]
	}
	run := func(label string, key *crypto.PrivateKey, o *op.Op, buildErr error) host.Receipt {
		if buildErr != nil {
			logger.Fatal().Err(buildErr).Str("op", label).Msg("build operation")
		}
		if err := o.Sign(key); err != nil {
			logger.Fatal().Err(err).Str("op", label).Msg("sign operation")
		}
		receipt, err := node1.host.Execute(o)
		if err != nil {
			logger.Fatal().Err(err).Str("op", label).Msg("execute operation")
		}
		for _, ev := range receipt.Events {
			if err := node1.feed.PublishEvent(ev); err != nil {
				logger.Error().Err(err).Uint64("seq", ev.Seq).Msg("publish event")
			}
		}
		logger.Info().
			Str("op", label).
			Uint64("result", receipt.Result).
			Msg("Operation committed")
		return receipt
	}

	createOp, buildErr := op.NewSeriesCreate(depHash, next(controllerAddr), "ipfs://bafy-local-day-one")
	createRcpt := run("series create", controllerKey, createOp, buildErr)
	seriesID := createRcpt.Result

	mintOp, buildErr := op.NewSeriesMint(depHash, next(minterAddr), 3, 3*dep.UnitPrice)
	run("series mint x3", minterKey, mintOp, buildErr)

	moveOp, buildErr := op.NewEditionTransfer(depHash, next(minterAddr), controllerAddr, seriesID, 1)
	run("edition transfer", minterKey, moveOp, buildErr)

	upsertOp, buildErr := op.NewRegistryUpsert(depHash, next(controllerAddr), op.UpsertPayload{
		ID:      1,
		Title:   "Local Testnet Topic",
		Hash:    crypto.Hash([]byte("local testnet topic")),
		Votes:   42,
		Locator: "ipfs://bafy-local-topic",
	})
	run("registry upsert", controllerKey, upsertOp, buildErr)

	sweepOp, buildErr := op.NewSeriesWithdraw(depHash, next(controllerAddr))
	sweepRcpt := run("treasury withdraw", controllerKey, sweepOp, buildErr)

	// ── Phase 6: Verification ───────────────────────────────────────────

	head, err := node1.host.EventsHead()
	if err != nil {
		logger.Fatal().Err(err).Msg("events head")
	}

	deadline := time.Now().Add(verifyTimeout)
	for sink.count() < int(head) && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Verification interrupted")
			return
		case <-time.After(100 * time.Millisecond):
		}
	}

	minterEditions, _ := node1.host.EditionBalance(minterAddr, seriesID)
	controllerEditions, _ := node1.host.EditionBalance(controllerAddr, seriesID)
	treasuryBal, _ := node1.host.Balance(dep.TreasuryAddress())
	row, _, _ := node1.host.SeriesRow(seriesID)

	logger.Info().
		Uint64("event_head", head).
		Int("gossiped", sink.count()).
		Msg("Final state")

	ok := sink.count() == int(head) &&
		minterEditions == 2 &&
		controllerEditions == 1 &&
		treasuryBal == 0 &&
		row.Minted == 3 &&
		sweepRcpt.Result == 3*dep.UnitPrice

	if ok {
		logger.Info().Msg("SUCCESS: watcher received the full event log and state checks out")
		fmt.Println()
		fmt.Printf("  Series ID:        %d\n", seriesID)
		fmt.Printf("  Editions minted:  %d\n", row.Minted)
		fmt.Printf("  Minter holds:     %d\n", minterEditions)
		fmt.Printf("  Controller holds: %d\n", controllerEditions)
		fmt.Printf("  Treasury swept:   %s TRN\n", coin.FormatShort(sweepRcpt.Result))
		fmt.Printf("  Events gossiped:  %d\n", sink.count())
		fmt.Printf("  Unit price:       %s TRN\n", coin.FormatShort(dep.UnitPrice))
		fmt.Println()
	} else {
		logger.Error().
			Uint64("expected_events", head).
			Int("received", sink.count()).
			Uint64("minter_editions", minterEditions).
			Uint64("controller_editions", controllerEditions).
			Uint64("treasury", treasuryBal).
			Msg("FAILURE: state mismatch between nodes!")
		os.Exit(1)
	}
}

// buildNode creates a fully wired node with storage, host, and feed.
func buildNode(name string, dep *config.Deployment, depHash types.Hash) (*nodeBundle, error) {
	db := storage.NewMemory()

	led := ledger.New(db)
	for addrStr, amount := range dep.Alloc {
		addr, err := types.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("alloc address %q: %w", addrStr, err)
		}
		if err := led.Credit(addr, amount); err != nil {
			return nil, fmt.Errorf("credit %s: %w", addrStr, err)
		}
	}

	controller, err := dep.ControllerAddress()
	if err != nil {
		return nil, fmt.Errorf("controller address: %w", err)
	}

	h := host.New(db, host.Config{
		Deployment: depHash,
		Controller: controller,
		Treasury:   dep.TreasuryAddress(),
		UnitPrice:  dep.UnitPrice,
	})

	f := feed.New(feed.Config{
		ListenAddr: "127.0.0.1",
		Port:       0, // Random port.
		NoDiscover: true,
		NetworkID:  dep.Network,
	})

	return &nodeBundle{name: name, host: h, feed: f}, nil
}

// connectFeeds connects two feed nodes directly.
func connectFeeds(a, b *feed.Feed) {
	info := libp2ppeer.AddrInfo{
		ID:    a.Host().ID(),
		Addrs: a.Host().Addrs(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.Host().Connect(ctx, info)
}

// cleanup stops all feed nodes.
func cleanup(nodes ...*nodeBundle) {
	for _, n := range nodes {
		n.feed.Stop()
	}
}
