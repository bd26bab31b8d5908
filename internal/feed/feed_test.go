package feed

import (
	"context"
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/QingfengHuu/trending-nft/internal/events"
)

// --- Lifecycle ---

func TestFeed_New(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	if f == nil {
		t.Fatal("New returned nil")
	}
	if f.host != nil {
		t.Error("host should be nil before Start")
	}
	if f.ID() != "" {
		t.Error("ID should be empty before Start")
	}
	if f.Addrs() != nil {
		t.Error("Addrs should be nil before Start")
	}
}

func TestFeed_StartStop(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true})

	if err := f.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if f.host == nil {
		t.Fatal("host should not be nil after Start")
	}
	if f.ID() == "" {
		t.Error("ID should not be empty after Start")
	}
	if len(f.Addrs()) == 0 {
		t.Error("should have at least one address")
	}

	if err := f.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestFeed_StopBeforeStart(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	if err := f.Stop(); err != nil {
		t.Fatalf("Stop before Start should not error: %v", err)
	}
}

// --- Peer management ---

func TestFeed_PeerCount_Empty(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	if f.PeerCount() != 0 {
		t.Error("fresh feed should have 0 peers")
	}
}

func TestFeed_AddRemovePeer(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	fakeID := peer.ID("test-peer-1")

	f.addPeer(fakeID, "seed")
	if f.PeerCount() != 1 {
		t.Errorf("expected 1 peer, got %d", f.PeerCount())
	}

	// Adding the same peer again should not duplicate.
	f.addPeer(fakeID, "dht")
	if f.PeerCount() != 1 {
		t.Errorf("expected 1 peer after dup, got %d", f.PeerCount())
	}

	f.removePeer(fakeID)
	if f.PeerCount() != 0 {
		t.Errorf("expected 0 peers after remove, got %d", f.PeerCount())
	}
}

func TestFeed_PeerList(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	f.addPeer(peer.ID("a"), "seed")
	f.addPeer(peer.ID("b"), "mdns")

	list := f.PeerList()
	if len(list) != 2 {
		t.Errorf("expected 2 peers, got %d", len(list))
	}
}

// --- Rendezvous ---

func TestFeed_Rendezvous_WithNetworkID(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0, NetworkID: "trending-mainnet-1"})
	want := "trending/trending-mainnet-1"
	if got := f.rendezvous(); got != want {
		t.Errorf("rendezvous() = %q, want %q", got, want)
	}
}

func TestFeed_Rendezvous_Empty(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	if got := f.rendezvous(); got != rendezvousFallback {
		t.Errorf("rendezvous() = %q, want %q", got, rendezvousFallback)
	}
}

// --- Publish before Start ---

func TestFeed_PublishEvent_NotStarted(t *testing.T) {
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0})
	err := f.PublishEvent(events.Event{Kind: events.KindSeriesCreated, Series: 1})
	if err == nil {
		t.Error("PublishEvent should fail before Start")
	}
}

// --- Identity persistence ---

func TestLoadOrCreateIdentity_Stable(t *testing.T) {
	dir, err := os.MkdirTemp("", "feed-identity-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)

	first, err := loadOrCreateIdentity(dir)
	if err != nil {
		t.Fatalf("first loadOrCreateIdentity: %v", err)
	}
	second, err := loadOrCreateIdentity(dir)
	if err != nil {
		t.Fatalf("second loadOrCreateIdentity: %v", err)
	}

	if !first.Equals(second) {
		t.Error("identity key changed across loads")
	}
}

// --- Two-node gossip ---

func startTestFeed(t *testing.T) *Feed {
	t.Helper()
	f := New(Config{ListenAddr: "127.0.0.1", Port: 0, NoDiscover: true})
	if err := f.Start(); err != nil {
		t.Fatalf("start feed: %v", err)
	}
	t.Cleanup(func() { f.Stop() })
	return f
}

func connectFeeds(t *testing.T, a, b *Feed) {
	t.Helper()
	aInfo := peer.AddrInfo{
		ID:    a.host.ID(),
		Addrs: a.host.Addrs(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.host.Connect(ctx, aInfo); err != nil {
		t.Fatalf("connect feeds: %v", err)
	}

	// Give GossipSub time to establish mesh.
	time.Sleep(200 * time.Millisecond)
}

func TestTwoFeeds_EventGossip(t *testing.T) {
	feedA := startTestFeed(t)
	feedB := startTestFeed(t)
	connectFeeds(t, feedA, feedB)

	var received atomic.Value
	feedB.SetEventHandler(func(_ peer.ID, data []byte) {
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err == nil {
			received.Store(&ev)
		}
	})

	// Give the mesh time to stabilize.
	time.Sleep(300 * time.Millisecond)

	sent := events.Event{
		Seq:    7,
		Kind:   events.KindSeriesMinted,
		Time:   uint64(time.Now().Unix()),
		Series: 3,
		Amount: 2,
	}
	if err := feedA.PublishEvent(sent); err != nil {
		t.Fatalf("PublishEvent: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if v := received.Load(); v != nil {
			got := v.(*events.Event)
			if got.Seq != 7 || got.Kind != events.KindSeriesMinted || got.Amount != 2 {
				t.Errorf("received event mismatch: %+v", got)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for event gossip")
		default:
			time.Sleep(50 * time.Millisecond)
		}
	}
}
