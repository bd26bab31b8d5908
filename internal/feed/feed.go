// Package feed gossips committed events to external indexers over
// libp2p. Every node publishes to one GossipSub topic; subscribers
// (other nodes, indexers, the CLI watch command) receive the stream.
package feed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dutil "github.com/libp2p/go-libp2p/p2p/discovery/util"

	"github.com/QingfengHuu/trending-nft/internal/log"
	"github.com/QingfengHuu/trending-nft/internal/storage"
)

const (
	// discoverInterval is how often DHT FindPeers runs.
	discoverInterval = 30 * time.Second

	// connectTimeout bounds a single peer connection attempt.
	connectTimeout = 5 * time.Second

	// seedRetryInterval is how often seed connections are retried while
	// the node has no peers.
	seedRetryInterval = 10 * time.Second

	// maxMessageSize caps a gossip message. Events are small; the
	// headroom covers future attrs without a protocol bump.
	maxMessageSize = 1 << 20
)

// Config holds feed node configuration.
type Config struct {
	ListenAddr string
	Port       int
	Seeds      []string
	MaxPeers   int
	NoDiscover bool
	DB         storage.DB // peer persistence (nil = disabled, for tests)
	DHTServer  bool       // run DHT in server mode (for seeds)
	NetworkID  string     // isolates DHT/mDNS discovery per deployment
	DataDir    string     // persists the node identity key
}

// Feed is a gossip node built on libp2p.
type Feed struct {
	host   host.Host
	pubsub *pubsub.PubSub
	config Config
	ctx    context.Context
	cancel context.CancelFunc

	topic *pubsub.Topic
	sub   *pubsub.Subscription

	eventHandler func(peer.ID, []byte)

	mu    sync.RWMutex
	peers map[peer.ID]*Peer

	store      *PeerStore   // nil if Config.DB is nil
	dht        *dht.IpfsDHT // nil if NoDiscover
	connNotify *connNotifier
}

// New creates a feed node with the given config.
func New(cfg Config) *Feed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Feed{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		peers:  make(map[peer.ID]*Peer),
	}
	if cfg.DB != nil {
		f.store = NewPeerStore(cfg.DB)
	}
	return f
}

// rendezvous returns the DHT/mDNS discovery namespace for this node.
// A NetworkID isolates discovery per deployment.
func (f *Feed) rendezvous() string {
	if f.config.NetworkID != "" {
		return "trending/" + f.config.NetworkID
	}
	return rendezvousFallback
}

// Start initializes the libp2p host and pubsub and begins listening.
func (f *Feed) Start() error {
	addr := fmt.Sprintf("/ip4/%s/tcp/%d", f.config.ListenAddr, f.config.Port)

	opts := []libp2p.Option{
		libp2p.ListenAddrStrings(addr),
	}

	// Load or generate a persistent identity so the peer ID survives
	// restarts.
	if f.config.DataDir != "" {
		privKey, err := loadOrCreateIdentity(f.config.DataDir)
		if err != nil {
			return fmt.Errorf("load feed identity: %w", err)
		}
		opts = append(opts, libp2p.Identity(privKey))
	}

	h, err := libp2p.New(opts...)
	if err != nil {
		return fmt.Errorf("create libp2p host: %w", err)
	}
	f.host = h

	f.connNotify = &connNotifier{feed: f}
	h.Network().Notify(f.connNotify)

	// Init DHT before GossipSub so the DHT can serve as a peer source.
	if !f.config.NoDiscover {
		if err := f.initDHT(); err != nil {
			h.Close()
			return fmt.Errorf("init dht: %w", err)
		}
	}

	ps, err := pubsub.NewGossipSub(f.ctx, h,
		pubsub.WithMaxMessageSize(maxMessageSize),
	)
	if err != nil {
		f.closeDHT()
		h.Close()
		return fmt.Errorf("create pubsub: %w", err)
	}
	f.pubsub = ps

	f.topic, err = ps.Join(TopicEvents)
	if err != nil {
		f.closeDHT()
		h.Close()
		return fmt.Errorf("join events topic: %w", err)
	}
	f.sub, err = f.topic.Subscribe()
	if err != nil {
		f.closeDHT()
		h.Close()
		return fmt.Errorf("subscribe events: %w", err)
	}

	go f.readLoop()

	// Reconnect persisted peers in the background.
	go f.loadPersistedPeers()

	if len(f.config.Seeds) > 0 {
		log.Feed.Info().Int("seeds", len(f.config.Seeds)).Msg("Connecting to seeds...")
	}
	f.connectSeedsOnce()
	go f.connectSeedsLoop()

	if !f.config.NoDiscover {
		f.startMDNS()
		go f.runDHTDiscovery()
	}

	if f.store != nil {
		go f.runPersistLoop()
	}

	return nil
}

// Stop shuts down the feed node.
func (f *Feed) Stop() error {
	f.persistPeers()

	f.cancel()
	if f.sub != nil {
		f.sub.Cancel()
	}
	if f.topic != nil {
		f.topic.Close()
	}
	f.closeDHT()
	if f.host != nil {
		return f.host.Close()
	}
	return nil
}

// Host returns the underlying libp2p host (nil before Start).
func (f *Feed) Host() host.Host {
	return f.host
}

// ID returns the peer ID of this node.
func (f *Feed) ID() peer.ID {
	if f.host == nil {
		return ""
	}
	return f.host.ID()
}

// Addrs returns the full multiaddrs of this node.
func (f *Feed) Addrs() []string {
	if f.host == nil {
		return nil
	}
	var addrs []string
	for _, a := range f.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", a, f.host.ID()))
	}
	return addrs
}

// SetEventHandler registers a callback for incoming gossiped events.
// The callback receives the sender peer ID and the raw message bytes.
func (f *Feed) SetEventHandler(fn func(from peer.ID, data []byte)) {
	f.eventHandler = fn
}

// PeerCount returns the number of connected peers.
func (f *Feed) PeerCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.peers)
}

// PeerList returns a snapshot of connected peers.
func (f *Feed) PeerList() []*Peer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Peer, 0, len(f.peers))
	for _, p := range f.peers {
		out = append(out, p)
	}
	return out
}

func (f *Feed) addPeer(id peer.ID, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.peers[id]; !exists {
		f.peers[id] = &Peer{
			ID:          id,
			ConnectedAt: time.Now(),
			Source:      source,
		}
	}
}

func (f *Feed) removePeer(id peer.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.peers, id)
}

func (f *Feed) readLoop() {
	for {
		msg, err := f.sub.Next(f.ctx)
		if err != nil {
			return // context cancelled
		}
		if msg.ReceivedFrom == f.host.ID() {
			continue // skip own messages
		}
		f.handleEventMessage(msg)
	}
}

func (f *Feed) handleEventMessage(msg *pubsub.Message) {
	defer func() { recover() }()
	f.addPeer(msg.ReceivedFrom, "gossip")
	if f.eventHandler != nil {
		f.eventHandler(msg.ReceivedFrom, msg.Data)
	}
}

func (f *Feed) startMDNS() {
	svc := mdns.NewMdnsService(f.host, f.rendezvous(), &discoveryNotifee{feed: f})
	// mDNS failure is non-fatal.
	_ = svc.Start()
}

// connectSeedsOnce tries each seed peer once, blocking. Returns true
// if at least one seed connected.
func (f *Feed) connectSeedsOnce() bool {
	connected := false
	for _, addr := range f.config.Seeds {
		info, err := peer.AddrInfoFromString(addr)
		if err != nil {
			log.Feed.Warn().Str("addr", addr).Err(err).Msg("Bad seed address")
			continue
		}
		ctx, cancel := context.WithTimeout(f.ctx, 10*time.Second)
		err = f.host.Connect(ctx, *info)
		cancel()
		if err != nil {
			log.Feed.Warn().Str("peer", shortID(info.ID)).Err(err).Msg("Seed connect failed")
		} else {
			f.addPeer(info.ID, "seed")
			log.Feed.Info().Str("peer", shortID(info.ID)).Msg("Seed connected")
			connected = true
		}
	}
	return connected
}

// connectSeedsLoop retries seed connections while the node has no peers.
func (f *Feed) connectSeedsLoop() {
	if len(f.config.Seeds) == 0 {
		return
	}
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-time.After(seedRetryInterval):
			if f.PeerCount() == 0 {
				log.Feed.Info().Int("seeds", len(f.config.Seeds)).Msg("No peers, retrying seeds...")
				f.connectSeedsOnce()
			}
		}
	}
}

func shortID(id peer.ID) string {
	s := id.String()
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

// --- DHT ---

func (f *Feed) initDHT() error {
	mode := dht.ModeClient
	if f.config.DHTServer {
		mode = dht.ModeServer
	}
	kadDHT, err := dht.New(f.ctx, f.host, dht.Mode(mode))
	if err != nil {
		return fmt.Errorf("create kad-dht: %w", err)
	}
	f.dht = kadDHT
	return kadDHT.Bootstrap(f.ctx)
}

func (f *Feed) closeDHT() {
	if f.dht != nil {
		f.dht.Close()
		f.dht = nil
	}
}

func (f *Feed) runDHTDiscovery() {
	if f.dht == nil {
		return
	}

	routingDiscovery := drouting.NewRoutingDiscovery(f.dht)
	dutil.Advertise(f.ctx, routingDiscovery, f.rendezvous())

	ticker := time.NewTicker(discoverInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.findDHTPeers(routingDiscovery)
		}
	}
}

func (f *Feed) findDHTPeers(routingDiscovery *drouting.RoutingDiscovery) {
	ctx, cancel := context.WithTimeout(f.ctx, 20*time.Second)
	defer cancel()

	peerCh, err := routingDiscovery.FindPeers(ctx, f.rendezvous())
	if err != nil {
		return
	}

	for p := range peerCh {
		if p.ID == f.host.ID() || len(p.Addrs) == 0 {
			continue
		}
		if f.config.MaxPeers > 0 && f.PeerCount() >= f.config.MaxPeers {
			return
		}

		connectCtx, connectCancel := context.WithTimeout(f.ctx, connectTimeout)
		if err := f.host.Connect(connectCtx, p); err == nil {
			f.addPeer(p.ID, "dht")
		}
		connectCancel()
	}
}

// --- Peer persistence ---

func (f *Feed) persistPeers() {
	if f.store == nil || f.host == nil {
		return
	}

	f.mu.RLock()
	snapshot := make([]*Peer, 0, len(f.peers))
	for _, p := range f.peers {
		snapshot = append(snapshot, p)
	}
	f.mu.RUnlock()

	now := time.Now().Unix()
	for _, p := range snapshot {
		addrs := f.host.Peerstore().Addrs(p.ID)
		addrStrs := make([]string, len(addrs))
		for i, a := range addrs {
			addrStrs[i] = a.String()
		}
		// Best-effort, ignore errors.
		f.store.Save(PeerRecord{
			ID:       p.ID.String(),
			Addrs:    addrStrs,
			LastSeen: now,
			Source:   p.Source,
		})
	}
}

func (f *Feed) loadPersistedPeers() {
	if f.store == nil {
		return
	}

	f.store.PruneStale(staleThreshold)

	records, err := f.store.LoadAll()
	if err != nil {
		return
	}

	for _, rec := range records {
		id, err := peer.Decode(rec.ID)
		if err != nil {
			continue
		}
		if id == f.host.ID() {
			continue
		}

		info := peer.AddrInfo{ID: id}
		for _, addr := range rec.Addrs {
			ai, err := peer.AddrInfoFromString(fmt.Sprintf("%s/p2p/%s", addr, rec.ID))
			if err != nil {
				continue
			}
			info.Addrs = append(info.Addrs, ai.Addrs...)
		}
		if len(info.Addrs) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(f.ctx, connectTimeout)
		f.host.Connect(ctx, info) // best-effort reconnect
		cancel()
	}
}

func (f *Feed) runPersistLoop() {
	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.persistPeers()
			f.store.PruneStale(staleThreshold)
		}
	}
}

// loadOrCreateIdentity loads the persisted libp2p identity key from
// dataDir, or generates one and saves it so the peer ID is stable.
func loadOrCreateIdentity(dataDir string) (libp2pcrypto.PrivKey, error) {
	keyPath := filepath.Join(dataDir, "feed.key")

	data, err := os.ReadFile(keyPath)
	if err == nil {
		keyBytes, err := hex.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("decode feed key: %w", err)
		}
		return libp2pcrypto.UnmarshalEd25519PrivateKey(keyBytes)
	}

	priv, _, err := libp2pcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	raw, err := priv.Raw()
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(raw)), 0600); err != nil {
		return nil, fmt.Errorf("save feed key: %w", err)
	}

	return priv, nil
}
