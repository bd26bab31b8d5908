package feed

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
)

// Peer is a connected feed peer.
type Peer struct {
	ID          peer.ID
	ConnectedAt time.Time
	Source      string // "dht", "mdns", "seed", "gossip"
}
