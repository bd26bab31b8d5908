package feed

import (
	"context"

	"github.com/libp2p/go-libp2p/core/peer"
)

// discoveryNotifee handles mDNS peer discovery notifications.
type discoveryNotifee struct {
	feed *Feed
}

// HandlePeerFound is called when a peer is discovered via mDNS.
func (d *discoveryNotifee) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == d.feed.host.ID() {
		return // ignore self
	}

	ctx, cancel := context.WithTimeout(d.feed.ctx, connectTimeout)
	defer cancel()

	if err := d.feed.host.Connect(ctx, pi); err == nil {
		d.feed.addPeer(pi.ID, "mdns")
	}
}
