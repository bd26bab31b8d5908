package host

import (
	"io"

	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/registry"
	"github.com/QingfengHuu/trending-nft/internal/series"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Read accessors over committed state. These bypass the sequencer.

// Deployment returns the deployment identifier operations must carry.
func (h *Host) Deployment() types.Hash { return h.cfg.Deployment }

// Controller returns the privileged address.
func (h *Host) Controller() types.Address { return h.gate.Controller() }

// Treasury returns the payment accumulation address.
func (h *Host) Treasury() types.Address { return h.cfg.Treasury }

// UnitPrice returns the per-edition mint price in base coin units.
func (h *Host) UnitPrice() uint64 { return h.cfg.UnitPrice }

// CurrentInfo reports the most recently created series.
func (h *Host) CurrentInfo() (series.Info, error) {
	return h.series.CurrentInfo()
}

// MintActive reports whether minting is currently possible.
func (h *Host) MintActive() (bool, error) {
	return h.series.MintActive()
}

// Locator returns the content locator of a series.
func (h *Host) Locator(id uint64) (string, error) {
	return h.series.LocatorOf(id)
}

// SeriesRow returns the raw stored record of a series.
func (h *Host) SeriesRow(id uint64) (series.Row, bool, error) {
	return h.series.Series(id)
}

// Record returns a registry record.
func (h *Host) Record(id uint64) (registry.Record, bool, error) {
	return h.registry.Get(id)
}

// RecordExists reports whether a registry record is stored for id.
func (h *Host) RecordExists(id uint64) (bool, error) {
	return h.registry.Exists(id)
}

// Balance returns an account's coin balance.
func (h *Host) Balance(addr types.Address) (uint64, error) {
	return h.ledger.Balance(addr)
}

// Nonce returns an account's last committed operation nonce.
func (h *Host) Nonce(addr types.Address) (uint64, error) {
	return h.ledger.Nonce(addr)
}

// Editions returns every edition balance held by addr.
func (h *Host) Editions(addr types.Address) ([]ledger.EditionBalance, error) {
	return h.ledger.EditionsOf(addr)
}

// EditionBalance returns how many units of one series addr holds.
func (h *Host) EditionBalance(addr types.Address, seriesID uint64) (uint64, error) {
	return h.ledger.EditionBalance(addr, seriesID)
}

// EventsHead returns the newest event sequence, 0 when none.
func (h *Host) EventsHead() (uint64, error) {
	return h.events.Head()
}

// Event returns one event log entry.
func (h *Host) Event(seq uint64) (events.Event, bool, error) {
	return h.events.Get(seq)
}

// EventRange reads up to limit events starting at from.
func (h *Host) EventRange(from uint64, limit int) ([]events.Event, error) {
	return h.events.Range(from, limit)
}

// ExportEvents writes the whole event log to w as a compressed snapshot.
func (h *Host) ExportEvents(w io.Writer) error {
	return h.events.Export(w)
}
