// Package registry implements the metadata registry contract: a keyed
// record store with controller-gated writes and public reads.
package registry

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/QingfengHuu/trending-nft/internal/gate"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// ErrNotFound is returned when a record id has no stored entry.
var ErrNotFound = errors.New("record not found")

var prefixRecord = []byte("r/") // r/<id(8)> -> Record JSON

// Record is one curated attestation, keyed by series id.
type Record struct {
	Title     string     `json:"title"`
	Hash      types.Hash `json:"hash"`
	Votes     uint64     `json:"votes"`
	Locator   string     `json:"locator"`
	CreatedAt uint64     `json:"created_at"`
	UpdatedAt uint64     `json:"updated_at"`
}

// Registry owns the record keyspace. Writes are controller-only; the
// host serializes operations, so no internal locking is needed.
type Registry struct {
	db   storage.DB
	gate *gate.Gate
	now  func() uint64
}

// New creates a registry on top of the given database.
func New(db storage.DB, g *gate.Gate, nowFn func() uint64) *Registry {
	return &Registry{db: db, gate: g, now: nowFn}
}

func recordKey(id uint64) []byte {
	key := make([]byte, len(prefixRecord)+8)
	copy(key, prefixRecord)
	binary.BigEndian.PutUint64(key[len(prefixRecord):], id)
	return key
}

// Upsert creates or overwrites the record for id. Controller only.
// A fresh record gets CreatedAt = now; an overwrite keeps the original
// CreatedAt and bumps UpdatedAt.
func (r *Registry) Upsert(caller types.Address, id uint64, title string, hash types.Hash, votes uint64, locator string) error {
	if err := r.gate.Require(caller); err != nil {
		return err
	}
	now := r.now()
	rec := Record{
		Title:     title,
		Hash:      hash,
		Votes:     votes,
		Locator:   locator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok, err := r.Get(id); err != nil {
		return err
	} else if ok {
		rec.CreatedAt = prev.CreatedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("record marshal: %w", err)
	}
	return r.db.Put(recordKey(id), data)
}

// Get retrieves the record for id. The bool reports whether it exists.
func (r *Registry) Get(id uint64) (Record, bool, error) {
	data, err := r.db.Get(recordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("record get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("record unmarshal: %w", err)
	}
	return rec, true, nil
}

// Exists reports whether a record is stored for id.
func (r *Registry) Exists(id uint64) (bool, error) {
	return r.db.Has(recordKey(id))
}

// Delete removes the record for id. Controller only.
func (r *Registry) Delete(caller types.Address, id uint64) error {
	if err := r.gate.Require(caller); err != nil {
		return err
	}
	ok, err := r.Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r.db.Delete(recordKey(id))
}
