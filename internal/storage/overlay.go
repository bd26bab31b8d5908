package storage

import (
	"fmt"
	"strings"
)

// Overlay is a staged-write view over a base DB. Reads see staged
// changes first and fall through to the base; the base is untouched
// until Commit. Discard drops everything staged. The host runs each
// operation against a fresh overlay so a failed operation leaves no
// partial writes behind.
//
// An Overlay is not safe for concurrent use.
type Overlay struct {
	base   DB
	writes map[string][]byte // staged puts; nil value marks a staged delete
}

// NewOverlay creates an empty overlay over base.
func NewOverlay(base DB) *Overlay {
	return &Overlay{
		base:   base,
		writes: make(map[string][]byte),
	}
}

// Get retrieves a value, consulting staged writes first.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if v, ok := o.writes[string(key)]; ok {
		if v == nil {
			return nil, fmt.Errorf("overlay get: %w", ErrNotFound)
		}
		return v, nil
	}
	return o.base.Get(key)
}

// Put stages a key-value pair. The inputs are copied.
func (o *Overlay) Put(key, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	o.writes[string(key)] = v
	return nil
}

// Delete stages a key removal.
func (o *Overlay) Delete(key []byte) error {
	o.writes[string(key)] = nil
	return nil
}

// Has checks key existence, consulting staged writes first.
func (o *Overlay) Has(key []byte) (bool, error) {
	if v, ok := o.writes[string(key)]; ok {
		return v != nil, nil
	}
	return o.base.Has(key)
}

// ForEach iterates over the merged view: base entries with staged
// overrides applied, plus staged keys absent from the base. Iteration
// order is unspecified.
func (o *Overlay) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	emitted := make(map[string]bool)
	err := o.base.ForEach(prefix, func(key, value []byte) error {
		k := string(key)
		emitted[k] = true
		if staged, ok := o.writes[k]; ok {
			if staged == nil {
				return nil
			}
			return fn(key, staged)
		}
		return fn(key, value)
	})
	if err != nil {
		return err
	}

	p := string(prefix)
	for k, v := range o.writes {
		if v == nil || emitted[k] || !strings.HasPrefix(k, p) {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of staged writes.
func (o *Overlay) Len() int {
	return len(o.writes)
}

// Commit applies the staged writes to the base and clears the overlay.
// Uses the base's write batch when available so the whole set lands
// atomically.
func (o *Overlay) Commit() error {
	if len(o.writes) == 0 {
		return nil
	}

	if batcher, ok := o.base.(Batcher); ok {
		batch := batcher.NewBatch()
		for k, v := range o.writes {
			if v == nil {
				if err := batch.Delete([]byte(k)); err != nil {
					return fmt.Errorf("overlay commit: %w", err)
				}
			} else {
				if err := batch.Put([]byte(k), v); err != nil {
					return fmt.Errorf("overlay commit: %w", err)
				}
			}
		}
		if err := batch.Commit(); err != nil {
			return fmt.Errorf("overlay commit: %w", err)
		}
	} else {
		for k, v := range o.writes {
			if v == nil {
				if err := o.base.Delete([]byte(k)); err != nil {
					return fmt.Errorf("overlay commit: %w", err)
				}
			} else {
				if err := o.base.Put([]byte(k), v); err != nil {
					return fmt.Errorf("overlay commit: %w", err)
				}
			}
		}
	}

	o.writes = make(map[string][]byte)
	return nil
}

// Discard drops all staged writes without touching the base.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
}

// Close is a no-op; the base DB manages its own lifecycle.
func (o *Overlay) Close() error {
	return nil
}
