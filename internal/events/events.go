// Package events persists the append-only event log written by the
// host after each committed operation. External indexers consume it
// through the RPC range reads or the gossip feed.
package events

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Event kinds.
const (
	KindSeriesCreated      = "series_created"
	KindSeriesMinted       = "series_minted"
	KindLocatorUpdated     = "locator_updated"
	KindBalanceWithdrawn   = "balance_withdrawn"
	KindRecordUpserted     = "record_upserted"
	KindRecordDeleted      = "record_deleted"
	KindCoinTransferred    = "coin_transferred"
	KindEditionTransferred = "edition_transferred"
)

// Storage keys.
var (
	keyHead     = []byte("e/head") // head sequence, 8 bytes
	prefixEntry = []byte("e/l/")   // e/l/<seq(8)> -> Event JSON
)

// Event is one immutable log entry. Seq is assigned on append and is
// dense: the log has exactly the entries 1..Head with no gaps. Fields
// beyond the common header are populated per kind.
type Event struct {
	Seq         uint64         `json:"seq"`
	Kind        string         `json:"kind"`
	Time        uint64         `json:"time"`
	Op          types.OpID     `json:"op"`
	Caller      types.Address  `json:"caller"`
	Series      uint64         `json:"series,omitempty"`
	Amount      uint64         `json:"amount,omitempty"`
	Record      uint64         `json:"record,omitempty"`
	Locator     string         `json:"locator,omitempty"`
	WindowStart uint64         `json:"window_start,omitempty"`
	To          *types.Address `json:"to,omitempty"`
}

// Log is the persistent event log. Appends go through the host's
// per-operation overlay, so an entry becomes visible only when the
// operation that produced it commits.
type Log struct {
	db storage.DB
}

// NewLog creates an event log on top of the given database.
func NewLog(db storage.DB) *Log {
	return &Log{db: db}
}

func entryKey(seq uint64) []byte {
	key := make([]byte, len(prefixEntry)+8)
	copy(key, prefixEntry)
	binary.BigEndian.PutUint64(key[len(prefixEntry):], seq)
	return key
}

// Head returns the sequence of the newest entry, 0 when the log is empty.
func (l *Log) Head() (uint64, error) {
	data, err := l.db.Get(keyHead)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("event head get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("event head corrupt: %d bytes", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

// Append assigns the next sequence to ev and stores it. Returns the
// assigned sequence.
func (l *Log) Append(ev Event) (uint64, error) {
	head, err := l.Head()
	if err != nil {
		return 0, err
	}
	seq := head + 1
	ev.Seq = seq

	data, err := json.Marshal(ev)
	if err != nil {
		return 0, fmt.Errorf("event marshal: %w", err)
	}
	if err := l.db.Put(entryKey(seq), data); err != nil {
		return 0, err
	}
	headBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(headBuf, seq)
	if err := l.db.Put(keyHead, headBuf); err != nil {
		return 0, err
	}
	return seq, nil
}

// Get retrieves one entry. The bool reports whether it exists.
func (l *Log) Get(seq uint64) (Event, bool, error) {
	data, err := l.db.Get(entryKey(seq))
	if errors.Is(err, storage.ErrNotFound) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, fmt.Errorf("event get: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, false, fmt.Errorf("event unmarshal: %w", err)
	}
	return ev, true, nil
}

// Range reads up to limit entries starting at sequence from. A from of
// zero reads from the start of the log. Returns fewer entries when the
// head is reached.
func (l *Log) Range(from uint64, limit int) ([]Event, error) {
	head, err := l.Head()
	if err != nil {
		return nil, err
	}
	if from == 0 {
		from = 1
	}
	if from > head || limit <= 0 {
		return nil, nil
	}

	out := make([]Event, 0, limit)
	for seq := from; seq <= head && len(out) < limit; seq++ {
		ev, ok, err := l.Get(seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("event log gap at %d", seq)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Export writes the whole log to w as zstd-compressed JSON lines.
func (l *Log) Export(w io.Writer) error {
	head, err := l.Head()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for seq := uint64(1); seq <= head; seq++ {
		ev, ok, err := l.Get(seq)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("event log gap at %d", seq)
		}
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("event encode: %w", err)
		}
	}

	zw, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	defer zw.Close()
	compressed := zw.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/2))
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("snapshot write: %w", err)
	}
	return nil
}

// ReadSnapshot decodes an Export stream and calls fn for each entry in
// sequence order. fn returning an error stops the read.
func ReadSnapshot(r io.Reader, fn func(Event) error) error {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("snapshot read: %w", err)
	}

	zr, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer zr.Close()
	raw, err := zr.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("snapshot decompress: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	for {
		var ev Event
		if err := dec.Decode(&ev); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("snapshot decode: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
