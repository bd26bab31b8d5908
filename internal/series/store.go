package series

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/QingfengHuu/trending-nft/internal/storage"
)

// Key prefixes and state keys for the series store.
var (
	keyState  = []byte("s/state") // contract state JSON
	prefixRow = []byte("s/r/")    // s/r/<id(8)> -> Row JSON
)

// State is the contract-level state of the series manager.
// Current == 0 means no series has ever been created.
type State struct {
	Current     uint64 `json:"current"`
	WindowStart uint64 `json:"window_start"`
	Counter     uint64 `json:"counter"`
}

// Row is the persistent record of one series. Rows are never deleted:
// locator reads must work long after the mint window closes.
type Row struct {
	Locator     string `json:"locator"`
	Minted      uint64 `json:"minted"`
	WindowStart uint64 `json:"window_start"`
}

// Store persists series state and rows to a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a series store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// rowKey builds a storage key: "s/r/" + id(8).
func rowKey(id uint64) []byte {
	key := make([]byte, len(prefixRow)+8)
	copy(key, prefixRow)
	binary.BigEndian.PutUint64(key[len(prefixRow):], id)
	return key
}

// State retrieves the contract state. Reads as the zero value before the
// first series is created.
func (s *Store) State() (State, error) {
	data, err := s.db.Get(keyState)
	if errors.Is(err, storage.ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("series state get: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("series state unmarshal: %w", err)
	}
	return st, nil
}

// PutState stores the contract state.
func (s *Store) PutState(st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("series state marshal: %w", err)
	}
	return s.db.Put(keyState, data)
}

// Row retrieves one series record. The bool reports whether it exists.
func (s *Store) Row(id uint64) (Row, bool, error) {
	data, err := s.db.Get(rowKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("series row get: %w", err)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return Row{}, false, fmt.Errorf("series row unmarshal: %w", err)
	}
	return row, true, nil
}

// PutRow stores one series record.
func (s *Store) PutRow(id uint64, row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("series row marshal: %w", err)
	}
	return s.db.Put(rowKey(id), data)
}
