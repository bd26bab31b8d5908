// Package ledger provides the host's account bookkeeping: native coin
// balances with per-account nonces, and per-series edition balances.
// Contracts never touch storage directly; they move value through here.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Key prefixes for the ledger store.
var (
	prefixAccount = []byte("c/") // c/<addr(20)> -> Account JSON
	prefixEdition = []byte("n/") // n/<addr(20)><series(8)> -> amount(8)
)

// Sentinel errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Account is a native-coin account.
type Account struct {
	Balance uint64 `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// EditionBalance pairs a series id with the units held.
type EditionBalance struct {
	Series uint64 `json:"series"`
	Amount uint64 `json:"amount"`
}

// Ledger is the account book backed by a storage.DB. When the host runs
// an operation it hands the ledger an overlay, so writes stage until the
// operation commits.
type Ledger struct {
	db storage.DB
}

// New creates a ledger backed by the given database.
func New(db storage.DB) *Ledger {
	return &Ledger{db: db}
}

// accountKey builds a storage key: "c/" + addr(20).
func accountKey(addr types.Address) []byte {
	key := make([]byte, len(prefixAccount)+types.AddressSize)
	copy(key, prefixAccount)
	copy(key[len(prefixAccount):], addr[:])
	return key
}

// editionKey builds a storage key: "n/" + addr(20) + series(8).
func editionKey(addr types.Address, series uint64) []byte {
	key := make([]byte, len(prefixEdition)+types.AddressSize+8)
	copy(key, prefixEdition)
	copy(key[len(prefixEdition):], addr[:])
	binary.BigEndian.PutUint64(key[len(prefixEdition)+types.AddressSize:], series)
	return key
}

// Account retrieves an account. Absent accounts read as the zero value.
func (l *Ledger) Account(addr types.Address) (Account, error) {
	data, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("account get: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return Account{}, fmt.Errorf("account unmarshal: %w", err)
	}
	return acct, nil
}

func (l *Ledger) putAccount(addr types.Address, acct Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("account marshal: %w", err)
	}
	return l.db.Put(accountKey(addr), data)
}

// Balance returns the coin balance of an account.
func (l *Ledger) Balance(addr types.Address) (uint64, error) {
	acct, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Nonce returns the last executed nonce of an account.
func (l *Ledger) Nonce(addr types.Address) (uint64, error) {
	acct, err := l.Account(addr)
	if err != nil {
		return 0, err
	}
	return acct.Nonce, nil
}

// SetNonce records the last executed nonce for an account.
func (l *Ledger) SetNonce(addr types.Address, nonce uint64) error {
	acct, err := l.Account(addr)
	if err != nil {
		return err
	}
	acct.Nonce = nonce
	return l.putAccount(addr, acct)
}

// Credit adds coins to an account.
func (l *Ledger) Credit(addr types.Address, amount uint64) error {
	acct, err := l.Account(addr)
	if err != nil {
		return err
	}
	if acct.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	acct.Balance += amount
	return l.putAccount(addr, acct)
}

// Debit removes coins from an account.
func (l *Ledger) Debit(addr types.Address, amount uint64) error {
	acct, err := l.Account(addr)
	if err != nil {
		return err
	}
	if acct.Balance < amount {
		return ErrInsufficientFunds
	}
	acct.Balance -= amount
	return l.putAccount(addr, acct)
}

// Transfer moves coins between accounts. All checks run before any
// write, so a failed transfer changes nothing.
func (l *Ledger) Transfer(from, to types.Address, amount uint64) error {
	fromAcct, err := l.Account(from)
	if err != nil {
		return err
	}
	if fromAcct.Balance < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toAcct, err := l.Account(to)
	if err != nil {
		return err
	}
	if toAcct.Balance > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}

	fromAcct.Balance -= amount
	if err := l.putAccount(from, fromAcct); err != nil {
		return err
	}
	toAcct.Balance += amount
	return l.putAccount(to, toAcct)
}

// EditionBalance returns the units of one series held by an account.
func (l *Ledger) EditionBalance(addr types.Address, series uint64) (uint64, error) {
	data, err := l.db.Get(editionKey(addr, series))
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("edition get: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("edition value: expected 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}

func (l *Ledger) putEdition(addr types.Address, series, amount uint64) error {
	if amount == 0 {
		// Keep the keyspace clean: zero holdings are deleted, not stored.
		return l.db.Delete(editionKey(addr, series))
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, amount)
	return l.db.Put(editionKey(addr, series), buf)
}

// CreditEdition adds edition units of a series to an account.
func (l *Ledger) CreditEdition(addr types.Address, series, amount uint64) error {
	held, err := l.EditionBalance(addr, series)
	if err != nil {
		return err
	}
	if held > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	return l.putEdition(addr, series, held+amount)
}

// TransferEdition moves edition units between accounts. All checks run
// before any write.
func (l *Ledger) TransferEdition(from, to types.Address, series, amount uint64) error {
	fromHeld, err := l.EditionBalance(from, series)
	if err != nil {
		return err
	}
	if fromHeld < amount {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toHeld, err := l.EditionBalance(to, series)
	if err != nil {
		return err
	}
	if toHeld > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}

	if err := l.putEdition(from, series, fromHeld-amount); err != nil {
		return err
	}
	return l.putEdition(to, series, toHeld+amount)
}

// EditionsOf lists all series holdings of an account, ordered by series id.
func (l *Ledger) EditionsOf(addr types.Address) ([]EditionBalance, error) {
	prefix := make([]byte, len(prefixEdition)+types.AddressSize)
	copy(prefix, prefixEdition)
	copy(prefix[len(prefixEdition):], addr[:])

	var out []EditionBalance
	err := l.db.ForEach(prefix, func(key, value []byte) error {
		// Key layout: "n/" + addr(20) + series(8).
		if len(key) != len(prefixEdition)+types.AddressSize+8 {
			return nil // Malformed key, skip.
		}
		if len(value) != 8 {
			return nil
		}
		out = append(out, EditionBalance{
			Series: binary.BigEndian.Uint64(key[len(prefixEdition)+types.AddressSize:]),
			Amount: binary.BigEndian.Uint64(value),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("editions iterate: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	return out, nil
}
