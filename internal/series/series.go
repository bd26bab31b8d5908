// Package series implements the daily trending series contract: one
// series per UTC day, each with a fixed 24-hour paid mint window.
package series

import (
	"errors"
	"fmt"

	"github.com/QingfengHuu/trending-nft/internal/gate"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Day is the length of a series mint window in seconds. Window starts
// are aligned to UTC midnight by truncating timestamps to this unit.
const Day = 86400

// Contract errors.
var (
	ErrAlreadyCreatedToday = errors.New("series already created today")
	ErrNoActiveSeries      = errors.New("no active series")
	ErrWindowExpired       = errors.New("mint window expired")
	ErrInvalidAmount       = errors.New("invalid mint amount")
	ErrPaymentMismatch     = errors.New("payment does not match mint cost")
	ErrNotFound            = errors.New("series not found")
	ErrNothingToWithdraw   = errors.New("nothing to withdraw")
	ErrTransferFailed      = errors.New("withdraw transfer failed")
)

// Params are the fixed economics of the series contract.
type Params struct {
	// UnitPrice is the cost of a single edition in base coin units.
	UnitPrice uint64
	// Treasury accumulates mint payments until the controller withdraws.
	Treasury types.Address
}

// Info describes the currently active series for read APIs.
type Info struct {
	ID          uint64 `json:"id"`
	Locator     string `json:"locator"`
	WindowStart uint64 `json:"window_start"`
	WindowEnd   uint64 `json:"window_end"`
	Minted      uint64 `json:"minted"`
}

// Manager owns series state transitions. It is pure contract logic:
// callers supply identity and payment, the manager enforces the rules.
// Not safe for concurrent use; the host serializes operations.
type Manager struct {
	store  *Store
	gate   *gate.Gate
	ledger *ledger.Ledger
	params Params
	now    func() uint64
}

// New creates a series manager on top of the given database. nowFn
// supplies the current unix timestamp for window checks.
func New(db storage.DB, g *gate.Gate, led *ledger.Ledger, params Params, nowFn func() uint64) *Manager {
	return &Manager{
		store:  NewStore(db),
		gate:   g,
		ledger: led,
		params: params,
		now:    nowFn,
	}
}

// Create starts a new series with the given locator and opens its mint
// window at the current UTC midnight. Controller only. At most one
// series can be created per UTC day.
func (m *Manager) Create(caller types.Address, locator string) (uint64, error) {
	if err := m.gate.Require(caller); err != nil {
		return 0, err
	}
	st, err := m.store.State()
	if err != nil {
		return 0, err
	}
	todayStart := m.todayStart()
	if st.Current != 0 && st.WindowStart >= todayStart {
		return 0, ErrAlreadyCreatedToday
	}

	st.Counter++
	id := st.Counter
	st.Current = id
	st.WindowStart = todayStart
	if err := m.store.PutRow(id, Row{Locator: locator, WindowStart: todayStart}); err != nil {
		return 0, err
	}
	if err := m.store.PutState(st); err != nil {
		return 0, err
	}
	return id, nil
}

// Mint issues amount editions of the active series to caller against an
// exact payment of UnitPrice*amount. Returns the series id minted.
func (m *Manager) Mint(caller types.Address, amount, payment uint64) (uint64, error) {
	st, err := m.store.State()
	if err != nil {
		return 0, err
	}
	if st.Current == 0 {
		return 0, ErrNoActiveSeries
	}
	if m.now() >= st.WindowStart+Day {
		return 0, ErrWindowExpired
	}
	if amount == 0 {
		return 0, ErrInvalidAmount
	}
	cost, ok := mintCost(m.params.UnitPrice, amount)
	if !ok || payment != cost {
		return 0, ErrPaymentMismatch
	}

	row, ok, err := m.store.Row(st.Current)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: state points at missing row %d", ErrNotFound, st.Current)
	}
	row.Minted += amount
	if err := m.store.PutRow(st.Current, row); err != nil {
		return 0, err
	}
	if err := m.ledger.CreditEdition(caller, st.Current, amount); err != nil {
		return 0, err
	}
	return st.Current, nil
}

// LocatorOf returns the metadata locator of a series. Unknown ids and
// series whose locator was never set read as not found.
func (m *Manager) LocatorOf(id uint64) (string, error) {
	row, ok, err := m.store.Row(id)
	if err != nil {
		return "", err
	}
	if !ok || row.Locator == "" {
		return "", fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return row.Locator, nil
}

// UpdateLocator overwrites the locator of an existing series.
// Controller only. Works on expired series as well as the active one.
func (m *Manager) UpdateLocator(caller types.Address, id uint64, locator string) error {
	if err := m.gate.Require(caller); err != nil {
		return err
	}
	row, ok, err := m.store.Row(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	row.Locator = locator
	return m.store.PutRow(id, row)
}

// Withdraw moves the full treasury balance to the controller and
// returns the amount moved. Controller only.
func (m *Manager) Withdraw(caller types.Address) (uint64, error) {
	if err := m.gate.Require(caller); err != nil {
		return 0, err
	}
	bal, err := m.ledger.Balance(m.params.Treasury)
	if err != nil {
		return 0, err
	}
	if bal == 0 {
		return 0, ErrNothingToWithdraw
	}
	if err := m.ledger.Transfer(m.params.Treasury, m.gate.Controller(), bal); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return bal, nil
}

// CurrentInfo reports the most recently created series. Returns zero
// Info when none has ever been created.
func (m *Manager) CurrentInfo() (Info, error) {
	st, err := m.store.State()
	if err != nil {
		return Info{}, err
	}
	if st.Current == 0 {
		return Info{}, nil
	}
	row, ok, err := m.store.Row(st.Current)
	if err != nil {
		return Info{}, err
	}
	if !ok {
		return Info{}, fmt.Errorf("%w: state points at missing row %d", ErrNotFound, st.Current)
	}
	return Info{
		ID:          st.Current,
		Locator:     row.Locator,
		WindowStart: st.WindowStart,
		WindowEnd:   st.WindowStart + Day,
		Minted:      row.Minted,
	}, nil
}

// MintActive reports whether the active series is inside its mint window.
func (m *Manager) MintActive() (bool, error) {
	st, err := m.store.State()
	if err != nil {
		return false, err
	}
	if st.Current == 0 {
		return false, nil
	}
	return m.now() < st.WindowStart+Day, nil
}

// Series exposes a raw row for read APIs. The bool reports existence.
func (m *Manager) Series(id uint64) (Row, bool, error) {
	return m.store.Row(id)
}

// UnitPrice returns the configured per-edition price.
func (m *Manager) UnitPrice() uint64 {
	return m.params.UnitPrice
}

// Treasury returns the address accumulating mint payments.
func (m *Manager) Treasury() types.Address {
	return m.params.Treasury
}

// todayStart truncates the current time to UTC midnight.
func (m *Manager) todayStart() uint64 {
	now := m.now()
	return now - now%Day
}

// mintCost computes price*amount, reporting false on overflow.
func mintCost(price, amount uint64) (uint64, bool) {
	if price == 0 {
		return 0, true
	}
	total := price * amount
	if total/price != amount {
		return 0, false
	}
	return total, true
}
