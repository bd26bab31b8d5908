// Package host is the single sequencer of the trending platform. It
// admits signed operations, executes them one at a time against staged
// state, and commits state, nonce, and events atomically per op.
package host

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/gate"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/log"
	"github.com/QingfengHuu/trending-nft/internal/metrics"
	"github.com/QingfengHuu/trending-nft/internal/registry"
	"github.com/QingfengHuu/trending-nft/internal/series"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/op"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Admission errors. Contract errors pass through from the dispatched
// operation unchanged.
var (
	ErrBadSignature    = errors.New("invalid operation signature")
	ErrWrongDeployment = errors.New("operation signed for a different deployment")
	ErrUnknownKind     = errors.New("unknown operation kind")
	ErrBadNonce        = errors.New("nonce not greater than account nonce")
	ErrValueNotAllowed = errors.New("operation kind does not accept payment")
)

// Config carries the deployment parameters of a host instance.
type Config struct {
	// Deployment identifies the contract deployment; operations signed
	// for a different deployment are rejected.
	Deployment types.Hash
	// Controller is the privileged address for gated operations.
	Controller types.Address
	// Treasury accumulates mint payments.
	Treasury types.Address
	// UnitPrice is the cost of one edition in base coin units.
	UnitPrice uint64
	// Clock supplies unix timestamps; defaults to the wall clock. The
	// host clamps it so ambient time never runs backwards.
	Clock func() uint64
	// Metrics receives execution measurements; defaults to noop.
	Metrics metrics.Recorder
}

// Receipt describes one committed operation. Result carries the
// operation's primary numeric outcome: the series id for creates and
// mints, the swept amount for withdrawals, the record id for registry
// writes, the moved amount for transfers.
type Receipt struct {
	Op     types.OpID     `json:"op"`
	Kind   string         `json:"kind"`
	Caller types.Address  `json:"caller"`
	Time   uint64         `json:"time"`
	Result uint64         `json:"result,omitempty"`
	Events []events.Event `json:"events,omitempty"`
}

// Host executes operations serially. Writes go through a per-operation
// overlay committed on success; reads snapshot committed state and
// bypass the sequencer.
type Host struct {
	mu       sync.Mutex
	db       storage.DB
	cfg      Config
	gate     *gate.Gate
	rec      metrics.Recorder
	lastTime uint64

	// committed-state read views
	ledger   *ledger.Ledger
	series   *series.Manager
	registry *registry.Registry
	events   *events.Log
}

// New creates a host on top of the given database.
func New(db storage.DB, cfg Config) *Host {
	if cfg.Clock == nil {
		cfg.Clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}

	h := &Host{
		db:   db,
		cfg:  cfg,
		gate: gate.New(cfg.Controller),
		rec:  cfg.Metrics,
	}
	h.ledger = ledger.New(db)
	h.series = series.New(db, h.gate, h.ledger, h.params(), cfg.Clock)
	h.registry = registry.New(db, h.gate, cfg.Clock)
	h.events = events.NewLog(db)
	return h
}

func (h *Host) params() series.Params {
	return series.Params{UnitPrice: h.cfg.UnitPrice, Treasury: h.cfg.Treasury}
}

// Execute runs one signed operation to completion and returns its
// receipt. A failed operation leaves no trace: no state change, no
// nonce bump, no events.
func (h *Host) Execute(o *op.Op) (Receipt, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	rcpt, err := h.execute(o)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.rec.ObserveOp(o.Kind.String(), outcome, time.Since(start))

	if err != nil {
		log.Host.Debug().
			Stringer("op", o.ID()).
			Str("kind", o.Kind.String()).
			Err(err).
			Msg("operation rejected")
		return Receipt{}, err
	}

	for _, ev := range rcpt.Events {
		if ev.Kind == events.KindSeriesMinted {
			h.rec.AddMinted(ev.Amount)
			h.rec.AddPayment(o.Value)
		}
	}
	log.Host.Debug().
		Stringer("op", o.ID()).
		Str("kind", o.Kind.String()).
		Uint64("result", rcpt.Result).
		Msg("operation committed")
	return rcpt, nil
}

// execute admits and dispatches one operation with the sequencer lock
// held. All writes land on a fresh overlay over committed state.
func (h *Host) execute(o *op.Op) (Receipt, error) {
	if !o.Verify() {
		return Receipt{}, ErrBadSignature
	}
	if o.Deployment != h.cfg.Deployment {
		return Receipt{}, ErrWrongDeployment
	}
	if !o.Kind.Valid() {
		return Receipt{}, ErrUnknownKind
	}
	if o.Value != 0 && o.Kind != op.KindSeriesMint {
		return Receipt{}, ErrValueNotAllowed
	}

	caller := o.Caller()
	now := h.tick()

	ov := storage.NewOverlay(h.db)
	led := ledger.New(ov)

	last, err := led.Nonce(caller)
	if err != nil {
		return Receipt{}, err
	}
	if o.Nonce <= last {
		return Receipt{}, fmt.Errorf("%w: got %d, account at %d", ErrBadNonce, o.Nonce, last)
	}

	// Attached payment moves to the treasury inside the same staged
	// step, so a failed mint refunds implicitly on discard.
	if o.Value != 0 {
		if err := led.Transfer(caller, h.cfg.Treasury, o.Value); err != nil {
			ov.Discard()
			return Receipt{}, err
		}
	}

	frozen := func() uint64 { return now }
	ser := series.New(ov, h.gate, led, h.params(), frozen)
	reg := registry.New(ov, h.gate, frozen)

	rcpt := Receipt{Op: o.ID(), Kind: o.Kind.String(), Caller: caller, Time: now}
	evs, result, err := dispatch(o, caller, ser, reg, led)
	if err != nil {
		ov.Discard()
		return Receipt{}, err
	}
	rcpt.Result = result

	if err := led.SetNonce(caller, o.Nonce); err != nil {
		ov.Discard()
		return Receipt{}, err
	}

	elog := events.NewLog(ov)
	for i := range evs {
		evs[i].Time = now
		evs[i].Op = rcpt.Op
		seq, err := elog.Append(evs[i])
		if err != nil {
			ov.Discard()
			return Receipt{}, err
		}
		evs[i].Seq = seq
	}

	if err := ov.Commit(); err != nil {
		ov.Discard()
		return Receipt{}, fmt.Errorf("commit: %w", err)
	}
	rcpt.Events = evs
	return rcpt, nil
}

// dispatch routes an admitted operation to its contract entry point and
// shapes the resulting events.
func dispatch(o *op.Op, caller types.Address, ser *series.Manager, reg *registry.Registry, led *ledger.Ledger) ([]events.Event, uint64, error) {
	switch o.Kind {
	case op.KindSeriesCreate:
		p, err := op.DecodeCreate(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		id, err := ser.Create(caller, p.Locator)
		if err != nil {
			return nil, 0, err
		}
		info, err := ser.CurrentInfo()
		if err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:        events.KindSeriesCreated,
			Caller:      caller,
			Series:      id,
			Locator:     p.Locator,
			WindowStart: info.WindowStart,
		}}, id, nil

	case op.KindSeriesMint:
		p, err := op.DecodeMint(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		id, err := ser.Mint(caller, p.Amount, o.Value)
		if err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:   events.KindSeriesMinted,
			Caller: caller,
			Series: id,
			Amount: p.Amount,
		}}, id, nil

	case op.KindSeriesUpdateLocator:
		p, err := op.DecodeUpdateLocator(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		if err := ser.UpdateLocator(caller, p.Series, p.Locator); err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:    events.KindLocatorUpdated,
			Caller:  caller,
			Series:  p.Series,
			Locator: p.Locator,
		}}, p.Series, nil

	case op.KindSeriesWithdraw:
		amount, err := ser.Withdraw(caller)
		if err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:   events.KindBalanceWithdrawn,
			Caller: caller,
			Amount: amount,
		}}, amount, nil

	case op.KindRegistryUpsert:
		p, err := op.DecodeUpsert(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		if err := reg.Upsert(caller, p.ID, p.Title, p.Hash, p.Votes, p.Locator); err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:   events.KindRecordUpserted,
			Caller: caller,
			Record: p.ID,
		}}, p.ID, nil

	case op.KindRegistryDelete:
		p, err := op.DecodeDelete(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		if err := reg.Delete(caller, p.ID); err != nil {
			return nil, 0, err
		}
		return []events.Event{{
			Kind:   events.KindRecordDeleted,
			Caller: caller,
			Record: p.ID,
		}}, p.ID, nil

	case op.KindCoinTransfer:
		p, err := op.DecodeCoinTransfer(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		if err := led.Transfer(caller, p.To, p.Amount); err != nil {
			return nil, 0, err
		}
		to := p.To
		return []events.Event{{
			Kind:   events.KindCoinTransferred,
			Caller: caller,
			To:     &to,
			Amount: p.Amount,
		}}, p.Amount, nil

	case op.KindEditionTransfer:
		p, err := op.DecodeEditionTransfer(o.Payload)
		if err != nil {
			return nil, 0, err
		}
		if err := led.TransferEdition(caller, p.To, p.Series, p.Amount); err != nil {
			return nil, 0, err
		}
		to := p.To
		return []events.Event{{
			Kind:   events.KindEditionTransferred,
			Caller: caller,
			To:     &to,
			Series: p.Series,
			Amount: p.Amount,
		}}, p.Amount, nil
	}
	return nil, 0, ErrUnknownKind
}

// tick reads the ambient clock, clamped so operation time never runs
// backwards.
func (h *Host) tick() uint64 {
	now := h.cfg.Clock()
	if now < h.lastTime {
		now = h.lastTime
	}
	h.lastTime = now
	return now
}
