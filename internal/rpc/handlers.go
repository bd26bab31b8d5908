package rpc

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/registry"
	"github.com/QingfengHuu/trending-nft/internal/series"
	"github.com/QingfengHuu/trending-nft/pkg/op"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// ── Host endpoints ──────────────────────────────────────────────────────

func (s *Server) handleHostGetInfo(_ *Request) (interface{}, *Error) {
	head, err := s.host.EventsHead()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("events head: %v", err)}
	}

	result := &HostInfoResult{
		Deployment: s.host.Deployment().String(),
		Controller: s.host.Controller().String(),
		Treasury:   s.host.Treasury().String(),
		UnitPrice:  s.host.UnitPrice(),
		EventsHead: head,
	}
	if s.deployment != nil {
		result.Network = s.deployment.Network
	}

	info, err := s.host.CurrentInfo()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("current series: %v", err)}
	}
	if info.ID != 0 {
		result.Current = &info
		active, err := s.host.MintActive()
		if err != nil {
			return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("mint active: %v", err)}
		}
		result.MintActive = active
	}

	return result, nil
}

// ── Signed submit endpoints ─────────────────────────────────────────────

// handleSubmitKind executes a signed operation after checking that its
// kind matches the method it was submitted through.
func (s *Server) handleSubmitKind(req *Request, want op.Kind) (interface{}, *Error) {
	var params OpSubmitParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Op == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "op is required"}
	}
	if params.Op.Kind != want {
		return nil, &Error{Code: CodeInvalidParams,
			Message: fmt.Sprintf("op kind %s does not match method", params.Op.Kind)}
	}

	receipt, err := s.host.Execute(params.Op)
	if err != nil {
		return nil, &Error{Code: CodeRejected, Message: fmt.Sprintf("rejected: %v", err)}
	}

	// Broadcast the committed events to the feed.
	if s.feed != nil {
		for _, ev := range receipt.Events {
			if pubErr := s.feed.PublishEvent(ev); pubErr != nil {
				s.logger.Warn().Err(pubErr).Uint64("seq", ev.Seq).Msg("Failed to publish event")
			}
		}
	}

	return &receipt, nil
}

// ── Series endpoints ────────────────────────────────────────────────────

func (s *Server) handleSeriesGetCurrent(_ *Request) (interface{}, *Error) {
	info, err := s.host.CurrentInfo()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("current series: %v", err)}
	}
	if info.ID == 0 {
		return &CurrentSeriesResult{Active: false}, nil
	}

	active, err := s.host.MintActive()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("mint active: %v", err)}
	}
	return &CurrentSeriesResult{Active: active, Series: &info}, nil
}

func (s *Server) handleSeriesGetLocator(req *Request) (interface{}, *Error) {
	var params SeriesIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "id is required"}
	}

	locator, err := s.host.Locator(params.ID)
	if err != nil {
		if errors.Is(err, series.ErrNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("series %d not found", params.ID)}
		}
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get locator: %v", err)}
	}

	return &LocatorResult{ID: params.ID, Locator: locator}, nil
}

func (s *Server) handleSeriesMintActive(_ *Request) (interface{}, *Error) {
	active, err := s.host.MintActive()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("mint active: %v", err)}
	}
	return &MintActiveResult{Active: active}, nil
}

func (s *Server) handleSeriesGet(req *Request) (interface{}, *Error) {
	var params SeriesIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.ID == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "id is required"}
	}

	row, ok, err := s.host.SeriesRow(params.ID)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get series: %v", err)}
	}
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("series %d not found", params.ID)}
	}

	return &SeriesGetResult{
		ID:          params.ID,
		Locator:     row.Locator,
		Minted:      row.Minted,
		WindowStart: row.WindowStart,
		WindowEnd:   row.WindowStart + series.Day,
	}, nil
}

// ── Registry endpoints ──────────────────────────────────────────────────

func (s *Server) handleRegistryGet(req *Request) (interface{}, *Error) {
	var params RecordIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	rec, ok, err := s.host.Record(params.ID)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get record: %v", err)}
	}
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("record %d not found", params.ID)}
	}

	return newRecordResult(params.ID, rec), nil
}

func (s *Server) handleRegistryExists(req *Request) (interface{}, *Error) {
	var params RecordIDParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	exists, err := s.host.RecordExists(params.ID)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("check record: %v", err)}
	}
	return &RecordExistsResult{ID: params.ID, Exists: exists}, nil
}

// newRecordResult flattens a registry record into an RPC result.
func newRecordResult(id uint64, rec registry.Record) *RecordResult {
	return &RecordResult{
		ID:        id,
		Title:     rec.Title,
		Hash:      rec.Hash,
		Votes:     rec.Votes,
		Locator:   rec.Locator,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// ── Ledger endpoints ────────────────────────────────────────────────────

func (s *Server) handleLedgerGetBalance(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, addrErr := decodeAddress(params.Address)
	if addrErr != nil {
		return nil, addrErr
	}

	bal, err := s.host.Balance(addr)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get balance: %v", err)}
	}
	return &BalanceResult{Address: params.Address, Balance: bal}, nil
}

func (s *Server) handleLedgerGetNonce(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, addrErr := decodeAddress(params.Address)
	if addrErr != nil {
		return nil, addrErr
	}

	nonce, err := s.host.Nonce(addr)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get nonce: %v", err)}
	}
	return &NonceResult{Address: params.Address, Nonce: nonce}, nil
}

func (s *Server) handleLedgerGetEditions(req *Request) (interface{}, *Error) {
	var params AddressParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, addrErr := decodeAddress(params.Address)
	if addrErr != nil {
		return nil, addrErr
	}

	editions, err := s.host.Editions(addr)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get editions: %v", err)}
	}
	if editions == nil {
		editions = []ledger.EditionBalance{}
	}
	return &EditionsResult{Address: params.Address, Editions: editions}, nil
}

func (s *Server) handleLedgerGetEditionBalance(req *Request) (interface{}, *Error) {
	var params EditionBalanceParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Series == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "series is required"}
	}
	addr, addrErr := decodeAddress(params.Address)
	if addrErr != nil {
		return nil, addrErr
	}

	amount, err := s.host.EditionBalance(addr, params.Series)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get edition balance: %v", err)}
	}
	return &EditionBalanceResult{Address: params.Address, Series: params.Series, Amount: amount}, nil
}

// ── Event endpoints ─────────────────────────────────────────────────────

func (s *Server) handleEventsGetHead(_ *Request) (interface{}, *Error) {
	head, err := s.host.EventsHead()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("events head: %v", err)}
	}
	return &EventsHeadResult{Head: head}, nil
}

func (s *Server) handleEventsGet(req *Request) (interface{}, *Error) {
	var params EventGetParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Seq == 0 {
		return nil, &Error{Code: CodeInvalidParams, Message: "seq is required"}
	}

	ev, ok, err := s.host.Event(params.Seq)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("get event: %v", err)}
	}
	if !ok {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("event %d not found", params.Seq)}
	}
	return &ev, nil
}

func (s *Server) handleEventsGetRange(req *Request) (interface{}, *Error) {
	var params EventRangeParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > maxEventBatch {
		limit = maxEventBatch
	}

	evs, err := s.host.EventRange(params.From, limit)
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("event range: %v", err)}
	}
	if evs == nil {
		evs = []events.Event{}
	}
	return &EventRangeResult{Count: len(evs), Events: evs}, nil
}

func (s *Server) handleEventsExport(_ *Request) (interface{}, *Error) {
	head, err := s.host.EventsHead()
	if err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("events head: %v", err)}
	}

	var buf bytes.Buffer
	if err := s.host.ExportEvents(&buf); err != nil {
		return nil, &Error{Code: CodeInternalError, Message: fmt.Sprintf("export events: %v", err)}
	}
	return &EventsExportResult{Head: head, Data: buf.Bytes()}, nil
}

// ── Net endpoints ───────────────────────────────────────────────────────

func (s *Server) handleNetGetPeerInfo(_ *Request) (interface{}, *Error) {
	if s.feed == nil {
		return &PeerInfoResult{Count: 0, Peers: []PeerInfo{}}, nil
	}

	peers := s.feed.PeerList()
	infos := make([]PeerInfo, len(peers))
	for i, p := range peers {
		infos[i] = PeerInfo{
			ID:          p.ID.String(),
			Source:      p.Source,
			ConnectedAt: p.ConnectedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	return &PeerInfoResult{
		Count: len(infos),
		Peers: infos,
	}, nil
}

func (s *Server) handleNetGetNodeInfo(_ *Request) (interface{}, *Error) {
	if s.feed == nil {
		return &NodeInfoResult{ID: "", Addrs: []string{}}, nil
	}

	return &NodeInfoResult{
		ID:    s.feed.ID().String(),
		Addrs: s.feed.Addrs(),
	}, nil
}

// decodeAddress parses a bech32 address into its binary form.
func decodeAddress(s string) (types.Address, *Error) {
	if s == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "address is required"}
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "invalid address: " + err.Error()}
	}
	return addr, nil
}
