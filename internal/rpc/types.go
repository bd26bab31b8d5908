package rpc

import (
	"github.com/QingfengHuu/trending-nft/internal/events"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/series"
	"github.com/QingfengHuu/trending-nft/pkg/op"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeRejected       = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// OpSubmitParam is used by all signed submit endpoints.
type OpSubmitParam struct {
	Op *op.Op `json:"op"`
}

// SeriesIDParam is used by endpoints that take a series ID.
type SeriesIDParam struct {
	ID uint64 `json:"id"`
}

// RecordIDParam is used by registry endpoints that take a record ID.
type RecordIDParam struct {
	ID uint64 `json:"id"`
}

// AddressParam is used by ledger endpoints that take an address.
type AddressParam struct {
	Address string `json:"address"`
}

// EditionBalanceParam is used by ledger_getEditionBalance.
type EditionBalanceParam struct {
	Address string `json:"address"`
	Series  uint64 `json:"series"`
}

// EventGetParam is used by events_get.
type EventGetParam struct {
	Seq uint64 `json:"seq"`
}

// EventRangeParam is used by events_getRange. Limit defaults to 100 and
// is capped at 1000.
type EventRangeParam struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit,omitempty"`
}

// ── Result types ────────────────────────────────────────────────────────

// HostInfoResult is returned by host_getInfo.
type HostInfoResult struct {
	Network    string       `json:"network,omitempty"`
	Deployment string       `json:"deployment"`
	Controller string       `json:"controller"`
	Treasury   string       `json:"treasury"`
	UnitPrice  uint64       `json:"unit_price"`
	MintActive bool         `json:"mint_active"`
	Current    *series.Info `json:"current,omitempty"`
	EventsHead uint64       `json:"events_head"`
}

// CurrentSeriesResult is returned by series_getCurrent.
type CurrentSeriesResult struct {
	Active bool         `json:"active"`
	Series *series.Info `json:"series,omitempty"`
}

// LocatorResult is returned by series_getLocator.
type LocatorResult struct {
	ID      uint64 `json:"id"`
	Locator string `json:"locator"`
}

// MintActiveResult is returned by series_mintActive.
type MintActiveResult struct {
	Active bool `json:"active"`
}

// SeriesGetResult is returned by series_get.
type SeriesGetResult struct {
	ID          uint64 `json:"id"`
	Locator     string `json:"locator"`
	Minted      uint64 `json:"minted"`
	WindowStart uint64 `json:"window_start"`
	WindowEnd   uint64 `json:"window_end"`
}

// RecordResult is returned by registry_get.
type RecordResult struct {
	ID        uint64     `json:"id"`
	Title     string     `json:"title"`
	Hash      types.Hash `json:"hash"`
	Votes     uint64     `json:"votes"`
	Locator   string     `json:"locator"`
	CreatedAt uint64     `json:"created_at"`
	UpdatedAt uint64     `json:"updated_at"`
}

// RecordExistsResult is returned by registry_exists.
type RecordExistsResult struct {
	ID     uint64 `json:"id"`
	Exists bool   `json:"exists"`
}

// BalanceResult is returned by ledger_getBalance.
type BalanceResult struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

// NonceResult is returned by ledger_getNonce.
type NonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

// EditionsResult is returned by ledger_getEditions.
type EditionsResult struct {
	Address  string                  `json:"address"`
	Editions []ledger.EditionBalance `json:"editions"`
}

// EditionBalanceResult is returned by ledger_getEditionBalance.
type EditionBalanceResult struct {
	Address string `json:"address"`
	Series  uint64 `json:"series"`
	Amount  uint64 `json:"amount"`
}

// EventsHeadResult is returned by events_getHead.
type EventsHeadResult struct {
	Head uint64 `json:"head"`
}

// EventRangeResult is returned by events_getRange.
type EventRangeResult struct {
	Count  int            `json:"count"`
	Events []events.Event `json:"events"`
}

// EventsExportResult is returned by events_export. Data is the
// zstd-compressed snapshot (base64 in JSON).
type EventsExportResult struct {
	Head uint64 `json:"head"`
	Data []byte `json:"data"`
}

// PeerInfo describes a connected peer.
type PeerInfo struct {
	ID          string `json:"id"`
	Source      string `json:"source,omitempty"`
	ConnectedAt string `json:"connected_at"`
}

// PeerInfoResult is returned by net_getPeerInfo.
type PeerInfoResult struct {
	Count int        `json:"count"`
	Peers []PeerInfo `json:"peers"`
}

// NodeInfoResult is returned by net_getNodeInfo.
type NodeInfoResult struct {
	ID    string   `json:"id"`
	Addrs []string `json:"addrs"`
}
