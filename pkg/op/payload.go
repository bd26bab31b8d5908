package op

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// CreatePayload opens the day's series with its content locator.
type CreatePayload struct {
	Locator string `json:"locator"`
}

// MintPayload mints edition units of the current series. The attached
// Value must equal unit price times Amount.
type MintPayload struct {
	Amount uint64 `json:"amount"`
}

// UpdateLocatorPayload repoints an existing series' content locator.
type UpdateLocatorPayload struct {
	Series  uint64 `json:"series"`
	Locator string `json:"locator"`
}

// UpsertPayload creates or overwrites a registry record.
type UpsertPayload struct {
	ID      uint64     `json:"id"`
	Title   string     `json:"title"`
	Hash    types.Hash `json:"hash"`
	Votes   uint64     `json:"votes"`
	Locator string     `json:"locator"`
}

// DeletePayload removes a registry record.
type DeletePayload struct {
	ID uint64 `json:"id"`
}

// CoinTransferPayload moves native coin between accounts.
type CoinTransferPayload struct {
	To     types.Address `json:"to"`
	Amount uint64        `json:"amount"`
}

// EditionTransferPayload moves edition units between accounts.
type EditionTransferPayload struct {
	To     types.Address `json:"to"`
	Series uint64        `json:"series"`
	Amount uint64        `json:"amount"`
}

// decodePayload unmarshals a payload strictly: unknown fields are rejected
// so signed payloads have a single canonical interpretation.
func decodePayload(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// DecodeCreate decodes a series-create payload.
func DecodeCreate(data []byte) (CreatePayload, error) {
	var p CreatePayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeMint decodes a series-mint payload.
func DecodeMint(data []byte) (MintPayload, error) {
	var p MintPayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeUpdateLocator decodes an update-locator payload.
func DecodeUpdateLocator(data []byte) (UpdateLocatorPayload, error) {
	var p UpdateLocatorPayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeUpsert decodes a registry-upsert payload.
func DecodeUpsert(data []byte) (UpsertPayload, error) {
	var p UpsertPayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeDelete decodes a registry-delete payload.
func DecodeDelete(data []byte) (DeletePayload, error) {
	var p DeletePayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeCoinTransfer decodes a coin-transfer payload.
func DecodeCoinTransfer(data []byte) (CoinTransferPayload, error) {
	var p CoinTransferPayload
	err := decodePayload(data, &p)
	return p, err
}

// DecodeEditionTransfer decodes an edition-transfer payload.
func DecodeEditionTransfer(data []byte) (EditionTransferPayload, error) {
	var p EditionTransferPayload
	err := decodePayload(data, &p)
	return p, err
}

// newOp builds an unsigned op with a marshaled payload.
func newOp(kind Kind, deployment types.Hash, nonce, value uint64, payload any) (*Op, error) {
	o := &Op{
		Kind:       kind,
		Deployment: deployment,
		Nonce:      nonce,
		Value:      value,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		o.Payload = data
	}
	return o, nil
}

// NewSeriesCreate builds an unsigned series-create op.
func NewSeriesCreate(deployment types.Hash, nonce uint64, locator string) (*Op, error) {
	return newOp(KindSeriesCreate, deployment, nonce, 0, CreatePayload{Locator: locator})
}

// NewSeriesMint builds an unsigned series-mint op. payment is attached as
// the op's Value and must equal unit price times amount.
func NewSeriesMint(deployment types.Hash, nonce, amount, payment uint64) (*Op, error) {
	return newOp(KindSeriesMint, deployment, nonce, payment, MintPayload{Amount: amount})
}

// NewSeriesUpdateLocator builds an unsigned update-locator op.
func NewSeriesUpdateLocator(deployment types.Hash, nonce, series uint64, locator string) (*Op, error) {
	return newOp(KindSeriesUpdateLocator, deployment, nonce, 0, UpdateLocatorPayload{
		Series:  series,
		Locator: locator,
	})
}

// NewSeriesWithdraw builds an unsigned withdraw op. Withdraw carries no
// payload: the full accumulated contract balance is always swept.
func NewSeriesWithdraw(deployment types.Hash, nonce uint64) (*Op, error) {
	return newOp(KindSeriesWithdraw, deployment, nonce, 0, nil)
}

// NewRegistryUpsert builds an unsigned registry-upsert op.
func NewRegistryUpsert(deployment types.Hash, nonce uint64, p UpsertPayload) (*Op, error) {
	return newOp(KindRegistryUpsert, deployment, nonce, 0, p)
}

// NewRegistryDelete builds an unsigned registry-delete op.
func NewRegistryDelete(deployment types.Hash, nonce, id uint64) (*Op, error) {
	return newOp(KindRegistryDelete, deployment, nonce, 0, DeletePayload{ID: id})
}

// NewCoinTransfer builds an unsigned coin-transfer op.
func NewCoinTransfer(deployment types.Hash, nonce uint64, to types.Address, amount uint64) (*Op, error) {
	return newOp(KindCoinTransfer, deployment, nonce, 0, CoinTransferPayload{To: to, Amount: amount})
}

// NewEditionTransfer builds an unsigned edition-transfer op.
func NewEditionTransfer(deployment types.Hash, nonce uint64, to types.Address, series, amount uint64) (*Op, error) {
	return newOp(KindEditionTransfer, deployment, nonce, 0, EditionTransferPayload{
		To:     to,
		Series: series,
		Amount: amount,
	})
}
