// Package op defines the signed operation envelope submitted to the host.
package op

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/QingfengHuu/trending-nft/pkg/crypto"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// Kind identifies the operation being requested.
type Kind uint8

// Operation kinds. Values are part of the wire format and must not change.
const (
	KindSeriesCreate Kind = iota + 1
	KindSeriesMint
	KindSeriesUpdateLocator
	KindSeriesWithdraw
	KindRegistryUpsert
	KindRegistryDelete
	KindCoinTransfer
	KindEditionTransfer
)

// String returns the canonical name of the kind (used in logs and metrics).
func (k Kind) String() string {
	switch k {
	case KindSeriesCreate:
		return "series_create"
	case KindSeriesMint:
		return "series_mint"
	case KindSeriesUpdateLocator:
		return "series_update_locator"
	case KindSeriesWithdraw:
		return "series_withdraw"
	case KindRegistryUpsert:
		return "registry_upsert"
	case KindRegistryDelete:
		return "registry_delete"
	case KindCoinTransfer:
		return "coin_transfer"
	case KindEditionTransfer:
		return "edition_transfer"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid returns true if the kind is a known operation kind.
func (k Kind) Valid() bool {
	return k >= KindSeriesCreate && k <= KindEditionTransfer
}

// Op is a signed, replay-protected request for a single state change.
// Deployment binds the operation to one host instance; Nonce orders
// operations per account. Value is the coin amount (base units) the
// caller attaches as payment.
type Op struct {
	Kind       Kind       `json:"kind"`
	Deployment types.Hash `json:"deployment"`
	Nonce      uint64     `json:"nonce"`
	Value      uint64     `json:"value"`
	Payload    []byte     `json:"payload"`
	PubKey     []byte     `json:"pubkey"`
	Sig        []byte     `json:"sig"`
}

// opJSON is the JSON representation of Op with hex-encoded byte fields.
type opJSON struct {
	Kind       Kind       `json:"kind"`
	Deployment types.Hash `json:"deployment"`
	Nonce      uint64     `json:"nonce"`
	Value      uint64     `json:"value"`
	Payload    *string    `json:"payload"`
	PubKey     *string    `json:"pubkey"`
	Sig        *string    `json:"sig"`
}

// MarshalJSON encodes the op with hex-encoded payload, pubkey and signature.
func (o Op) MarshalJSON() ([]byte, error) {
	j := opJSON{
		Kind:       o.Kind,
		Deployment: o.Deployment,
		Nonce:      o.Nonce,
		Value:      o.Value,
	}
	if o.Payload != nil {
		s := hex.EncodeToString(o.Payload)
		j.Payload = &s
	}
	if o.PubKey != nil {
		s := hex.EncodeToString(o.PubKey)
		j.PubKey = &s
	}
	if o.Sig != nil {
		s := hex.EncodeToString(o.Sig)
		j.Sig = &s
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes an op with hex-encoded payload, pubkey and signature.
func (o *Op) UnmarshalJSON(data []byte) error {
	var j opJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	o.Kind = j.Kind
	o.Deployment = j.Deployment
	o.Nonce = j.Nonce
	o.Value = j.Value
	o.Payload = nil
	o.PubKey = nil
	o.Sig = nil
	if j.Payload != nil {
		b, err := hex.DecodeString(*j.Payload)
		if err != nil {
			return err
		}
		o.Payload = b
	}
	if j.PubKey != nil {
		b, err := hex.DecodeString(*j.PubKey)
		if err != nil {
			return err
		}
		o.PubKey = b
	}
	if j.Sig != nil {
		b, err := hex.DecodeString(*j.Sig)
		if err != nil {
			return err
		}
		o.Sig = b
	}
	return nil
}

// SigningBytes returns the canonical byte representation used for signing.
// Format: kind(1) | deployment(32) | nonce(8) | value(8) | payload_len(4) | payload
// The signature and public key are excluded to avoid circular dependency.
func (o *Op) SigningBytes() []byte {
	buf := make([]byte, 0, 1+types.HashSize+8+8+4+len(o.Payload))
	buf = append(buf, byte(o.Kind))
	buf = append(buf, o.Deployment[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, o.Nonce)
	buf = binary.LittleEndian.AppendUint64(buf, o.Value)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(o.Payload)))
	buf = append(buf, o.Payload...)
	return buf
}

// Hash computes the operation hash (BLAKE3 of the signing bytes).
func (o *Op) Hash() types.Hash {
	return crypto.Hash(o.SigningBytes())
}

// ID returns the operation hash as an OpID.
func (o *Op) ID() types.OpID {
	return types.OpID(o.Hash())
}

// Caller derives the submitting account's address from the public key.
// Returns the zero address if no public key is attached.
func (o *Op) Caller() types.Address {
	if len(o.PubKey) == 0 {
		return types.Address{}
	}
	return crypto.AddressFromPubKey(o.PubKey)
}

// Sign signs the operation and attaches the signature and public key.
func (o *Op) Sign(key *crypto.PrivateKey) error {
	hash := o.Hash()
	sig, err := key.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("sign op: %w", err)
	}
	o.Sig = sig
	o.PubKey = key.PublicKey()
	return nil
}

// Verify checks the attached signature against the signing hash and public key.
func (o *Op) Verify() bool {
	if len(o.Sig) == 0 || len(o.PubKey) == 0 {
		return false
	}
	hash := o.Hash()
	return crypto.VerifySignature(hash[:], o.Sig, o.PubKey)
}
