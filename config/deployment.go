package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/QingfengHuu/trending-nft/pkg/coin"
	"github.com/QingfengHuu/trending-nft/pkg/crypto"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// =============================================================================
// Deployment Parameters (immutable, defined at network launch)
// These MUST match across all nodes of a network or state diverges.
// =============================================================================

// Deployment holds the immutable parameters of one network deployment:
// who controls the contracts, what an edition costs, and the initial
// coin allocations. Changing any field creates a different deployment.
type Deployment struct {
	// Network identity
	Network string `json:"network"`
	Name    string `json:"name,omitempty"`
	Symbol  string `json:"symbol,omitempty"` // Native coin symbol (e.g. "TRN")

	// Launch metadata
	Timestamp uint64 `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	// Contract parameters
	Controller string `json:"controller"` // Controller account (bech32 or raw hex address)
	UnitPrice  uint64 `json:"unit_price"` // Mint price per edition in base units

	// Initial allocations (address -> balance in base units)
	Alloc map[string]uint64 `json:"alloc"`
}

// treasuryTag is the preimage prefix for the derived treasury address.
// No private key exists for a derived address, so treasury funds can
// only leave through the withdraw operation.
const treasuryTag = "trending/series-treasury/"

// =============================================================================
// Testnet Identity
//
// The testnet controller key is published so anyone can run a full
// testnet locally. DO NOT use on mainnet: anyone can sign with it.
// =============================================================================

// TestnetControllerKey is the well-known testnet controller private key (hex).
const TestnetControllerKey = "5170d4c1a9b6c0ee871e8f18dcf49cb2ab5fe294de4dcfd1e25b1f9d67f2a803"

// TestnetControllerAddress returns the address derived from the
// well-known testnet controller key, in raw hex form.
func TestnetControllerAddress() string {
	raw, err := hex.DecodeString(TestnetControllerKey)
	if err != nil {
		return ""
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return ""
	}
	return crypto.AddressFromPubKey(key.PublicKey()).Hex()
}

// =============================================================================
// Pre-defined deployments
// =============================================================================

// MainnetDeployment returns the mainnet deployment parameters.
func MainnetDeployment() *Deployment {
	return &Deployment{
		Network:   "trending-mainnet-1",
		Name:      "Trending Mainnet",
		Symbol:    "TRN",
		Timestamp: 1772323200, // 2026-03-01
		ExtraData: "Trending Genesis",
		// Controller account held by network operations.
		Controller: "b1c6a83fef2c6d6d70e44cf0e6e9c2a4853ed79a",
		UnitPrice:  10 * coin.MilliCoin, // 0.01 TRN per edition
		Alloc: map[string]uint64{
			// Operations float for controller fees.
			"b1c6a83fef2c6d6d70e44cf0e6e9c2a4853ed79a": 50_000 * coin.Coin,
			// Community distribution pool.
			"3e9f40a1d22b87c05f1b6ad07c9e554b10bfa961": 950_000 * coin.Coin,
		},
	}
}

// TestnetDeployment returns the testnet deployment parameters.
func TestnetDeployment() *Deployment {
	controller := TestnetControllerAddress()
	return &Deployment{
		Network:    "trending-testnet-1",
		Name:       "Trending Testnet",
		Symbol:     "TRN",
		Timestamp:  1772323200,
		ExtraData:  "Trending Testnet Genesis",
		Controller: controller,
		UnitPrice:  coin.MilliCoin, // 0.001 TRN; cheap minting for testing
		Alloc: map[string]uint64{
			controller: 1_000_000 * coin.Coin,
		},
	}
}

// DeploymentFor returns the deployment params for the given network.
func DeploymentFor(network NetworkType) *Deployment {
	switch network {
	case Testnet:
		return TestnetDeployment()
	default:
		return MainnetDeployment()
	}
}

// =============================================================================
// Derived values
// =============================================================================

// ControllerAddress parses the controller account address.
func (d *Deployment) ControllerAddress() (types.Address, error) {
	addr, err := types.ParseAddress(d.Controller)
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid controller address: %w", err)
	}
	return addr, nil
}

// TreasuryAddress returns the contract treasury account, derived from
// the network name. The derivation has no corresponding private key.
func (d *Deployment) TreasuryAddress() types.Address {
	h := crypto.Hash([]byte(treasuryTag + d.Network))
	var addr types.Address
	copy(addr[:], h[:types.AddressSize])
	return addr
}

// Hash returns a BLAKE3 hash of the deployment parameters.
// Operations are bound to this hash, so nodes with different params
// reject each other's operations.
func (d *Deployment) Hash() (types.Hash, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}

// =============================================================================
// Deployment file I/O
// =============================================================================

// LoadDeployment loads deployment parameters from a file.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deployment file: %w", err)
	}

	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing deployment file: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}

	return &d, nil
}

// Save writes the deployment parameters to a file.
func (d *Deployment) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding deployment: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing deployment file: %w", err)
	}

	return nil
}

// Validate checks that the deployment parameters are usable.
func (d *Deployment) Validate() error {
	if d.Network == "" {
		return fmt.Errorf("network is required")
	}
	if _, err := d.ControllerAddress(); err != nil {
		return err
	}
	if d.UnitPrice == 0 {
		return fmt.Errorf("unit_price must be positive")
	}

	for addrStr := range d.Alloc {
		if _, err := types.ParseAddress(addrStr); err != nil {
			return fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
	}

	return nil
}
