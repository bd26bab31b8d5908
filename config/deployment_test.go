package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/QingfengHuu/trending-nft/pkg/types"
)

func TestDeployment_Validate_MainnetValid(t *testing.T) {
	d := MainnetDeployment()
	if err := d.Validate(); err != nil {
		t.Errorf("mainnet deployment should be valid: %v", err)
	}
}

func TestDeployment_Validate_TestnetValid(t *testing.T) {
	d := TestnetDeployment()
	if err := d.Validate(); err != nil {
		t.Errorf("testnet deployment should be valid: %v", err)
	}
}

func TestDeployment_Validate_Rejects(t *testing.T) {
	d := MainnetDeployment()
	d.Network = ""
	if err := d.Validate(); err == nil {
		t.Error("empty network should be invalid")
	}

	d = MainnetDeployment()
	d.Controller = "not-an-address"
	if err := d.Validate(); err == nil {
		t.Error("bad controller should be invalid")
	}

	d = MainnetDeployment()
	d.UnitPrice = 0
	if err := d.Validate(); err == nil {
		t.Error("zero unit price should be invalid")
	}

	d = MainnetDeployment()
	d.Alloc = map[string]uint64{"zzz": 1}
	if err := d.Validate(); err == nil {
		t.Error("bad alloc address should be invalid")
	}
}

func TestDeployment_Hash_Deterministic(t *testing.T) {
	a, err := MainnetDeployment().Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := MainnetDeployment().Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Error("same params should hash identically")
	}
}

func TestDeployment_Hash_ChangesWithParams(t *testing.T) {
	base, err := MainnetDeployment().Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	d := MainnetDeployment()
	d.UnitPrice++
	changed, err := d.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if base == changed {
		t.Error("different unit price should change the hash")
	}
}

func TestDeployment_TreasuryAddress(t *testing.T) {
	mainnet := MainnetDeployment().TreasuryAddress()
	testnet := TestnetDeployment().TreasuryAddress()

	if mainnet.IsZero() || testnet.IsZero() {
		t.Fatal("treasury address should not be zero")
	}
	if mainnet == testnet {
		t.Error("treasury must differ per network")
	}
	if mainnet != MainnetDeployment().TreasuryAddress() {
		t.Error("treasury derivation must be deterministic")
	}
}

func TestDeployment_ControllerAddress(t *testing.T) {
	addr, err := TestnetDeployment().ControllerAddress()
	if err != nil {
		t.Fatalf("controller address: %v", err)
	}
	if addr.IsZero() {
		t.Error("controller address should not be zero")
	}

	var zero types.Address
	if addr == zero {
		t.Error("controller address should not be zero value")
	}
}

func TestTestnetControllerAddress_Stable(t *testing.T) {
	a := TestnetControllerAddress()
	b := TestnetControllerAddress()
	if a == "" {
		t.Fatal("testnet controller address is empty")
	}
	if a != b {
		t.Error("derivation must be deterministic")
	}
}

func TestDeployment_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.json")

	d := TestnetDeployment()
	if err := d.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadDeployment(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Network != d.Network {
		t.Errorf("network = %q, want %q", loaded.Network, d.Network)
	}
	if loaded.UnitPrice != d.UnitPrice {
		t.Errorf("unit price = %d, want %d", loaded.UnitPrice, d.UnitPrice)
	}

	origHash, _ := d.Hash()
	loadedHash, _ := loaded.Hash()
	if origHash != loadedHash {
		t.Error("hash changed across save/load")
	}
}

func TestLoadDeployment_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.json")
	if err := os.WriteFile(path, []byte(`{"network":""}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadDeployment(path); err == nil {
		t.Error("invalid deployment file should fail to load")
	}
}

func TestDeploymentFor(t *testing.T) {
	if DeploymentFor(Mainnet).Network != "trending-mainnet-1" {
		t.Error("mainnet network mismatch")
	}
	if DeploymentFor(Testnet).Network != "trending-testnet-1" {
		t.Error("testnet network mismatch")
	}
}
