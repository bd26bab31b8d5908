package node

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/QingfengHuu/trending-nft/config"
	"github.com/QingfengHuu/trending-nft/internal/ledger"
	"github.com/QingfengHuu/trending-nft/internal/storage"
	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// deploymentKey stores the hash of the deployment a database was
// seeded for. A mismatch on restart means the operator pointed the
// node at a datadir from a different network.
var deploymentKey = []byte("deployment/hash")

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// resolveDeployment loads the deployment from the datadir if an
// operator placed one there, falling back to the built-in parameters
// for the configured network. The built-in copy is written out on
// first run so operators can inspect it.
func resolveDeployment(cfg *config.Config) (*config.Deployment, bool, error) {
	path := cfg.DeploymentFile()
	if _, err := os.Stat(path); err == nil {
		dep, err := config.LoadDeployment(path)
		if err != nil {
			return nil, false, fmt.Errorf("load %s: %w", path, err)
		}
		return dep, true, nil
	}

	dep := config.DeploymentFor(cfg.Network)
	if err := dep.Validate(); err != nil {
		return nil, false, fmt.Errorf("built-in deployment: %w", err)
	}
	if err := dep.Save(path); err != nil {
		return nil, false, fmt.Errorf("write %s: %w", path, err)
	}
	return dep, false, nil
}

// seedAllocations credits the deployment's initial balances exactly
// once per database. Returns true when this call performed the
// seeding.
func seedAllocations(db storage.DB, dep *config.Deployment, depHash types.Hash) (bool, error) {
	stored, err := db.Get(deploymentKey)
	switch {
	case err == nil:
		if !bytes.Equal(stored, depHash[:]) {
			return false, fmt.Errorf("database was seeded for a different deployment (stored %x, configured %x)",
				stored[:8], depHash[:8])
		}
		return false, nil
	case errors.Is(err, storage.ErrNotFound):
		// fresh database, seed below
	default:
		return false, fmt.Errorf("read deployment marker: %w", err)
	}

	led := ledger.New(db)
	for addrStr, amount := range dep.Alloc {
		addr, err := types.ParseAddress(addrStr)
		if err != nil {
			return false, fmt.Errorf("alloc address %q: %w", addrStr, err)
		}
		if err := led.Credit(addr, amount); err != nil {
			return false, fmt.Errorf("credit %s: %w", addrStr, err)
		}
	}

	if err := db.Put(deploymentKey, depHash[:]); err != nil {
		return false, fmt.Errorf("write deployment marker: %w", err)
	}
	return true, nil
}
