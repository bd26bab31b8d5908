// Package gate enforces the single-controller authorization model.
// Privileged operations on the series and registry contracts are open
// to exactly one externally configured controller account.
package gate

import (
	"errors"

	"github.com/QingfengHuu/trending-nft/pkg/types"
)

// ErrUnauthorized is returned when the caller is not the controller.
var ErrUnauthorized = errors.New("caller is not the controller")

// Gate checks callers against the configured controller identity.
type Gate struct {
	controller types.Address
}

// New creates a gate for the given controller address.
func New(controller types.Address) *Gate {
	return &Gate{controller: controller}
}

// Controller returns the configured controller address.
func (g *Gate) Controller() types.Address {
	return g.controller
}

// Allowed reports whether the caller is the controller.
func (g *Gate) Allowed(caller types.Address) bool {
	return caller == g.controller
}

// Require returns ErrUnauthorized unless the caller is the controller.
func (g *Gate) Require(caller types.Address) error {
	if !g.Allowed(caller) {
		return ErrUnauthorized
	}
	return nil
}
