//go:build !manifold

// Package manifold implements kernel.Modeler on the Manifold mesh library.
// Without the "manifold" build tag this stub is compiled instead and New
// reports ErrUnavailable.
//
// Build with: go build -tags=manifold
package manifold

import "github.com/chazu/grain/pkg/kernel"

// New reports ErrUnavailable. Build with -tags=manifold to enable.
func New() (kernel.Modeler, error) {
	return nil, ErrUnavailable
}
