//go:build !manifold

package manifold

import (
	"errors"
	"testing"
)

func TestNewReturnsError(t *testing.T) {
	m, err := New()
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("New() error = %v, want ErrUnavailable when the manifold tag is not set", err)
	}
	if m != nil {
		t.Fatal("New() returned a modeler, want nil when the manifold tag is not set")
	}
}
