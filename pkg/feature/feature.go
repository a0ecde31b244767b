// Package feature labels the edges and inner loops of a boundary
// represented solid as fillets, chamfers, holes and generic edges.
package feature

import (
	"fmt"

	"github.com/samber/lo"
)

// Kind tags a Feature.
type Kind int

const (
	Fillet Kind = iota
	Chamfer
	Hole
	GenericEdge
	VariableRadiusFillet
)

var kindNames = [...]string{
	Fillet:               "fillet",
	Chamfer:              "chamfer",
	Hole:                 "hole",
	GenericEdge:          "generic_edge",
	VariableRadiusFillet: "variable_radius_fillet",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name in reports.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown feature kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	i := lo.IndexOf(kindNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("unknown feature kind %q", text)
	}
	*k = Kind(i)
	return nil
}

// Feature is one classified edge or hole. Value holds the kind's single
// parameter: radius for fillets, angle in radians for chamfers, area for
// holes and arc length for generic edges.
type Feature struct {
	Kind  Kind    `json:"kind"`
	Value float64 `json:"value"`
	// Index is the edge index for edge features and the loop index for holes.
	Index int `json:"index"`
}

// Radius returns the radius of a fillet or variable radius fillet.
func (f Feature) Radius() (float64, bool) {
	return f.Value, f.Kind == Fillet || f.Kind == VariableRadiusFillet
}

// Angle returns the dihedral angle of a chamfer.
func (f Feature) Angle() (float64, bool) { return f.Value, f.Kind == Chamfer }

// Area returns the area of a hole.
func (f Feature) Area() (float64, bool) { return f.Value, f.Kind == Hole }

// Length returns the arc length of a generic edge.
func (f Feature) Length() (float64, bool) { return f.Value, f.Kind == GenericEdge }

func (f Feature) String() string {
	return fmt.Sprintf("%s(%g)@%d", f.Kind, f.Value, f.Index)
}

// Result is the outcome of classifying one solid.
type Result struct {
	Edges []Feature `json:"edges"`
	Holes []Feature `json:"holes"`
	// Confidence is the share of edges with usable curve data.
	Confidence float64 `json:"confidence"`
}

// Count returns how many features of kind k the result holds.
func (r Result) Count(k Kind) int {
	n := 0
	for _, f := range r.Edges {
		if f.Kind == k {
			n++
		}
	}
	for _, f := range r.Holes {
		if f.Kind == k {
			n++
		}
	}
	return n
}
