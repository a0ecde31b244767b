// Package pattern detects linear, radial, grid and scaling repetition in an
// ordered set of placement points.
package pattern

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Kind tags a Pattern.
type Kind int

const (
	Linear Kind = iota
	Radial
	Grid
	Scaling
)

var kindNames = [...]string{
	Linear:  "linear",
	Radial:  "radial",
	Grid:    "grid",
	Scaling: "scaling",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown pattern kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	i := lo.IndexOf(kindNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("unknown pattern kind %q", text)
	}
	*k = Kind(i)
	return nil
}

// Pattern is a detected repetition. Transform carries one instance onto
// the next (for Grid: the canonical XY plane onto the lattice plane). The
// remaining fields describe the pattern per kind:
//
//	Linear   Step
//	Radial   Center, Axis, Angle (radians, signed about Axis)
//	Grid     Origin, U, V
//	Scaling  Center, Ratio
type Pattern struct {
	Kind       Kind    `json:"kind"`
	Transform  sdf.M44 `json:"-"`
	Confidence float64 `json:"confidence"`

	Step   v3.Vec  `json:"step,omitzero"`
	Center v3.Vec  `json:"center,omitzero"`
	Axis   v3.Vec  `json:"axis,omitzero"`
	Angle  float64 `json:"angle,omitzero"`
	Origin v3.Vec  `json:"origin,omitzero"`
	U      v3.Vec  `json:"u,omitzero"`
	V      v3.Vec  `json:"v,omitzero"`
	Ratio  float64 `json:"ratio,omitzero"`
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s(confidence=%.2f)", p.Kind, p.Confidence)
}
