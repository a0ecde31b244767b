// Package primitive fits analytic primitives to surface patches and
// decomposes solids into per-face primitives with RMS residuals.
package primitive

import (
	"fmt"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/samber/lo"
)

// Kind tags a Primitive.
type Kind int

const (
	Plane Kind = iota
	Cylinder
	Sphere
	Cone
	Torus
	Extrusion
	Unknown
)

var kindNames = [...]string{
	Plane:     "plane",
	Cylinder:  "cylinder",
	Sphere:    "sphere",
	Cone:      "cone",
	Torus:     "torus",
	Extrusion: "extrusion",
	Unknown:   "unknown",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown primitive kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	i := lo.IndexOf(kindNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("unknown primitive kind %q", text)
	}
	*k = Kind(i)
	return nil
}

// Primitive is a fitted shape. Params depend on Kind:
//
//	Plane      []
//	Cylinder   [radius, height]   frame Z along the axis
//	Sphere     [radius]           frame origin at the centre
//	Cone       [radius, height]   frame origin at the apex, Z toward the base
//	Torus      [major, minor]     frame Z along the axis
//	Extrusion  [length]           frame Z along the sweep, Profile set
//	Unknown    []
type Primitive struct {
	Kind    Kind         `json:"kind"`
	Frame   kernel.Frame `json:"frame"`
	Params  []float64    `json:"params"`
	Profile kernel.Curve `json:"-"`
}

func (p Primitive) param(i int, kinds ...Kind) (float64, bool) {
	for _, k := range kinds {
		if p.Kind == k && i < len(p.Params) {
			return p.Params[i], true
		}
	}
	return 0, false
}

// Radius returns the radius of a cylinder, sphere or cone.
func (p Primitive) Radius() (float64, bool) { return p.param(0, Cylinder, Sphere, Cone) }

// Height returns the height of a cylinder or cone.
func (p Primitive) Height() (float64, bool) { return p.param(1, Cylinder, Cone) }

// MajorRadius returns the major radius of a torus.
func (p Primitive) MajorRadius() (float64, bool) { return p.param(0, Torus) }

// MinorRadius returns the minor radius of a torus.
func (p Primitive) MinorRadius() (float64, bool) { return p.param(1, Torus) }

// Length returns the sweep length of an extrusion.
func (p Primitive) Length() (float64, bool) { return p.param(0, Extrusion) }

// Source records which path produced a fit.
type Source int

const (
	// Direct fits come from the kernel's analytic recognizers.
	Direct Source = iota
	// Curvature fits come from sampled curvature invariants.
	Curvature
)

func (s Source) String() string {
	if s == Direct {
		return "direct"
	}
	return "curvature"
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "direct":
		*s = Direct
	case "curvature":
		*s = Curvature
	default:
		return fmt.Errorf("unknown fit source %q", text)
	}
	return nil
}

// Fit pairs a face's primitive with its RMS residual.
type Fit struct {
	Face      int       `json:"face"`
	Primitive Primitive `json:"primitive"`
	Residual  float64   `json:"residual"`
	Source    Source    `json:"source"`
}
