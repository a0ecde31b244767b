// Package scene holds the declarative input to a batch classification run:
// solids whose edges and faces are classified, free surfaces that are
// fitted, and placement sets that are searched for patterns. Scenes are
// written in YAML or built by the DSL in pkg/engine.
package scene

import (
	"fmt"
	"os"

	"github.com/chazu/grain/pkg/classify"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"
)

// ItemKind tags the three kinds of scene item.
type ItemKind int

const (
	ItemSolid ItemKind = iota
	ItemSurface
	ItemPlacements
)

func (k ItemKind) String() string {
	switch k {
	case ItemSolid:
		return "solid"
	case ItemSurface:
		return "surface"
	case ItemPlacements:
		return "placements"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

func (k ItemKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ItemKind) UnmarshalText(text []byte) error {
	for _, c := range []ItemKind{ItemSolid, ItemSurface, ItemPlacements} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown item kind %q", text)
}

// Vec3 is a point or direction written as [x, y, z].
type Vec3 [3]float64

// Vec converts to the sdfx vector type used by the kernel.
func (v Vec3) Vec() v3.Vec { return v3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// FromVec is the inverse of Vec.
func FromVec(v v3.Vec) Vec3 { return Vec3{v.X, v.Y, v.Z} }

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool { return v == Vec3{} }

// FrameSpec places a curve or surface. Z is the primary axis; X is an
// optional hint for the in-plane orientation.
type FrameSpec struct {
	Origin Vec3 `yaml:"origin" json:"origin"`
	Z      Vec3 `yaml:"z" json:"z"`
	X      Vec3 `yaml:"x,omitempty" json:"x,omitzero"`
}

// CurveSpec describes an edge or loop curve.
//
//	line      from, to
//	arc       frame, radius, start_degrees, end_degrees
//	circle    frame, radius
//	ellipse   frame, radius, radius2
//	polyline  points
//	polygon   frame, radius, sides
type CurveSpec struct {
	Kind         string     `yaml:"kind" json:"kind"`
	From         Vec3       `yaml:"from,omitempty" json:"from,omitzero"`
	To           Vec3       `yaml:"to,omitempty" json:"to,omitzero"`
	Frame        *FrameSpec `yaml:"frame,omitempty" json:"frame,omitempty"`
	Radius       float64    `yaml:"radius,omitempty" json:"radius,omitzero"`
	Radius2      float64    `yaml:"radius2,omitempty" json:"radius2,omitzero"`
	StartDegrees float64    `yaml:"start_degrees,omitempty" json:"start_degrees,omitzero"`
	EndDegrees   float64    `yaml:"end_degrees,omitempty" json:"end_degrees,omitzero"`
	Sides        int        `yaml:"sides,omitempty" json:"sides,omitzero"`
	Points       []Vec3     `yaml:"points,omitempty" json:"points,omitempty"`
}

// SurfaceSpec describes a face surface.
//
//	plane         frame, extent (half-width of the square domain)
//	cylinder      frame, radius, height
//	sphere        frame, radius
//	cone          frame, radius, height
//	torus         frame, major, minor
//	extrusion     profile, direction, length
//	height-field  frame, field, extent, a, b, radius, length, amplitude, wavenumber
type SurfaceSpec struct {
	Kind       string     `yaml:"kind" json:"kind"`
	Frame      *FrameSpec `yaml:"frame,omitempty" json:"frame,omitempty"`
	Radius     float64    `yaml:"radius,omitempty" json:"radius,omitzero"`
	Height     float64    `yaml:"height,omitempty" json:"height,omitzero"`
	Major      float64    `yaml:"major,omitempty" json:"major,omitzero"`
	Minor      float64    `yaml:"minor,omitempty" json:"minor,omitzero"`
	Extent     float64    `yaml:"extent,omitempty" json:"extent,omitzero"`
	Profile    *CurveSpec `yaml:"profile,omitempty" json:"profile,omitempty"`
	Direction  Vec3       `yaml:"direction,omitempty" json:"direction,omitzero"`
	Length     float64    `yaml:"length,omitempty" json:"length,omitzero"`
	Field      string     `yaml:"field,omitempty" json:"field,omitzero"`
	A          float64    `yaml:"a,omitempty" json:"a,omitzero"`
	B          float64    `yaml:"b,omitempty" json:"b,omitzero"`
	Amplitude  float64    `yaml:"amplitude,omitempty" json:"amplitude,omitzero"`
	Wavenumber float64    `yaml:"wavenumber,omitempty" json:"wavenumber,omitzero"`
}

// EdgeSpec is an edge curve and the indices of the faces it bounds.
type EdgeSpec struct {
	Curve CurveSpec `yaml:"curve" json:"curve"`
	Faces []int     `yaml:"faces,omitempty" json:"faces,omitempty"`
}

// LoopSpec is a face boundary loop; Kind is "outer" or "inner".
type LoopSpec struct {
	Kind  string    `yaml:"kind" json:"kind"`
	Curve CurveSpec `yaml:"curve" json:"curve"`
}

// Solid is a named B-rep.
type Solid struct {
	Name  string        `yaml:"name" json:"name"`
	Faces []SurfaceSpec `yaml:"faces" json:"faces"`
	Edges []EdgeSpec    `yaml:"edges,omitempty" json:"edges,omitempty"`
	Loops []LoopSpec    `yaml:"loops,omitempty" json:"loops,omitempty"`
}

// Surface is a named free surface.
type Surface struct {
	Name    string      `yaml:"name" json:"name"`
	Surface SurfaceSpec `yaml:"surface" json:"surface"`
}

// Placements is a named, ordered set of instance positions.
type Placements struct {
	Name   string `yaml:"name" json:"name"`
	Points []Vec3 `yaml:"points" json:"points"`
}

// ToleranceSpec is the scene-wide tolerance. Zero fields take the
// classify defaults.
type ToleranceSpec struct {
	Distance     float64 `yaml:"distance,omitempty" json:"distance,omitzero"`
	AngleDegrees float64 `yaml:"angle_degrees,omitempty" json:"angle_degrees,omitzero"`
}

// Tolerance converts to the classifier tolerance.
func (t ToleranceSpec) Tolerance() classify.Tolerance {
	tol := classify.DefaultTolerance()
	if t.Distance != 0 {
		tol.Distance = t.Distance
	}
	if t.AngleDegrees != 0 {
		tol.Angle = sdf.DtoR(t.AngleDegrees)
	}
	return tol
}

// ItemRef locates a named item.
type ItemRef struct {
	Kind  ItemKind `json:"kind"`
	Index int      `json:"index"`
}

// Scene is the top-level input document. Items keep their declaration
// order within each kind; scans visit solids, then surfaces, then
// placement sets.
type Scene struct {
	Tolerance  ToleranceSpec      `yaml:"tolerance,omitempty" json:"tolerance,omitzero"`
	Solids     []Solid            `yaml:"solids,omitempty" json:"solids,omitempty"`
	Surfaces   []Surface          `yaml:"surfaces,omitempty" json:"surfaces,omitempty"`
	Placements []Placements       `yaml:"placements,omitempty" json:"placements,omitempty"`
	NameIndex  map[string]ItemRef `yaml:"-" json:"-"`
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{NameIndex: make(map[string]ItemRef)}
}

// AddSolid appends a solid and indexes its name.
func (s *Scene) AddSolid(sol Solid) {
	s.Solids = append(s.Solids, sol)
	s.index(sol.Name, ItemRef{Kind: ItemSolid, Index: len(s.Solids) - 1})
}

// AddSurface appends a free surface and indexes its name.
func (s *Scene) AddSurface(surf Surface) {
	s.Surfaces = append(s.Surfaces, surf)
	s.index(surf.Name, ItemRef{Kind: ItemSurface, Index: len(s.Surfaces) - 1})
}

// AddPlacements appends a placement set and indexes its name.
func (s *Scene) AddPlacements(p Placements) {
	s.Placements = append(s.Placements, p)
	s.index(p.Name, ItemRef{Kind: ItemPlacements, Index: len(s.Placements) - 1})
}

// index records the first item with a given name. Duplicates are left for
// Validate to report.
func (s *Scene) index(name string, ref ItemRef) {
	if s.NameIndex == nil {
		s.NameIndex = make(map[string]ItemRef)
	}
	if name == "" {
		return
	}
	if _, ok := s.NameIndex[name]; !ok {
		s.NameIndex[name] = ref
	}
}

// Reindex rebuilds NameIndex from the item lists.
func (s *Scene) Reindex() {
	s.NameIndex = make(map[string]ItemRef)
	for i, sol := range s.Solids {
		s.index(sol.Name, ItemRef{Kind: ItemSolid, Index: i})
	}
	for i, surf := range s.Surfaces {
		s.index(surf.Name, ItemRef{Kind: ItemSurface, Index: i})
	}
	for i, p := range s.Placements {
		s.index(p.Name, ItemRef{Kind: ItemPlacements, Index: i})
	}
}

// Lookup returns the reference for a named item.
func (s *Scene) Lookup(name string) (ItemRef, bool) {
	ref, ok := s.NameIndex[name]
	return ref, ok
}

// ItemCount returns the number of items across all kinds.
func (s *Scene) ItemCount() int {
	return len(s.Solids) + len(s.Surfaces) + len(s.Placements)
}

// Load reads a YAML scene from path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML scene and builds its name index. It does not
// validate; call Validate or ValidateAll.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	s.Reindex()
	return &s, nil
}

// Marshal encodes the scene as YAML.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
