// Package analytic implements the kernel contract with exact analytic
// curves and surfaces. It is the reference kernel used by scene files, the
// DSL and the classifier tests.
package analytic

import (
	"math"

	"github.com/chazu/grain/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Brep = (*Brep)(nil)
	_ kernel.Face = (*Face)(nil)
	_ kernel.Edge = (*Edge)(nil)
	_ kernel.Loop = (*Loop)(nil)
)

// uvLocator is implemented by surfaces with a closed-form inverse.
type uvLocator interface {
	ClosestUV(p v3.Vec) (v2.Vec, bool)
}

// Face wraps a surface. Analytic surfaces are immutable, so the copy
// returned by Surface shares storage with the face.
type Face struct {
	Surf kernel.Surface
}

func (f *Face) Surface() (kernel.Surface, bool) {
	return f.Surf, f.Surf != nil
}

func (f *Face) NormalAt(uv v2.Vec) v3.Vec { return f.Surf.NormalAt(uv) }

// ClosestUV uses the surface's closed-form inverse when it has one and a
// grid search with pattern refinement otherwise.
func (f *Face) ClosestUV(p v3.Vec) (v2.Vec, bool) {
	if f.Surf == nil {
		return v2.Vec{}, false
	}
	if l, ok := f.Surf.(uvLocator); ok {
		return l.ClosestUV(p)
	}
	return searchUV(f.Surf, p)
}

// Edge is an edge curve with the indices of its adjacent faces. A nil
// curve models an edge whose geometry the kernel could not recover.
type Edge struct {
	C     kernel.Curve
	Faces []int
}

func (e *Edge) Curve() (kernel.Curve, bool) {
	return e.C, e.C != nil
}

func (e *Edge) AdjacentFaces() []int { return e.Faces }

func (e *Edge) Midpoint() (v3.Vec, bool) {
	if e.C == nil {
		return v3.Vec{}, false
	}
	return e.C.PointAt(e.C.Domain().Mid()), true
}

// Loop is a face boundary represented by its joined closed curve.
type Loop struct {
	K kernel.LoopKind
	C kernel.Curve
}

func (l *Loop) Kind() kernel.LoopKind { return l.K }

func (l *Loop) Boundary() (kernel.Curve, bool) {
	return l.C, l.C != nil
}

// Brep is an in-memory boundary representation.
type Brep struct {
	FaceList []*Face
	EdgeList []*Edge
	LoopList []*Loop
}

// NewBrep returns an empty Brep ready for AddFace/AddEdge/AddLoop.
func NewBrep() *Brep {
	return &Brep{}
}

// AddFace appends a face and returns its index.
func (b *Brep) AddFace(s kernel.Surface) int {
	b.FaceList = append(b.FaceList, &Face{Surf: s})
	return len(b.FaceList) - 1
}

// AddEdge appends an edge bounded by the given faces.
func (b *Brep) AddEdge(c kernel.Curve, faces ...int) *Brep {
	b.EdgeList = append(b.EdgeList, &Edge{C: c, Faces: faces})
	return b
}

// AddLoop appends a boundary loop.
func (b *Brep) AddLoop(kind kernel.LoopKind, c kernel.Curve) *Brep {
	b.LoopList = append(b.LoopList, &Loop{K: kind, C: c})
	return b
}

func (b *Brep) Faces() []kernel.Face {
	out := make([]kernel.Face, len(b.FaceList))
	for i, f := range b.FaceList {
		out[i] = f
	}
	return out
}

func (b *Brep) Edges() []kernel.Edge {
	out := make([]kernel.Edge, len(b.EdgeList))
	for i, e := range b.EdgeList {
		out[i] = e
	}
	return out
}

func (b *Brep) Loops() []kernel.Loop {
	out := make([]kernel.Loop, len(b.LoopList))
	for i, l := range b.LoopList {
		out[i] = l
	}
	return out
}

// IsValid checks that every face has a surface and every edge references
// existing faces.
func (b *Brep) IsValid() bool {
	for _, f := range b.FaceList {
		if f == nil || f.Surf == nil {
			return false
		}
	}
	for _, e := range b.EdgeList {
		if e == nil || len(e.Faces) > 2 {
			return false
		}
		for _, fi := range e.Faces {
			if fi < 0 || fi >= len(b.FaceList) {
				return false
			}
		}
	}
	return true
}

// searchUV finds the parameters of the surface point nearest p with a
// coarse grid search followed by a shrinking compass search.
func searchUV(s kernel.Surface, p v3.Vec) (v2.Vec, bool) {
	const (
		grid     = 32
		maxIters = 400
	)
	u, v := s.Domain()
	dist := func(uv v2.Vec) float64 { return s.PointAt(uv).Sub(p).Length2() }

	best := v2.Vec{X: u.Min, Y: v.Min}
	bestD := math.Inf(1)
	for i := 0; i <= grid; i++ {
		for j := 0; j <= grid; j++ {
			uv := v2.Vec{X: u.At(float64(i) / grid), Y: v.At(float64(j) / grid)}
			if d := dist(uv); d < bestD {
				best, bestD = uv, d
			}
		}
	}

	du, dv := u.Length()/grid, v.Length()/grid
	minStep := 1e-12 * math.Max(u.Length(), v.Length())
	for iter := 0; iter < maxIters && (du > minStep || dv > minStep); iter++ {
		improved := false
		for _, step := range [4]v2.Vec{{X: du}, {X: -du}, {Y: dv}, {Y: -dv}} {
			cand := v2.Vec{X: clamp(best.X+step.X, u), Y: clamp(best.Y+step.Y, v)}
			if d := dist(cand); d < bestD {
				best, bestD = cand, d
				improved = true
			}
		}
		if !improved {
			du /= 2
			dv /= 2
		}
	}
	return best, !math.IsInf(bestD, 0) && !math.IsNaN(bestD)
}
