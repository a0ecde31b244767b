// Package kernel defines the abstract geometry kernel contract.
// Implementations (analytic, or a binding to a production B-rep kernel)
// answer curve, surface and topology queries behind these interfaces.
// The classifiers depend only on this package, which allows swapping
// backends without changing the rest of the system.
package kernel

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Continuity identifies a parametric (C) or geometric (G) continuity class.
type Continuity int

const (
	C0 Continuity = iota // position
	C1                   // first derivative
	C2                   // second derivative
	G1                   // tangent direction
	G2                   // curvature
)

func (c Continuity) String() string {
	switch c {
	case C0:
		return "C0"
	case C1:
		return "C1"
	case C2:
		return "C2"
	case G1:
		return "G1"
	case G2:
		return "G2"
	default:
		return fmt.Sprintf("Continuity(%d)", int(c))
	}
}

// LoopKind tags a face boundary loop.
type LoopKind int

const (
	LoopOuter LoopKind = iota
	LoopInner          // hole candidate
)

func (k LoopKind) String() string {
	switch k {
	case LoopOuter:
		return "outer"
	case LoopInner:
		return "inner"
	default:
		return "unknown"
	}
}

// Interval is a closed parameter range.
type Interval struct {
	Min, Max float64
}

// Length returns Max - Min.
func (i Interval) Length() float64 { return i.Max - i.Min }

// Mid returns the parameter halfway through the interval.
func (i Interval) Mid() float64 { return 0.5 * (i.Min + i.Max) }

// At maps a normalized parameter in [0,1] into the interval.
func (i Interval) At(f float64) float64 { return i.Min + f*(i.Max-i.Min) }

// Circle is the payload of a successful circle recognition.
type Circle struct {
	Frame  Frame // Z is the circle normal
	Radius float64
}

// Ellipse is the payload of a successful ellipse recognition.
type Ellipse struct {
	Frame   Frame   // X along the first radius
	Radius1 float64 // along Frame.X
	Radius2 float64 // along Frame.Y
}

// Curve is a bounded parametric curve.
type Curve interface {
	Domain() Interval
	PointAt(t float64) v3.Vec
	TangentAt(t float64) v3.Vec
	// CurvatureAt returns the curvature magnitude at t. ok is false where
	// the kernel cannot evaluate curvature (kinks, degenerate derivatives).
	CurvatureAt(t float64) (k float64, ok bool)
	Length() float64
	// NextDiscontinuity returns the first parameter in (t0, t1) where the
	// curve fails continuity class c.
	NextDiscontinuity(c Continuity, t0, t1 float64) (t float64, found bool)
	IsClosed() bool
	IsValid() bool

	// Conversions succeed only when the curve matches within tol.
	TryCircle(tol float64) (Circle, bool)
	TryEllipse(tol float64) (Ellipse, bool)
	TryPolyline(tol float64) ([]v3.Vec, bool)
	// PlanarArea returns the enclosed area of a closed planar curve.
	PlanarArea(tol float64) (float64, bool)
}

// SurfaceCurvature holds the principal curvature invariants at a point.
// Curvatures are positive where the surface bends away from its normal
// (convex side outward).
type SurfaceCurvature struct {
	Gaussian float64
	Mean     float64
	K1, K2   float64
	Dir1     v3.Vec // principal direction of K1
	Dir2     v3.Vec // principal direction of K2
}

// Cylinder is the payload of a successful cylinder fit.
// Frame.Z is the axis; Frame.Origin lies on the axis at the base.
type Cylinder struct {
	Frame  Frame
	Radius float64
	Height float64
}

// Sphere is the payload of a successful sphere fit. Frame.Origin is the center.
type Sphere struct {
	Frame  Frame
	Radius float64
}

// Cone is the payload of a successful cone fit. Frame.Origin is the apex
// and Frame.Z points from the apex toward the base circle.
type Cone struct {
	Frame  Frame
	Radius float64 // base radius
	Height float64 // apex to base distance
}

// Torus is the payload of a successful torus fit. Frame.Z is the axis of
// revolution.
type Torus struct {
	Frame       Frame
	MajorRadius float64
	MinorRadius float64
}

// Extrusion describes a surface swept along a straight path.
type Extrusion struct {
	Profile   Curve
	Direction v3.Vec // unit length
	Length    float64
}

// Surface is a 2-D parametric patch.
type Surface interface {
	Domain() (u, v Interval)
	PointAt(uv v2.Vec) v3.Vec
	NormalAt(uv v2.Vec) v3.Vec
	CurvatureAt(uv v2.Vec) (SurfaceCurvature, bool)
	FrameAt(uv v2.Vec) (Frame, bool)
	BoundingBox() sdf.Box3
	IsValid() bool

	// Direct analytic fit attempts.
	TryPlane(tol float64) (Frame, bool)
	TryCylinder(tol float64) (Cylinder, bool)
	TrySphere(tol float64) (Sphere, bool)
	TryCone(tol float64) (Cone, bool)
	TryTorus(tol float64) (Torus, bool)
	// TryExtrusion succeeds only for straight-path sweeps.
	TryExtrusion(tol float64) (Extrusion, bool)
}

// Edge is a bounded curve owned by a solid.
type Edge interface {
	// Curve returns the edge geometry; ok is false when the kernel holds no
	// usable curve data for this edge.
	Curve() (c Curve, ok bool)
	// AdjacentFaces returns the indices of the 0, 1 or 2 faces sharing the edge.
	AdjacentFaces() []int
	Midpoint() (v3.Vec, bool)
}

// Loop is an ordered edge sequence bounding a face region.
type Loop interface {
	Kind() LoopKind
	// Boundary joins the loop's edges into a single closed curve.
	Boundary() (Curve, bool)
}

// Face is a trimmed surface owned by a solid.
type Face interface {
	// Surface returns an independent copy of the underlying surface.
	Surface() (Surface, bool)
	NormalAt(uv v2.Vec) v3.Vec
	ClosestUV(p v3.Vec) (v2.Vec, bool)
}

// Brep is a boundary-represented solid.
type Brep interface {
	Faces() []Face
	Edges() []Edge
	Loops() []Loop
	IsValid() bool
}

// PlaneFitter fits a plane through a point set. ok is false for degenerate
// (coincident or collinear) sets.
type PlaneFitter interface {
	FitPlane(points []v3.Vec) (Frame, bool)
}

// PlaneFitterFunc adapts a function to the PlaneFitter interface.
type PlaneFitterFunc func(points []v3.Vec) (Frame, bool)

// FitPlane calls f(points).
func (f PlaneFitterFunc) FitPlane(points []v3.Vec) (Frame, bool) {
	return f(points)
}

// Solid is an opaque handle to a modeler solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Modeler builds closed solids for fitted primitives so they can be
// previewed. Primitives are created in their canonical local frame and
// positioned with Transform.
type Modeler interface {
	Sphere(radius float64) (Solid, error)
	// Cylinder spans z in [0, height].
	Cylinder(height, radius float64) (Solid, error)
	// Cone has its apex at the origin and its base circle at z = height.
	Cone(height, radius float64) (Solid, error)
	Torus(major, minor float64) (Solid, error)

	Transform(s Solid, m sdf.M44) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
