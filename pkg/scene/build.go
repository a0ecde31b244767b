package scene

import (
	"fmt"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/kernel/analytic"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Curve kinds.
const (
	CurveLine     = "line"
	CurveArc      = "arc"
	CurveCircle   = "circle"
	CurveEllipse  = "ellipse"
	CurvePolyline = "polyline"
	CurvePolygon  = "polygon"
)

// Surface kinds.
const (
	SurfacePlane       = "plane"
	SurfaceCylinder    = "cylinder"
	SurfaceSphere      = "sphere"
	SurfaceCone        = "cone"
	SurfaceTorus       = "torus"
	SurfaceExtrusion   = "extrusion"
	SurfaceHeightField = "height-field"
)

// Height field shapes.
const (
	FieldFlat           = "flat"
	FieldParaboloid     = "paraboloid"
	FieldSphericalCap   = "spherical-cap"
	FieldCylindricalCap = "cylindrical-cap"
	FieldWave           = "wave"
)

// Loop kinds.
const (
	LoopOuter = "outer"
	LoopInner = "inner"
)

var (
	curveKinds = map[string]bool{
		CurveLine: true, CurveArc: true, CurveCircle: true,
		CurveEllipse: true, CurvePolyline: true, CurvePolygon: true,
	}
	surfaceKinds = map[string]bool{
		SurfacePlane: true, SurfaceCylinder: true, SurfaceSphere: true, SurfaceCone: true,
		SurfaceTorus: true, SurfaceExtrusion: true, SurfaceHeightField: true,
	}
	fieldKinds = map[string]bool{
		FieldFlat: true, FieldParaboloid: true, FieldSphericalCap: true,
		FieldCylindricalCap: true, FieldWave: true,
	}
	loopKinds = map[string]kernel.LoopKind{
		LoopOuter: kernel.LoopOuter,
		LoopInner: kernel.LoopInner,
	}
)

// Frame returns the kernel frame. A nil spec is the world frame.
func (f *FrameSpec) Frame() kernel.Frame {
	if f == nil {
		return kernel.WorldXY()
	}
	if f.X.IsZero() {
		return kernel.NewFrame(f.Origin.Vec(), f.Z.Vec())
	}
	return kernel.NewFrameZX(f.Origin.Vec(), f.Z.Vec(), f.X.Vec())
}

// BuildCurve converts a curve spec into an analytic curve.
func BuildCurve(c CurveSpec) (kernel.Curve, error) {
	switch c.Kind {
	case CurveLine:
		return analytic.NewLine(c.From.Vec(), c.To.Vec()), nil
	case CurveArc:
		return analytic.NewArc(c.Frame.Frame(), c.Radius, sdf.DtoR(c.StartDegrees), sdf.DtoR(c.EndDegrees)), nil
	case CurveCircle:
		return analytic.NewCircle(c.Frame.Frame(), c.Radius), nil
	case CurveEllipse:
		return analytic.NewEllipse(c.Frame.Frame(), c.Radius, c.Radius2), nil
	case CurvePolyline:
		return analytic.NewPolyline(vecs(c.Points)...), nil
	case CurvePolygon:
		if c.Sides < 3 {
			return nil, fmt.Errorf("polygon needs at least 3 sides, got %d", c.Sides)
		}
		return analytic.RegularPolygon(c.Frame.Frame(), c.Radius, c.Sides), nil
	}
	return nil, fmt.Errorf("unknown curve kind %q", c.Kind)
}

// BuildSurface converts a surface spec into an analytic surface.
func BuildSurface(s SurfaceSpec) (kernel.Surface, error) {
	f := s.Frame.Frame()
	switch s.Kind {
	case SurfacePlane:
		span := kernel.Interval{Min: -s.Extent, Max: s.Extent}
		return analytic.NewPlane(f, span, span), nil
	case SurfaceCylinder:
		return analytic.NewCylinder(f, s.Radius, s.Height), nil
	case SurfaceSphere:
		return analytic.NewSphere(f, s.Radius), nil
	case SurfaceCone:
		return analytic.NewCone(f, s.Radius, s.Height), nil
	case SurfaceTorus:
		return analytic.NewTorus(f, s.Major, s.Minor), nil
	case SurfaceExtrusion:
		if s.Profile == nil {
			return nil, fmt.Errorf("extrusion has no profile")
		}
		profile, err := BuildCurve(*s.Profile)
		if err != nil {
			return nil, fmt.Errorf("extrusion profile: %w", err)
		}
		return analytic.NewExtrusion(profile, s.Direction.Vec(), s.Length), nil
	case SurfaceHeightField:
		return buildField(f, s)
	}
	return nil, fmt.Errorf("unknown surface kind %q", s.Kind)
}

func buildField(f kernel.Frame, s SurfaceSpec) (kernel.Surface, error) {
	switch s.Field {
	case FieldFlat:
		return analytic.Flat(f, s.Extent), nil
	case FieldParaboloid:
		return analytic.Paraboloid(f, s.A, s.B, s.Extent), nil
	case FieldSphericalCap:
		return analytic.SphericalCap(f, s.Radius, s.Extent), nil
	case FieldCylindricalCap:
		return analytic.CylindricalCap(f, s.Radius, s.Extent, s.Length), nil
	case FieldWave:
		return analytic.Wave(f, s.Amplitude, s.Wavenumber, s.Extent), nil
	}
	return nil, fmt.Errorf("unknown height field %q", s.Field)
}

// BuildSolid converts a solid into an in-memory B-rep. Face indices are
// not range checked here; the edge classifier rejects a B-rep whose edges
// reference missing faces.
func BuildSolid(sol Solid) (*analytic.Brep, error) {
	b := analytic.NewBrep()
	for i, fs := range sol.Faces {
		s, err := BuildSurface(fs)
		if err != nil {
			return nil, fmt.Errorf("face %d: %w", i, err)
		}
		b.AddFace(s)
	}
	for i, es := range sol.Edges {
		c, err := BuildCurve(es.Curve)
		if err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
		b.AddEdge(c, es.Faces...)
	}
	for i, ls := range sol.Loops {
		kind, ok := loopKinds[ls.Kind]
		if !ok {
			return nil, fmt.Errorf("loop %d: unknown loop kind %q", i, ls.Kind)
		}
		c, err := BuildCurve(ls.Curve)
		if err != nil {
			return nil, fmt.Errorf("loop %d: %w", i, err)
		}
		b.AddLoop(kind, c)
	}
	return b, nil
}

// Vecs returns the placement positions in order.
func (p Placements) Vecs() []v3.Vec {
	return vecs(p.Points)
}

func vecs(in []Vec3) []v3.Vec {
	out := make([]v3.Vec, len(in))
	for i, v := range in {
		out[i] = v.Vec()
	}
	return out
}
