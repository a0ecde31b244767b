package analytic

import (
	"math"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Surface = (*Plane)(nil)
	_ kernel.Surface = (*Cylinder)(nil)
	_ kernel.Surface = (*Sphere)(nil)
	_ kernel.Surface = (*Cone)(nil)
	_ kernel.Surface = (*Torus)(nil)
	_ kernel.Surface = (*Extrusion)(nil)
	_ kernel.Surface = (*HeightField)(nil)
)

// boxSamples is the per-direction grid used to estimate bounding boxes.
const boxSamples = 16

// fullAngle is the default angular domain of surfaces of revolution.
var fullAngle = kernel.Interval{Min: 0, Max: fullTurn}

// unfitted supplies failing analytic fit attempts. Each surface type
// overrides the one fit that recognizes it.
type unfitted struct{}

func (unfitted) TryPlane(float64) (kernel.Frame, bool)           { return kernel.Frame{}, false }
func (unfitted) TryCylinder(float64) (kernel.Cylinder, bool)     { return kernel.Cylinder{}, false }
func (unfitted) TrySphere(float64) (kernel.Sphere, bool)         { return kernel.Sphere{}, false }
func (unfitted) TryCone(float64) (kernel.Cone, bool)             { return kernel.Cone{}, false }
func (unfitted) TryTorus(float64) (kernel.Torus, bool)           { return kernel.Torus{}, false }
func (unfitted) TryExtrusion(float64) (kernel.Extrusion, bool)   { return kernel.Extrusion{}, false }

// ---------------------------------------------------------------------------
// Plane
// ---------------------------------------------------------------------------

// Plane is a rectangular patch of the XY plane of Frame.
type Plane struct {
	unfitted
	Frame kernel.Frame
	U, V  kernel.Interval
}

// NewPlane returns the patch [u0,u1] x [v0,v1] of the frame's XY plane.
func NewPlane(frame kernel.Frame, u, v kernel.Interval) *Plane {
	return &Plane{Frame: frame, U: u, V: v}
}

func (p *Plane) Domain() (kernel.Interval, kernel.Interval) { return p.U, p.V }

func (p *Plane) PointAt(uv v2.Vec) v3.Vec {
	return p.Frame.ToWorld(v3.Vec{X: uv.X, Y: uv.Y})
}

func (p *Plane) NormalAt(v2.Vec) v3.Vec { return p.Frame.Z }

func (p *Plane) CurvatureAt(v2.Vec) (kernel.SurfaceCurvature, bool) {
	return kernel.SurfaceCurvature{Dir1: p.Frame.X, Dir2: p.Frame.Y}, true
}

func (p *Plane) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	f := p.Frame
	f.Origin = p.PointAt(uv)
	return f, true
}

func (p *Plane) BoundingBox() sdf.Box3 { return sampleBox(p) }

func (p *Plane) IsValid() bool {
	return p.Frame.IsValid() && p.U.Length() > 0 && p.V.Length() > 0
}

func (p *Plane) TryPlane(float64) (kernel.Frame, bool) { return p.Frame, p.IsValid() }

// ClosestUV drops p perpendicularly onto the plane.
func (p *Plane) ClosestUV(pt v3.Vec) (v2.Vec, bool) {
	l := p.Frame.ToLocal(pt)
	return v2.Vec{X: clamp(l.X, p.U), Y: clamp(l.Y, p.V)}, true
}

// ---------------------------------------------------------------------------
// Cylinder
// ---------------------------------------------------------------------------

// Cylinder is a (possibly partial) circular cylinder about Frame.Z.
// u is the angle, v the height above the frame origin.
type Cylinder struct {
	unfitted
	Frame  kernel.Frame
	Radius float64
	Height float64
	Angle  kernel.Interval
}

// NewCylinder returns a full cylinder with its base circle at frame.Origin.
func NewCylinder(frame kernel.Frame, r, h float64) *Cylinder {
	return &Cylinder{Frame: frame, Radius: r, Height: h, Angle: fullAngle}
}

func (c *Cylinder) Domain() (kernel.Interval, kernel.Interval) {
	return c.Angle, kernel.Interval{Min: 0, Max: c.Height}
}

func (c *Cylinder) radial(u float64) v3.Vec {
	return c.Frame.X.MulScalar(math.Cos(u)).Add(c.Frame.Y.MulScalar(math.Sin(u)))
}

func (c *Cylinder) circumferential(u float64) v3.Vec {
	return c.Frame.X.MulScalar(-math.Sin(u)).Add(c.Frame.Y.MulScalar(math.Cos(u)))
}

func (c *Cylinder) PointAt(uv v2.Vec) v3.Vec {
	return c.Frame.Origin.Add(c.radial(uv.X).MulScalar(c.Radius)).Add(c.Frame.Z.MulScalar(uv.Y))
}

func (c *Cylinder) NormalAt(uv v2.Vec) v3.Vec { return c.radial(uv.X) }

func (c *Cylinder) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	if c.Radius <= 0 {
		return kernel.SurfaceCurvature{}, false
	}
	k := 1 / c.Radius
	return kernel.SurfaceCurvature{
		Gaussian: 0,
		Mean:     0.5 * k,
		K1:       k,
		K2:       0,
		Dir1:     c.circumferential(uv.X),
		Dir2:     c.Frame.Z,
	}, true
}

func (c *Cylinder) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	return kernel.NewFrameZX(c.PointAt(uv), c.NormalAt(uv), c.circumferential(uv.X)), c.Radius > 0
}

func (c *Cylinder) BoundingBox() sdf.Box3 { return sampleBox(c) }

func (c *Cylinder) IsValid() bool {
	return c.Frame.IsValid() && c.Radius >= 0 && c.Height > 0 && c.Angle.Length() > 0
}

func (c *Cylinder) TryCylinder(float64) (kernel.Cylinder, bool) {
	if !c.IsValid() {
		return kernel.Cylinder{}, false
	}
	return kernel.Cylinder{Frame: c.Frame, Radius: c.Radius, Height: c.Height}, true
}

// ClosestUV projects onto the axis and takes the polar angle of the remainder.
func (c *Cylinder) ClosestUV(p v3.Vec) (v2.Vec, bool) {
	l := c.Frame.ToLocal(p)
	if math.Hypot(l.X, l.Y) == 0 {
		return v2.Vec{}, false
	}
	return v2.Vec{X: clampAngle(math.Atan2(l.Y, l.X), c.Angle), Y: clamp(l.Z, kernel.Interval{Max: c.Height})}, true
}

// ---------------------------------------------------------------------------
// Sphere
// ---------------------------------------------------------------------------

// Sphere is a sphere centered on Frame.Origin. u is the longitude, v the
// latitude in [-pi/2, pi/2].
type Sphere struct {
	unfitted
	Frame  kernel.Frame
	Radius float64
}

// NewSphere returns the sphere of radius r centered at frame.Origin.
func NewSphere(frame kernel.Frame, r float64) *Sphere {
	return &Sphere{Frame: frame, Radius: r}
}

func (s *Sphere) Domain() (kernel.Interval, kernel.Interval) {
	return fullAngle, kernel.Interval{Min: -math.Pi / 2, Max: math.Pi / 2}
}

func (s *Sphere) direction(uv v2.Vec) v3.Vec {
	cu, su := math.Cos(uv.X), math.Sin(uv.X)
	cv, sv := math.Cos(uv.Y), math.Sin(uv.Y)
	return s.Frame.X.MulScalar(cv * cu).Add(s.Frame.Y.MulScalar(cv * su)).Add(s.Frame.Z.MulScalar(sv))
}

func (s *Sphere) PointAt(uv v2.Vec) v3.Vec {
	return s.Frame.Origin.Add(s.direction(uv).MulScalar(s.Radius))
}

func (s *Sphere) NormalAt(uv v2.Vec) v3.Vec { return s.direction(uv) }

func (s *Sphere) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	if s.Radius <= 0 {
		return kernel.SurfaceCurvature{}, false
	}
	k := 1 / s.Radius
	east := s.Frame.X.MulScalar(-math.Sin(uv.X)).Add(s.Frame.Y.MulScalar(math.Cos(uv.X)))
	return kernel.SurfaceCurvature{
		Gaussian: k * k,
		Mean:     k,
		K1:       k,
		K2:       k,
		Dir1:     east,
		Dir2:     s.direction(uv).Cross(east),
	}, true
}

func (s *Sphere) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	return kernel.NewFrame(s.PointAt(uv), s.NormalAt(uv)), s.Radius > 0
}

func (s *Sphere) BoundingBox() sdf.Box3 {
	r := v3.Vec{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return sdf.Box3{Min: s.Frame.Origin.Sub(r), Max: s.Frame.Origin.Add(r)}
}

func (s *Sphere) IsValid() bool { return s.Frame.IsValid() && s.Radius >= 0 }

func (s *Sphere) TrySphere(float64) (kernel.Sphere, bool) {
	if !s.IsValid() {
		return kernel.Sphere{}, false
	}
	return kernel.Sphere{Frame: s.Frame, Radius: s.Radius}, true
}

// ClosestUV returns the spherical coordinates of the direction to p.
func (s *Sphere) ClosestUV(p v3.Vec) (v2.Vec, bool) {
	l := s.Frame.ToLocal(p)
	r := l.Length()
	if r == 0 {
		return v2.Vec{}, false
	}
	return v2.Vec{X: math.Atan2(l.Y, l.X), Y: math.Asin(l.Z / r)}, true
}

// ---------------------------------------------------------------------------
// Cone
// ---------------------------------------------------------------------------

// Cone is a circular cone with its apex at Frame.Origin opening along
// Frame.Z. u is the angle, v the axial distance from the apex.
type Cone struct {
	unfitted
	Frame  kernel.Frame
	Radius float64 // base radius at v = Height
	Height float64
}

// NewCone returns a cone with apex at frame.Origin.
func NewCone(frame kernel.Frame, r, h float64) *Cone {
	return &Cone{Frame: frame, Radius: r, Height: h}
}

func (c *Cone) Domain() (kernel.Interval, kernel.Interval) {
	return fullAngle, kernel.Interval{Min: 0, Max: c.Height}
}

func (c *Cone) halfAngle() float64 { return math.Atan2(c.Radius, c.Height) }

func (c *Cone) radial(u float64) v3.Vec {
	return c.Frame.X.MulScalar(math.Cos(u)).Add(c.Frame.Y.MulScalar(math.Sin(u)))
}

func (c *Cone) PointAt(uv v2.Vec) v3.Vec {
	rho := c.Radius * uv.Y / c.Height
	return c.Frame.Origin.Add(c.radial(uv.X).MulScalar(rho)).Add(c.Frame.Z.MulScalar(uv.Y))
}

func (c *Cone) NormalAt(uv v2.Vec) v3.Vec {
	a := c.halfAngle()
	return c.radial(uv.X).MulScalar(math.Cos(a)).Sub(c.Frame.Z.MulScalar(math.Sin(a)))
}

// CurvatureAt is undefined at the apex.
func (c *Cone) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	rho := c.Radius * uv.Y / c.Height
	if c.Height <= 0 || rho <= 1e-12 {
		return kernel.SurfaceCurvature{}, false
	}
	a := c.halfAngle()
	k := math.Cos(a) / rho
	generator := c.radial(uv.X).MulScalar(math.Sin(a)).Add(c.Frame.Z.MulScalar(math.Cos(a)))
	return kernel.SurfaceCurvature{
		Gaussian: 0,
		Mean:     0.5 * k,
		K1:       k,
		K2:       0,
		Dir1:     c.Frame.X.MulScalar(-math.Sin(uv.X)).Add(c.Frame.Y.MulScalar(math.Cos(uv.X))),
		Dir2:     generator,
	}, true
}

func (c *Cone) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	return kernel.NewFrame(c.PointAt(uv), c.NormalAt(uv)), c.Height > 0
}

func (c *Cone) BoundingBox() sdf.Box3 { return sampleBox(c) }

func (c *Cone) IsValid() bool { return c.Frame.IsValid() && c.Radius >= 0 && c.Height > 0 }

func (c *Cone) TryCone(float64) (kernel.Cone, bool) {
	if !c.IsValid() {
		return kernel.Cone{}, false
	}
	return kernel.Cone{Frame: c.Frame, Radius: c.Radius, Height: c.Height}, true
}

// ---------------------------------------------------------------------------
// Torus
// ---------------------------------------------------------------------------

// Torus revolves a circle of radius Minor, centered Major away from
// Frame.Z, about Frame.Z. u is the major angle, v the minor angle.
type Torus struct {
	unfitted
	Frame kernel.Frame
	Major float64
	Minor float64
}

// NewTorus returns a ring torus centered on frame.Origin.
func NewTorus(frame kernel.Frame, major, minor float64) *Torus {
	return &Torus{Frame: frame, Major: major, Minor: minor}
}

func (t *Torus) Domain() (kernel.Interval, kernel.Interval) { return fullAngle, fullAngle }

func (t *Torus) radial(u float64) v3.Vec {
	return t.Frame.X.MulScalar(math.Cos(u)).Add(t.Frame.Y.MulScalar(math.Sin(u)))
}

func (t *Torus) PointAt(uv v2.Vec) v3.Vec {
	cv, sv := math.Cos(uv.Y), math.Sin(uv.Y)
	return t.Frame.Origin.
		Add(t.radial(uv.X).MulScalar(t.Major + t.Minor*cv)).
		Add(t.Frame.Z.MulScalar(t.Minor * sv))
}

func (t *Torus) NormalAt(uv v2.Vec) v3.Vec {
	return t.radial(uv.X).MulScalar(math.Cos(uv.Y)).Add(t.Frame.Z.MulScalar(math.Sin(uv.Y)))
}

func (t *Torus) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	cv, sv := math.Cos(uv.Y), math.Sin(uv.Y)
	ring := t.Major + t.Minor*cv
	if t.Minor <= 0 || ring <= 0 {
		return kernel.SurfaceCurvature{}, false
	}
	kMinor := 1 / t.Minor
	kMajor := cv / ring
	return kernel.SurfaceCurvature{
		Gaussian: kMinor * kMajor,
		Mean:     0.5 * (kMinor + kMajor),
		K1:       kMinor,
		K2:       kMajor,
		Dir1:     t.radial(uv.X).MulScalar(-sv).Add(t.Frame.Z.MulScalar(cv)),
		Dir2:     t.Frame.X.MulScalar(-math.Sin(uv.X)).Add(t.Frame.Y.MulScalar(math.Cos(uv.X))),
	}, true
}

func (t *Torus) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	return kernel.NewFrame(t.PointAt(uv), t.NormalAt(uv)), t.Minor > 0
}

func (t *Torus) BoundingBox() sdf.Box3 { return sampleBox(t) }

func (t *Torus) IsValid() bool { return t.Frame.IsValid() && t.Major >= 0 && t.Minor >= 0 }

func (t *Torus) TryTorus(float64) (kernel.Torus, bool) {
	if !t.IsValid() {
		return kernel.Torus{}, false
	}
	return kernel.Torus{Frame: t.Frame, MajorRadius: t.Major, MinorRadius: t.Minor}, true
}

// ---------------------------------------------------------------------------
// Extrusion
// ---------------------------------------------------------------------------

// Extrusion sweeps Profile along the straight Direction for Length.
// u follows the profile parameter, v the sweep distance. The profile is
// expected to lie in a plane perpendicular to Direction.
type Extrusion struct {
	unfitted
	Profile   kernel.Curve
	Direction v3.Vec
	Length    float64
}

// NewExtrusion returns the sweep of profile along dir for length.
func NewExtrusion(profile kernel.Curve, dir v3.Vec, length float64) *Extrusion {
	return &Extrusion{Profile: profile, Direction: dir.Normalize(), Length: length}
}

func (e *Extrusion) Domain() (kernel.Interval, kernel.Interval) {
	return e.Profile.Domain(), kernel.Interval{Min: 0, Max: e.Length}
}

func (e *Extrusion) PointAt(uv v2.Vec) v3.Vec {
	return e.Profile.PointAt(uv.X).Add(e.Direction.MulScalar(uv.Y))
}

func (e *Extrusion) NormalAt(uv v2.Vec) v3.Vec {
	return e.Profile.TangentAt(uv.X).Cross(e.Direction).Normalize()
}

func (e *Extrusion) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	k, ok := e.Profile.CurvatureAt(uv.X)
	if !ok {
		return kernel.SurfaceCurvature{}, false
	}
	return kernel.SurfaceCurvature{
		Gaussian: 0,
		Mean:     0.5 * k,
		K1:       k,
		K2:       0,
		Dir1:     e.Profile.TangentAt(uv.X),
		Dir2:     e.Direction,
	}, true
}

func (e *Extrusion) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	return kernel.NewFrameZX(e.PointAt(uv), e.NormalAt(uv), e.Profile.TangentAt(uv.X)), true
}

func (e *Extrusion) BoundingBox() sdf.Box3 { return sampleBox(e) }

func (e *Extrusion) IsValid() bool {
	return e.Profile != nil && e.Profile.IsValid() && e.Length > 0 && math.Abs(e.Direction.Length()-1) < 1e-9
}

// TryPlane recognizes the sweep of a straight segment.
func (e *Extrusion) TryPlane(float64) (kernel.Frame, bool) {
	l, ok := e.Profile.(*Line)
	if !ok || !e.IsValid() {
		return kernel.Frame{}, false
	}
	return kernel.FrameFromAxes(l.From, l.To.Sub(l.From), e.Direction)
}

func (e *Extrusion) TryExtrusion(float64) (kernel.Extrusion, bool) {
	if !e.IsValid() {
		return kernel.Extrusion{}, false
	}
	return kernel.Extrusion{Profile: e.Profile, Direction: e.Direction, Length: e.Length}, true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// sampleBox estimates a bounding box from a grid of surface points.
func sampleBox(s kernel.Surface) sdf.Box3 {
	u, v := s.Domain()
	first := true
	var box sdf.Box3
	for i := 0; i <= boxSamples; i++ {
		for j := 0; j <= boxSamples; j++ {
			uv := v2.Vec{X: u.At(float64(i) / boxSamples), Y: v.At(float64(j) / boxSamples)}
			p := s.PointAt(uv)
			if first {
				box = sdf.Box3{Min: p, Max: p}
				first = false
				continue
			}
			box = sdf.Box3{Min: box.Min.Min(p), Max: box.Max.Max(p)}
		}
	}
	return box
}

func clamp(x float64, in kernel.Interval) float64 {
	return math.Max(in.Min, math.Min(in.Max, x))
}

// clampAngle wraps a into the angular interval when possible, clamping
// otherwise.
func clampAngle(a float64, in kernel.Interval) float64 {
	for a < in.Min {
		a += fullTurn
	}
	for a > in.Max && a-fullTurn >= in.Min {
		a -= fullTurn
	}
	return clamp(a, in)
}
