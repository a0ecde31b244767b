package analytic

import (
	"math"

	"github.com/chazu/grain/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Curve = (*Line)(nil)
	_ kernel.Curve = (*Arc)(nil)
	_ kernel.Curve = (*EllipseArc)(nil)
	_ kernel.Curve = (*Polyline)(nil)
)

// fullTurn is the angular span of a closed arc.
const fullTurn = 2 * math.Pi

// closedSpanTol is how close an angular span must be to a full turn for the
// arc to count as closed.
const closedSpanTol = 1e-9

// lengthIntervals is the Simpson subdivision used for numeric arc length.
const lengthIntervals = 256

// noConversions supplies the "not recognized" answers for curve kinds that
// cannot be converted to the requested representation.
type noConversions struct{}

func (noConversions) TryCircle(float64) (kernel.Circle, bool)   { return kernel.Circle{}, false }
func (noConversions) TryEllipse(float64) (kernel.Ellipse, bool) { return kernel.Ellipse{}, false }
func (noConversions) TryPolyline(float64) ([]v3.Vec, bool)      { return nil, false }
func (noConversions) PlanarArea(float64) (float64, bool)        { return 0, false }

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

// Line is a straight segment parameterized over [0, 1].
type Line struct {
	noConversions
	From, To v3.Vec
}

// NewLine returns the segment from a to b.
func NewLine(a, b v3.Vec) *Line {
	return &Line{From: a, To: b}
}

func (l *Line) Domain() kernel.Interval { return kernel.Interval{Min: 0, Max: 1} }

func (l *Line) PointAt(t float64) v3.Vec {
	return l.From.Add(l.To.Sub(l.From).MulScalar(t))
}

func (l *Line) TangentAt(float64) v3.Vec { return l.To.Sub(l.From).Normalize() }

func (l *Line) CurvatureAt(float64) (float64, bool) { return 0, true }

func (l *Line) Length() float64 { return l.To.Sub(l.From).Length() }

func (l *Line) NextDiscontinuity(kernel.Continuity, float64, float64) (float64, bool) {
	return 0, false
}

func (l *Line) IsClosed() bool { return false }

func (l *Line) IsValid() bool { return finite(l.From) && finite(l.To) && l.Length() > 0 }

// TryPolyline returns the two end points.
func (l *Line) TryPolyline(float64) ([]v3.Vec, bool) {
	return []v3.Vec{l.From, l.To}, true
}

// ---------------------------------------------------------------------------
// Arc
// ---------------------------------------------------------------------------

// Arc is a circular arc in the XY plane of Frame, parameterized by angle.
type Arc struct {
	Frame  kernel.Frame
	Radius float64
	Start  float64 // radians
	End    float64 // radians, End > Start
}

// NewArc returns the arc of radius r about frame.Z from start to end (radians).
func NewArc(frame kernel.Frame, r, start, end float64) *Arc {
	return &Arc{Frame: frame, Radius: r, Start: start, End: end}
}

// NewCircle returns a full circle of radius r centered on the frame origin.
func NewCircle(frame kernel.Frame, r float64) *Arc {
	return NewArc(frame, r, 0, fullTurn)
}

func (a *Arc) Domain() kernel.Interval { return kernel.Interval{Min: a.Start, Max: a.End} }

func (a *Arc) PointAt(t float64) v3.Vec {
	return a.Frame.ToWorld(v3.Vec{X: a.Radius * math.Cos(t), Y: a.Radius * math.Sin(t)})
}

func (a *Arc) TangentAt(t float64) v3.Vec {
	return a.Frame.X.MulScalar(-math.Sin(t)).Add(a.Frame.Y.MulScalar(math.Cos(t)))
}

func (a *Arc) CurvatureAt(float64) (float64, bool) {
	if a.Radius <= 0 {
		return 0, false
	}
	return 1 / a.Radius, true
}

func (a *Arc) Length() float64 { return a.Radius * (a.End - a.Start) }

func (a *Arc) NextDiscontinuity(kernel.Continuity, float64, float64) (float64, bool) {
	return 0, false
}

func (a *Arc) IsClosed() bool { return math.Abs(a.End-a.Start-fullTurn) < closedSpanTol }

func (a *Arc) IsValid() bool {
	return a.Radius > 0 && a.End > a.Start && a.Frame.IsValid()
}

func (a *Arc) TryCircle(float64) (kernel.Circle, bool) {
	if !a.IsClosed() || !a.IsValid() {
		return kernel.Circle{}, false
	}
	return kernel.Circle{Frame: a.Frame, Radius: a.Radius}, true
}

func (a *Arc) TryEllipse(float64) (kernel.Ellipse, bool) {
	if !a.IsClosed() || !a.IsValid() {
		return kernel.Ellipse{}, false
	}
	return kernel.Ellipse{Frame: a.Frame, Radius1: a.Radius, Radius2: a.Radius}, true
}

func (a *Arc) TryPolyline(float64) ([]v3.Vec, bool) { return nil, false }

func (a *Arc) PlanarArea(float64) (float64, bool) {
	if !a.IsClosed() || !a.IsValid() {
		return 0, false
	}
	return math.Pi * a.Radius * a.Radius, true
}

// ---------------------------------------------------------------------------
// Ellipse
// ---------------------------------------------------------------------------

// EllipseArc is an elliptical arc in the XY plane of Frame with radius R1
// along X and R2 along Y, parameterized by the eccentric angle.
type EllipseArc struct {
	Frame  kernel.Frame
	R1, R2 float64
	Start  float64
	End    float64
}

// NewEllipse returns a closed ellipse.
func NewEllipse(frame kernel.Frame, r1, r2 float64) *EllipseArc {
	return &EllipseArc{Frame: frame, R1: r1, R2: r2, Start: 0, End: fullTurn}
}

func (e *EllipseArc) Domain() kernel.Interval { return kernel.Interval{Min: e.Start, Max: e.End} }

func (e *EllipseArc) PointAt(t float64) v3.Vec {
	return e.Frame.ToWorld(v3.Vec{X: e.R1 * math.Cos(t), Y: e.R2 * math.Sin(t)})
}

func (e *EllipseArc) derivative(t float64) v3.Vec {
	return e.Frame.X.MulScalar(-e.R1 * math.Sin(t)).Add(e.Frame.Y.MulScalar(e.R2 * math.Cos(t)))
}

func (e *EllipseArc) TangentAt(t float64) v3.Vec { return e.derivative(t).Normalize() }

func (e *EllipseArc) CurvatureAt(t float64) (float64, bool) {
	s, c := math.Sincos(t)
	d := e.R1*e.R1*s*s + e.R2*e.R2*c*c
	if d <= 0 {
		return 0, false
	}
	return e.R1 * e.R2 / math.Pow(d, 1.5), true
}

func (e *EllipseArc) Length() float64 {
	return simpson(func(t float64) float64 { return e.derivative(t).Length() }, e.Start, e.End, lengthIntervals)
}

func (e *EllipseArc) NextDiscontinuity(kernel.Continuity, float64, float64) (float64, bool) {
	return 0, false
}

func (e *EllipseArc) IsClosed() bool { return math.Abs(e.End-e.Start-fullTurn) < closedSpanTol }

func (e *EllipseArc) IsValid() bool {
	return e.R1 > 0 && e.R2 > 0 && e.End > e.Start && e.Frame.IsValid()
}

func (e *EllipseArc) TryCircle(tol float64) (kernel.Circle, bool) {
	if !e.IsClosed() || !e.IsValid() || math.Abs(e.R1-e.R2) > tol {
		return kernel.Circle{}, false
	}
	return kernel.Circle{Frame: e.Frame, Radius: 0.5 * (e.R1 + e.R2)}, true
}

func (e *EllipseArc) TryEllipse(float64) (kernel.Ellipse, bool) {
	if !e.IsClosed() || !e.IsValid() {
		return kernel.Ellipse{}, false
	}
	return kernel.Ellipse{Frame: e.Frame, Radius1: e.R1, Radius2: e.R2}, true
}

func (e *EllipseArc) TryPolyline(float64) ([]v3.Vec, bool) { return nil, false }

func (e *EllipseArc) PlanarArea(float64) (float64, bool) {
	if !e.IsClosed() || !e.IsValid() {
		return 0, false
	}
	return math.Pi * e.R1 * e.R2, true
}

// ---------------------------------------------------------------------------
// Polyline
// ---------------------------------------------------------------------------

// kinkAngle is the smallest turn at a vertex that counts as a kink.
const kinkAngle = 1e-9

// Polyline is a chain of straight segments. Segment i spans parameters
// [i, i+1]. A polyline whose last point equals its first is closed.
type Polyline struct {
	Points []v3.Vec
}

// NewPolyline returns a polyline through the given points.
func NewPolyline(points ...v3.Vec) *Polyline {
	return &Polyline{Points: append([]v3.Vec(nil), points...)}
}

// RegularPolygon returns a closed regular polygon with the given side count
// inscribed in a circle of radius r about frame.Z.
func RegularPolygon(frame kernel.Frame, r float64, sides int) *Polyline {
	pts := make([]v3.Vec, 0, sides+1)
	for i := 0; i < sides; i++ {
		a := fullTurn * float64(i) / float64(sides)
		pts = append(pts, frame.ToWorld(v3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}))
	}
	pts = append(pts, pts[0])
	return &Polyline{Points: pts}
}

func (p *Polyline) segments() int { return len(p.Points) - 1 }

func (p *Polyline) Domain() kernel.Interval {
	return kernel.Interval{Min: 0, Max: float64(p.segments())}
}

// segmentAt returns the segment index containing t and the local parameter.
func (p *Polyline) segmentAt(t float64) (int, float64) {
	n := p.segments()
	i := int(math.Floor(t))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i, t - float64(i)
}

func (p *Polyline) PointAt(t float64) v3.Vec {
	i, f := p.segmentAt(t)
	a, b := p.Points[i], p.Points[i+1]
	return a.Add(b.Sub(a).MulScalar(f))
}

func (p *Polyline) TangentAt(t float64) v3.Vec {
	i, _ := p.segmentAt(t)
	return p.Points[i+1].Sub(p.Points[i]).Normalize()
}

// CurvatureAt is zero along segments and undefined at kinked vertices.
func (p *Polyline) CurvatureAt(t float64) (float64, bool) {
	v := math.Round(t)
	if math.Abs(t-v) < 1e-12 && p.isKink(int(v)) {
		return 0, false
	}
	return 0, true
}

// isKink reports whether the vertex at index i turns the path. End points
// of an open polyline never do.
func (p *Polyline) isKink(i int) bool {
	n := p.segments()
	var in, out v3.Vec
	switch {
	case i > 0 && i < n:
		in = p.Points[i].Sub(p.Points[i-1])
		out = p.Points[i+1].Sub(p.Points[i])
	case p.IsClosed() && (i == 0 || i == n):
		in = p.Points[n].Sub(p.Points[n-1])
		out = p.Points[1].Sub(p.Points[0])
	default:
		return false
	}
	return kernel.AngleBetween(in, out) > kinkAngle
}

func (p *Polyline) Length() float64 {
	var sum float64
	for i := 0; i < p.segments(); i++ {
		sum += p.Points[i+1].Sub(p.Points[i]).Length()
	}
	return sum
}

// NextDiscontinuity reports interior vertices. Geometric classes only break
// at kinks; parametric classes also break where the segment speed changes.
func (p *Polyline) NextDiscontinuity(c kernel.Continuity, t0, t1 float64) (float64, bool) {
	if c == kernel.C0 {
		return 0, false
	}
	for i := 1; i < p.segments(); i++ {
		t := float64(i)
		if t <= t0 || t >= t1 {
			continue
		}
		if p.isKink(i) {
			return t, true
		}
		if c == kernel.C1 || c == kernel.C2 {
			in := p.Points[i].Sub(p.Points[i-1]).Length()
			out := p.Points[i+1].Sub(p.Points[i]).Length()
			if math.Abs(in-out) > 1e-12 {
				return t, true
			}
		}
	}
	return 0, false
}

func (p *Polyline) IsClosed() bool {
	n := len(p.Points)
	return n > 3 && p.Points[0].Sub(p.Points[n-1]).Length() == 0
}

func (p *Polyline) IsValid() bool {
	if len(p.Points) < 2 {
		return false
	}
	for _, pt := range p.Points {
		if !finite(pt) {
			return false
		}
	}
	return p.Length() > 0
}

func (p *Polyline) TryCircle(float64) (kernel.Circle, bool)   { return kernel.Circle{}, false }
func (p *Polyline) TryEllipse(float64) (kernel.Ellipse, bool) { return kernel.Ellipse{}, false }

func (p *Polyline) TryPolyline(float64) ([]v3.Vec, bool) {
	if !p.IsValid() {
		return nil, false
	}
	return append([]v3.Vec(nil), p.Points...), true
}

// PlanarArea returns the enclosed area of a closed polyline whose vertices
// lie within tol of a common plane (Newell's method).
func (p *Polyline) PlanarArea(tol float64) (float64, bool) {
	if !p.IsClosed() || !p.IsValid() {
		return 0, false
	}
	var n v3.Vec
	for i := 0; i < p.segments(); i++ {
		a, b := p.Points[i], p.Points[i+1]
		n = n.Add(a.Cross(b))
	}
	area := 0.5 * n.Length()
	if area == 0 {
		return 0, false
	}
	normal := n.Normalize()
	for _, pt := range p.Points {
		if math.Abs(pt.Sub(p.Points[0]).Dot(normal)) > tol {
			return 0, false
		}
	}
	return area, true
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// simpson integrates f over [a, b] with n (even) intervals.
func simpson(f func(float64) float64, a, b float64, n int) float64 {
	h := (b - a) / float64(n)
	sum := f(a) + f(b)
	for i := 1; i < n; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4
		}
		sum += w * f(a+float64(i)*h)
	}
	return sum * h / 3
}

func finite(v v3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
