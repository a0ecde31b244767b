package pattern

import (
	"log/slog"
	"math"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

const op = "pattern.Detect"

// matcher is one step of the detection chain.
type matcher struct {
	kind       Kind
	confidence float64
	match      func(d *Detector, pts []v3.Vec, tol classify.Tolerance) (Pattern, bool)
}

// chain is evaluated in order and the first match wins, so a set that is
// both linear and a grid always reports Linear.
var chain = []matcher{
	{Linear, 1.0, (*Detector).linear},
	{Radial, 0.9, (*Detector).radial},
	{Grid, 0.9, (*Detector).grid},
	{Scaling, 0.7, (*Detector).scaling},
}

// Detector finds repetition patterns. It is stateless after construction
// and safe for concurrent use.
type Detector struct {
	cfg    classify.PatternConfig
	eps    float64
	planes kernel.PlaneFitter
	log    *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger routes decision traces to l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithPlaneFitter replaces the least-squares plane fit used for radial
// patterns.
func WithPlaneFitter(pf kernel.PlaneFitter) Option {
	return func(d *Detector) {
		if pf != nil {
			d.planes = pf
		}
	}
}

// NewDetector returns a Detector using the pattern thresholds of cfg.
func NewDetector(cfg classify.Config, opts ...Option) *Detector {
	d := &Detector{
		cfg:    cfg.Patterns,
		eps:    cfg.Epsilon,
		planes: kernel.LeastSquaresPlane{},
		log:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect classifies the ordered placement points. Order matters: deltas,
// angles and ratios are taken between neighbours.
func (d *Detector) Detect(points []v3.Vec, tol classify.Tolerance) (Pattern, error) {
	if len(points) < d.cfg.MinInstances {
		return Pattern{}, classify.Errorf(classify.InsufficientData, op,
			"%d placements, need at least %d", len(points), d.cfg.MinInstances)
	}
	for i, p := range points {
		if !finite(p) {
			return Pattern{}, classify.Errorf(classify.InvalidInput, op, "placement %d is not a finite point", i)
		}
	}
	if err := tol.Validate(); err != nil {
		return Pattern{}, err
	}

	for _, m := range chain {
		p, ok := m.match(d, points, tol)
		d.log.Debug("pattern matcher", slog.String("matcher", m.kind.String()), slog.Bool("match", ok))
		if ok {
			p.Kind = m.kind
			p.Confidence = m.confidence
			return p, nil
		}
	}
	return Pattern{}, classify.Errorf(classify.NoMatch, op, "no pattern detected")
}

// linear: every consecutive delta equals the first.
func (d *Detector) linear(pts []v3.Vec, tol classify.Tolerance) (Pattern, bool) {
	step := pts[1].Sub(pts[0])
	if step.Length() <= tol.Distance {
		return Pattern{}, false
	}
	for i := 1; i+1 < len(pts); i++ {
		if pts[i+1].Sub(pts[i]).Sub(step).Length() > tol.Distance {
			return Pattern{}, false
		}
	}
	return Pattern{Transform: sdf.Translate3d(step), Step: step}, true
}

// radial: equal distances from the centroid and equal turning angles about
// the plane normal.
func (d *Detector) radial(pts []v3.Vec, tol classify.Tolerance) (Pattern, bool) {
	c := kernel.Centroid(pts)
	rel := lo.Map(pts, func(p v3.Vec, _ int) v3.Vec { return p.Sub(c) })
	dists := lo.Map(rel, func(r v3.Vec, _ int) float64 { return r.Length() })
	mean, _ := classify.MeanVariance(dists)
	if mean <= tol.Distance {
		return Pattern{}, false
	}
	for _, r := range dists {
		if math.Abs(r-mean) > d.cfg.RadialRelTol*mean {
			return Pattern{}, false
		}
	}

	normal, ok := d.normal(pts, rel, tol)
	if !ok {
		return Pattern{}, false
	}
	angles := make([]float64, len(rel)-1)
	for i := range angles {
		angles[i] = kernel.SignedAngle(rel[i], rel[i+1], normal)
	}
	step, _ := classify.MeanVariance(angles)
	if math.Abs(step) <= tol.Angle {
		return Pattern{}, false
	}
	for _, a := range angles {
		if math.Abs(a-step) > tol.Angle {
			return Pattern{}, false
		}
	}

	m := sdf.Translate3d(c).Mul(sdf.Rotate3d(normal, step)).Mul(sdf.Translate3d(c.Neg()))
	return Pattern{Transform: m, Center: c, Axis: normal, Angle: step}, true
}

// normal returns the best-fit plane normal, falling back to the cross
// product of the first two independent centroid-relative vectors.
func (d *Detector) normal(pts, rel []v3.Vec, tol classify.Tolerance) (v3.Vec, bool) {
	if f, ok := d.planes.FitPlane(pts); ok {
		return f.Z, true
	}
	for i, a := range rel {
		if a.Length() <= tol.Distance {
			continue
		}
		for _, b := range rel[i+1:] {
			if n := a.Cross(b); n.Length() > d.eps {
				return n.Normalize(), true
			}
		}
		break
	}
	return v3.Vec{}, false
}

// grid: every offset from the first point is an integer combination of the
// shortest offset u and a roughly orthogonal offset v.
func (d *Detector) grid(pts []v3.Vec, tol classify.Tolerance) (Pattern, bool) {
	origin := pts[0]
	rel := lo.Map(pts[1:], func(p v3.Vec, _ int) v3.Vec { return p.Sub(origin) })

	ui := 0
	for i, r := range rel {
		if r.Length() < rel[ui].Length() {
			ui = i
		}
	}
	u := rel[ui]
	if u.Length() <= tol.Distance {
		return Pattern{}, false
	}

	var v v3.Vec
	found := false
	for i, r := range rel {
		if i == ui || r.Length() <= tol.Distance {
			continue
		}
		if math.Abs(u.Normalize().Dot(r.Normalize())) < d.cfg.Orthogonality {
			v, found = r, true
			break
		}
	}
	if !found {
		return Pattern{}, false
	}

	uu, uv, vv := u.Dot(u), u.Dot(v), v.Dot(v)
	det := uu*vv - uv*uv
	if det <= d.eps {
		return Pattern{}, false
	}
	for _, r := range rel {
		ru, rv := r.Dot(u), r.Dot(v)
		a := (vv*ru - uv*rv) / det
		b := (uu*rv - uv*ru) / det
		if math.Abs(a-math.Round(a)) > d.cfg.GridDeviation || math.Abs(b-math.Round(b)) > d.cfg.GridDeviation {
			return Pattern{}, false
		}
		// Offsets must lie in the lattice plane.
		if r.Sub(u.MulScalar(a)).Sub(v.MulScalar(b)).Length() > tol.Distance {
			return Pattern{}, false
		}
	}

	frame, ok := kernel.FrameFromAxes(origin, u, v)
	if !ok {
		return Pattern{}, false
	}
	return Pattern{Transform: frame.Transform(), Origin: origin, U: u, V: v}, true
}

// scaling: consecutive centroid distances grow by a constant ratio.
func (d *Detector) scaling(pts []v3.Vec, tol classify.Tolerance) (Pattern, bool) {
	c := kernel.Centroid(pts)
	var ratios []float64
	for i := 0; i+1 < len(pts); i++ {
		den := pts[i].Sub(c).Length()
		if den <= tol.Distance {
			continue
		}
		ratios = append(ratios, pts[i+1].Sub(c).Length()/den)
	}
	if len(ratios) < 2 {
		return Pattern{}, false
	}
	ratio, variance := classify.MeanVariance(ratios)
	if variance >= d.cfg.ScalingVariance {
		return Pattern{}, false
	}
	// Equal distances are not a scaling.
	if math.Abs(ratio-1) <= d.cfg.RadialRelTol {
		return Pattern{}, false
	}
	s := ratio
	m := sdf.Translate3d(c).Mul(sdf.Scale3d(v3.Vec{X: s, Y: s, Z: s})).Mul(sdf.Translate3d(c.Neg()))
	return Pattern{Transform: m, Center: c, Ratio: ratio}, true
}

func finite(v v3.Vec) bool {
	for _, x := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
