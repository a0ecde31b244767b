package primitive

import (
	"log/slog"
	"math"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/kernel"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Fitter classifies surfaces. It is stateless after construction and safe
// for concurrent use.
type Fitter struct {
	cfg classify.SurfaceConfig
	eps float64
	log *slog.Logger
}

// Option configures a Fitter.
type Option func(*Fitter)

// WithLogger routes decision traces to l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fitter) {
		if l != nil {
			f.log = l
		}
	}
}

// NewFitter returns a Fitter using the surface thresholds of cfg.
func NewFitter(cfg classify.Config, opts ...Option) *Fitter {
	f := &Fitter{
		cfg: cfg.Surfaces,
		eps: cfg.Epsilon,
		log: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// ClassifySurface returns the primitive closest to s. Direct analytic fits
// are tried first in the order plane, cylinder, sphere, cone, torus and
// extrusion; the first success wins. Otherwise curvature invariants decide
// between plane, cylinder, sphere and Unknown.
func (f *Fitter) ClassifySurface(s kernel.Surface, tol classify.Tolerance) (Primitive, error) {
	p, _, err := f.classify(s, tol)
	return p, err
}

// Fit classifies a standalone surface and scores it the way Decompose
// scores a face. The returned Fit always has face index 0.
func (f *Fitter) Fit(s kernel.Surface, tol classify.Tolerance) (Fit, error) {
	p, src, err := f.classify(s, tol)
	if err != nil {
		return Fit{Primitive: p, Source: src}, err
	}
	return Fit{Primitive: p, Residual: f.Residual(s, p), Source: src}, nil
}

func (f *Fitter) classify(s kernel.Surface, tol classify.Tolerance) (Primitive, Source, error) {
	const op = "primitive.ClassifySurface"
	if s == nil || !s.IsValid() {
		return Primitive{Kind: Unknown}, Direct, classify.Errorf(classify.InvalidInput, op, "surface is structurally invalid")
	}
	if err := tol.Validate(); err != nil {
		return Primitive{Kind: Unknown}, Direct, err
	}
	if p, ok := directFit(s, tol.Distance); ok {
		f.log.Debug("direct fit", slog.String("kind", p.Kind.String()))
		return p, Direct, nil
	}
	p, err := f.curvatureFit(s)
	if err != nil {
		return p, Curvature, err
	}
	f.log.Debug("curvature fit", slog.String("kind", p.Kind.String()))
	return p, Curvature, nil
}

// directFit walks the kernel recognizers in priority order.
func directFit(s kernel.Surface, tol float64) (Primitive, bool) {
	if fr, ok := s.TryPlane(tol); ok {
		return Primitive{Kind: Plane, Frame: fr}, true
	}
	if c, ok := s.TryCylinder(tol); ok && c.Radius > 0 && c.Height > 0 {
		return Primitive{Kind: Cylinder, Frame: c.Frame, Params: []float64{c.Radius, c.Height}}, true
	}
	if sp, ok := s.TrySphere(tol); ok && sp.Radius > 0 {
		return Primitive{Kind: Sphere, Frame: sp.Frame, Params: []float64{sp.Radius}}, true
	}
	if c, ok := s.TryCone(tol); ok && c.Radius > 0 && c.Height > 0 {
		return Primitive{Kind: Cone, Frame: c.Frame, Params: []float64{c.Radius, c.Height}}, true
	}
	if t, ok := s.TryTorus(tol); ok && t.MajorRadius > 0 && t.MinorRadius > 0 {
		return Primitive{Kind: Torus, Frame: t.Frame, Params: []float64{t.MajorRadius, t.MinorRadius}}, true
	}
	if e, ok := s.TryExtrusion(tol); ok && e.Profile != nil && e.Length > 0 {
		start := e.Profile.PointAt(e.Profile.Domain().Min)
		fr := kernel.NewFrameZX(start, e.Direction, e.Profile.TangentAt(e.Profile.Domain().Min))
		return Primitive{Kind: Extrusion, Frame: fr, Params: []float64{e.Length}, Profile: e.Profile}, true
	}
	return Primitive{}, false
}

// grid returns the UV sample points shared by curvature sampling and
// residuals: cell centres of an n x n grid over the domain.
func (f *Fitter) grid(s kernel.Surface) []v2.Vec {
	n := classify.GridSide(f.cfg.TargetSamples)
	u, v := s.Domain()
	fr := classify.CellCenters(n)
	out := make([]v2.Vec, 0, n*n)
	for _, a := range fr {
		for _, b := range fr {
			out = append(out, v2.Vec{X: u.At(a), Y: v.At(b)})
		}
	}
	return out
}

// curvatureFit classifies from Gaussian and mean curvature samples.
func (f *Fitter) curvatureFit(s kernel.Surface) (Primitive, error) {
	const op = "primitive.ClassifySurface"
	var gauss, mean []float64
	for _, uv := range f.grid(s) {
		c, ok := s.CurvatureAt(uv)
		if !ok || !finite(c.Gaussian) || !finite(c.Mean) {
			continue
		}
		gauss = append(gauss, c.Gaussian)
		mean = append(mean, c.Mean)
	}
	if len(gauss) < f.cfg.MinValidSamples {
		return Primitive{Kind: Unknown}, classify.Errorf(classify.InsufficientData, op,
			"%d valid curvature samples, need %d", len(gauss), f.cfg.MinValidSamples)
	}

	gm, gv := classify.MeanVariance(gauss)
	mm, mv := classify.MeanVariance(mean)
	gConst := classify.Constant(gm, gv, f.cfg.CurvatureVariation, f.cfg.CurvatureFloor, f.eps)
	mConst := classify.Constant(mm, mv, f.cfg.CurvatureVariation, f.cfg.CurvatureFloor, f.eps)
	gZero := math.Abs(gm) <= f.eps
	mZero := math.Abs(mm) <= f.eps

	f.log.Debug("curvature samples",
		slog.Int("n", len(gauss)),
		slog.Float64("gauss_mean", gm),
		slog.Float64("gauss_var", gv),
		slog.Float64("mean_mean", mm),
		slog.Float64("mean_var", mv))

	u, v := s.Domain()
	mid := v2.Vec{X: u.Mid(), Y: v.Mid()}

	switch {
	case gConst && gZero && mConst && mZero:
		fr, ok := s.FrameAt(mid)
		if !ok {
			return Primitive{Kind: Unknown}, nil
		}
		return Primitive{Kind: Plane, Frame: fr}, nil

	case mConst && gZero && mm > f.eps:
		r := 1 / (2 * mm)
		h := s.BoundingBox().Size().Length()
		fr, ok := cylinderFrame(s, mid, r)
		if !ok {
			return Primitive{Kind: Unknown}, nil
		}
		return Primitive{Kind: Cylinder, Frame: fr, Params: []float64{r, h}}, nil

	case gConst && mConst && gm > f.eps && mm > f.eps:
		r := 1 / math.Sqrt(gm)
		fr, ok := s.FrameAt(mid)
		if !ok {
			return Primitive{Kind: Unknown}, nil
		}
		center := fr.Origin.Sub(fr.Z.MulScalar(r))
		return Primitive{Kind: Sphere, Frame: kernel.NewFrameZX(center, fr.Z, fr.X), Params: []float64{r}}, nil
	}
	return Primitive{Kind: Unknown}, nil
}

// cylinderFrame recovers the axis from the principal direction of least
// curvature and places the origin one radius behind the surface point.
func cylinderFrame(s kernel.Surface, uv v2.Vec, r float64) (kernel.Frame, bool) {
	fr, ok := s.FrameAt(uv)
	if !ok {
		return kernel.Frame{}, false
	}
	c, ok := s.CurvatureAt(uv)
	if !ok {
		return kernel.Frame{}, false
	}
	axis := c.Dir2
	if math.Abs(c.K1) < math.Abs(c.K2) {
		axis = c.Dir1
	}
	if axis.Length() == 0 {
		return kernel.Frame{}, false
	}
	origin := fr.Origin.Sub(fr.Z.MulScalar(r))
	return kernel.NewFrameZX(origin, axis, fr.Z), true
}

// Decompose classifies every face of b and scores each fit. Faces that fail
// or come back Unknown are left out; only a solid where no face fits is an
// error.
func (f *Fitter) Decompose(b kernel.Brep, tol classify.Tolerance) ([]Fit, error) {
	const op = "primitive.Decompose"
	if b == nil || !b.IsValid() {
		return nil, classify.Errorf(classify.InvalidInput, op, "solid is structurally invalid")
	}
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	faces := b.Faces()
	if len(faces) == 0 {
		return nil, classify.Errorf(classify.InvalidInput, op, "solid has no faces")
	}

	var fits []Fit
	for i, face := range faces {
		s, ok := face.Surface()
		if !ok {
			f.log.Debug("face without surface", slog.Int("face", i))
			continue
		}
		p, src, err := f.classify(s, tol)
		if err != nil || p.Kind == Unknown {
			f.log.Debug("face not fitted", slog.Int("face", i), slog.Any("err", err))
			continue
		}
		fits = append(fits, Fit{
			Face:      i,
			Primitive: p,
			Residual:  f.Residual(s, p),
			Source:    src,
		})
	}
	if len(fits) == 0 {
		return nil, classify.Errorf(classify.NoMatch, op, "none of %d faces could be fitted", len(faces))
	}
	return fits, nil
}

// Residual returns the RMS distance between points sampled on s and their
// projections onto p. Unknown primitives and empty samples score 0.
func (f *Fitter) Residual(s kernel.Surface, p Primitive) float64 {
	var ds []float64
	for _, uv := range f.grid(s) {
		pt := s.PointAt(uv)
		q, ok := Project(p, pt)
		if !ok {
			continue
		}
		d := pt.Sub(q).Length()
		if finite(d) {
			ds = append(ds, d)
		}
	}
	return classify.RMS(ds)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func finiteVec(v v3.Vec) bool { return finite(v.X) && finite(v.Y) && finite(v.Z) }
