package feature

import (
	"log/slog"
	"math"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const op = "feature.ClassifyEdges"

// Classifier labels edges and holes. It is stateless after construction
// and safe for concurrent use.
type Classifier struct {
	cfg classify.EdgeConfig
	eps float64
	log *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger routes decision traces to l at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClassifier returns a Classifier using the edge thresholds of cfg.
func NewClassifier(cfg classify.Config, opts ...Option) *Classifier {
	c := &Classifier{
		cfg: cfg.Edges,
		eps: cfg.Epsilon,
		log: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ClassifyEdges returns one feature per usable edge, one hole per inner
// loop that closes into a circle, ellipse or many-sided polygon, and the
// share of edges that carried usable curve data.
func (c *Classifier) ClassifyEdges(b kernel.Brep, tol classify.Tolerance) (Result, error) {
	if b == nil || !b.IsValid() {
		return Result{}, classify.Errorf(classify.InvalidInput, op, "solid is structurally invalid")
	}
	if err := tol.Validate(); err != nil {
		return Result{}, err
	}
	faces := b.Faces()
	edges := b.Edges()
	if len(faces) == 0 || len(edges) == 0 {
		return Result{}, classify.Errorf(classify.InvalidInput, op,
			"solid needs at least one face and one edge, has %d faces and %d edges", len(faces), len(edges))
	}

	res := Result{Edges: make([]Feature, 0, len(edges))}
	unusable := 0
	for i, e := range edges {
		crv, ok := e.Curve()
		if !ok || !crv.IsValid() {
			unusable++
			c.log.Debug("edge without usable curve", slog.Int("edge", i))
			continue
		}
		f := c.classifyEdge(e, crv, faces)
		f.Index = i
		res.Edges = append(res.Edges, f)
	}
	res.Confidence = 1 - float64(unusable)/float64(len(edges))

	for i, l := range b.Loops() {
		if l.Kind() != kernel.LoopInner {
			continue
		}
		boundary, ok := l.Boundary()
		if !ok {
			continue
		}
		if area, ok := c.holeArea(boundary, tol); ok {
			res.Holes = append(res.Holes, Feature{Kind: Hole, Value: area, Index: i})
		}
	}

	c.log.Debug("edges classified",
		slog.Int("edges", len(res.Edges)),
		slog.Int("holes", len(res.Holes)),
		slog.Float64("confidence", res.Confidence))
	return res, nil
}

func (c *Classifier) classifyEdge(e kernel.Edge, crv kernel.Curve, faces []kernel.Face) Feature {
	generic := Feature{Kind: GenericEdge, Value: crv.Length()}

	dom := crv.Domain()
	var ks []float64
	for _, t := range classify.Span(dom.Min, dom.Max, c.cfg.CurvatureSamples) {
		k, ok := crv.CurvatureAt(t)
		if !ok || math.IsNaN(k) || math.IsInf(k, 0) {
			continue
		}
		ks = append(ks, math.Abs(k))
	}
	if len(ks) < 2 {
		return generic
	}

	mean, cv := classify.Variation(ks, c.eps)
	_, broken := crv.NextDiscontinuity(kernel.G2, dom.Min, dom.Max)
	if !broken && cv < c.cfg.FilletVariation && mean > c.eps {
		return Feature{Kind: Fillet, Value: 1 / mean}
	}

	adj := e.AdjacentFaces()
	if len(adj) != 2 {
		return generic
	}
	for _, fi := range adj {
		if fi < 0 || fi >= len(faces) {
			c.log.Debug("edge references missing face", slog.Int("face", fi), slog.Int("faces", len(faces)))
			return generic
		}
	}
	angle, ok := dihedral(e, faces[adj[0]], faces[adj[1]])
	if !ok {
		return generic
	}
	c.log.Debug("dihedral",
		slog.Float64("cv", cv),
		slog.Bool("g2", !broken),
		slog.Float64("angle_deg", sdf.RtoD(angle)))

	switch {
	case angle >= c.cfg.SharpBand() && angle <= c.cfg.SmoothBand():
		return Feature{Kind: Chamfer, Value: angle}
	case angle > c.cfg.SmoothBand() && mean > c.eps:
		return Feature{Kind: VariableRadiusFillet, Value: 1 / mean}
	default:
		return generic
	}
}

// dihedral returns the absolute angle between the normals of a and b at
// the points nearest the edge midpoint.
func dihedral(e kernel.Edge, a, b kernel.Face) (float64, bool) {
	mid, ok := e.Midpoint()
	if !ok {
		return 0, false
	}
	uvA, okA := a.ClosestUV(mid)
	uvB, okB := b.ClosestUV(mid)
	if !okA || !okB {
		return 0, false
	}
	nA, nB := a.NormalAt(uvA), b.NormalAt(uvB)
	if nA.Length() == 0 || nB.Length() == 0 {
		return 0, false
	}
	angle := kernel.AngleBetween(nA, nB)
	return angle, !math.IsNaN(angle)
}

// holeArea recognizes a closed inner boundary as a circle, an ellipse or a
// polygon with enough sides, in that order.
func (c *Classifier) holeArea(boundary kernel.Curve, tol classify.Tolerance) (float64, bool) {
	if circ, ok := boundary.TryCircle(tol.Distance); ok && circ.Radius > 0 {
		return math.Pi * circ.Radius * circ.Radius, true
	}
	if el, ok := boundary.TryEllipse(tol.Distance); ok && el.Radius1 > 0 && el.Radius2 > 0 {
		return math.Pi * el.Radius1 * el.Radius2, true
	}
	pts, ok := boundary.TryPolyline(tol.Distance)
	if !ok || polygonSides(pts, tol.Distance) < c.cfg.MinHoleSides {
		return 0, false
	}
	return boundary.PlanarArea(tol.Distance)
}

// polygonSides counts the sides of a polyline, treating a repeated closing
// point as the first vertex.
func polygonSides(pts []v3.Vec, tol float64) int {
	n := len(pts)
	if n > 1 && pts[0].Sub(pts[n-1]).Length() <= tol {
		n--
	}
	return n
}
