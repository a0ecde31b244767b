package primitive

import (
	"math"

	"github.com/chazu/grain/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// profileSamples is the coarse search used to find the nearest profile
	// parameter before refinement.
	profileSamples = 64
	refineIters    = 60
)

// Project maps pt onto the primitive p with a closed form per kind. It
// reports false for Unknown primitives and inputs it cannot place.
func Project(p Primitive, pt v3.Vec) (v3.Vec, bool) {
	var q v3.Vec
	switch p.Kind {
	case Plane:
		n := p.Frame.Z
		q = pt.Sub(n.MulScalar(pt.Sub(p.Frame.Origin).Dot(n)))

	case Cylinder:
		r, _ := p.Radius()
		l := p.Frame.ToLocal(pt)
		q = p.Frame.ToWorld(onCircle(l, r, l.Z))

	case Cone:
		r, _ := p.Radius()
		h, _ := p.Height()
		if h <= 0 {
			return v3.Vec{}, false
		}
		l := p.Frame.ToLocal(pt)
		q = p.Frame.ToWorld(onCircle(l, l.Z*r/h, l.Z))

	case Sphere:
		r, _ := p.Radius()
		d := pt.Sub(p.Frame.Origin)
		if d.Length() == 0 {
			d = p.Frame.Z
		}
		q = p.Frame.Origin.Add(d.Normalize().MulScalar(r))

	case Torus:
		major, _ := p.MajorRadius()
		minor, _ := p.MinorRadius()
		l := p.Frame.ToLocal(pt)
		ring := onCircle(l, major, 0)
		d := l.Sub(ring)
		if d.Length() == 0 {
			d = ring.Normalize()
		}
		q = p.Frame.ToWorld(ring.Add(d.Normalize().MulScalar(minor)))

	case Extrusion:
		if p.Profile == nil {
			return v3.Vec{}, false
		}
		q = projectSweep(p.Profile, p.Frame.Z, pt)

	default:
		return v3.Vec{}, false
	}
	return q, finiteVec(q)
}

// onCircle places l at radius r about the local Z axis at height z. Points
// on the axis go to the +X side.
func onCircle(l v3.Vec, r, z float64) v3.Vec {
	rho := math.Hypot(l.X, l.Y)
	if rho == 0 {
		return v3.Vec{X: r, Z: z}
	}
	return v3.Vec{X: l.X * r / rho, Y: l.Y * r / rho, Z: z}
}

// projectSweep finds the nearest point on the infinite sweep of profile
// along dir. The profile parameter is found by dense sampling followed by
// a golden section search around the best sample.
func projectSweep(profile kernel.Curve, dir, pt v3.Vec) v3.Vec {
	// perp is the offset from the profile line through C(t) to pt.
	perp := func(t float64) (v3.Vec, float64) {
		c := profile.PointAt(t)
		along := pt.Sub(c).Dot(dir)
		foot := c.Add(dir.MulScalar(along))
		return foot, pt.Sub(foot).Length2()
	}

	dom := profile.Domain()
	step := dom.Length() / profileSamples
	best, bestD := dom.Min, math.Inf(1)
	for i := 0; i <= profileSamples; i++ {
		t := dom.At(float64(i) / profileSamples)
		if _, d := perp(t); d < bestD {
			best, bestD = t, d
		}
	}

	lo := math.Max(dom.Min, best-step)
	hi := math.Min(dom.Max, best+step)
	const phi = 0.6180339887498949
	a := hi - phi*(hi-lo)
	b := lo + phi*(hi-lo)
	_, fa := perp(a)
	_, fb := perp(b)
	for i := 0; i < refineIters; i++ {
		if fa < fb {
			hi, b, fb = b, a, fa
			a = hi - phi*(hi-lo)
			_, fa = perp(a)
		} else {
			lo, a, fa = a, b, fb
			b = lo + phi*(hi-lo)
			_, fb = perp(b)
		}
	}
	foot, _ := perp(0.5 * (lo + hi))
	return foot
}
