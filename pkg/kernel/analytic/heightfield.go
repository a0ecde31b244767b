package analytic

import (
	"math"

	"github.com/chazu/grain/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Jet holds a height function value and its first and second partials.
type Jet struct {
	Z           float64
	Fx, Fy      float64
	Fxx, Fxy, Fyy float64
}

// HeightFunc evaluates z = f(x, y) with derivatives.
type HeightFunc func(x, y float64) Jet

// HeightField is a Monge patch z = F(x, y) over U x V in the coordinates of
// Frame. It is freeform: none of the direct analytic fits recognize it, so
// classification always goes through curvature sampling.
type HeightField struct {
	unfitted
	Frame kernel.Frame
	U, V  kernel.Interval
	F     HeightFunc
}

// NewHeightField returns the patch of f over u x v.
func NewHeightField(frame kernel.Frame, u, v kernel.Interval, f HeightFunc) *HeightField {
	return &HeightField{Frame: frame, U: u, V: v, F: f}
}

// Flat returns z = 0 over a square of half-width extent.
func Flat(frame kernel.Frame, extent float64) *HeightField {
	return NewHeightField(frame, square(extent), square(extent), func(x, y float64) Jet { return Jet{} })
}

// Paraboloid returns z = a*x^2 + b*y^2. Opposite signs give a saddle.
func Paraboloid(frame kernel.Frame, a, b, extent float64) *HeightField {
	return NewHeightField(frame, square(extent), square(extent), func(x, y float64) Jet {
		return Jet{
			Z:   a*x*x + b*y*y,
			Fx:  2 * a * x,
			Fy:  2 * b * y,
			Fxx: 2 * a,
			Fyy: 2 * b,
		}
	})
}

// SphericalCap returns the upper cap of a sphere of radius r over a square
// of half-width extent; extent must stay below r/sqrt(2).
func SphericalCap(frame kernel.Frame, r, extent float64) *HeightField {
	return NewHeightField(frame, square(extent), square(extent), func(x, y float64) Jet {
		z := math.Sqrt(r*r - x*x - y*y)
		z3 := z * z * z
		return Jet{
			Z:   z,
			Fx:  -x / z,
			Fy:  -y / z,
			Fxx: -(r*r - y*y) / z3,
			Fxy: -x * y / z3,
			Fyy: -(r*r - x*x) / z3,
		}
	})
}

// CylindricalCap returns the top of a cylinder of radius r whose axis runs
// along the frame's Y axis, over |x| <= extent and |y| <= length/2.
func CylindricalCap(frame kernel.Frame, r, extent, length float64) *HeightField {
	return NewHeightField(frame, square(extent), square(length/2), func(x, _ float64) Jet {
		z := math.Sqrt(r*r - x*x)
		return Jet{
			Z:   z,
			Fx:  -x / z,
			Fxx: -r * r / (z * z * z),
		}
	})
}

// Wave returns z = amp * sin(k x) * sin(k y).
func Wave(frame kernel.Frame, amp, k, extent float64) *HeightField {
	return NewHeightField(frame, square(extent), square(extent), func(x, y float64) Jet {
		sx, cx := math.Sincos(k * x)
		sy, cy := math.Sincos(k * y)
		return Jet{
			Z:   amp * sx * sy,
			Fx:  amp * k * cx * sy,
			Fy:  amp * k * sx * cy,
			Fxx: -amp * k * k * sx * sy,
			Fxy: amp * k * k * cx * cy,
			Fyy: -amp * k * k * sx * sy,
		}
	})
}

func square(extent float64) kernel.Interval {
	return kernel.Interval{Min: -extent, Max: extent}
}

func (h *HeightField) Domain() (kernel.Interval, kernel.Interval) { return h.U, h.V }

func (h *HeightField) PointAt(uv v2.Vec) v3.Vec {
	j := h.F(uv.X, uv.Y)
	return h.Frame.ToWorld(v3.Vec{X: uv.X, Y: uv.Y, Z: j.Z})
}

func (h *HeightField) localNormal(j Jet) v3.Vec {
	return v3.Vec{X: -j.Fx, Y: -j.Fy, Z: 1}.Normalize()
}

func (h *HeightField) toWorldDir(d v3.Vec) v3.Vec {
	return h.Frame.X.MulScalar(d.X).Add(h.Frame.Y.MulScalar(d.Y)).Add(h.Frame.Z.MulScalar(d.Z))
}

func (h *HeightField) NormalAt(uv v2.Vec) v3.Vec {
	return h.toWorldDir(h.localNormal(h.F(uv.X, uv.Y)))
}

// CurvatureAt evaluates the shape operator of the Monge patch. The upward
// normal is used, with curvature signs flipped so that caps bulging toward
// the normal report positive curvature.
func (h *HeightField) CurvatureAt(uv v2.Vec) (kernel.SurfaceCurvature, bool) {
	j := h.F(uv.X, uv.Y)
	for _, c := range []float64{j.Z, j.Fx, j.Fy, j.Fxx, j.Fxy, j.Fyy} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return kernel.SurfaceCurvature{}, false
		}
	}

	w := 1 + j.Fx*j.Fx + j.Fy*j.Fy
	sw := math.Sqrt(w)

	// First and (sign-flipped) second fundamental forms.
	e, f, g := 1+j.Fx*j.Fx, j.Fx*j.Fy, 1+j.Fy*j.Fy
	l, m, n := -j.Fxx/sw, -j.Fxy/sw, -j.Fyy/sw

	det := e*g - f*f
	// Shape operator S = I^-1 II.
	a := (g*l - f*m) / det
	b := (g*m - f*n) / det
	c := (e*m - f*l) / det
	d := (e*n - f*m) / det

	gauss := a*d - b*c
	mean := 0.5 * (a + d)
	disc := math.Sqrt(math.Max(0, mean*mean-gauss))
	k1, k2 := mean+disc, mean-disc

	xu := v3.Vec{X: 1, Z: j.Fx}
	xv := v3.Vec{Y: 1, Z: j.Fy}
	dir := func(k float64, fallback v2.Vec) v3.Vec {
		var t v2.Vec
		switch {
		case math.Abs(b) > 1e-15:
			t = v2.Vec{X: b, Y: k - a}
		case math.Abs(c) > 1e-15:
			t = v2.Vec{X: k - d, Y: c}
		default:
			t = fallback
		}
		return h.toWorldDir(xu.MulScalar(t.X).Add(xv.MulScalar(t.Y)).Normalize())
	}

	first, second := v2.Vec{X: 1}, v2.Vec{Y: 1}
	if math.Abs(a-k1) > math.Abs(d-k1) {
		first, second = second, first
	}

	return kernel.SurfaceCurvature{
		Gaussian: gauss,
		Mean:     mean,
		K1:       k1,
		K2:       k2,
		Dir1:     dir(k1, first),
		Dir2:     dir(k2, second),
	}, true
}

func (h *HeightField) FrameAt(uv v2.Vec) (kernel.Frame, bool) {
	j := h.F(uv.X, uv.Y)
	xu := h.toWorldDir(v3.Vec{X: 1, Z: j.Fx})
	return kernel.NewFrameZX(h.PointAt(uv), h.toWorldDir(h.localNormal(j)), xu), true
}

func (h *HeightField) BoundingBox() sdf.Box3 { return sampleBox(h) }

func (h *HeightField) IsValid() bool {
	return h.F != nil && h.Frame.IsValid() && h.U.Length() > 0 && h.V.Length() > 0
}
