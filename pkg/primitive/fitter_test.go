package primitive

import (
	"math"
	"testing"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/kernel/analytic"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tol = classify.DefaultTolerance()

func newFitter() *Fitter { return NewFitter(classify.DefaultConfig()) }

// tilted is an arbitrary non-axis-aligned frame.
var tilted = kernel.NewFrameZX(v3.Vec{X: 1, Y: -2, Z: 0.5}, v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 1})

func TestExactCylinderDirect(t *testing.T) {
	b := analytic.NewBrep()
	b.AddFace(analytic.NewCylinder(tilted, 2.5, 4))

	fits, err := newFitter().Decompose(b, tol)
	require.NoError(t, err)
	require.Len(t, fits, 1)

	fit := fits[0]
	assert.Equal(t, Cylinder, fit.Primitive.Kind)
	assert.Equal(t, Direct, fit.Source)
	r, ok := fit.Primitive.Radius()
	require.True(t, ok)
	assert.InDelta(t, 2.5, r, 1e-12)
	h, _ := fit.Primitive.Height()
	assert.InDelta(t, 4, h, 1e-12)
	assert.Less(t, fit.Residual, 1e-9)
}

func TestDirectFits(t *testing.T) {
	span := kernel.Interval{Min: -1, Max: 1}
	tests := []struct {
		name string
		s    kernel.Surface
		want Kind
	}{
		{"plane", analytic.NewPlane(tilted, span, span), Plane},
		{"sphere", analytic.NewSphere(tilted, 3), Sphere},
		{"cone", analytic.NewCone(tilted, 2, 5), Cone},
		{"torus", analytic.NewTorus(tilted, 4, 1), Torus},
		{"extruded arc", analytic.NewExtrusion(analytic.NewArc(kernel.WorldXY(), 2, 0, 2), v3.Vec{Z: 1}, 3), Extrusion},
		{"extruded line is planar", analytic.NewExtrusion(analytic.NewLine(v3.Vec{}, v3.Vec{X: 2}), v3.Vec{Z: 1}, 3), Plane},
	}
	f := newFitter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := analytic.NewBrep()
			b.AddFace(tt.s)
			fits, err := f.Decompose(b, tol)
			require.NoError(t, err)
			require.Len(t, fits, 1)
			assert.Equal(t, tt.want, fits[0].Primitive.Kind)
			assert.Equal(t, Direct, fits[0].Source)
			assert.Less(t, fits[0].Residual, 1e-7)
		})
	}
}

func TestCurvatureFallback(t *testing.T) {
	w := kernel.WorldXY()
	f := newFitter()

	t.Run("flat", func(t *testing.T) {
		p, err := f.ClassifySurface(analytic.Flat(tilted, 2), tol)
		require.NoError(t, err)
		assert.Equal(t, Plane, p.Kind)
		assert.InDelta(t, 1, p.Frame.Z.Dot(tilted.Z), 1e-12)
	})

	t.Run("cylindrical cap", func(t *testing.T) {
		s := analytic.CylindricalCap(w, 3, 2, 6)
		p, src, err := f.classify(s, tol)
		require.NoError(t, err)
		require.Equal(t, Cylinder, p.Kind)
		assert.Equal(t, Curvature, src)
		r, _ := p.Radius()
		assert.InDelta(t, 3, r, 1e-9)
		assert.InDelta(t, 1, math.Abs(p.Frame.Z.Dot(v3.Vec{Y: 1})), 1e-9)
		h, _ := p.Height()
		assert.InDelta(t, s.BoundingBox().Size().Length(), h, 1e-12)
		assert.Less(t, f.Residual(s, p), 1e-9)
	})

	t.Run("spherical cap", func(t *testing.T) {
		s := analytic.SphericalCap(w, 5, 2)
		p, err := f.ClassifySurface(s, tol)
		require.NoError(t, err)
		require.Equal(t, Sphere, p.Kind)
		r, _ := p.Radius()
		assert.InDelta(t, 5, r, 1e-9)
		assert.InDelta(t, 0, p.Frame.Origin.Length(), 1e-9)
		assert.Less(t, f.Residual(s, p), 1e-9)
	})

	for name, s := range map[string]kernel.Surface{
		"saddle": analytic.Paraboloid(w, 1, -1, 1),
		"wave":   analytic.Wave(w, 0.3, 1, 2),
	} {
		t.Run(name, func(t *testing.T) {
			p, err := f.ClassifySurface(s, tol)
			require.NoError(t, err)
			assert.Equal(t, Unknown, p.Kind)
		})
	}
}

// broken is a height field whose curvature can never be evaluated.
func broken() kernel.Surface {
	span := kernel.Interval{Min: -1, Max: 1}
	return analytic.NewHeightField(kernel.WorldXY(), span, span, func(x, y float64) analytic.Jet {
		return analytic.Jet{Fxx: math.NaN()}
	})
}

func TestInsufficientSamples(t *testing.T) {
	p, err := newFitter().ClassifySurface(broken(), tol)
	require.Error(t, err)
	assert.ErrorIs(t, err, classify.ErrInsufficientData)
	assert.Equal(t, Unknown, p.Kind)

	// A zero radius cylinder is rejected by the direct path and has no
	// valid curvature either.
	_, err = newFitter().ClassifySurface(analytic.NewCylinder(kernel.WorldXY(), 0, 1), tol)
	assert.ErrorIs(t, err, classify.ErrInsufficientData)
}

func TestInvalidSurface(t *testing.T) {
	_, err := newFitter().ClassifySurface(nil, tol)
	assert.ErrorIs(t, err, classify.ErrInvalidInput)

	_, err = newFitter().ClassifySurface(analytic.NewSphere(kernel.Frame{}, 1), tol)
	assert.ErrorIs(t, err, classify.ErrInvalidInput)
}

func TestFitStandaloneSurface(t *testing.T) {
	f := newFitter()

	fit, err := f.Fit(analytic.NewSphere(tilted, 3), tol)
	require.NoError(t, err)
	assert.Equal(t, 0, fit.Face)
	assert.Equal(t, Direct, fit.Source)
	assert.Equal(t, Sphere, fit.Primitive.Kind)
	assert.Less(t, fit.Residual, 1e-9)

	fit, err = f.Fit(analytic.CylindricalCap(kernel.WorldXY(), 3, 2, 6), tol)
	require.NoError(t, err)
	assert.Equal(t, Curvature, fit.Source)

	_, err = f.Fit(nil, tol)
	assert.ErrorIs(t, err, classify.ErrInvalidInput)
}

func TestDecomposePartial(t *testing.T) {
	span := kernel.Interval{Min: -1, Max: 1}
	b := analytic.NewBrep()
	b.AddFace(analytic.NewCylinder(tilted, 1, 2))
	b.AddFace(analytic.NewCylinder(kernel.WorldXY(), 0, 2)) // degenerate
	b.AddFace(analytic.NewPlane(kernel.WorldXY(), span, span))
	b.AddFace(analytic.SphericalCap(kernel.WorldXY(), 4, 1))

	fits, err := newFitter().Decompose(b, tol)
	require.NoError(t, err)
	require.Len(t, fits, 3)

	var faces []int
	var kinds []Kind
	for _, fit := range fits {
		faces = append(faces, fit.Face)
		kinds = append(kinds, fit.Primitive.Kind)
	}
	assert.Equal(t, []int{0, 2, 3}, faces)
	assert.Equal(t, []Kind{Cylinder, Plane, Sphere}, kinds)
}

func TestDecomposeAllFail(t *testing.T) {
	b := analytic.NewBrep()
	b.AddFace(analytic.NewCylinder(kernel.WorldXY(), 0, 2))
	b.AddFace(broken())
	b.AddFace(analytic.Paraboloid(kernel.WorldXY(), 1, -1, 1))

	_, err := newFitter().Decompose(b, tol)
	require.Error(t, err)
	assert.ErrorIs(t, err, classify.ErrNoMatch)

	_, err = newFitter().Decompose(analytic.NewBrep(), tol)
	assert.ErrorIs(t, err, classify.ErrInvalidInput)
}

func TestResidualOffsets(t *testing.T) {
	span := kernel.Interval{Min: -1, Max: 1}
	arc := analytic.NewArc(kernel.WorldXY(), 2, 0, 2)
	wider := analytic.NewArc(kernel.WorldXY(), 2.2, 0, 2)
	shifted := tilted
	shifted.Origin = tilted.ToWorld(v3.Vec{Z: 0.3})

	tests := []struct {
		name string
		s    kernel.Surface
		p    Primitive
		want float64
	}{
		{"plane", analytic.NewPlane(shifted, span, span), Primitive{Kind: Plane, Frame: tilted}, 0.3},
		{"cylinder", analytic.NewCylinder(tilted, 2.1, 3), Primitive{Kind: Cylinder, Frame: tilted, Params: []float64{2, 3}}, 0.1},
		{"sphere", analytic.NewSphere(tilted, 3.2), Primitive{Kind: Sphere, Frame: tilted, Params: []float64{3}}, 0.2},
		{"torus", analytic.NewTorus(tilted, 4, 1.1), Primitive{Kind: Torus, Frame: tilted, Params: []float64{4, 1}}, 0.1},
		{"cone", analytic.NewCone(tilted, 2, 4), Primitive{Kind: Cone, Frame: tilted, Params: []float64{2, 4}}, 0},
		{"extrusion", analytic.NewExtrusion(wider, v3.Vec{Z: 1}, 2), Primitive{
			Kind:    Extrusion,
			Frame:   kernel.NewFrame(arc.PointAt(0), v3.Vec{Z: 1}),
			Params:  []float64{2},
			Profile: arc,
		}, 0.2},
	}
	f := newFitter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, f.Residual(tt.s, tt.p), 1e-6)
		})
	}

	_, ok := Project(Primitive{Kind: Unknown}, v3.Vec{})
	assert.False(t, ok)
}

func TestDecomposeDeterministic(t *testing.T) {
	build := func() kernel.Brep {
		b := analytic.NewBrep()
		b.AddFace(analytic.NewTorus(tilted, 3, 0.5))
		b.AddFace(analytic.CylindricalCap(kernel.WorldXY(), 2, 1, 3))
		b.AddFace(analytic.NewCone(tilted, 1, 1))
		return b
	}
	f := newFitter()
	first, err := f.Decompose(build(), tol)
	require.NoError(t, err)
	again, err := f.Decompose(build(), tol)
	require.NoError(t, err)
	if diff := cmp.Diff(first, again, cmpopts.IgnoreFields(Primitive{}, "Profile")); diff != "" {
		t.Fatalf("decomposition differs (-first +again):\n%s", diff)
	}
}

func TestPrimitiveAccessors(t *testing.T) {
	tor := Primitive{Kind: Torus, Params: []float64{5, 1}}
	major, ok := tor.MajorRadius()
	assert.True(t, ok)
	assert.Equal(t, 5.0, major)
	_, ok = tor.Radius()
	assert.False(t, ok)

	ext := Primitive{Kind: Extrusion, Params: []float64{7}}
	l, ok := ext.Length()
	assert.True(t, ok)
	assert.Equal(t, 7.0, l)

	text, err := Cone.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "cone", string(text))
	assert.Equal(t, "curvature", Curvature.String())
}
