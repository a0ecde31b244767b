package kernel

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const eps = 1e-9

func near(a, b v3.Vec) bool {
	return a.Sub(b).Length() < 1e-9
}

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	if !(&Mesh{}).IsEmpty() {
		t.Error("IsEmpty() = false for empty mesh, want true")
	}
	if (&Mesh{Vertices: []float32{1, 2, 3}}).IsEmpty() {
		t.Error("IsEmpty() = true for non-empty mesh, want false")
	}
}

func TestMeshCentroidAndBounds(t *testing.T) {
	m := &Mesh{Vertices: []float32{0, 0, 0, 2, 0, 0, 2, 4, 0, 0, 4, 6}}
	if c := m.Centroid(); !near(c, v3.Vec{X: 1, Y: 2, Z: 1.5}) {
		t.Errorf("Centroid() = %v, want (1, 2, 1.5)", c)
	}
	b := m.Bounds()
	if !near(b.Min, v3.Vec{}) || !near(b.Max, v3.Vec{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Bounds() = %+v", b)
	}

	empty := &Mesh{}
	if c := empty.Centroid(); c != (v3.Vec{}) {
		t.Errorf("empty Centroid() = %v", c)
	}
	if b := empty.Bounds(); b != (sdf.Box3{}) {
		t.Errorf("empty Bounds() = %+v", b)
	}
}

// --- Frames ---

func TestNewFrameIsOrthonormal(t *testing.T) {
	normals := []v3.Vec{
		{X: 0, Y: 0, Z: 1},
		{X: 0, Y: 0, Z: -1},
		{X: 1, Y: 1, Z: 0},
		{X: -3, Y: 2, Z: 7},
	}
	for _, n := range normals {
		f := NewFrame(v3.Vec{X: 1, Y: 2, Z: 3}, n)
		if !f.IsValid() {
			t.Errorf("NewFrame(%v) is not orthonormal: %+v", n, f)
		}
		if !near(f.Z, n.Normalize()) {
			t.Errorf("NewFrame(%v).Z = %v", n, f.Z)
		}
		if !near(f.X.Cross(f.Y), f.Z) {
			t.Errorf("NewFrame(%v) is not right handed", n)
		}
	}
}

func TestFrameFromAxesRejectsParallel(t *testing.T) {
	if _, ok := FrameFromAxes(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{X: 2}); ok {
		t.Fatal("expected parallel axes to be rejected")
	}
	f, ok := FrameFromAxes(v3.Vec{}, v3.Vec{X: 2}, v3.Vec{X: 1, Y: 1})
	if !ok {
		t.Fatal("expected skew axes to be accepted")
	}
	if !near(f.Y, v3.Vec{Y: 1}) {
		t.Errorf("Y axis = %v, want orthogonalized (0,1,0)", f.Y)
	}
}

func TestFrameLocalWorldRoundTrip(t *testing.T) {
	f := NewFrameZX(v3.Vec{X: 5, Y: -1, Z: 2}, v3.Vec{X: 1, Y: 1, Z: 1}, v3.Vec{X: 1})
	p := v3.Vec{X: 0.3, Y: 7, Z: -4}
	if got := f.ToWorld(f.ToLocal(p)); !near(got, p) {
		t.Errorf("round trip = %v, want %v", got, p)
	}
}

func TestFrameTransformMapsWorldXY(t *testing.T) {
	frames := []Frame{
		WorldXY(),
		NewFrameZX(v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 0, Y: 1, Z: 1}, v3.Vec{X: 1}),
		NewFrameZX(v3.Vec{X: -4}, v3.Vec{Z: -1}, v3.Vec{Y: 1}),
		NewFrameZX(v3.Vec{}, v3.Vec{X: 1}, v3.Vec{Y: -1}),
	}
	for i, f := range frames {
		m := f.Transform()
		if got := m.MulPosition(v3.Vec{}); !near(got, f.Origin) {
			t.Errorf("frame %d: origin maps to %v, want %v", i, got, f.Origin)
		}
		if got := m.MulPosition(v3.Vec{X: 1}).Sub(f.Origin); !near(got, f.X) {
			t.Errorf("frame %d: X maps to %v, want %v", i, got, f.X)
		}
		if got := m.MulPosition(v3.Vec{Y: 1}).Sub(f.Origin); !near(got, f.Y) {
			t.Errorf("frame %d: Y maps to %v, want %v", i, got, f.Y)
		}
	}
}

func TestSignedAngle(t *testing.T) {
	a := v3.Vec{X: 1}
	b := v3.Vec{Y: 1}
	n := v3.Vec{Z: 1}
	if got := SignedAngle(a, b, n); math.Abs(got-math.Pi/2) > eps {
		t.Errorf("SignedAngle = %v, want pi/2", got)
	}
	if got := SignedAngle(a, b, n.Neg()); math.Abs(got+math.Pi/2) > eps {
		t.Errorf("SignedAngle about -Z = %v, want -pi/2", got)
	}
	if got := AngleBetween(a, a.Neg()); math.Abs(got-math.Pi) > eps {
		t.Errorf("AngleBetween opposite = %v, want pi", got)
	}
}

// --- Plane fitting ---

func TestLeastSquaresPlane(t *testing.T) {
	f := NewFrameZX(v3.Vec{X: 1, Y: 1, Z: 1}, v3.Vec{X: 1, Y: -2, Z: 0.5}, v3.Vec{X: 1})
	var pts []v3.Vec
	for i := 0; i < 4; i++ {
		for j := 0; j < 3; j++ {
			pts = append(pts, f.ToWorld(v3.Vec{X: float64(i) * 2, Y: float64(j)}))
		}
	}

	got, ok := LeastSquaresPlane{}.FitPlane(pts)
	if !ok {
		t.Fatal("FitPlane failed on planar grid")
	}
	if d := math.Abs(math.Abs(got.Z.Dot(f.Z)) - 1); d > 1e-9 {
		t.Errorf("normal %v not parallel to %v", got.Z, f.Z)
	}
	if !near(got.Origin, Centroid(pts)) {
		t.Errorf("origin %v, want centroid %v", got.Origin, Centroid(pts))
	}
	for _, p := range pts {
		if d := math.Abs(got.ToLocal(p).Z); d > 1e-9 {
			t.Errorf("point %v off fitted plane by %g", p, d)
		}
	}
}

func TestLeastSquaresPlaneDegenerate(t *testing.T) {
	collinear := []v3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}}
	if _, ok := (LeastSquaresPlane{}).FitPlane(collinear); ok {
		t.Error("expected collinear points to be rejected")
	}
	if _, ok := (LeastSquaresPlane{}).FitPlane(collinear[:2]); ok {
		t.Error("expected two points to be rejected")
	}
}

func TestPlaneFitterFunc(t *testing.T) {
	called := false
	var pf PlaneFitter = PlaneFitterFunc(func(points []v3.Vec) (Frame, bool) {
		called = true
		return WorldXY(), true
	})
	if _, ok := pf.FitPlane(nil); !ok || !called {
		t.Error("PlaneFitterFunc did not delegate")
	}
}

// --- Compile-time interface check with a stub modeler ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubModeler proves the Modeler interface is satisfiable.
type stubModeler struct{}

func (stubModeler) Sphere(r float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-r, -r, -r}, maxBB: [3]float64{r, r, r}}, nil
}

func (stubModeler) Cylinder(h, r float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-r, -r, 0}, maxBB: [3]float64{r, r, h}}, nil
}

func (stubModeler) Cone(h, r float64) (Solid, error) {
	return &stubSolid{minBB: [3]float64{-r, -r, 0}, maxBB: [3]float64{r, r, h}}, nil
}

func (stubModeler) Torus(major, minor float64) (Solid, error) {
	e := major + minor
	return &stubSolid{minBB: [3]float64{-e, -e, -minor}, maxBB: [3]float64{e, e, minor}}, nil
}

func (stubModeler) Transform(s Solid, _ sdf.M44) Solid { return s }

func (stubModeler) ToMesh(_ Solid) (*Mesh, error) { return &Mesh{}, nil }

var _ Modeler = stubModeler{}

func TestStubModelerCylinderBoundingBox(t *testing.T) {
	var m Modeler = stubModeler{}
	s, err := m.Cylinder(30, 5)
	if err != nil {
		t.Fatalf("Cylinder() error = %v", err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{-5, -5, 0} || max != [3]float64{5, 5, 30} {
		t.Errorf("bounding box = %v..%v", min, max)
	}
}

func TestContinuityString(t *testing.T) {
	if G2.String() != "G2" || C0.String() != "C0" {
		t.Errorf("unexpected names %s %s", G2, C0)
	}
	if Continuity(42).String() != "Continuity(42)" {
		t.Errorf("unexpected fallback %s", Continuity(42))
	}
	if LoopInner.String() != "inner" {
		t.Errorf("LoopInner = %s", LoopInner)
	}
}
