package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/kernel/analytic"
	"github.com/chazu/grain/pkg/kernel/sdfx"
	"github.com/chazu/grain/pkg/primitive"
	"github.com/chazu/grain/pkg/tessellate"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// newModeler returns a coarse sdfx modeler for testing.
func newModeler() *sdfx.Modeler {
	return sdfx.New(sdfx.WithMeshCells(20))
}

// decompose fits every face of b with the default configuration.
func decompose(t *testing.T, b kernel.Brep) []primitive.Fit {
	t.Helper()
	fits, err := primitive.NewFitter(classify.DefaultConfig()).Decompose(b, classify.DefaultTolerance())
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	return fits
}

func TestBoundedPrimitives(t *testing.T) {
	span := kernel.Interval{Min: -1, Max: 1}
	b := analytic.NewBrep()
	b.AddFace(analytic.NewPlane(kernel.WorldXY(), span, span))
	b.AddFace(analytic.NewSphere(kernel.NewFrame(v3.Vec{X: 10}, v3.Vec{Z: 1}), 2))
	b.AddFace(analytic.NewCylinder(kernel.WorldXY(), 1, 4))
	b.AddFace(analytic.NewTorus(kernel.WorldXY(), 3, 0.5))
	b.AddFace(analytic.NewCone(kernel.WorldXY(), 1, 2))

	meshes, err := tessellate.Tessellate(decompose(t, b), newModeler())
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 4 {
		t.Fatalf("expected 4 meshes (plane skipped), got %d", len(meshes))
	}

	wantLabels := []string{"face 1 sphere", "face 2 cylinder", "face 3 torus", "face 4 cone"}
	for i, m := range meshes {
		if m.Label != wantLabels[i] {
			t.Errorf("mesh %d label = %q, want %q", i, m.Label, wantLabels[i])
		}
		if m.IsEmpty() {
			t.Errorf("mesh %d is empty", i)
		}
	}

	// The sphere preview is placed on the fitted centre.
	if c := meshes[0].Centroid(); c.Sub(v3.Vec{X: 10}).Length() > 0.2 {
		t.Errorf("sphere mesh centroid %v, want near (10,0,0)", c)
	}
	// The cylinder spans its base circle upward.
	if c := meshes[1].Centroid(); math.Abs(c.Z-2) > 0.2 {
		t.Errorf("cylinder mesh centroid z = %g, want near 2", c.Z)
	}
	if b := meshes[1].Bounds(); math.Abs(b.Min.Z) > 0.3 || math.Abs(b.Max.Z-4) > 0.3 {
		t.Errorf("cylinder mesh z range [%g, %g], want about [0, 4]", b.Min.Z, b.Max.Z)
	}
}

func TestCurvatureCylinderCentred(t *testing.T) {
	b := analytic.NewBrep()
	b.AddFace(analytic.CylindricalCap(kernel.WorldXY(), 3, 2, 6))
	fits := decompose(t, b)
	if fits[0].Source != primitive.Curvature {
		t.Fatalf("expected a curvature fit, got %s", fits[0].Source)
	}

	meshes, err := tessellate.Tessellate(fits, newModeler())
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	// The recovered axis runs along Y through the origin.
	if c := meshes[0].Centroid(); c.Length() > 0.3 {
		t.Errorf("cylinder mesh centroid %v, want near the origin", c)
	}
}

func TestNothingToPreview(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newModeler())
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected no meshes, got %d", len(meshes))
	}

	if _, err := tessellate.Tessellate(nil, nil); err == nil {
		t.Fatal("expected error for nil modeler")
	}
}

func TestBuildError(t *testing.T) {
	fits := []primitive.Fit{{
		Face:      7,
		Primitive: primitive.Primitive{Kind: primitive.Torus, Frame: kernel.WorldXY(), Params: []float64{1, 2}},
	}}
	if _, err := tessellate.Tessellate(fits, newModeler()); err == nil {
		t.Fatal("expected error for a self-intersecting torus")
	}
}
