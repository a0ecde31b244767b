package engine

import (
	"strings"
	"testing"

	"github.com/chazu/grain/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(circle :radius 2)`,
			expect: `(circle "__kw_radius" 2)`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :radius 1 :height 4)`,
			expect: `(cylinder "__kw_radius" 1 "__kw_height" 4)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"a \" :b" :c`,
			expect: `"a \" :b" "__kw_c"`,
		},
		{
			name:   "backtick string preserved",
			input:  "`raw :kw inner-loop`",
			expect: "`raw :kw inner-loop`",
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(inner-loop :field :spherical-cap)`,
			expect: `(inner_loop "__kw_field" "__kw_spherical-cap")`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "exponent preserved",
			input:  `(vec3 1e-3 x-1 0)`,
			expect: `(vec3 1e-3 x-1 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  ";; comment with :keyword\n(a-b)",
			expect: "// comment with :keyword\n(a_b)",
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Scene building
// ---------------------------------------------------------------------------

func evaluate(t *testing.T, source string) *scene.Scene {
	t.Helper()
	sc, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return sc
}

func TestSolid(t *testing.T) {
	sc := evaluate(t, `
(def top (frame :origin (vec3 0 0 0) :z (vec3 0 0 1)))
(solid "block"
  (plane-surface :frame top :extent 10)
  (plane-surface :frame (frame :origin (vec3 10 0 -5) :z (vec3 1 0 0)) :extent 5)
  (edge (line :from (vec3 10 -10 0) :to (vec3 10 10 0)) :faces (list 0 1))
  (edge (arc :frame (frame :z (vec3 0 1 0)) :radius 2 :start 0 :end 90) :faces [0 1])
  (inner-loop (circle :frame top :radius 1.5)))
`)
	if len(sc.Solids) != 1 {
		t.Fatalf("expected 1 solid, got %d", len(sc.Solids))
	}
	sol := sc.Solids[0]
	if sol.Name != "block" {
		t.Errorf("name = %q", sol.Name)
	}
	if len(sol.Faces) != 2 || len(sol.Edges) != 2 || len(sol.Loops) != 1 {
		t.Fatalf("unexpected topology: %+v", sol)
	}
	if f := sol.Faces[1].Frame; f == nil || f.Origin != (scene.Vec3{10, 0, -5}) || f.Z != (scene.Vec3{1, 0, 0}) {
		t.Errorf("face 1 frame = %+v", f)
	}
	arc := sol.Edges[1]
	if arc.Curve.Kind != scene.CurveArc || arc.Curve.EndDegrees != 90 || arc.Curve.Radius != 2 {
		t.Errorf("arc = %+v", arc.Curve)
	}
	if len(arc.Faces) != 2 || arc.Faces[1] != 1 {
		t.Errorf("arc faces = %v", arc.Faces)
	}
	if sol.Loops[0].Kind != scene.LoopInner || sol.Loops[0].Curve.Radius != 1.5 {
		t.Errorf("loop = %+v", sol.Loops[0])
	}
	if ref, ok := sc.Lookup("block"); !ok || ref.Kind != scene.ItemSolid {
		t.Errorf("name index entry = %+v, %v", ref, ok)
	}
	if _, err := scene.BuildSolid(sol); err != nil {
		t.Errorf("BuildSolid: %v", err)
	}
}

func TestFrameDefaults(t *testing.T) {
	sc := evaluate(t, `(surface "s" (sphere-surface :frame (frame :origin (vec3 1 2 3)) :radius 1))`)
	f := sc.Surfaces[0].Surface.Frame
	if f.Z != (scene.Vec3{0, 0, 1}) {
		t.Errorf("default frame axis = %v, want +Z", f.Z)
	}
	if !f.X.IsZero() {
		t.Errorf("x hint should be unset, got %v", f.X)
	}
}

func TestSurfaces(t *testing.T) {
	sc := evaluate(t, `
(surface "plane" (plane-surface :extent 2))
(surface "cyl" (cylinder-surface :radius 1 :height 3))
(surface "ball" (sphere-surface :radius 2))
(surface "cone" (cone-surface :radius 1 :height 2))
(surface "ring" (torus-surface :major 3 :minor 1))
(surface "swept" (extrusion-surface :profile (ellipse :radius 2 :radius2 1) :direction (vec3 0 0 1) :length 4))
(surface "dome" (height-field :field :spherical-cap :radius 5 :extent 2))
(surface "ripple" (height-field :field :wave :amplitude 0.1 :wavenumber 2 :extent 1))
(surface "saddle" (height-field :field "paraboloid" :a 1 :b -1 :extent 1))
`)
	want := []string{"plane", "cylinder", "sphere", "cone", "torus", "extrusion", "height-field", "height-field", "height-field"}
	if len(sc.Surfaces) != len(want) {
		t.Fatalf("expected %d surfaces, got %d", len(want), len(sc.Surfaces))
	}
	for i, s := range sc.Surfaces {
		if s.Surface.Kind != want[i] {
			t.Errorf("surface %d kind = %q, want %q", i, s.Surface.Kind, want[i])
		}
		if _, err := scene.BuildSurface(s.Surface); err != nil {
			t.Errorf("surface %q: %v", s.Name, err)
		}
	}
	if sc.Surfaces[6].Surface.Field != scene.FieldSphericalCap {
		t.Errorf("field = %q", sc.Surfaces[6].Surface.Field)
	}
	if sc.Surfaces[8].Surface.B != -1 {
		t.Errorf("paraboloid b = %g", sc.Surfaces[8].Surface.B)
	}
	if p := sc.Surfaces[5].Surface.Profile; p == nil || p.Radius2 != 1 {
		t.Errorf("extrusion profile = %+v", p)
	}
}

func TestPlacements(t *testing.T) {
	sc := evaluate(t, `
(placements "row" (vec3 0 0 0) (vec3 1 0 0) (vec3 2 0 0))
(placements "listed" (list (vec3 0 0 0) (vec3 0 1 0)) (vec3 0 2 0))
(placements "empty")
`)
	if len(sc.Placements) != 3 {
		t.Fatalf("expected 3 placement sets, got %d", len(sc.Placements))
	}
	if got := sc.Placements[1].Points; len(got) != 3 || got[2] != (scene.Vec3{0, 2, 0}) {
		t.Errorf("listed points = %v", got)
	}
	if sc.Placements[2].Points == nil {
		t.Error("an empty placement call should still list its points")
	}
}

func TestPolylineAndPolygon(t *testing.T) {
	sc := evaluate(t, `
(solid "plate"
  (plane-surface :extent 5)
  (edge (polyline (vec3 0 0 0) (vec3 1 0 0) (vec3 1 1 0)) :faces (list 0))
  (inner-loop (polygon :radius 1 :sides 24)))
`)
	sol := sc.Solids[0]
	if n := len(sol.Edges[0].Curve.Points); n != 3 {
		t.Errorf("polyline has %d points", n)
	}
	if sol.Loops[0].Curve.Sides != 24 {
		t.Errorf("polygon sides = %d", sol.Loops[0].Curve.Sides)
	}
}

func TestTolerance(t *testing.T) {
	sc := evaluate(t, `(tolerance :distance 0.01 :angle-degrees 2)`)
	if sc.Tolerance.Distance != 0.01 || sc.Tolerance.AngleDegrees != 2 {
		t.Errorf("tolerance = %+v", sc.Tolerance)
	}
}

func TestVariablesAndLoops(t *testing.T) {
	sc := evaluate(t, `
(def r 2.5)
(def spacing (* r 2))
(placements "bolts" (vec3 0 0 0) (vec3 spacing 0 0) (vec3 (* 2 spacing) 0 0))
(surface "pin" (cylinder-surface :radius r :height spacing))
`)
	if got := sc.Placements[0].Points[2][0]; got != 10 {
		t.Errorf("third bolt x = %g, want 10", got)
	}
	if got := sc.Surfaces[0].Surface.Height; got != 5 {
		t.Errorf("pin height = %g, want 5", got)
	}
}

func TestAnonymousNames(t *testing.T) {
	sc := evaluate(t, `
(solid (sphere-surface :radius 1))
(solid (sphere-surface :radius 2))
(surface (sphere-surface :radius 3))
`)
	if sc.Solids[0].Name != "solid-1" || sc.Solids[1].Name != "solid-2" || sc.Surfaces[0].Name != "surface-1" {
		t.Errorf("names = %q %q %q", sc.Solids[0].Name, sc.Solids[1].Name, sc.Surfaces[0].Name)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		substr string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3 arguments"},
		{"vec3 type", `(vec3 1 "a" 3)`, "expected number"},
		{"unknown keyword", `(circle :radius 1 :diameter 2)`, "unknown keyword :diameter"},
		{"frame type", `(circle :frame (vec3 0 0 1) :radius 1)`, "expected frame"},
		{"edge without curve", `(edge :faces (list 0))`, "requires one curve"},
		{"edge face index", `(edge (line :from (vec3 0 0 0) :to (vec3 1 0 0)) :faces (list 0.5))`, "expected integer"},
		{"loop arity", `(inner-loop)`, "requires one curve"},
		{"solid part", `(solid "s" (vec3 0 0 0))`, "expected surface, edge or loop"},
		{"surface body", `(surface "s" (circle :radius 1))`, "expected surface"},
		{"placement entry", `(placements "p" 1 2 3)`, "expected vec3 or list of vec3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("fatal error: %v", err)
			}
			if sc != nil {
				t.Fatal("expected nil scene")
			}
			if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, tt.substr) {
				t.Errorf("errors = %v, want one containing %q", evalErrs, tt.substr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Run (evaluate + validate)
// ---------------------------------------------------------------------------

func TestRunValidates(t *testing.T) {
	eng := NewEngine()

	res, err := eng.Run(`
(solid "bad" (cylinder-surface :radius 0 :height 1))
(placements "pair" (vec3 0 0 0) (vec3 1 0 0))
`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scene != nil {
		t.Error("invalid scene should be dropped")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, "radius is 0.0000") {
		t.Errorf("errors = %v", res.Errors)
	}

	res, err = eng.Run(`(placements "pair" (vec3 0 0 0) (vec3 1 0 0))`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scene == nil || len(res.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Item != "pair" {
		t.Errorf("warnings = %+v", res.Warnings)
	}

	res, err = eng.Run(`(vec3 1)`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Scene != nil || len(res.Errors) == 0 {
		t.Errorf("expected eval errors, got %+v", res)
	}
}
