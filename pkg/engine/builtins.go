package engine

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/grain/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing scene specs between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec scene.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpFrame struct {
	spec scene.FrameSpec
}

func (f *sexpFrame) SexpString(ps *zygo.PrintState) string {
	o := f.spec.Origin
	return fmt.Sprintf("(frame :origin (vec3 %g %g %g))", o[0], o[1], o[2])
}
func (f *sexpFrame) Type() *zygo.RegisteredType { return nil }

type sexpCurve struct {
	spec scene.CurveSpec
}

func (c *sexpCurve) SexpString(ps *zygo.PrintState) string { return "(" + c.spec.Kind + " ...)" }
func (c *sexpCurve) Type() *zygo.RegisteredType            { return nil }

type sexpSurface struct {
	spec scene.SurfaceSpec
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	if s.spec.Kind == scene.SurfaceHeightField {
		return fmt.Sprintf("(height-field :field :%s ...)", s.spec.Field)
	}
	return "(" + s.spec.Kind + "-surface ...)"
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

type sexpEdge struct {
	spec scene.EdgeSpec
}

func (e *sexpEdge) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(edge (%s ...) :faces %v)", e.spec.Curve.Kind, e.spec.Faces)
}
func (e *sexpEdge) Type() *zygo.RegisteredType { return nil }

type sexpLoop struct {
	spec scene.LoopSpec
}

func (l *sexpLoop) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s-loop (%s ...))", l.spec.Kind, l.spec.Curve.Kind)
}
func (l *sexpLoop) Type() *zygo.RegisteredType { return nil }

// sexpItemRef is returned by the builtins that add an item to the scene.
type sexpItemRef struct {
	kind scene.ItemKind
	name string
}

func (r *sexpItemRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", r.kind, r.name)
}
func (r *sexpItemRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		result.order = append(result.order, name)
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value, treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// only rejects keywords outside allowed.
func (pa kwArgs) only(allowed ...string) error {
	for _, name := range pa.order {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("unknown keyword :%s (accepts :%s)", name, strings.Join(allowed, " :"))
		}
	}
	return nil
}

func (pa kwArgs) float(key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func (pa kwArgs) integer(key string, dst *int) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	n, err := toInt(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func (pa kwArgs) vec(key string, dst *scene.Vec3) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = vec
	return nil
}

func (pa kwArgs) frame(key string, dst **scene.FrameSpec) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, ok := v.(*sexpFrame)
	if !ok {
		return fmt.Errorf("%s: expected frame, got %T (%s)", key, v, v.SexpString(nil))
	}
	spec := f.spec
	*dst = &spec
	return nil
}

func (pa kwArgs) curve(key string, dst **scene.CurveSpec) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	c, err := toCurve(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = &c
	return nil
}

func (pa kwArgs) keyword(key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = s
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer; floats must be whole.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_wave) and plain strings ("wave").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (scene.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return scene.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toCurve(s zygo.Sexp) (scene.CurveSpec, error) {
	if c, ok := s.(*sexpCurve); ok {
		return c.spec, nil
	}
	return scene.CurveSpec{}, fmt.Errorf("expected curve, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toPoints flattens vec3 values and lists of vec3 values.
func toPoints(args []zygo.Sexp) ([]scene.Vec3, error) {
	pts := []scene.Vec3{}
	for _, a := range args {
		if v, ok := a.(*sexpVec3); ok {
			pts = append(pts, v.vec)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, fmt.Errorf("expected vec3 or list of vec3: %w", err)
		}
		for _, item := range items {
			v, err := toVec3(item)
			if err != nil {
				return nil, err
			}
			pts = append(pts, v)
		}
	}
	return pts, nil
}

// itemName takes an optional leading name string and otherwise names the
// item after its kind and position in the scene, which keeps names stable
// across evaluations of the same source.
func itemName(args []zygo.Sexp, kind scene.ItemKind, n int) (string, []zygo.Sexp) {
	if len(args) > 0 {
		if _, isKeyword := isKW(args[0]); !isKeyword {
			if s, err := toString(args[0]); err == nil {
				return s, args[1:]
			}
		}
	}
	return fmt.Sprintf("%s-%d", kind, n+1), args
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtin is the shape of every registered function. Errors are prefixed
// with the user-facing name.
type builtin func(args []zygo.Sexp) (zygo.Sexp, error)

func register(env *zygo.Zlisp, name string, fn builtin) {
	// zygomys identifiers cannot contain hyphens; the preprocessor rewrites
	// them in user source.
	symbol := strings.ReplaceAll(name, "-", "_")
	env.AddFunction(symbol, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		out, err := fn(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	})
}

// curveBuiltin registers a keyword-only curve constructor.
func curveBuiltin(env *zygo.Zlisp, name, kind string, keys ...string) {
	register(env, name, func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c := scene.CurveSpec{Kind: kind}
		if err := errors.Join(
			pa.only(keys...),
			pa.frame("frame", &c.Frame),
			pa.vec("from", &c.From),
			pa.vec("to", &c.To),
			pa.float("radius", &c.Radius),
			pa.float("radius2", &c.Radius2),
			pa.float("start", &c.StartDegrees),
			pa.float("end", &c.EndDegrees),
			pa.integer("sides", &c.Sides),
		); err != nil {
			return nil, err
		}
		return &sexpCurve{spec: c}, nil
	})
}

// surfaceBuiltin registers a keyword-only surface constructor.
func surfaceBuiltin(env *zygo.Zlisp, name, kind string, keys ...string) {
	register(env, name, func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		s := scene.SurfaceSpec{Kind: kind}
		if err := errors.Join(
			pa.only(keys...),
			pa.frame("frame", &s.Frame),
			pa.float("radius", &s.Radius),
			pa.float("height", &s.Height),
			pa.float("major", &s.Major),
			pa.float("minor", &s.Minor),
			pa.float("extent", &s.Extent),
			pa.curve("profile", &s.Profile),
			pa.vec("direction", &s.Direction),
			pa.float("length", &s.Length),
			pa.keyword("field", &s.Field),
			pa.float("a", &s.A),
			pa.float("b", &s.B),
			pa.float("amplitude", &s.Amplitude),
			pa.float("wavenumber", &s.Wavenumber),
		); err != nil {
			return nil, err
		}
		return &sexpSurface{spec: s}, nil
	})
}

// registerBuiltins installs the scene DSL into a zygomys environment. The
// builtins populate sc during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene) {

	// (vec3 1 2 3)
	register(env, "vec3", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(args))
		}
		var v scene.Vec3
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return nil, fmt.Errorf("%c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (frame :origin (vec3 0 0 0) :z (vec3 0 0 1) :x (vec3 1 0 0))
	register(env, "frame", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		f := scene.FrameSpec{Z: scene.Vec3{0, 0, 1}}
		if err := errors.Join(
			pa.only("origin", "z", "x"),
			pa.vec("origin", &f.Origin),
			pa.vec("z", &f.Z),
			pa.vec("x", &f.X),
		); err != nil {
			return nil, err
		}
		return &sexpFrame{spec: f}, nil
	})

	// (tolerance :distance 0.001 :angle-degrees 1)
	register(env, "tolerance", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		t := sc.Tolerance
		if err := errors.Join(
			pa.only("distance", "angle-degrees"),
			pa.float("distance", &t.Distance),
			pa.float("angle-degrees", &t.AngleDegrees),
		); err != nil {
			return nil, err
		}
		sc.Tolerance = t
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// Curves
	// -----------------------------------------------------------------------

	curveBuiltin(env, "line", scene.CurveLine, "from", "to")
	curveBuiltin(env, "arc", scene.CurveArc, "frame", "radius", "start", "end")
	curveBuiltin(env, "circle", scene.CurveCircle, "frame", "radius")
	curveBuiltin(env, "ellipse", scene.CurveEllipse, "frame", "radius", "radius2")
	curveBuiltin(env, "polygon", scene.CurvePolygon, "frame", "radius", "sides")

	// (polyline (vec3 0 0 0) (vec3 1 0 0) ...)
	register(env, "polyline", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pts, err := toPoints(args)
		if err != nil {
			return nil, err
		}
		return &sexpCurve{spec: scene.CurveSpec{Kind: scene.CurvePolyline, Points: pts}}, nil
	})

	// -----------------------------------------------------------------------
	// Surfaces
	// -----------------------------------------------------------------------

	surfaceBuiltin(env, "plane-surface", scene.SurfacePlane, "frame", "extent")
	surfaceBuiltin(env, "cylinder-surface", scene.SurfaceCylinder, "frame", "radius", "height")
	surfaceBuiltin(env, "sphere-surface", scene.SurfaceSphere, "frame", "radius")
	surfaceBuiltin(env, "cone-surface", scene.SurfaceCone, "frame", "radius", "height")
	surfaceBuiltin(env, "torus-surface", scene.SurfaceTorus, "frame", "major", "minor")
	surfaceBuiltin(env, "extrusion-surface", scene.SurfaceExtrusion, "profile", "direction", "length")
	surfaceBuiltin(env, "height-field", scene.SurfaceHeightField,
		"field", "frame", "extent", "a", "b", "radius", "length", "amplitude", "wavenumber")

	// -----------------------------------------------------------------------
	// Topology
	// -----------------------------------------------------------------------

	// (edge (line ...) :faces (list 0 1))
	register(env, "edge", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.only("faces"); err != nil {
			return nil, err
		}
		if len(pa.positional) != 1 {
			return nil, fmt.Errorf("requires one curve, got %d arguments", len(pa.positional))
		}
		c, err := toCurve(pa.positional[0])
		if err != nil {
			return nil, err
		}
		e := scene.EdgeSpec{Curve: c}
		if v, ok := pa.kw["faces"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return nil, fmt.Errorf("faces: %w", err)
			}
			for _, item := range items {
				n, err := toInt(item)
				if err != nil {
					return nil, fmt.Errorf("faces: %w", err)
				}
				e.Faces = append(e.Faces, n)
			}
		}
		return &sexpEdge{spec: e}, nil
	})

	for _, kind := range []string{scene.LoopOuter, scene.LoopInner} {
		// (inner-loop (circle ...))
		register(env, kind+"-loop", func(args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("requires one curve, got %d arguments", len(args))
			}
			c, err := toCurve(args[0])
			if err != nil {
				return nil, err
			}
			return &sexpLoop{spec: scene.LoopSpec{Kind: kind, Curve: c}}, nil
		})
	}

	// -----------------------------------------------------------------------
	// Scene items
	// -----------------------------------------------------------------------

	// (solid "name" (plane-surface ...) (edge ...) (inner-loop ...) ...)
	// Faces are numbered in the order they appear.
	register(env, "solid", func(args []zygo.Sexp) (zygo.Sexp, error) {
		name, rest := itemName(args, scene.ItemSolid, len(sc.Solids))
		sol := scene.Solid{Name: name}
		for i, a := range rest {
			switch v := a.(type) {
			case *sexpSurface:
				sol.Faces = append(sol.Faces, v.spec)
			case *sexpEdge:
				sol.Edges = append(sol.Edges, v.spec)
			case *sexpLoop:
				sol.Loops = append(sol.Loops, v.spec)
			default:
				return nil, fmt.Errorf("part %d: expected surface, edge or loop, got %T (%s)", i, a, a.SexpString(nil))
			}
		}
		sc.AddSolid(sol)
		return &sexpItemRef{kind: scene.ItemSolid, name: name}, nil
	})

	// (surface "name" (sphere-surface ...))
	register(env, "surface", func(args []zygo.Sexp) (zygo.Sexp, error) {
		name, rest := itemName(args, scene.ItemSurface, len(sc.Surfaces))
		if len(rest) != 1 {
			return nil, fmt.Errorf("requires one surface, got %d arguments", len(rest))
		}
		s, ok := rest[0].(*sexpSurface)
		if !ok {
			return nil, fmt.Errorf("expected surface, got %T (%s)", rest[0], rest[0].SexpString(nil))
		}
		sc.AddSurface(scene.Surface{Name: name, Surface: s.spec})
		return &sexpItemRef{kind: scene.ItemSurface, name: name}, nil
	})

	// (placements "name" (vec3 ...) (vec3 ...) ...)
	register(env, "placements", func(args []zygo.Sexp) (zygo.Sexp, error) {
		name, rest := itemName(args, scene.ItemPlacements, len(sc.Placements))
		pts, err := toPoints(rest)
		if err != nil {
			return nil, err
		}
		sc.AddPlacements(scene.Placements{Name: name, Points: pts})
		return &sexpItemRef{kind: scene.ItemPlacements, name: name}, nil
	})
}
