package scene

import (
	"fmt"
	"math"

	"github.com/chazu/grain/pkg/classify"
)

// ValidationSeverity indicates whether a finding blocks a scan or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the scan
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Item     string             // item name, empty for scene-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Item == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Item, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Item    string
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory)
// from both validation tiers.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether the scene has no blocking errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the Tier 1 structural checks and returns the findings. An
// empty slice means the scene is well formed. It never mutates the scene.
func Validate(sc *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(sc)...)
	errs = append(errs, validateKinds(sc)...)
	errs = append(errs, validateFaceRefs(sc)...)
	errs = append(errs, validatePlacementLists(sc)...)
	return errs
}

// ValidateAll runs both tiers and separates errors from warnings.
func ValidateAll(sc *Scene) ValidationResult {
	var result ValidationResult
	for _, e := range Validate(sc) {
		if e.Severity == SeverityWarning {
			result.Warnings = append(result.Warnings, ValidationWarning{Item: e.Item, Message: e.Message})
		} else {
			result.Errors = append(result.Errors, e)
		}
	}

	geomErrs, geomWarnings := validateGeometry(sc)
	result.Errors = append(result.Errors, geomErrs...)
	result.Warnings = append(result.Warnings, geomWarnings...)
	return result
}

// ---------------------------------------------------------------------------
// Tier 1: structure
// ---------------------------------------------------------------------------

func invalid(item, format string, args ...any) ValidationError {
	return ValidationError{Item: item, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// validateNames checks that every item is named and no two items share a
// name, across all item kinds.
func validateNames(sc *Scene) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]ItemKind)

	check := func(kind ItemKind, i int, name string) {
		if name == "" {
			errs = append(errs, invalid("", "%s %d has no name", kind, i))
			return
		}
		if prev, ok := seen[name]; ok {
			errs = append(errs, invalid(name, "name already used by a %s", prev))
			return
		}
		seen[name] = kind
	}

	for i, s := range sc.Solids {
		check(ItemSolid, i, s.Name)
	}
	for i, s := range sc.Surfaces {
		check(ItemSurface, i, s.Name)
	}
	for i, p := range sc.Placements {
		check(ItemPlacements, i, p.Name)
	}
	return errs
}

// validateKinds checks every curve, surface, height field and loop kind.
func validateKinds(sc *Scene) []ValidationError {
	var errs []ValidationError

	curve := func(item, where string, c CurveSpec) {
		if !curveKinds[c.Kind] {
			errs = append(errs, invalid(item, "%s: unknown curve kind %q", where, c.Kind))
		}
	}
	surface := func(item, where string, s SurfaceSpec) {
		switch {
		case !surfaceKinds[s.Kind]:
			errs = append(errs, invalid(item, "%s: unknown surface kind %q", where, s.Kind))
		case s.Kind == SurfaceHeightField && !fieldKinds[s.Field]:
			errs = append(errs, invalid(item, "%s: unknown height field %q", where, s.Field))
		case s.Kind == SurfaceExtrusion && s.Profile == nil:
			errs = append(errs, invalid(item, "%s: extrusion has no profile", where))
		case s.Kind == SurfaceExtrusion:
			curve(item, where+" profile", *s.Profile)
		}
	}

	for _, sol := range sc.Solids {
		for i, f := range sol.Faces {
			surface(sol.Name, fmt.Sprintf("face %d", i), f)
		}
		for i, e := range sol.Edges {
			curve(sol.Name, fmt.Sprintf("edge %d", i), e.Curve)
		}
		for i, l := range sol.Loops {
			if _, ok := loopKinds[l.Kind]; !ok {
				errs = append(errs, invalid(sol.Name, "loop %d: unknown loop kind %q", i, l.Kind))
			}
			curve(sol.Name, fmt.Sprintf("loop %d", i), l.Curve)
		}
	}
	for _, s := range sc.Surfaces {
		surface(s.Name, "surface", s.Surface)
	}
	return errs
}

// validateFaceRefs checks that edges reference at most two existing faces.
func validateFaceRefs(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, sol := range sc.Solids {
		for i, e := range sol.Edges {
			if len(e.Faces) > 2 {
				errs = append(errs, invalid(sol.Name, "edge %d is shared by %d faces, at most 2 allowed", i, len(e.Faces)))
			}
			for _, f := range e.Faces {
				if f < 0 || f >= len(sol.Faces) {
					errs = append(errs, invalid(sol.Name, "edge %d references face %d, solid has %d faces", i, f, len(sol.Faces)))
				}
			}
		}
	}
	return errs
}

// validatePlacementLists checks that every placement set lists its points.
func validatePlacementLists(sc *Scene) []ValidationError {
	var errs []ValidationError
	for _, p := range sc.Placements {
		if p.Points == nil {
			errs = append(errs, invalid(p.Name, "placement set has no points"))
		}
	}
	return errs
}

// ---------------------------------------------------------------------------
// Tier 2: geometry (errors + warnings)
// ---------------------------------------------------------------------------

// validateGeometry runs the Tier 2 checks. Items with an unknown kind were
// already reported by Tier 1 and are skipped.
func validateGeometry(sc *Scene) ([]ValidationError, []ValidationWarning) {
	var errs []ValidationError
	var warnings []ValidationWarning

	for _, sol := range sc.Solids {
		for i, f := range sol.Faces {
			errs = append(errs, checkSurface(sol.Name, fmt.Sprintf("face %d", i), f)...)
			warnings = append(warnings, torusWarning(sol.Name, fmt.Sprintf("face %d", i), f)...)
		}
		for i, e := range sol.Edges {
			errs = append(errs, checkCurve(sol.Name, fmt.Sprintf("edge %d", i), e.Curve)...)
		}
		for i, l := range sol.Loops {
			errs = append(errs, checkCurve(sol.Name, fmt.Sprintf("loop %d", i), l.Curve)...)
		}
		if len(sol.Faces) == 0 {
			warnings = append(warnings, ValidationWarning{Item: sol.Name, Message: "solid has no faces"})
		}
		if len(sol.Edges) == 0 {
			warnings = append(warnings, ValidationWarning{Item: sol.Name, Message: "solid has no edges to classify"})
		}
	}

	for _, s := range sc.Surfaces {
		errs = append(errs, checkSurface(s.Name, "surface", s.Surface)...)
		warnings = append(warnings, torusWarning(s.Name, "surface", s.Surface)...)
	}

	minInstances := classify.DefaultConfig().Patterns.MinInstances
	for _, p := range sc.Placements {
		for i, pt := range p.Points {
			if !finite(pt) {
				errs = append(errs, invalid(p.Name, "point %d is not finite", i))
			}
		}
		if p.Points != nil && len(p.Points) < minInstances {
			warnings = append(warnings, ValidationWarning{
				Item:    p.Name,
				Message: fmt.Sprintf("%d points, pattern detection needs at least %d", len(p.Points), minInstances),
			})
		}
	}

	if t := sc.Tolerance; t.Distance < 0 || t.AngleDegrees < 0 || t.AngleDegrees >= 180 {
		errs = append(errs, invalid("", "tolerance distance %g / angle %g degrees out of range", t.Distance, t.AngleDegrees))
	}

	return errs, warnings
}

func checkFrame(item, where string, f *FrameSpec) []ValidationError {
	if f == nil {
		return nil
	}
	var errs []ValidationError
	if f.Z.IsZero() {
		errs = append(errs, invalid(item, "%s: frame axis is zero", where))
	}
	if !finite(f.Origin) || !finite(f.Z) || !finite(f.X) {
		errs = append(errs, invalid(item, "%s: frame is not finite", where))
	}
	return errs
}

func positive(item, where, field string, v float64) []ValidationError {
	if v > 0 && !math.IsInf(v, 1) {
		return nil
	}
	return []ValidationError{invalid(item, "%s: %s is %.4f, must be positive", where, field, v)}
}

func checkCurve(item, where string, c CurveSpec) []ValidationError {
	var errs []ValidationError
	switch c.Kind {
	case CurveLine:
		if !finite(c.From) || !finite(c.To) {
			errs = append(errs, invalid(item, "%s: line end is not finite", where))
		} else if c.From == c.To {
			errs = append(errs, invalid(item, "%s: line has zero length", where))
		}
	case CurveArc:
		errs = append(errs, checkFrame(item, where, c.Frame)...)
		errs = append(errs, positive(item, where, "radius", c.Radius)...)
		if !(c.EndDegrees > c.StartDegrees) {
			errs = append(errs, invalid(item, "%s: arc end angle must exceed start angle", where))
		}
	case CurveCircle:
		errs = append(errs, checkFrame(item, where, c.Frame)...)
		errs = append(errs, positive(item, where, "radius", c.Radius)...)
	case CurveEllipse:
		errs = append(errs, checkFrame(item, where, c.Frame)...)
		errs = append(errs, positive(item, where, "radius", c.Radius)...)
		errs = append(errs, positive(item, where, "radius2", c.Radius2)...)
	case CurvePolyline:
		if len(c.Points) < 2 {
			errs = append(errs, invalid(item, "%s: polyline needs at least 2 points, got %d", where, len(c.Points)))
		}
		for i, p := range c.Points {
			if !finite(p) {
				errs = append(errs, invalid(item, "%s: point %d is not finite", where, i))
			}
		}
	case CurvePolygon:
		errs = append(errs, checkFrame(item, where, c.Frame)...)
		errs = append(errs, positive(item, where, "radius", c.Radius)...)
		if c.Sides < 3 {
			errs = append(errs, invalid(item, "%s: polygon needs at least 3 sides, got %d", where, c.Sides))
		}
	}
	return errs
}

func checkSurface(item, where string, s SurfaceSpec) []ValidationError {
	errs := checkFrame(item, where, s.Frame)
	switch s.Kind {
	case SurfacePlane:
		errs = append(errs, positive(item, where, "extent", s.Extent)...)
	case SurfaceCylinder, SurfaceCone:
		errs = append(errs, positive(item, where, "radius", s.Radius)...)
		errs = append(errs, positive(item, where, "height", s.Height)...)
	case SurfaceSphere:
		errs = append(errs, positive(item, where, "radius", s.Radius)...)
	case SurfaceTorus:
		errs = append(errs, positive(item, where, "major", s.Major)...)
		errs = append(errs, positive(item, where, "minor", s.Minor)...)
	case SurfaceExtrusion:
		if s.Direction.IsZero() || !finite(s.Direction) {
			errs = append(errs, invalid(item, "%s: extrusion direction is zero", where))
		}
		errs = append(errs, positive(item, where, "length", s.Length)...)
		if s.Profile != nil {
			errs = append(errs, checkCurve(item, where+" profile", *s.Profile)...)
		}
	case SurfaceHeightField:
		errs = append(errs, positive(item, where, "extent", s.Extent)...)
		switch s.Field {
		case FieldSphericalCap:
			errs = append(errs, positive(item, where, "radius", s.Radius)...)
			if s.Radius > 0 && s.Extent*math.Sqrt2 >= s.Radius {
				errs = append(errs, invalid(item, "%s: cap extent %.4f reaches the sphere's equator", where, s.Extent))
			}
		case FieldCylindricalCap:
			errs = append(errs, positive(item, where, "radius", s.Radius)...)
			errs = append(errs, positive(item, where, "length", s.Length)...)
			if s.Radius > 0 && s.Extent >= s.Radius {
				errs = append(errs, invalid(item, "%s: cap extent %.4f reaches the cylinder's side", where, s.Extent))
			}
		}
	}
	return errs
}

// torusWarning flags spindle and horn tori, which classify but cannot be
// previewed as solids.
func torusWarning(item, where string, s SurfaceSpec) []ValidationWarning {
	if s.Kind != SurfaceTorus || s.Minor <= 0 || s.Minor < s.Major {
		return nil
	}
	return []ValidationWarning{{
		Item:    item,
		Message: fmt.Sprintf("%s: minor radius %.4f is not below major radius %.4f, no preview mesh", where, s.Minor, s.Major),
	}}
}

func finite(v Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
