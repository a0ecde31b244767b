// Package classify holds what the feature, primitive and pattern
// classifiers share: engine thresholds, per-call tolerances, the error
// taxonomy and the sampling statistics.
package classify

import (
	"fmt"
	"math"
	"os"

	"github.com/deadsy/sdfx/sdf"
	"gopkg.in/yaml.v3"
)

// Config holds the dimensionless engine thresholds. They are empirical
// and configurable; per-call distances and angles live in Tolerance.
type Config struct {
	// Epsilon guards divisions and "is zero" tests on curvature means.
	Epsilon  float64       `yaml:"epsilon"`
	Edges    EdgeConfig    `yaml:"edges"`
	Surfaces SurfaceConfig `yaml:"surfaces"`
	Patterns PatternConfig `yaml:"patterns"`
}

// EdgeConfig tunes edge feature classification.
type EdgeConfig struct {
	CurvatureSamples  int     `yaml:"curvature_samples"`
	FilletVariation   float64 `yaml:"fillet_variation"`
	SharpBandDegrees  float64 `yaml:"sharp_band_degrees"`
	SmoothBandDegrees float64 `yaml:"smooth_band_degrees"`
	MinHoleSides      int     `yaml:"min_hole_sides"`
}

// SharpBand returns the sharp band limit in radians.
func (c EdgeConfig) SharpBand() float64 { return sdf.DtoR(c.SharpBandDegrees) }

// SmoothBand returns the smooth band limit in radians.
func (c EdgeConfig) SmoothBand() float64 { return sdf.DtoR(c.SmoothBandDegrees) }

// SurfaceConfig tunes primitive fitting and residual sampling.
type SurfaceConfig struct {
	TargetSamples      int     `yaml:"target_samples"`
	MinValidSamples    int     `yaml:"min_valid_samples"`
	CurvatureVariation float64 `yaml:"curvature_variation"`
	CurvatureFloor     float64 `yaml:"curvature_floor"`
}

// PatternConfig tunes pattern detection.
type PatternConfig struct {
	MinInstances    int     `yaml:"min_instances"`
	RadialRelTol    float64 `yaml:"radial_rel_tol"`
	Orthogonality   float64 `yaml:"orthogonality"`
	GridDeviation   float64 `yaml:"grid_deviation"`
	ScalingVariance float64 `yaml:"scaling_variance"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		Epsilon: 1e-9,
		Edges: EdgeConfig{
			CurvatureSamples:  5,
			FilletVariation:   0.15,
			SharpBandDegrees:  20,
			SmoothBandDegrees: 170,
			MinHoleSides:      16,
		},
		Surfaces: SurfaceConfig{
			TargetSamples:      25,
			MinValidSamples:    4,
			CurvatureVariation: 0.05,
			CurvatureFloor:     1e-10,
		},
		Patterns: PatternConfig{
			MinInstances:    3,
			RadialRelTol:    0.05,
			Orthogonality:   0.1,
			GridDeviation:   0.1,
			ScalingVariance: 0.01,
		},
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects thresholds the classifiers cannot work with.
func (c Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}
	positive := func(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

	check(positive(c.Epsilon), "epsilon must be positive, got %g", c.Epsilon)

	e := c.Edges
	check(e.CurvatureSamples >= 2, "edges.curvature_samples must be at least 2, got %d", e.CurvatureSamples)
	check(positive(e.FilletVariation), "edges.fillet_variation must be positive, got %g", e.FilletVariation)
	check(e.SharpBandDegrees >= 0 && e.SharpBandDegrees < e.SmoothBandDegrees && e.SmoothBandDegrees <= 180,
		"edges band limits must satisfy 0 <= sharp < smooth <= 180, got %g/%g", e.SharpBandDegrees, e.SmoothBandDegrees)
	check(e.MinHoleSides >= 3, "edges.min_hole_sides must be at least 3, got %d", e.MinHoleSides)

	s := c.Surfaces
	check(s.TargetSamples >= 1, "surfaces.target_samples must be at least 1, got %d", s.TargetSamples)
	check(s.MinValidSamples >= 1, "surfaces.min_valid_samples must be at least 1, got %d", s.MinValidSamples)
	grid := GridSide(s.TargetSamples)
	check(s.MinValidSamples <= grid*grid, "surfaces.min_valid_samples %d exceeds the %d samples a %dx%d grid yields",
		s.MinValidSamples, grid*grid, grid, grid)
	check(positive(s.CurvatureVariation), "surfaces.curvature_variation must be positive, got %g", s.CurvatureVariation)
	check(positive(s.CurvatureFloor), "surfaces.curvature_floor must be positive, got %g", s.CurvatureFloor)

	p := c.Patterns
	check(p.MinInstances >= 2, "patterns.min_instances must be at least 2, got %d", p.MinInstances)
	check(positive(p.RadialRelTol), "patterns.radial_rel_tol must be positive, got %g", p.RadialRelTol)
	check(p.Orthogonality > 0 && p.Orthogonality < 1, "patterns.orthogonality must be in (0, 1), got %g", p.Orthogonality)
	check(p.GridDeviation > 0 && p.GridDeviation < 0.5, "patterns.grid_deviation must be in (0, 0.5), got %g", p.GridDeviation)
	check(positive(p.ScalingVariance), "patterns.scaling_variance must be positive, got %g", p.ScalingVariance)

	if len(problems) > 0 {
		return Errorf(InvalidInput, "config", "%d invalid setting(s): %v", len(problems), problems)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tolerance
// ---------------------------------------------------------------------------

// Tolerance is supplied by the caller on every classification call.
type Tolerance struct {
	Distance float64 `yaml:"distance" json:"distance"` // absolute model units
	Angle    float64 `yaml:"angle" json:"angle"`       // radians
}

// DefaultTolerance is 0.001 model units and one degree.
func DefaultTolerance() Tolerance {
	return Tolerance{Distance: 0.001, Angle: sdf.DtoR(1)}
}

// Validate reports non-positive or non-finite tolerances.
func (t Tolerance) Validate() error {
	if !(t.Distance > 0) || math.IsInf(t.Distance, 0) {
		return Errorf(InvalidInput, "tolerance", "distance must be positive and finite, got %g", t.Distance)
	}
	if !(t.Angle > 0) || t.Angle >= math.Pi {
		return Errorf(InvalidInput, "tolerance", "angle must be in (0, pi), got %g", t.Angle)
	}
	return nil
}
