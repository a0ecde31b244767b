package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/engine"
	"github.com/chazu/grain/pkg/kernel/sdfx"
	"github.com/chazu/grain/pkg/pattern"
	"github.com/chazu/grain/pkg/primitive"
	"github.com/chazu/grain/pkg/scene"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var examples = filepath.Join("..", "..", "examples")

// reportOpts ignores the fields that hold kernel internals.
var reportOpts = cmp.Options{
	cmpopts.IgnoreFields(pattern.Pattern{}, "Transform"),
	cmpopts.IgnoreFields(primitive.Primitive{}, "Profile"),
}

func loadBracket(t *testing.T) *scene.Scene {
	t.Helper()
	sc, err := scene.Load(filepath.Join(examples, "bracket.yaml"))
	require.NoError(t, err)
	return sc
}

func TestRunBracket(t *testing.T) {
	sc := loadBracket(t)

	report, err := Run(context.Background(), sc, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, report.Entries, sc.ItemCount())

	names := make([]string, len(report.Entries))
	for i, e := range report.Entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"bracket", "dome", "shaft", "ring", "bolts", "spokes", "studs"}, names)
	assert.InDelta(t, 2*3.141592653589793/180, report.Tolerance.Angle, 1e-15)

	bracket, ok := report.Entry("bracket")
	require.True(t, ok)
	assert.Equal(t, scene.ItemSolid, bracket.Kind)
	require.NotNil(t, bracket.Features)
	assert.NotEmpty(t, bracket.Features.Edges)
	assert.NotEmpty(t, bracket.Fits)

	shaft, _ := report.Entry("shaft")
	require.Len(t, shaft.Fits, 1)
	assert.Equal(t, primitive.Cylinder, shaft.Fits[0].Primitive.Kind)
	assert.Equal(t, primitive.Direct, shaft.Fits[0].Source)

	dome, _ := report.Entry("dome")
	require.Len(t, dome.Fits, 1)
	assert.Equal(t, primitive.Sphere, dome.Fits[0].Primitive.Kind)
	assert.Equal(t, primitive.Curvature, dome.Fits[0].Source)

	wantPatterns := map[string]pattern.Kind{
		"bolts":  pattern.Linear,
		"spokes": pattern.Radial,
		"studs":  pattern.Grid,
	}
	for name, want := range wantPatterns {
		e, _ := report.Entry(name)
		require.NotNil(t, e.Pattern, name)
		assert.Equal(t, want, e.Pattern.Kind, name)
	}
}

func TestRunOrderIndependentOfWorkers(t *testing.T) {
	sc := loadBracket(t)

	opts := DefaultOptions()
	opts.Workers = 1
	serial, err := Run(context.Background(), sc, opts)
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 0} {
		opts.Workers = workers
		parallel, err := Run(context.Background(), sc, opts)
		require.NoError(t, err)
		if diff := cmp.Diff(serial, parallel, reportOpts); diff != "" {
			t.Errorf("workers=%d: report differs (-serial +parallel):\n%s", workers, diff)
		}
	}
}

func TestYAMLAndScriptScanAlike(t *testing.T) {
	fromYAML := loadBracket(t)

	src, err := os.ReadFile(filepath.Join(examples, "bracket.lisp"))
	require.NoError(t, err)
	res, err := engine.NewEngine().Run(string(src))
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Scene)

	a, err := Run(context.Background(), fromYAML, DefaultOptions())
	require.NoError(t, err)
	b, err := Run(context.Background(), res.Scene, DefaultOptions())
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestRunRecordsItemErrors(t *testing.T) {
	sc := scene.New()
	sc.AddSurface(scene.Surface{Name: "bad-sphere", Surface: scene.SurfaceSpec{Kind: scene.SurfaceSphere, Radius: -1}})
	sc.AddSurface(scene.Surface{Name: "no-profile", Surface: scene.SurfaceSpec{Kind: scene.SurfaceExtrusion, Length: 1}})
	sc.AddPlacements(scene.Placements{Name: "pair", Points: []scene.Vec3{{0, 0, 0}, {1, 0, 0}}})
	sc.AddPlacements(scene.Placements{Name: "scatter", Points: []scene.Vec3{{0, 0, 0}, {1, 0, 0}, {1.5, 3, 0}, {-4, 0.2, 7}}})
	sc.AddPlacements(scene.Placements{Name: "row", Points: []scene.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}})

	report, err := Run(context.Background(), sc, DefaultOptions())
	require.NoError(t, err, "item failures must not fail the batch")

	want := map[string]string{
		"bad-sphere": classify.InvalidInput.String(),
		"no-profile": classify.InvalidInput.String(),
		"pair":       classify.InsufficientData.String(),
		"scatter":    classify.NoMatch.String(),
	}
	for name, kind := range want {
		e, ok := report.Entry(name)
		require.True(t, ok, name)
		require.NotNil(t, e.Error, name)
		assert.Equal(t, kind, e.Error.Kind, name)
		assert.NotEmpty(t, e.Error.Message, name)
	}
	noProfile, _ := report.Entry("no-profile")
	assert.Contains(t, noProfile.Error.Message, "extrusion has no profile")

	row, _ := report.Entry("row")
	assert.Nil(t, row.Error)
	require.NotNil(t, row.Pattern)
	assert.Equal(t, pattern.Linear, row.Pattern.Kind)

	assert.Len(t, report.Failed(), len(want))
	assert.Equal(t, "5 items, 4 failed", report.String())
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, loadBracket(t), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
	require.NotEmpty(t, report.Entries)
	for _, e := range report.Entries {
		require.NotNil(t, e.Error, e.Name)
		assert.Equal(t, KindCanceled, e.Error.Kind)
		assert.NotEmpty(t, e.Name)
	}
}

// cancelOn cancels a context when a record with the given message is
// logged.
type cancelOn struct {
	msg    string
	cancel context.CancelFunc
}

func (h cancelOn) Enabled(context.Context, slog.Level) bool { return true }

func (h cancelOn) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.cancel()
	}
	return nil
}

func (h cancelOn) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h cancelOn) WithGroup(string) slog.Handler      { return h }

func TestRunCanceledAfterScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := DefaultOptions()
	opts.Logger = slog.New(cancelOn{msg: "scan finished", cancel: cancel})
	report, err := Run(ctx, loadBracket(t), opts)
	require.Error(t, ctx.Err(), "context ends once every item ran")
	require.NoError(t, err)
	assert.Empty(t, report.Failed())
}

func TestRunRejectsBadSetup(t *testing.T) {
	_, err := Run(context.Background(), nil, DefaultOptions())
	assert.ErrorIs(t, err, classify.ErrInvalidInput)

	_, err = Run(context.Background(), scene.New(), Options{})
	assert.ErrorIs(t, err, classify.ErrInvalidInput, "zero config is not usable")

	sc := scene.New()
	sc.Tolerance = scene.ToleranceSpec{Distance: -1}
	_, err = Run(context.Background(), sc, DefaultOptions())
	assert.ErrorIs(t, err, classify.ErrInvalidInput)
}

func TestRunMeshes(t *testing.T) {
	sc := scene.New()
	sc.AddSurface(scene.Surface{Name: "ball", Surface: scene.SurfaceSpec{Kind: scene.SurfaceSphere, Radius: 2}})
	sc.AddSurface(scene.Surface{Name: "floor", Surface: scene.SurfaceSpec{Kind: scene.SurfacePlane, Extent: 1}})

	opts := DefaultOptions()
	opts.Meshes = true
	opts.Modeler = sdfx.New(sdfx.WithMeshCells(16))
	report, err := Run(context.Background(), sc, opts)
	require.NoError(t, err)

	ball, _ := report.Entry("ball")
	require.Nil(t, ball.Error)
	require.Len(t, ball.Meshes, 1)
	assert.False(t, ball.Meshes[0].IsEmpty())
	assert.True(t, strings.HasPrefix(ball.Meshes[0].Label, "ball "), ball.Meshes[0].Label)

	floor, _ := report.Entry("floor")
	assert.Empty(t, floor.Meshes, "planes have no closed preview")

	plain, err := Run(context.Background(), sc, DefaultOptions())
	require.NoError(t, err)
	for _, e := range plain.Entries {
		assert.Empty(t, e.Meshes, "meshes are opt-in")
	}
}

func TestRunLogs(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(context.Background(), loadBracket(t), opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "scan finished")
	assert.Contains(t, buf.String(), "item=bolts")
}
