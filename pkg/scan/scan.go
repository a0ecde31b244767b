// Package scan runs the classifiers over every item of a scene and collects
// the results into a report. Items are processed concurrently; a failing
// item is recorded in its entry and never aborts the batch.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/feature"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/kernel/sdfx"
	"github.com/chazu/grain/pkg/pattern"
	"github.com/chazu/grain/pkg/primitive"
	"github.com/chazu/grain/pkg/scene"
	"github.com/chazu/grain/pkg/tessellate"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// KindCanceled marks entries that were never scheduled because the context
// ended first.
const KindCanceled = "canceled"

// Options controls a scan.
type Options struct {
	Config  classify.Config
	Workers int  // <= 0 means GOMAXPROCS
	Meshes  bool // attach preview meshes to fitted primitives

	// Modeler tessellates previews when Meshes is set. Nil selects the
	// sdfx modeler.
	Modeler kernel.Modeler
	Logger  *slog.Logger
}

// DefaultOptions returns options with the default classifier configuration.
func DefaultOptions() Options {
	return Options{Config: classify.DefaultConfig()}
}

// ItemError is the failure recorded for one item.
type ItemError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Entry is the outcome for one scene item. Solids carry features and fits,
// surfaces a single fit, placement sets a pattern.
type Entry struct {
	Name     string           `json:"name"`
	Kind     scene.ItemKind   `json:"kind"`
	Features *feature.Result  `json:"features,omitempty"`
	Fits     []primitive.Fit  `json:"fits,omitempty"`
	Pattern  *pattern.Pattern `json:"pattern,omitempty"`
	Meshes   []*kernel.Mesh   `json:"meshes,omitempty"`
	Error    *ItemError       `json:"error,omitempty"`
}

// Report lists one entry per scene item, in scene order.
type Report struct {
	Tolerance classify.Tolerance `json:"tolerance"`
	Entries   []Entry            `json:"entries"`
}

// Failed returns the entries that recorded an error.
func (r Report) Failed() []Entry {
	return lo.Filter(r.Entries, func(e Entry, _ int) bool { return e.Error != nil })
}

// Entry returns the entry for the named item.
func (r Report) Entry(name string) (Entry, bool) {
	return lo.Find(r.Entries, func(e Entry) bool { return e.Name == name })
}

// item addresses one scene item by kind and position.
type item struct {
	kind  scene.ItemKind
	index int
	name  string
}

// plan lists the items of sc in scan order: solids, surfaces, then
// placement sets, each in declaration order.
func plan(sc *scene.Scene) []item {
	items := make([]item, 0, sc.ItemCount())
	for i, s := range sc.Solids {
		items = append(items, item{scene.ItemSolid, i, s.Name})
	}
	for i, s := range sc.Surfaces {
		items = append(items, item{scene.ItemSurface, i, s.Name})
	}
	for i, p := range sc.Placements {
		items = append(items, item{scene.ItemPlacements, i, p.Name})
	}
	return items
}

type scanner struct {
	sc       *scene.Scene
	tol      classify.Tolerance
	features *feature.Classifier
	fitter   *primitive.Fitter
	detector *pattern.Detector
	modeler  kernel.Modeler
	log      *slog.Logger
}

// Run classifies every item of sc. The returned error is non-nil only when
// the scan could not start (bad configuration or tolerance) or when ctx
// ended before every item was scheduled; in the latter case the report is
// still returned with the unscheduled entries marked canceled. A context
// that ends after the last item was scheduled does not fail the scan.
func Run(ctx context.Context, sc *scene.Scene, opts Options) (Report, error) {
	if sc == nil {
		return Report{}, classify.Errorf(classify.InvalidInput, "scan.Run", "nil scene")
	}
	if err := opts.Config.Validate(); err != nil {
		return Report{}, err
	}
	tol := sc.Tolerance.Tolerance()
	if err := tol.Validate(); err != nil {
		return Report{}, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &scanner{
		sc:       sc,
		tol:      tol,
		features: feature.NewClassifier(opts.Config, feature.WithLogger(log)),
		fitter:   primitive.NewFitter(opts.Config, primitive.WithLogger(log)),
		detector: pattern.NewDetector(opts.Config, pattern.WithLogger(log)),
		log:      log,
	}
	if opts.Meshes {
		s.modeler = opts.Modeler
		if s.modeler == nil {
			s.modeler = sdfx.New()
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	items := plan(sc)
	report := Report{Tolerance: tol, Entries: make([]Entry, len(items))}

	var (
		g        errgroup.Group
		canceled error
	)
	g.SetLimit(workers)
	for i, it := range items {
		entry := &report.Entries[i]
		entry.Name, entry.Kind = it.name, it.kind
		if err := ctx.Err(); err != nil {
			canceled = err
			entry.Error = itemError(err)
			continue
		}
		g.Go(func() error {
			s.scan(it, entry)
			return nil // item failures live in the entry
		})
	}
	_ = g.Wait()

	log.Debug("scan finished",
		slog.Int("items", len(items)),
		slog.Int("failed", len(report.Failed())),
		slog.Int("workers", workers))
	return report, canceled
}

// scan fills entry for one item.
func (s *scanner) scan(it item, entry *Entry) {
	var err error
	switch it.kind {
	case scene.ItemSolid:
		err = s.solid(s.sc.Solids[it.index], entry)
	case scene.ItemSurface:
		err = s.surface(s.sc.Surfaces[it.index], entry)
	case scene.ItemPlacements:
		err = s.placements(s.sc.Placements[it.index], entry)
	}
	if err == nil && s.modeler != nil && len(entry.Fits) > 0 {
		err = s.meshes(entry)
	}
	if err != nil {
		entry.Error = itemError(err)
	}
	s.log.Debug("item scanned",
		slog.String("item", it.name),
		slog.String("kind", it.kind.String()),
		slog.Any("err", err))
}

// solid runs both the edge classifier and the face decomposition. The
// first failure is reported; whatever succeeded is kept.
func (s *scanner) solid(sol scene.Solid, entry *Entry) error {
	b, err := scene.BuildSolid(sol)
	if err != nil {
		return buildError(err)
	}
	features, ferr := s.features.ClassifyEdges(b, s.tol)
	if ferr == nil {
		entry.Features = &features
	}
	fits, derr := s.fitter.Decompose(b, s.tol)
	if derr == nil {
		entry.Fits = fits
	}
	if ferr != nil {
		return ferr
	}
	return derr
}

func (s *scanner) surface(surf scene.Surface, entry *Entry) error {
	sf, err := scene.BuildSurface(surf.Surface)
	if err != nil {
		return buildError(err)
	}
	fit, err := s.fitter.Fit(sf, s.tol)
	if err != nil {
		return err
	}
	entry.Fits = []primitive.Fit{fit}
	return nil
}

func (s *scanner) placements(p scene.Placements, entry *Entry) error {
	pat, err := s.detector.Detect(p.Vecs(), s.tol)
	if err != nil {
		return err
	}
	entry.Pattern = &pat
	return nil
}

func (s *scanner) meshes(entry *Entry) error {
	meshes, err := tessellate.Tessellate(entry.Fits, s.modeler)
	if err != nil {
		return err
	}
	for _, m := range meshes {
		m.Label = entry.Name + " " + m.Label
	}
	entry.Meshes = meshes
	return nil
}

// buildError reports a scene spec the analytic kernel rejected as invalid
// input.
func buildError(err error) error {
	return &classify.Error{Kind: classify.InvalidInput, Op: "scene.Build", Err: err}
}

func itemError(err error) *ItemError {
	kind := "error"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = KindCanceled
	case classify.KindOf(err) != 0:
		kind = classify.KindOf(err).String()
	}
	return &ItemError{Kind: kind, Message: err.Error()}
}

// String summarises the report for logs.
func (r Report) String() string {
	return fmt.Sprintf("%d items, %d failed", len(r.Entries), len(r.Failed()))
}
