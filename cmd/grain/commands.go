package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/grain/pkg/classify"
	"github.com/chazu/grain/pkg/engine"
	"github.com/chazu/grain/pkg/kernel"
	"github.com/chazu/grain/pkg/kernel/manifold"
	"github.com/chazu/grain/pkg/kernel/sdfx"
	"github.com/chazu/grain/pkg/scan"
	"github.com/chazu/grain/pkg/scene"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// cli holds the flag values shared by every command.
type cli struct {
	logLevel   string
	logFormat  string
	configPath string
	timeout    time.Duration

	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "grain",
		Short:         "Recognize edge features, surface primitives and placement patterns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), c.logLevel, c.logFormat)
			if err != nil {
				return err
			}
			c.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "text", "log format (text or json)")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML threshold overrides")
	root.PersistentFlags().DurationVar(&c.timeout, "eval-timeout", engine.EvalTimeout, "time limit for evaluating a script")

	root.AddCommand(c.scanCmd(), c.evalCmd(), c.configCmd())
	return root
}

// newLogger builds the slog logger selected by the persistent flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lv}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("--log-format must be text or json, got %q", format)
}

func (c *cli) config() (classify.Config, error) {
	if c.configPath == "" {
		return classify.DefaultConfig(), nil
	}
	return classify.LoadConfig(c.configPath)
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func (c *cli) scanCmd() *cobra.Command {
	var (
		meshes  bool
		workers int
		modeler string
	)
	cmd := &cobra.Command{
		Use:   "scan <scene.yaml|script.lisp>",
		Short: "Classify every item in a scene and print a JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			var m kernel.Modeler
			if meshes {
				if m, err = newModeler(modeler); err != nil {
					return err
				}
			}
			sc, err := c.loadScene(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			report, err := scan.Run(ctx, sc, scan.Options{
				Config:  cfg,
				Workers: workers,
				Meshes:  meshes,
				Modeler: m,
				Logger:  c.log,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			c.log.Info("scan complete", slog.String("scene", args[0]), slog.String("report", report.String()))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if encErr := enc.Encode(report); encErr != nil {
				return encErr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&meshes, "meshes", false, "attach preview meshes to fitted primitives")
	cmd.Flags().IntVar(&workers, "workers", 0, "items classified concurrently (0 = one per CPU)")
	cmd.Flags().StringVar(&modeler, "modeler", "sdfx", "preview mesh backend (sdfx or manifold)")
	return cmd
}

// newModeler selects the preview backend by name.
func newModeler(name string) (kernel.Modeler, error) {
	switch name {
	case "sdfx":
		return sdfx.New(), nil
	case "manifold":
		return manifold.New()
	}
	return nil, fmt.Errorf("--modeler must be sdfx or manifold, got %q", name)
}

// ---------------------------------------------------------------------------
// eval
// ---------------------------------------------------------------------------

func (c *cli) evalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <script.lisp>",
		Short: "Evaluate a scene script and print the scene it builds as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := c.evalScript(args[0])
			if err != nil {
				return err
			}
			out, err := sc.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective classifier configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// ---------------------------------------------------------------------------
// Scene loading
// ---------------------------------------------------------------------------

// isScript reports whether path names a DSL script rather than a YAML scene.
func isScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy":
		return true
	}
	return false
}

func (c *cli) loadScene(path string) (*scene.Scene, error) {
	if isScript(path) {
		return c.evalScript(path)
	}
	sc, err := scene.Load(path)
	if err != nil {
		return nil, err
	}
	v := scene.ValidateAll(sc)
	for _, w := range v.Warnings {
		c.log.Warn("scene warning", slog.String("item", w.Item), slog.String("msg", w.Message))
	}
	if !v.OK() {
		return nil, joinAll(path, v.Errors)
	}
	return sc, nil
}

func (c *cli) evalScript(path string) (*scene.Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine(engine.WithTimeout(c.timeout), engine.WithLogger(c.log))
	res, err := eng.Run(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range res.Warnings {
		c.log.Warn("scene warning", slog.String("item", w.Item), slog.String("msg", w.Message))
	}
	if len(res.Errors) > 0 {
		return nil, joinAll(path, res.Errors)
	}
	return res.Scene, nil
}

// joinAll wraps every finding into one error prefixed with path.
func joinAll[E error](path string, errs []E) error {
	return fmt.Errorf("%s: %w", path, errors.Join(lo.Map(errs, func(e E, _ int) error { return e })...))
}
