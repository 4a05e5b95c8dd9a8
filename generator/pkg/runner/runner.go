package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/malbeclabs/viewgen/generator/pkg/metrics"
	"github.com/malbeclabs/viewgen/generator/pkg/namespaces"
	"github.com/malbeclabs/viewgen/generator/pkg/output"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
	"github.com/malbeclabs/viewgen/generator/pkg/views"
)

const defaultConcurrency = 4

type Config struct {
	Logger     *slog.Logger
	Namespaces namespaces.Config
	Generator  views.Generator
	Writer     output.Writer

	// References enables discovery of ping views from the channel datasets.
	References schema.ReferenceCatalog

	Concurrency int
	Clock       clockwork.Clock

	// ReportErrors sends per-view failures to Sentry.
	ReportErrors bool
	// MetricsTextfile, if set, receives the Prometheus registry after the run.
	MetricsTextfile string
	Gatherer        prometheus.Gatherer
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	if cfg.Writer == nil {
		return errors.New("writer is required")
	}
	if cfg.Concurrency < 0 {
		return errors.New("concurrency must be non-negative")
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return nil
}

// Failure records a view that could not be generated or written.
type Failure struct {
	Namespace string
	View      string
	Err       error
}

// Error aggregates every failed view of a run.
type Error struct {
	Failures []Failure
}

func (e *Error) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Namespace + "/" + f.View
	}
	return fmt.Sprintf("%d views failed: %s", len(e.Failures), strings.Join(names, ", "))
}

func (e *Error) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Result summarizes a run.
type Result struct {
	Generated []string
	Failures  []Failure
}

// Run generates and writes every view of every namespace. A failing view does
// not stop the others; the returned error is an *Error listing them.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger

	defs, err := Collect(ctx, cfg.Namespaces, cfg.References)
	if err != nil {
		return nil, err
	}
	log.Info("runner: generating views", "count", len(defs), "concurrency", cfg.Concurrency)

	var (
		mu     sync.Mutex
		result Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, def := range defs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			err := generate(gctx, cfg, def)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, Failure{Namespace: def.Namespace, View: def.Name, Err: err})
				return nil
			}
			result.Generated = append(result.Generated, def.Namespace+"/"+def.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.Sort(result.Generated)
	slices.SortFunc(result.Failures, func(a, b Failure) int {
		return strings.Compare(a.Namespace+"/"+a.View, b.Namespace+"/"+b.View)
	})

	if cfg.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfile, cfg.Gatherer); err != nil {
			log.Warn("runner: failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}

	log.Info("runner: done", "generated", len(result.Generated), "failed", len(result.Failures))
	if len(result.Failures) > 0 {
		return &result, &Error{Failures: result.Failures}
	}
	return &result, nil
}

func generate(ctx context.Context, cfg Config, def views.Definition) error {
	log := cfg.Logger.With("namespace", def.Namespace, "view", def.Name, "type", def.Type)
	start := cfg.Clock.Now()

	view, err := cfg.Generator.Generate(ctx, def)
	if err == nil {
		err = cfg.Writer.WriteView(ctx, def.Namespace, view)
	}
	metrics.ViewGenerationDuration.WithLabelValues(def.Type).Observe(cfg.Clock.Since(start).Seconds())

	if err != nil {
		metrics.ViewsGeneratedTotal.WithLabelValues(def.Type, "error").Inc()
		log.Error("runner: view failed", "error", err)
		if cfg.ReportErrors {
			report(def, err)
		}
		return err
	}
	metrics.ViewsGeneratedTotal.WithLabelValues(def.Type, "success").Inc()
	log.Debug("runner: view generated", "dimensions", len(view.Dimensions), "measures", len(view.Measures))
	return nil
}

func report(def views.Definition, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("namespace", def.Namespace)
		scope.SetTag("view", def.Name)
		scope.SetTag("view_type", def.Type)
		var collision *lookml.NameCollisionError
		if errors.As(err, &collision) {
			scope.SetExtra("duplicates", collision.Names)
		}
		hub.CaptureException(err)
	})
}

// Collect returns the explicit views of every namespace followed by the
// discovered ones. Discovered views never replace an explicit view of the
// same name. With a nil refs only explicit views are returned.
func Collect(ctx context.Context, cfg namespaces.Config, refs schema.ReferenceCatalog) ([]views.Definition, error) {
	var dbViews schema.DBViews
	if refs != nil {
		var err error
		dbViews, err = refs.DBViews(ctx, cfg.Datasets())
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset views: %w", err)
		}
	}

	var defs []views.Definition
	for _, name := range cfg.Names() {
		ns := cfg[name]
		explicit := cfg.Definitions(name)
		defs = append(defs, explicit...)
		if dbViews == nil {
			continue
		}

		seen := make(map[string]bool, len(explicit))
		for _, d := range explicit {
			seen[d.Name] = true
		}
		for _, viewType := range []string{views.TypePingView, views.TypeGleanPingView} {
			for _, d := range views.DiscoverPingViews(viewType, ns.GleanApp, name, ns.AppName, ns.Channels, dbViews) {
				if seen[d.Name] {
					continue
				}
				seen[d.Name] = true
				defs = append(defs, d)
			}
		}
	}
	return defs, nil
}
