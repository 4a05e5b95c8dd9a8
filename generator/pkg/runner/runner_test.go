package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/malbeclabs/viewgen/generator/pkg/namespaces"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
	"github.com/malbeclabs/viewgen/generator/pkg/views"
	viewgentesting "github.com/malbeclabs/viewgen/utils/pkg/testing"
)

const testNamespaces = `
fenix:
  glean_app: true
  channels:
    - channel: release
      dataset: org_mozilla_firefox
    - channel: beta
      dataset: org_mozilla_firefox_beta
  views:
    metrics:
      type: glean_ping_view
      tables:
        - table: org_mozilla_firefox.metrics_custom
telemetry:
  channels:
    - dataset: telemetry
  views:
    crash:
      type: ping_view
      tables:
        - table: telemetry.crash
`

type fakeGenerator struct {
	fail map[string]error
}

func (g *fakeGenerator) Generate(ctx context.Context, def views.Definition) (*lookml.View, error) {
	if err, ok := g.fail[def.Name]; ok {
		return nil, err
	}
	return &lookml.View{Name: def.Name, SQLTableName: def.Tables[0].Table}, nil
}

type fakeWriter struct {
	mu      sync.Mutex
	written map[string]*lookml.View
}

func (w *fakeWriter) WriteView(ctx context.Context, namespace string, view *lookml.View) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written == nil {
		w.written = make(map[string]*lookml.View)
	}
	w.written[namespace+"/"+view.Name] = view
	return nil
}

type fakeReferences struct {
	views schema.DBViews
	err   error
}

func (r *fakeReferences) DBViews(ctx context.Context, datasets []string) (schema.DBViews, error) {
	return r.views, r.err
}

func testConfig(t *testing.T) namespaces.Config {
	t.Helper()
	cfg, err := namespaces.Parse(strings.NewReader(testNamespaces))
	require.NoError(t, err)
	return cfg
}

func testReferences() *fakeReferences {
	return &fakeReferences{views: schema.DBViews{
		"org_mozilla_firefox": {
			"baseline":         {{"org_mozilla_firefox_stable", "baseline_v1"}},
			"metrics":          {{"org_mozilla_firefox_stable", "metrics_v1"}},
			"deletion_request": {{"org_mozilla_firefox_stable", "deletion_request_v1"}},
			"joined":           {{"org_mozilla_firefox_stable", "a_v1"}, {"org_mozilla_firefox_stable", "b_v1"}},
		},
		"org_mozilla_firefox_beta": {
			"baseline": {{"org_mozilla_firefox_beta_stable", "baseline_v1"}},
		},
		"telemetry": {
			"main": {{"telemetry_stable", "main_v4"}},
		},
	}}
}

func TestViewgen_Runner_Collect_ExplicitOnly(t *testing.T) {
	t.Parallel()

	defs, err := Collect(t.Context(), testConfig(t), nil)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	require.Equal(t, "metrics", defs[0].Name)
	require.Equal(t, "crash", defs[1].Name)
}

func TestViewgen_Runner_Collect_Discover(t *testing.T) {
	t.Parallel()

	defs, err := Collect(t.Context(), testConfig(t), testReferences())
	require.NoError(t, err)

	byName := make(map[string]views.Definition)
	var names []string
	for _, d := range defs {
		byName[d.Namespace+"/"+d.Name] = d
		names = append(names, d.Namespace+"/"+d.Name)
	}
	require.Equal(t, []string{"fenix/metrics", "fenix/baseline", "telemetry/crash", "telemetry/main"}, names)

	require.Equal(t, "org_mozilla_firefox.metrics_custom", byName["fenix/metrics"].Tables[0].Table, "explicit views win over discovered ones")
	require.Equal(t, views.TypeGleanPingView, byName["fenix/baseline"].Type)
	require.Equal(t, []views.Table{
		{Channel: "release", Table: "org_mozilla_firefox.baseline"},
		{Channel: "beta", Table: "org_mozilla_firefox_beta.baseline"},
	}, byName["fenix/baseline"].Tables)
	require.Equal(t, views.TypePingView, byName["telemetry/main"].Type)
}

func TestViewgen_Runner_Collect_ReferenceError(t *testing.T) {
	t.Parallel()

	_, err := Collect(t.Context(), testConfig(t), &fakeReferences{err: errors.New("boom")})
	require.ErrorContains(t, err, "failed to load dataset views")
}

func TestViewgen_Runner_Run(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	result, err := Run(t.Context(), Config{
		Logger:      viewgentesting.NewLogger(),
		Namespaces:  testConfig(t),
		Generator:   &fakeGenerator{},
		Writer:      writer,
		References:  testReferences(),
		Concurrency: 2,
		Clock:       clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"fenix/baseline", "fenix/metrics", "telemetry/crash", "telemetry/main"}, result.Generated)
	require.Len(t, writer.written, 4)
}

func TestViewgen_Runner_Run_IsolatesFailures(t *testing.T) {
	t.Parallel()

	collision := &lookml.NameCollisionError{Kind: "dimension", Names: []string{"a"}, Table: "telemetry.crash"}
	writer := &fakeWriter{}
	result, err := Run(t.Context(), Config{
		Logger:     viewgentesting.NewLogger(),
		Namespaces: testConfig(t),
		Generator:  &fakeGenerator{fail: map[string]error{"crash": collision}},
		Writer:     writer,
	})
	require.Error(t, err)

	var runErr *Error
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.Failures, 1)
	require.Equal(t, "telemetry", runErr.Failures[0].Namespace)
	require.Equal(t, "crash", runErr.Failures[0].View)
	require.ErrorIs(t, err, lookml.ErrNameCollision)
	require.Contains(t, err.Error(), "telemetry/crash")

	require.Equal(t, []string{"fenix/metrics"}, result.Generated)
	require.Contains(t, writer.written, "fenix/metrics")
	require.NotContains(t, writer.written, "telemetry/crash")
}

func TestViewgen_Runner_Run_MetricsTextfile(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "viewgen_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	path := filepath.Join(t.TempDir(), "viewgen.prom")
	_, err := Run(t.Context(), Config{
		Logger:          viewgentesting.NewLogger(),
		Namespaces:      testConfig(t),
		Generator:       &fakeGenerator{},
		Writer:          &fakeWriter{},
		MetricsTextfile: path,
		Gatherer:        reg,
	})
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestViewgen_Runner_Config_Validate(t *testing.T) {
	t.Parallel()

	cfg := Config{Generator: &fakeGenerator{}, Writer: &fakeWriter{}}
	require.ErrorContains(t, cfg.Validate(), "logger is required")

	cfg.Logger = viewgentesting.NewLogger()
	require.NoError(t, cfg.Validate())
	require.Equal(t, defaultConcurrency, cfg.Concurrency)
	require.NotNil(t, cfg.Clock)

	cfg.Concurrency = -1
	require.Error(t, cfg.Validate())
}
