package views

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/malbeclabs/viewgen/generator/pkg/catalog"
	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	viewgentesting "github.com/malbeclabs/viewgen/utils/pkg/testing"
	"github.com/stretchr/testify/require"
)

type fakeFlattener struct {
	tables map[string][]lookml.Dimension
	calls  atomic.Int32
	last   atomic.Value
}

func (f *fakeFlattener) Flatten(ctx context.Context, table string) ([]lookml.Dimension, error) {
	f.calls.Add(1)
	f.last.Store(table)
	dims, ok := f.tables[table]
	if !ok {
		return nil, fmt.Errorf("table %s not found", table)
	}
	return append([]lookml.Dimension(nil), dims...), nil
}

type fakeCatalog struct {
	apps   []catalog.Application
	probes map[string][]catalog.MetricProbe
	err    error
}

func (c *fakeCatalog) Applications(ctx context.Context) ([]catalog.Application, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.apps, nil
}

func (c *fakeCatalog) Probes(ctx context.Context, app catalog.Application) ([]catalog.MetricProbe, error) {
	return c.probes[app.Name], nil
}

func newFakeCatalog(app string, probes ...catalog.MetricProbe) *fakeCatalog {
	return &fakeCatalog{
		apps:   []catalog.Application{{Name: app}},
		probes: map[string][]catalog.MetricProbe{app: probes},
	}
}

func col(name string) lookml.Dimension {
	return lookml.Dimension{Name: name, Type: "string", SQL: "${TABLE}." + name}
}

func typedCol(name, typ string) lookml.Dimension {
	return lookml.Dimension{Name: name, Type: typ, SQL: "${TABLE}." + name}
}

func newGlean(t *testing.T, flattener *fakeFlattener, cat catalog.Catalog) *GleanPingGenerator {
	t.Helper()
	g, err := NewGleanPingGenerator(GleanPingConfig{
		Logger:    viewgentesting.NewLogger(),
		Flattener: flattener,
		Catalog:   cat,
	})
	require.NoError(t, err)
	return g
}

func newPing(t *testing.T, flattener *fakeFlattener) *PingGenerator {
	t.Helper()
	g, err := NewPingGenerator(PingConfig{Logger: viewgentesting.NewLogger(), Flattener: flattener})
	require.NoError(t, err)
	return g
}

func dimensionNames(dims []lookml.Dimension) []string {
	out := make([]string, len(dims))
	for i, d := range dims {
		out[i] = d.Name
	}
	return out
}

func measureNames(measures []lookml.Measure) []string {
	out := make([]string, len(measures))
	for i, m := range measures {
		out[i] = m.Name
	}
	return out
}

func findDimension(t *testing.T, dims []lookml.Dimension, name string) lookml.Dimension {
	t.Helper()
	for _, d := range dims {
		if d.Name == name {
			return d
		}
	}
	require.Failf(t, "dimension not found", "%s", name)
	return lookml.Dimension{}
}

func findMeasure(t *testing.T, measures []lookml.Measure, name string) lookml.Measure {
	t.Helper()
	for _, m := range measures {
		if m.Name == name {
			return m
		}
	}
	require.Failf(t, "measure not found", "%s", name)
	return lookml.Measure{}
}
