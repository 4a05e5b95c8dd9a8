package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCatalog struct {
	apps       []Application
	probes     map[string][]MetricProbe
	appCalls   atomic.Int32
	probeCalls atomic.Int32
	failFirstN int32
}

func (c *countingCatalog) Applications(ctx context.Context) ([]Application, error) {
	if c.appCalls.Add(1) <= c.failFirstN {
		return nil, errors.New("unavailable")
	}
	return c.apps, nil
}

func (c *countingCatalog) Probes(ctx context.Context, app Application) ([]MetricProbe, error) {
	c.probeCalls.Add(1)
	return c.probes[app.Name], nil
}

func TestViewgen_Catalog_Memo(t *testing.T) {
	t.Parallel()

	inner := &countingCatalog{
		apps: []Application{{Name: "fenix"}, {Name: "focus"}},
		probes: map[string][]MetricProbe{
			"fenix": {{ID: "app.foo", Type: "counter", SendInPings: []string{"metrics"}}},
			"focus": {{ID: "app.bar", Type: "string", SendInPings: []string{"baseline"}}},
		},
	}
	memo := NewMemo(inner)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			apps, err := memo.Applications(t.Context())
			if !assert.NoError(t, err) {
				return
			}
			assert.Len(t, apps, 2)
			for _, app := range apps {
				probes, err := memo.Probes(t.Context(), app)
				assert.NoError(t, err)
				assert.Len(t, probes, 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), inner.appCalls.Load())
	require.Equal(t, int32(2), inner.probeCalls.Load())

	apps, err := memo.Applications(t.Context())
	require.NoError(t, err)
	apps[0].Name = "changed"
	again, err := memo.Applications(t.Context())
	require.NoError(t, err)
	require.Equal(t, "fenix", again[0].Name, "callers get their own copy")
}

func TestViewgen_Catalog_Memo_ErrorsAreRetried(t *testing.T) {
	t.Parallel()

	inner := &countingCatalog{apps: []Application{{Name: "fenix"}}, failFirstN: 1}
	memo := NewMemo(inner)

	_, err := memo.Applications(t.Context())
	require.Error(t, err)

	apps, err := memo.Applications(t.Context())
	require.NoError(t, err)
	require.Equal(t, []Application{{Name: "fenix"}}, apps)
	require.Equal(t, int32(2), inner.appCalls.Load())
}

func TestViewgen_Catalog_Memo_ProbeInfo(t *testing.T) {
	t.Parallel()

	srv, calls := newProbeInfoServer(t, 0)
	memo := NewMemo(newTestClient(t, srv.URL))

	for range 3 {
		apps, err := memo.Applications(t.Context())
		require.NoError(t, err)
		app, ok := Lookup(apps, "fenix")
		require.True(t, ok)
		_, err = memo.Probes(t.Context(), app)
		require.NoError(t, err)
	}
	// One listing from the memo plus one made once while resolving
	// fenix's dependencies.
	require.Equal(t, int32(2), calls.Load())
}
