package catalog

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"
)

const applicationsKey = "\x00applications"

// Memo wraps a Catalog so that one generation run fetches the application
// list and each application's probes at most once. Concurrent callers share
// the in-flight request. Errors are not remembered, so a later call retries.
type Memo struct {
	catalog Catalog
	group   singleflight.Group

	mu     sync.Mutex
	apps   []Application
	probes map[string][]MetricProbe
}

func NewMemo(c Catalog) *Memo {
	return &Memo{catalog: c, probes: make(map[string][]MetricProbe)}
}

func (m *Memo) Applications(ctx context.Context) ([]Application, error) {
	m.mu.Lock()
	apps := m.apps
	m.mu.Unlock()
	if apps != nil {
		return slices.Clone(apps), nil
	}

	v, err, _ := m.group.Do(applicationsKey, func() (any, error) {
		apps, err := m.catalog.Applications(ctx)
		if err != nil {
			return nil, err
		}
		if apps == nil {
			apps = []Application{}
		}
		m.mu.Lock()
		m.apps = apps
		m.mu.Unlock()
		return apps, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]Application)), nil
}

func (m *Memo) Probes(ctx context.Context, app Application) ([]MetricProbe, error) {
	m.mu.Lock()
	probes, ok := m.probes[app.Name]
	m.mu.Unlock()
	if ok {
		return slices.Clone(probes), nil
	}

	v, err, _ := m.group.Do("probes/"+app.Name, func() (any, error) {
		probes, err := m.catalog.Probes(ctx, app)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.probes[app.Name] = probes
		m.mu.Unlock()
		return probes, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]MetricProbe)), nil
}
