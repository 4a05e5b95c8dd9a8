package catalog

import (
	"context"
	"slices"
)

// Application is a registered metric-reporting application.
type Application struct {
	Name  string `json:"name" yaml:"name"`
	AppID string `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	// Dependencies are library names whose metrics the application also
	// reports.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// LibraryNames is set when the repository is a library.
	LibraryNames []string `json:"library_names,omitempty" yaml:"library_names,omitempty"`
}

// MetricProbe is one registered instrumentation metric.
type MetricProbe struct {
	ID          string   `json:"id" yaml:"id"`
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	SendInPings []string `json:"send_in_pings" yaml:"send_in_pings"`
}

// SentIn reports whether the probe is recorded into the named ping.
func (p MetricProbe) SentIn(ping string) bool {
	return slices.Contains(p.SendInPings, ping)
}

// Catalog resolves applications and their metric probes. Implementations
// must be safe for concurrent use.
type Catalog interface {
	Applications(ctx context.Context) ([]Application, error)
	Probes(ctx context.Context, app Application) ([]MetricProbe, error)
}

// Lookup finds the application registered under name.
func Lookup(apps []Application, name string) (Application, bool) {
	for _, app := range apps {
		if app.Name == name {
			return app, true
		}
	}
	return Application{}, false
}
