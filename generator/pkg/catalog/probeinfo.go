package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/malbeclabs/viewgen/generator/pkg/metrics"
	"github.com/malbeclabs/viewgen/utils/pkg/retry"
)

const DefaultProbeInfoURL = "https://probeinfo.telemetry.mozilla.org"

// HTTPError is a non-2xx probeinfo response.
type HTTPError struct {
	URL    string
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

func (e *HTTPError) StatusCode() int {
	return e.Status
}

type ProbeInfoConfig struct {
	Logger     *slog.Logger
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerSecond caps the request rate against the service.
	RequestsPerSecond float64
	Retry             retry.Config
}

func (cfg *ProbeInfoConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultProbeInfoURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return fmt.Errorf("invalid probeinfo url: %w", err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return nil
}

// ProbeInfoClient reads applications and metrics from the probeinfo API.
type ProbeInfoClient struct {
	log     *slog.Logger
	cfg     ProbeInfoConfig
	limiter *rate.Limiter
}

func NewProbeInfoClient(cfg ProbeInfoConfig) (*ProbeInfoClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ProbeInfoClient{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}, nil
}

// Applications lists every repository, applications and libraries alike.
func (c *ProbeInfoClient) Applications(ctx context.Context) ([]Application, error) {
	var apps []Application
	if err := c.get(ctx, "repositories", "/glean/repositories", &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// Probes returns the metrics of app followed by those of the libraries it
// depends on. Ids may repeat across the two.
func (c *ProbeInfoClient) Probes(ctx context.Context, app Application) ([]MetricProbe, error) {
	probes, err := c.repositoryProbes(ctx, app.Name)
	if err != nil {
		return nil, err
	}
	if len(app.Dependencies) == 0 {
		return probes, nil
	}

	apps, err := c.Applications(ctx)
	if err != nil {
		return nil, err
	}
	for _, dep := range app.Dependencies {
		lib, ok := findLibrary(apps, dep)
		if !ok {
			c.log.Warn("catalog: dependency not found", "app", app.Name, "dependency", dep)
			continue
		}
		libProbes, err := c.repositoryProbes(ctx, lib.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to get probes of dependency %s: %w", dep, err)
		}
		probes = append(probes, libProbes...)
	}
	return probes, nil
}

func findLibrary(apps []Application, name string) (Application, bool) {
	for _, a := range apps {
		if slices.Contains(a.LibraryNames, name) {
			return a, true
		}
	}
	return Application{}, false
}

type metricDefinition struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	SendInPings []string `json:"send_in_pings"`
	Dates       struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"dates"`
}

type metricEntry struct {
	History []metricDefinition `json:"history"`
}

func (c *ProbeInfoClient) repositoryProbes(ctx context.Context, repo string) ([]MetricProbe, error) {
	var entries map[string]metricEntry
	if err := c.get(ctx, "metrics", "/glean/"+url.PathEscape(repo)+"/metrics", &entries); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	probes := make([]MetricProbe, 0, len(ids))
	for _, id := range ids {
		def, ok := latest(entries[id].History)
		if !ok {
			continue
		}
		probes = append(probes, MetricProbe{
			ID:          id,
			Type:        def.Type,
			Description: def.Description,
			SendInPings: def.SendInPings,
		})
	}
	return probes, nil
}

// latest returns the most recently seen definition. Dates are ISO formatted
// so they order lexically.
func latest(history []metricDefinition) (metricDefinition, bool) {
	if len(history) == 0 {
		return metricDefinition{}, false
	}
	best := history[0]
	for _, d := range history[1:] {
		if d.Dates.Last > best.Dates.Last {
			best = d
		}
	}
	return best, true
}

func (c *ProbeInfoClient) get(ctx context.Context, endpoint, path string, out any) error {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path

	retryCfg := c.cfg.Retry
	retryCfg.OnRetry = func(attempt int, err error) {
		c.log.Warn("catalog: retrying request", "url", u, "attempt", attempt, "error", err)
	}

	return retry.Do(ctx, retryCfg, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.cfg.HTTPClient.Do(req)
		if err != nil {
			metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "error").Inc()
			return fmt.Errorf("GET %s: %w", u, err)
		}
		defer resp.Body.Close()

		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &HTTPError{URL: u, Status: resp.StatusCode}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s: %w", u, err)
		}
		return nil
	})
}
