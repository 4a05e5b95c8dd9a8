package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/viewgen/generator/pkg/catalog"
	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/malbeclabs/viewgen/generator/pkg/metrics"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
)

var distributionTypes = map[string]bool{
	"timing_distribution": true,
	"memory_distribution": true,
	"custom_distribution": true,
}

var allowedTypes = map[string]bool{
	"boolean":             true,
	"counter":             true,
	"datetime":            true,
	"jwe":                 true,
	"quantity":            true,
	"string":              true,
	"rate":                true,
	"timespan":            true,
	"uuid":                true,
	"timing_distribution": true,
	"memory_distribution": true,
	"custom_distribution": true,
}

// candidateNames expands a probe into the column names it may appear under.
// Types outside the allowed vocabulary have none.
func candidateNames(p catalog.MetricProbe) []lookml.MetricName {
	switch {
	case p.Type == "rate":
		return []lookml.MetricName{
			lookml.NewMetricName(p.Type, p.ID, "numerator"),
			lookml.NewMetricName(p.Type, p.ID, "denominator"),
		}
	case distributionTypes[p.Type]:
		return []lookml.MetricName{lookml.NewMetricName(p.Type, p.ID, "sum")}
	case p.Type == "timespan":
		return []lookml.MetricName{lookml.NewMetricName(p.Type, p.ID, "value")}
	case allowedTypes[p.Type]:
		return []lookml.MetricName{lookml.NewMetricName(p.Type, p.ID, "")}
	default:
		return nil
	}
}

type GleanPingConfig struct {
	Logger    *slog.Logger
	Flattener schema.Flattener
	Catalog   catalog.Catalog
}

func (cfg *GleanPingConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Flattener == nil {
		return errors.New("flattener is required")
	}
	if cfg.Catalog == nil {
		return errors.New("catalog is required")
	}
	return nil
}

// GleanPingGenerator extends the ping view with the application's registered
// metrics: labelled and documented metric dimensions, plus a sum and a client
// count measure for every counter.
type GleanPingGenerator struct {
	log *slog.Logger
	cfg GleanPingConfig
}

func NewGleanPingGenerator(cfg GleanPingConfig) (*GleanPingGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GleanPingGenerator{log: cfg.Logger, cfg: cfg}, nil
}

// metricDimension is a dimension materialized from a catalog probe.
type metricDimension struct {
	lookml.Dimension
	metric lookml.MetricName
}

func (g *GleanPingGenerator) Generate(ctx context.Context, def Definition) (*lookml.View, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	table := representativeTable(def.Tables)

	columns, err := g.cfg.Flattener.Flatten(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions of %s: %w", table, err)
	}

	probes, err := g.pingProbes(ctx, def)
	if err != nil {
		return nil, err
	}

	metricDims := materialize(def.Namespace, probes, columns)
	dims := make([]lookml.Dimension, 0, len(columns))
	materialized := make(map[string]bool, len(metricDims))
	for _, md := range metricDims {
		dims = append(dims, md.Dimension)
		materialized[md.Name] = true
	}
	for _, c := range columns {
		if materialized[c.Name] {
			continue
		}
		if !lookml.IsLabeledMetric(c.Name) {
			c.Links = lookml.ColumnLinks(def.Namespace, c.Name)
		}
		dims = append(dims, c)
	}

	measures, err := pingMeasures(table, dims)
	if err != nil {
		return nil, err
	}
	counters, err := counterMeasures(def.Namespace, table, dims, metricDims)
	if err != nil {
		return nil, err
	}
	measures = append(measures, counters...)
	if err := lookml.CheckMeasureNames(table, measures); err != nil {
		return nil, err
	}

	g.log.Debug("views: generated glean ping view", "view", def.Name, "table", table,
		"probes", len(probes), "metric_dimensions", len(metricDims), "dimensions", len(dims), "measures", len(measures))
	return assemble(def, table, dims, measures)
}

// pingProbes returns the application's probes recorded into this ping,
// deduplicated by id. A missing application contributes no probes.
func (g *GleanPingGenerator) pingProbes(ctx context.Context, def Definition) ([]catalog.MetricProbe, error) {
	if def.AppName == "" {
		g.log.Error("views: missing application name", "view", def.Name, "namespace", def.Namespace)
		metrics.MissingCatalogEntriesTotal.Inc()
		return nil, nil
	}

	apps, err := g.cfg.Catalog.Applications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog applications: %w", err)
	}
	app, ok := catalog.Lookup(apps, def.AppName)
	if !ok {
		g.log.Error("views: application not in metric catalog", "view", def.Name, "namespace", def.Namespace, "app", def.AppName)
		metrics.MissingCatalogEntriesTotal.Inc()
		return nil, nil
	}

	all, err := g.cfg.Catalog.Probes(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("failed to get probes of %s: %w", app.Name, err)
	}

	var probes []catalog.MetricProbe
	seen := make(map[string]bool, len(all))
	for _, p := range all {
		if !p.SentIn(def.Name) || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		probes = append(probes, p)
	}
	return probes, nil
}

// materialize turns probes into dimensions for the candidates that exist as
// flattened columns. Candidates without a column are dropped.
func materialize(namespace string, probes []catalog.MetricProbe, columns []lookml.Dimension) []metricDimension {
	byName := make(map[string]lookml.Dimension, len(columns))
	for _, c := range columns {
		if c.Type == "" {
			c.Type = "string"
		}
		byName[c.Name] = c
	}

	var dims []metricDimension
	for _, p := range probes {
		for _, m := range candidateNames(p) {
			col, ok := byName[m.String()]
			if !ok {
				continue
			}
			dims = append(dims, metricDimension{
				Dimension: lookml.Dimension{
					Name:           col.Name,
					Type:           col.Type,
					SQL:            col.SQL,
					Datatype:       col.Datatype,
					Timeframes:     col.Timeframes,
					Description:    p.Description,
					GroupLabel:     m.GroupLabel(),
					GroupItemLabel: m.GroupItemLabel(),
					Links:          m.Links(namespace),
				},
				metric: m,
			})
		}
	}
	return dims
}

// counterMeasures adds, for each counter metric dimension, the sum of the
// counter and the number of clients that reported it as positive.
func counterMeasures(namespace, table string, dims []lookml.Dimension, metricDims []metricDimension) ([]lookml.Measure, error) {
	var measures []lookml.Measure
	var clientID string
	for _, md := range metricDims {
		if lookml.MetricType(md.Name) != "counter" {
			continue
		}
		if clientID == "" {
			var err error
			if clientID, err = clientIDField(table, dims); err != nil {
				return nil, err
			}
		}
		links := md.metric.Links(namespace)
		measures = append(measures,
			lookml.Measure{
				Name:  md.metric.Leaf,
				Type:  lookml.MeasureSum,
				SQL:   lookml.FieldRef(md.Name),
				Links: links,
			},
			lookml.Measure{
				Name:    md.metric.Leaf + "_client_count",
				Type:    lookml.MeasureCountDistinct,
				SQL:     lookml.FieldRef(clientID),
				Filters: []lookml.Filter{{Field: md.Name, Value: ">0"}},
				Links:   links,
			},
		)
	}
	return measures, nil
}
