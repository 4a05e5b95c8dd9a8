package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/viewgen/generator/pkg/catalog"
	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
)

// View types.
const (
	TypePingView      = "ping_view"
	TypeGleanPingView = "glean_ping_view"
)

// Table is one channel variant of a view.
type Table struct {
	Channel string `yaml:"channel,omitempty"`
	Table   string `yaml:"table"`
}

// Definition identifies a view to generate.
type Definition struct {
	Name      string
	Type      string
	Namespace string
	// AppName is the metric catalog key of the owning application.
	AppName string
	Tables  []Table
}

func (d Definition) validate() error {
	if d.Name == "" {
		return errors.New("view name is required")
	}
	if len(d.Tables) == 0 {
		return fmt.Errorf("view %q has no tables", d.Name)
	}
	return nil
}

// Generator turns a view definition into a view.
type Generator interface {
	Generate(ctx context.Context, def Definition) (*lookml.View, error)
}

type RegistryConfig struct {
	Logger    *slog.Logger
	Flattener schema.Flattener
	// Catalog is only needed for glean ping views.
	Catalog catalog.Catalog
}

func (cfg *RegistryConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Flattener == nil {
		return errors.New("flattener is required")
	}
	return nil
}

// Registry resolves the generator for a view type.
type Registry struct {
	generators map[string]Generator
}

func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ping, err := NewPingGenerator(PingConfig{Logger: cfg.Logger, Flattener: cfg.Flattener})
	if err != nil {
		return nil, err
	}
	generators := map[string]Generator{TypePingView: ping}

	if cfg.Catalog != nil {
		glean, err := NewGleanPingGenerator(GleanPingConfig{Logger: cfg.Logger, Flattener: cfg.Flattener, Catalog: cfg.Catalog})
		if err != nil {
			return nil, err
		}
		generators[TypeGleanPingView] = glean
	}
	return &Registry{generators: generators}, nil
}

// Generator returns the generator for viewType.
func (r *Registry) Generator(viewType string) (Generator, error) {
	g, ok := r.generators[viewType]
	if !ok {
		return nil, fmt.Errorf("no generator for view type %q", viewType)
	}
	return g, nil
}

// Generate resolves the generator for def.Type and runs it.
func (r *Registry) Generate(ctx context.Context, def Definition) (*lookml.View, error) {
	g, err := r.Generator(def.Type)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, def)
}

// representativeTable picks the table whose schema describes the view: the
// release channel if there is one, otherwise the first variant.
func representativeTable(tables []Table) string {
	for _, t := range tables {
		if t.Channel == "release" {
			return t.Table
		}
	}
	return tables[0].Table
}

// assemble checks dimension names and builds the final view.
func assemble(def Definition, table string, dims []lookml.Dimension, measures []lookml.Measure) (*lookml.View, error) {
	if err := lookml.CheckDimensionNames(table, dims); err != nil {
		return nil, err
	}

	view := &lookml.View{Name: def.Name, Measures: measures}
	view.Dimensions, view.DimensionGroups = lookml.SplitDimensionGroups(dims)

	if len(def.Tables) > 1 {
		values := make([]lookml.AllowedValue, len(def.Tables))
		for i, t := range def.Tables {
			values[i] = lookml.AllowedValue{Label: lookml.ChannelLabel(t.Channel), Value: t.Table}
		}
		view.Parameters = []lookml.Parameter{{Name: "channel", Type: "unquoted", AllowedValues: values}}
		view.SQLTableName = "{% parameter channel %}"
	} else {
		view.SQLTableName = table
	}
	return view, nil
}
