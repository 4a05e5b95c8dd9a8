package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
)

var clientIDFields = map[string]bool{
	"client_id":              true,
	"client_info__client_id": true,
}

const documentIDField = "document_id"

type PingConfig struct {
	Logger    *slog.Logger
	Flattener schema.Flattener
}

func (cfg *PingConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Flattener == nil {
		return errors.New("flattener is required")
	}
	return nil
}

// PingGenerator builds views over ping tables: every flattened column is a
// dimension, and the client and document identifiers become the clients and
// ping_count measures.
type PingGenerator struct {
	log *slog.Logger
	cfg PingConfig
}

func NewPingGenerator(cfg PingConfig) (*PingGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PingGenerator{log: cfg.Logger, cfg: cfg}, nil
}

func (g *PingGenerator) Generate(ctx context.Context, def Definition) (*lookml.View, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	table := representativeTable(def.Tables)

	dims, err := g.cfg.Flattener.Flatten(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions of %s: %w", table, err)
	}

	measures, err := pingMeasures(table, dims)
	if err != nil {
		return nil, err
	}

	g.log.Debug("views: generated ping view", "view", def.Name, "table", table, "dimensions", len(dims), "measures", len(measures))
	return assemble(def, table, dims, measures)
}

// pingMeasures derives the identity measures from dims. A table with neither
// a client nor a document identifier cannot be summarized.
func pingMeasures(table string, dims []lookml.Dimension) ([]lookml.Measure, error) {
	var measures []lookml.Measure
	for _, d := range dims {
		switch {
		case clientIDFields[d.Name]:
			measures = append(measures, lookml.Measure{
				Name: "clients",
				Type: lookml.MeasureCountDistinct,
				SQL:  lookml.FieldRef(d.Name),
			})
		case d.Name == documentIDField:
			measures = append(measures, lookml.Measure{
				Name: "ping_count",
				Type: lookml.MeasureCount,
			})
		}
	}

	if err := lookml.CheckMeasureNames(table, measures); err != nil {
		return nil, err
	}
	if len(measures) == 0 {
		return nil, &lookml.ConfigurationError{Table: table, Message: "Missing client_id and doc_id dimensions"}
	}
	return measures, nil
}

// clientIDField returns the first client identifier dimension.
func clientIDField(table string, dims []lookml.Dimension) (string, error) {
	for _, d := range dims {
		if clientIDFields[d.Name] {
			return d.Name, nil
		}
	}
	return "", &lookml.ConfigurationError{Table: table, Message: "Missing client_id dimension"}
}
