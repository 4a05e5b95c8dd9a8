package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/malbeclabs/viewgen/generator/pkg/clickhouse"
	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
)

// Flattener lists the flattened columns of a table as dimensions. Nested
// paths are joined with "__". Implementations must be deterministic and
// preserve table column order.
type Flattener interface {
	Flatten(ctx context.Context, table string) ([]lookml.Dimension, error)
}

type ClickHouseFlattenerConfig struct {
	Logger     *slog.Logger
	ClickHouse clickhouse.Client
}

func (cfg *ClickHouseFlattenerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ClickHouse == nil {
		return errors.New("clickhouse client is required")
	}
	return nil
}

// ClickHouseFlattener reads column schemas from system.columns.
type ClickHouseFlattener struct {
	log *slog.Logger
	cfg ClickHouseFlattenerConfig
}

func NewClickHouseFlattener(cfg ClickHouseFlattenerConfig) (*ClickHouseFlattener, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ClickHouseFlattener{log: cfg.Logger, cfg: cfg}, nil
}

// Flatten returns the dimensions of a "database.table" reference.
func (f *ClickHouseFlattener) Flatten(ctx context.Context, table string) ([]lookml.Dimension, error) {
	database, name, err := SplitTableName(table)
	if err != nil {
		return nil, err
	}

	conn, err := f.cfg.ClickHouse.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, `
		SELECT name, type
		FROM system.columns
		WHERE database = ? AND table = ?
		ORDER BY position
	`, database, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found or has no columns", table)
	}

	dims := FlattenColumns(columns)
	f.log.Debug("schema: flattened table", "table", table, "columns", len(columns), "dimensions", len(dims))
	return dims, nil
}

// Column is a raw ClickHouse column as listed in system.columns.
type Column struct {
	Name string
	Type string
}

// FlattenColumns converts raw columns into dimensions. Columns that cannot be
// represented as a single field (arrays, maps, unnamed tuples) are skipped.
func FlattenColumns(columns []Column) []lookml.Dimension {
	var dims []lookml.Dimension
	for _, c := range columns {
		// Flattened Nested columns are listed as "parent.child".
		path := strings.Split(c.Name, ".")
		dims = flatten(path, "${TABLE}."+quoteIdent(c.Name), c.Type, dims)
	}
	return dims
}

// SplitTableName splits "database.table".
func SplitTableName(table string) (string, string, error) {
	database, name, ok := strings.Cut(table, ".")
	if !ok || database == "" || name == "" {
		return "", "", fmt.Errorf("invalid table name %q: expected format 'database.table'", table)
	}
	return database, name, nil
}
