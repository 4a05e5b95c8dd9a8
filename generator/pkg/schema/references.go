package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/malbeclabs/viewgen/generator/pkg/clickhouse"
)

// DBViews maps dataset name -> view id -> the tables the view selects from.
// Each reference is a path such as {"org_app_stable", "baseline_v1"}.
type DBViews map[string]map[string][][]string

// ReferenceCatalog lists the views of datasets together with their source
// table references.
type ReferenceCatalog interface {
	DBViews(ctx context.Context, datasets []string) (DBViews, error)
}

type ClickHouseReferencesConfig struct {
	Logger     *slog.Logger
	ClickHouse clickhouse.Client
}

func (cfg *ClickHouseReferencesConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ClickHouse == nil {
		return errors.New("clickhouse client is required")
	}
	return nil
}

// ClickHouseReferences derives view references from the SELECT statement
// ClickHouse stores for every view in system.tables.
type ClickHouseReferences struct {
	log *slog.Logger
	cfg ClickHouseReferencesConfig
}

func NewClickHouseReferences(cfg ClickHouseReferencesConfig) (*ClickHouseReferences, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ClickHouseReferences{log: cfg.Logger, cfg: cfg}, nil
}

func (r *ClickHouseReferences) DBViews(ctx context.Context, datasets []string) (DBViews, error) {
	conn, err := r.cfg.ClickHouse.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	out := make(DBViews, len(datasets))
	for _, dataset := range datasets {
		if _, ok := out[dataset]; ok {
			continue
		}
		rows, err := conn.Query(ctx, `
			SELECT name, as_select
			FROM system.tables
			WHERE database = ? AND engine = 'View'
			ORDER BY name
		`, dataset)
		if err != nil {
			return nil, fmt.Errorf("failed to query views of %s: %w", dataset, err)
		}

		views := make(map[string][][]string)
		for rows.Next() {
			var name, asSelect string
			if err := rows.Scan(&name, &asSelect); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan view of %s: %w", dataset, err)
			}
			views[name] = ExtractReferences(asSelect, dataset)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate views of %s: %w", dataset, err)
		}

		r.log.Debug("schema: listed views", "dataset", dataset, "count", len(views))
		out[dataset] = views
	}
	return out, nil
}

const identPattern = "(?:`(?:[^`\\\\]|\\\\.)+`|\"[^\"]+\"|[A-Za-z_][A-Za-z0-9_]*)"

var fromClause = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+(` + identPattern + `(?:\s*\.\s*` + identPattern + `)?)`)

// ExtractReferences returns the distinct tables referenced by FROM and JOIN
// clauses of query, in order of first appearance. Unqualified tables resolve
// to defaultDatabase. Subqueries and table functions are not references.
func ExtractReferences(query, defaultDatabase string) [][]string {
	var refs [][]string
	seen := make(map[string]bool)
	for _, m := range fromClause.FindAllStringSubmatchIndex(query, -1) {
		end := m[3]
		if next := strings.TrimLeft(query[end:], " \t\r\n"); strings.HasPrefix(next, "(") {
			continue
		}
		if inFunctionArgs(query[:m[0]]) {
			continue
		}

		ref := splitQualified(query[m[2]:m[3]])
		if len(ref) == 1 {
			ref = []string{defaultDatabase, ref[0]}
		}
		key := strings.Join(ref, ".")
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, ref)
	}
	return refs
}

// subqueryKeywords precede a parenthesis that opens a subquery rather than a
// function call.
var subqueryKeywords = map[string]bool{
	"FROM": true, "JOIN": true, "IN": true, "EXISTS": true, "AS": true,
	"ANY": true, "ALL": true, "SELECT": true, "WHERE": true, "AND": true,
	"OR": true, "NOT": true, "ON": true, "UNION": true,
}

// inFunctionArgs reports whether the end of prefix lies inside the argument
// list of a function call such as EXTRACT(YEAR FROM col).
func inFunctionArgs(prefix string) bool {
	depth := 0
	for i := len(prefix) - 1; i >= 0; i-- {
		switch prefix[i] {
		case ')':
			depth++
		case '(':
			if depth > 0 {
				depth--
				continue
			}
			before := strings.TrimRight(prefix[:i], " \t\r\n")
			j := len(before)
			for j > 0 && isIdentByte(before[j-1]) {
				j--
			}
			word := before[j:]
			return word != "" && !subqueryKeywords[strings.ToUpper(word)]
		}
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func splitQualified(s string) []string {
	var parts []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '`' || c == '"':
			quote = c
		case c == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}
