package schema

import (
	"regexp"
	"strings"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
)

var (
	dateTimeframes      = []string{"raw", "date", "week", "month", "quarter", "year"}
	timestampTimeframes = []string{"raw", "time", "date", "week", "month", "quarter", "year"}

	timeSuffix = regexp.MustCompile(`_(date|time(stamp)?|at)$`)
	plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// splitType splits a ClickHouse type into its name and top level arguments,
// e.g. "Tuple(a String, b Array(Int8))" -> "Tuple", ["a String", "b Array(Int8)"].
func splitType(t string) (string, []string) {
	t = strings.TrimSpace(t)
	open := strings.IndexByte(t, '(')
	if open < 0 || !strings.HasSuffix(t, ")") {
		return t, nil
	}
	name := t[:open]
	inner := t[open+1 : len(t)-1]

	var args []string
	depth, start := 0, 0
	var quote byte
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '`' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(inner[start:i]))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(inner[start:]); rest != "" {
		args = append(args, rest)
	}
	return name, args
}

// splitTupleElement splits a named tuple element "name Type". ok is false for
// unnamed elements such as "String" or "Decimal(10, 2)".
func splitTupleElement(elem string) (name, typ string, ok bool) {
	space := strings.IndexByte(elem, ' ')
	if space < 0 {
		return "", "", false
	}
	if paren := strings.IndexByte(elem, '('); paren >= 0 && paren < space {
		return "", "", false
	}
	name = strings.Trim(elem[:space], "`\"")
	return name, strings.TrimSpace(elem[space+1:]), true
}

func quoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// flatten appends the dimensions for one column (or tuple element) of type t.
// path holds the name segments, sql the already quoted access expression.
func flatten(path []string, sql string, t string, out []lookml.Dimension) []lookml.Dimension {
	name, args := splitType(t)
	switch {
	case name == "Nullable" || name == "LowCardinality":
		if len(args) != 1 {
			return out
		}
		return flatten(path, sql, args[0], out)

	case name == "Tuple":
		type element struct{ name, typ string }
		elems := make([]element, 0, len(args))
		for _, a := range args {
			n, et, ok := splitTupleElement(a)
			if !ok {
				// Unnamed tuples have no stable field names.
				return out
			}
			elems = append(elems, element{n, et})
		}
		for _, e := range elems {
			out = flatten(append(path[:len(path):len(path)], e.name), sql+"."+quoteIdent(e.name), e.typ, out)
		}
		return out

	case name == "Array", name == "Map", name == "Nested",
		name == "AggregateFunction", name == "SimpleAggregateFunction",
		name == "Object", name == "JSON", name == "Variant", name == "Dynamic":
		return out

	case name == "Date" || name == "Date32":
		return append(out, timeDimension(path, sql, "date", dateTimeframes))

	case name == "DateTime" || name == "DateTime64":
		return append(out, timeDimension(path, sql, "timestamp", timestampTimeframes))
	}

	return append(out, lookml.Dimension{
		Name: strings.Join(path, "__"),
		Type: lookmlType(name),
		SQL:  sql,
	})
}

func timeDimension(path []string, sql, datatype string, timeframes []string) lookml.Dimension {
	name := strings.Join(path, "__")
	if !lookml.IsMetric(name) {
		named := append(path[:len(path)-1:len(path)-1], timeSuffix.ReplaceAllString(path[len(path)-1], ""))
		name = strings.Join(named, "__")
	}
	return lookml.Dimension{
		Name:       name,
		Type:       "time",
		SQL:        sql,
		Datatype:   datatype,
		Timeframes: append([]string(nil), timeframes...),
	}
}

func lookmlType(name string) string {
	switch {
	case name == "Bool":
		return "yesno"
	case strings.HasPrefix(name, "Int"), strings.HasPrefix(name, "UInt"),
		strings.HasPrefix(name, "Float"), strings.HasPrefix(name, "Decimal"):
		return "number"
	default:
		return "string"
	}
}
