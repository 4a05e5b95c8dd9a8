package lookml

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration matches errors caused by a table that cannot be
	// summarized, e.g. one missing both identity columns.
	ErrConfiguration = errors.New("configuration error")
	// ErrNameCollision matches errors caused by duplicate field names.
	ErrNameCollision = errors.New("name collision")
)

// ConfigurationError reports a table that is malformed for view generation.
type ConfigurationError struct {
	Table   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s in %q", e.Message, e.Table)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NameCollisionError reports every field name that appears more than once in
// one view.
type NameCollisionError struct {
	Kind  string // "dimension" or "measure"
	Names []string
	Table string
}

func (e *NameCollisionError) Error() string {
	quoted := make([]string, len(e.Names))
	for i, n := range e.Names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("duplicate %ss [%s] for table %q", e.Kind, strings.Join(quoted, ", "), e.Table)
}

func (e *NameCollisionError) Is(target error) bool {
	return target == ErrNameCollision
}

// Duplicates returns every name that occurs more than once, in the order of
// its first occurrence.
func Duplicates(names []string) []string {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}
	var dups []string
	for _, n := range names {
		if counts[n] > 1 {
			dups = append(dups, n)
			counts[n] = 0
		}
	}
	return dups
}

// CheckDimensionNames returns a NameCollisionError if any dimension name is
// repeated.
func CheckDimensionNames(table string, dims []Dimension) error {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}
	if dups := Duplicates(names); len(dups) > 0 {
		return &NameCollisionError{Kind: "dimension", Names: dups, Table: table}
	}
	return nil
}

// CheckMeasureNames returns a NameCollisionError if any measure name is
// repeated.
func CheckMeasureNames(table string, measures []Measure) error {
	names := make([]string, len(measures))
	for i, m := range measures {
		names[i] = m.Name
	}
	if dups := Duplicates(names); len(dups) > 0 {
		return &NameCollisionError{Kind: "measure", Names: dups, Table: table}
	}
	return nil
}
