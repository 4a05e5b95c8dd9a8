package lookml

import "strings"

const (
	// MetricPrefix starts the flattened name of every metric column.
	MetricPrefix = "metrics__"

	pathSep = "__"

	dictionaryBaseURL = "https://dictionary.telemetry.mozilla.org"
	dictionaryIconURL = dictionaryBaseURL + "/favicon.png"

	// DefaultGroupLabel labels metrics that have no category.
	DefaultGroupLabel = "Glean"
)

// MetricName encodes a metric probe as a flattened column name:
//
//	metrics__<type>__<category>_<leaf>[__<suffix>]
//
// where category is every dotted segment of the probe id but the last, joined
// by underscores. The underscore before leaf is dropped for empty categories.
type MetricName struct {
	Type     string
	Category string
	Leaf     string
	Suffix   string
}

// NewMetricName splits a dotted probe id into category and leaf.
func NewMetricName(probeType, id, suffix string) MetricName {
	parts := strings.Split(id, ".")
	return MetricName{
		Type:     probeType,
		Category: strings.Join(parts[:len(parts)-1], "_"),
		Leaf:     parts[len(parts)-1],
		Suffix:   suffix,
	}
}

// Path returns the category and leaf joined, as used by the metric dictionary.
func (m MetricName) Path() string {
	if m.Category == "" {
		return m.Leaf
	}
	return m.Category + "_" + m.Leaf
}

// String returns the flattened column name.
func (m MetricName) String() string {
	name := MetricPrefix + m.Type + pathSep + m.Path()
	if m.Suffix != "" {
		name += pathSep + m.Suffix
	}
	return name
}

// Label returns the leaf, with the suffix appended when there is one.
func (m MetricName) Label() string {
	if m.Suffix == "" {
		return m.Leaf
	}
	return m.Leaf + "_" + m.Suffix
}

func (m MetricName) GroupLabel() string {
	if m.Category == "" {
		return DefaultGroupLabel
	}
	return Title(m.Category)
}

func (m MetricName) GroupItemLabel() string {
	return Title(m.Label())
}

// Links returns the dictionary reference for the metric.
func (m MetricName) Links(namespace string) []Link {
	return []Link{{
		Label:   "Glean Dictionary reference for " + m.GroupLabel() + " " + m.GroupItemLabel(),
		URL:     dictionaryBaseURL + "/apps/" + namespace + "/metrics/" + m.Path(),
		IconURL: dictionaryIconURL,
	}}
}

// IsMetric reports whether a flattened column name is a metric column.
func IsMetric(name string) bool {
	return strings.HasPrefix(name, MetricPrefix)
}

// MetricType returns the type segment of a metric column name, or "" for
// non-metric names.
func MetricType(name string) string {
	if !IsMetric(name) {
		return ""
	}
	rest := strings.TrimPrefix(name, MetricPrefix)
	typ, _, _ := strings.Cut(rest, pathSep)
	return typ
}

// IsLabeledMetric reports whether name is a labeled metric column, whose
// per-label breakdown makes a single reference link misleading.
func IsLabeledMetric(name string) bool {
	return strings.HasPrefix(MetricType(name), "labeled")
}

// LeafName returns the last path segment of a flattened name.
func LeafName(name string) string {
	if i := strings.LastIndex(name, pathSep); i >= 0 {
		return name[i+len(pathSep):]
	}
	return name
}

// ColumnLinks returns the dictionary reference for a flattened column, keyed
// by its last path segment.
func ColumnLinks(namespace, name string) []Link {
	leaf := LeafName(name)
	return []Link{{
		Label:   "Glean Dictionary reference for " + Title(leaf),
		URL:     dictionaryBaseURL + "/apps/" + namespace + "/metrics/" + leaf,
		IconURL: dictionaryIconURL,
	}}
}
