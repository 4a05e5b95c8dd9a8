package lookml

// Link is a documentation link attached to a dimension or measure.
type Link struct {
	Label   string `json:"label" yaml:"label"`
	URL     string `json:"url" yaml:"url"`
	IconURL string `json:"icon_url" yaml:"icon_url"`
}

// Dimension is one queryable field of a view. A dimension with timeframes is
// rendered as a dimension group.
type Dimension struct {
	Name           string   `json:"name" yaml:"name"`
	Type           string   `json:"type" yaml:"type"`
	SQL            string   `json:"sql" yaml:"sql"`
	Datatype       string   `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	Timeframes     []string `json:"timeframes,omitempty" yaml:"timeframes,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	GroupLabel     string   `json:"group_label,omitempty" yaml:"group_label,omitempty"`
	GroupItemLabel string   `json:"group_item_label,omitempty" yaml:"group_item_label,omitempty"`
	Links          []Link   `json:"links,omitempty" yaml:"links,omitempty"`
}

// Filter restricts the rows a measure aggregates over.
type Filter struct {
	Field string `json:"field" yaml:"field"`
	Value string `json:"value" yaml:"value"`
}

// Measure is an aggregate exposed on a view.
type Measure struct {
	Name    string   `json:"name" yaml:"name"`
	Type    string   `json:"type" yaml:"type"`
	SQL     string   `json:"sql,omitempty" yaml:"sql,omitempty"`
	Filters []Filter `json:"filters,omitempty" yaml:"filters,omitempty"`
	Links   []Link   `json:"links,omitempty" yaml:"links,omitempty"`
}

// AllowedValue is one selectable value of a parameter.
type AllowedValue struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Parameter is a user-selectable view parameter.
type Parameter struct {
	Name          string         `json:"name" yaml:"name"`
	Type          string         `json:"type" yaml:"type"`
	AllowedValues []AllowedValue `json:"allowed_values" yaml:"allowed_values"`
}

// View is the generated view definition handed to a renderer.
type View struct {
	Name            string      `json:"name" yaml:"name"`
	SQLTableName    string      `json:"sql_table_name" yaml:"sql_table_name"`
	Dimensions      []Dimension `json:"dimensions" yaml:"dimensions"`
	DimensionGroups []Dimension `json:"dimension_groups" yaml:"dimension_groups"`
	Measures        []Measure   `json:"measures" yaml:"measures"`
	Parameters      []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Measure types.
const (
	MeasureCount         = "count"
	MeasureCountDistinct = "count_distinct"
	MeasureSum           = "sum"
)

// IsDimensionGroup reports whether the dimension is a grouped date/time field.
func IsDimensionGroup(d Dimension) bool {
	return len(d.Timeframes) > 0
}

// SplitDimensionGroups partitions dims into plain dimensions and dimension
// groups, preserving order within each.
func SplitDimensionGroups(dims []Dimension) (dimensions, groups []Dimension) {
	dimensions = make([]Dimension, 0, len(dims))
	groups = make([]Dimension, 0)
	for _, d := range dims {
		if IsDimensionGroup(d) {
			groups = append(groups, d)
		} else {
			dimensions = append(dimensions, d)
		}
	}
	return dimensions, groups
}

// FieldRef returns the LookML substitution reference for a field name.
func FieldRef(name string) string {
	return "${" + name + "}"
}
