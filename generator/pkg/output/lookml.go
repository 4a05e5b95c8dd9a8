package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
)

const generatedHeader = "# This file was generated by viewgen. Do not edit.\n"

// Encode renders views as LookML. Output is deterministic for equal input.
func Encode(w io.Writer, views ...*lookml.View) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}
	e.line(0, strings.TrimSuffix(generatedHeader, "\n"))
	for _, v := range views {
		e.line(0, "")
		e.view(v)
	}
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

type encoder struct {
	w   *bufio.Writer
	err error
}

func (e *encoder) line(indent int, s string) {
	if e.err != nil {
		return
	}
	if s != "" {
		_, e.err = e.w.WriteString(strings.Repeat("  ", indent))
		if e.err != nil {
			return
		}
	}
	_, e.err = e.w.WriteString(s + "\n")
}

func (e *encoder) view(v *lookml.View) {
	e.line(0, "view: "+v.Name+" {")
	e.line(1, "sql_table_name: "+v.SQLTableName+" ;;")

	for _, p := range v.Parameters {
		e.line(0, "")
		e.line(1, "parameter: "+p.Name+" {")
		e.line(2, "type: "+p.Type)
		for _, av := range p.AllowedValues {
			e.line(2, "allowed_value: {")
			e.line(3, "label: "+quote(av.Label))
			e.line(3, "value: "+quote(av.Value))
			e.line(2, "}")
		}
		e.line(1, "}")
	}
	for _, d := range v.Dimensions {
		e.line(0, "")
		e.dimension("dimension", d)
	}
	for _, d := range v.DimensionGroups {
		e.line(0, "")
		e.dimension("dimension_group", d)
	}
	for _, m := range v.Measures {
		e.line(0, "")
		e.measure(m)
	}
	e.line(0, "}")
}

func (e *encoder) dimension(kind string, d lookml.Dimension) {
	e.line(1, kind+": "+d.Name+" {")
	e.line(2, "sql: "+d.SQL+" ;;")
	e.line(2, "type: "+d.Type)
	if d.Datatype != "" {
		e.line(2, "datatype: "+d.Datatype)
	}
	if len(d.Timeframes) > 0 {
		e.line(2, "timeframes: ["+strings.Join(d.Timeframes, ", ")+"]")
	}
	if d.Description != "" {
		e.line(2, "description: "+quote(d.Description))
	}
	if d.GroupLabel != "" {
		e.line(2, "group_label: "+quote(d.GroupLabel))
	}
	if d.GroupItemLabel != "" {
		e.line(2, "group_item_label: "+quote(d.GroupItemLabel))
	}
	e.links(d.Links)
	e.line(1, "}")
}

func (e *encoder) measure(m lookml.Measure) {
	e.line(1, "measure: "+m.Name+" {")
	e.line(2, "type: "+m.Type)
	if m.SQL != "" {
		e.line(2, "sql: "+m.SQL+" ;;")
	}
	if len(m.Filters) > 0 {
		parts := make([]string, len(m.Filters))
		for i, f := range m.Filters {
			parts[i] = f.Field + ": " + quote(f.Value)
		}
		e.line(2, "filters: ["+strings.Join(parts, ", ")+"]")
	}
	e.links(m.Links)
	e.line(1, "}")
}

func (e *encoder) links(links []lookml.Link) {
	for _, l := range links {
		e.line(2, "link: {")
		e.line(3, "label: "+quote(l.Label))
		e.line(3, "url: "+quote(l.URL))
		if l.IconURL != "" {
			e.line(3, "icon_url: "+quote(l.IconURL))
		}
		e.line(2, "}")
	}
}

func quote(s string) string {
	return strconv.Quote(s)
}
