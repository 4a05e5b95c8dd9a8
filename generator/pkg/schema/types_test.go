package schema

import (
	"testing"

	"github.com/malbeclabs/viewgen/generator/pkg/lookml"
	"github.com/stretchr/testify/require"
)

func TestViewgen_Schema_SplitType(t *testing.T) {
	t.Parallel()

	name, args := splitType("String")
	require.Equal(t, "String", name)
	require.Nil(t, args)

	name, args = splitType("Tuple(a String, b Tuple(c Decimal(10, 2), d Enum8('x' = 1, 'y,z' = 2)))")
	require.Equal(t, "Tuple", name)
	require.Equal(t, []string{"a String", "b Tuple(c Decimal(10, 2), d Enum8('x' = 1, 'y,z' = 2))"}, args)

	name, args = splitType("Nullable(DateTime64(3, 'UTC'))")
	require.Equal(t, "Nullable", name)
	require.Equal(t, []string{"DateTime64(3, 'UTC')"}, args)
}

func TestViewgen_Schema_SplitTupleElement(t *testing.T) {
	t.Parallel()

	n, typ, ok := splitTupleElement("client_id Nullable(String)")
	require.True(t, ok)
	require.Equal(t, "client_id", n)
	require.Equal(t, "Nullable(String)", typ)

	_, _, ok = splitTupleElement("Decimal(10, 2)")
	require.False(t, ok)

	_, _, ok = splitTupleElement("UInt64")
	require.False(t, ok)
}

func TestViewgen_Schema_FlattenColumns(t *testing.T) {
	t.Parallel()

	dims := FlattenColumns([]Column{
		{Name: "document_id", Type: "String"},
		{Name: "client_info", Type: "Tuple(client_id Nullable(String), os_version LowCardinality(String), locale_count UInt32)"},
		{Name: "submission_timestamp", Type: "DateTime64(6)"},
		{Name: "submission_date", Type: "Date"},
		{Name: "is_bot", Type: "Bool"},
		{Name: "metrics", Type: "Tuple(counter Tuple(app_foo Nullable(Int64)), datetime Tuple(app_start_time Nullable(DateTime)))"},
		{Name: "events", Type: "Array(Tuple(category String, name String))"},
		{Name: "labels", Type: "Map(String, UInt64)"},
		{Name: "pair", Type: "Tuple(String, UInt8)"},
		{Name: "ping_info.seq", Type: "Array(UInt32)"},
		{Name: "geo.city", Type: "String"},
	})

	require.Equal(t, []lookml.Dimension{
		{Name: "document_id", Type: "string", SQL: "${TABLE}.document_id"},
		{Name: "client_info__client_id", Type: "string", SQL: "${TABLE}.client_info.client_id"},
		{Name: "client_info__os_version", Type: "string", SQL: "${TABLE}.client_info.os_version"},
		{Name: "client_info__locale_count", Type: "number", SQL: "${TABLE}.client_info.locale_count"},
		{
			Name:       "submission",
			Type:       "time",
			SQL:        "${TABLE}.submission_timestamp",
			Datatype:   "timestamp",
			Timeframes: []string{"raw", "time", "date", "week", "month", "quarter", "year"},
		},
		{
			Name:       "submission",
			Type:       "time",
			SQL:        "${TABLE}.submission_date",
			Datatype:   "date",
			Timeframes: []string{"raw", "date", "week", "month", "quarter", "year"},
		},
		{Name: "is_bot", Type: "yesno", SQL: "${TABLE}.is_bot"},
		{Name: "metrics__counter__app_foo", Type: "number", SQL: "${TABLE}.metrics.counter.app_foo"},
		{
			Name:       "metrics__datetime__app_start_time",
			Type:       "time",
			SQL:        "${TABLE}.metrics.datetime.app_start_time",
			Datatype:   "timestamp",
			Timeframes: []string{"raw", "time", "date", "week", "month", "quarter", "year"},
		},
		{Name: "geo__city", Type: "string", SQL: "${TABLE}.`geo.city`"},
	}, dims)
}

func TestViewgen_Schema_FlattenColumns_TimeSuffixes(t *testing.T) {
	t.Parallel()

	dims := FlattenColumns([]Column{
		{Name: "created_at", Type: "DateTime"},
		{Name: "first_run_date", Type: "Date32"},
		{Name: "start_time", Type: "Nullable(DateTime)"},
		{Name: "submission_timestamp", Type: "DateTime64(6)"},
		{Name: "meta", Type: "Tuple(updated_at DateTime)"},
		{Name: "metrics", Type: "Tuple(datetime Tuple(app_opened_at Nullable(DateTime)))"},
		{Name: "chat", Type: "String"},
	})

	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.Name
	}
	require.Equal(t, []string{
		"created",
		"first_run",
		"start",
		"submission",
		"meta__updated",
		"metrics__datetime__app_opened_at",
		"chat",
	}, names)
}

func TestViewgen_Schema_FlattenColumns_SharedGroupName(t *testing.T) {
	t.Parallel()

	// Both columns map to the same group; the generator rejects the view.
	dims := FlattenColumns([]Column{
		{Name: "submission_date", Type: "Date"},
		{Name: "submission_timestamp", Type: "DateTime64(6)"},
	})
	require.Len(t, dims, 2)
	require.Equal(t, "submission", dims[0].Name)
	require.Equal(t, "submission", dims[1].Name)
	require.Equal(t, "date", dims[0].Datatype)
	require.Equal(t, "timestamp", dims[1].Datatype)
	require.Error(t, lookml.CheckDimensionNames("app.baseline", dims))
}

func TestViewgen_Schema_SplitTableName(t *testing.T) {
	t.Parallel()

	db, table, err := SplitTableName("org_app.baseline")
	require.NoError(t, err)
	require.Equal(t, "org_app", db)
	require.Equal(t, "baseline", table)

	_, _, err = SplitTableName("baseline")
	require.Error(t, err)
	_, _, err = SplitTableName(".baseline")
	require.Error(t, err)
}
