package schema

import (
	"context"
	"flag"
	"os"
	"testing"

	clickhousetesting "github.com/malbeclabs/viewgen/generator/pkg/clickhouse/testing"
	viewgentesting "github.com/malbeclabs/viewgen/utils/pkg/testing"
)

var (
	sharedDB *clickhousetesting.DB
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	log := viewgentesting.NewLogger()
	var err error
	sharedDB, err = clickhousetesting.NewDB(context.Background(), log, nil)
	if err != nil {
		log.Error("failed to create shared DB", "error", err)
		os.Exit(1)
	}
	code := m.Run()
	sharedDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if sharedDB == nil {
		t.Skip("ClickHouse container not started in short mode")
	}
}
