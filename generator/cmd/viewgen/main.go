package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/viewgen/generator/pkg/catalog"
	"github.com/malbeclabs/viewgen/generator/pkg/clickhouse"
	"github.com/malbeclabs/viewgen/generator/pkg/metrics"
	"github.com/malbeclabs/viewgen/generator/pkg/namespaces"
	"github.com/malbeclabs/viewgen/generator/pkg/output"
	"github.com/malbeclabs/viewgen/generator/pkg/runner"
	"github.com/malbeclabs/viewgen/generator/pkg/schema"
	"github.com/malbeclabs/viewgen/generator/pkg/views"
	"github.com/malbeclabs/viewgen/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine.
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	namespacesFlag := flag.String("namespaces", "namespaces.yaml", "path to the namespaces file")
	outputFlag := flag.String("output", "looker-hub", "output directory, or s3://bucket/prefix")
	discoverFlag := flag.Bool("discover", false, "discover ping views from the channel datasets")
	concurrencyFlag := flag.Int("concurrency", 4, "number of views generated concurrently")
	metricsTextfileFlag := flag.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	sentryDSNFlag := flag.String("sentry-dsn", "", "Sentry DSN for error reporting (or set SENTRY_DSN env var)")

	// Metric catalog
	catalogURLFlag := flag.String("catalog-url", catalog.DefaultProbeInfoURL, "probeinfo base URL (or set PROBEINFO_URL env var)")
	catalogFileFlag := flag.String("catalog-file", "", "read the metric catalog from a YAML file instead of probeinfo")
	catalogRPSFlag := flag.Float64("catalog-rps", 10, "maximum probeinfo requests per second")

	// ClickHouse configuration
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse address (host:port) (or set CLICKHOUSE_ADDR_TCP env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", "default", "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "default", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	clickhouseSecureFlag := flag.Bool("clickhouse-secure", false, "Enable TLS for ClickHouse Cloud (or set CLICKHOUSE_SECURE=true env var)")
	clickhouseTimeoutFlag := flag.Duration("clickhouse-max-execution-time", 60*time.Second, "server side limit for each schema query")

	flag.Parse()

	log := logger.New(*verboseFlag)

	if envClickhouseAddr := os.Getenv("CLICKHOUSE_ADDR_TCP"); envClickhouseAddr != "" {
		*clickhouseAddrFlag = envClickhouseAddr
	}
	if envClickhouseDatabase := os.Getenv("CLICKHOUSE_DATABASE"); envClickhouseDatabase != "" {
		*clickhouseDatabaseFlag = envClickhouseDatabase
	}
	if envClickhouseUsername := os.Getenv("CLICKHOUSE_USERNAME"); envClickhouseUsername != "" {
		*clickhouseUsernameFlag = envClickhouseUsername
	}
	if envClickhousePassword := os.Getenv("CLICKHOUSE_PASSWORD"); envClickhousePassword != "" {
		*clickhousePasswordFlag = envClickhousePassword
	}
	if os.Getenv("CLICKHOUSE_SECURE") == "true" {
		*clickhouseSecureFlag = true
	}
	if envProbeInfoURL := os.Getenv("PROBEINFO_URL"); envProbeInfoURL != "" {
		*catalogURLFlag = envProbeInfoURL
	}
	if envSentryDSN := os.Getenv("SENTRY_DSN"); envSentryDSN != "" {
		*sentryDSNFlag = envSentryDSN
	}

	if *clickhouseAddrFlag == "" {
		return errors.New("--clickhouse-addr is required")
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	if *sentryDSNFlag != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     *sentryDSNFlag,
			Release: version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(5 * time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nsCfg, err := namespaces.Load(*namespacesFlag)
	if err != nil {
		return err
	}

	chClient, err := clickhouse.NewClient(ctx, log, clickhouse.Config{
		Addr:             *clickhouseAddrFlag,
		Database:         *clickhouseDatabaseFlag,
		Username:         *clickhouseUsernameFlag,
		Password:         *clickhousePasswordFlag,
		Secure:           *clickhouseSecureFlag,
		MaxExecutionTime: *clickhouseTimeoutFlag,
	})
	if err != nil {
		return err
	}
	defer chClient.Close()

	flattener, err := schema.NewClickHouseFlattener(schema.ClickHouseFlattenerConfig{Logger: log, ClickHouse: chClient})
	if err != nil {
		return err
	}

	var cat catalog.Catalog
	if *catalogFileFlag != "" {
		cat, err = catalog.LoadFileCatalog(*catalogFileFlag)
	} else {
		cat, err = catalog.NewProbeInfoClient(catalog.ProbeInfoConfig{
			Logger:            log,
			BaseURL:           *catalogURLFlag,
			RequestsPerSecond: *catalogRPSFlag,
		})
	}
	if err != nil {
		return err
	}

	registry, err := views.NewRegistry(views.RegistryConfig{Logger: log, Flattener: flattener, Catalog: catalog.NewMemo(cat)})
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(ctx, log, *outputFlag)
	if err != nil {
		return err
	}

	var refs schema.ReferenceCatalog
	if *discoverFlag {
		refs, err = schema.NewClickHouseReferences(schema.ClickHouseReferencesConfig{Logger: log, ClickHouse: chClient})
		if err != nil {
			return err
		}
	}

	_, err = runner.Run(ctx, runner.Config{
		Logger:          log,
		Namespaces:      nsCfg,
		Generator:       registry,
		Writer:          writer,
		References:      refs,
		Concurrency:     *concurrencyFlag,
		ReportErrors:    *sentryDSNFlag != "",
		MetricsTextfile: *metricsTextfileFlag,
	})
	return err
}
