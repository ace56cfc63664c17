package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/app"
	"github.com/kurochkinivan/tddf_pipeline/internal/config"
	"github.com/kurochkinivan/tddf_pipeline/internal/tables"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "tddf_pipeline",
		Usage:   "TDDF upload lifecycle and encoding service",
		Version: version,
		Flags:   flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
			if !ok {
				return errors.New("failed to get logger from context")
			}

			cfg := config.Load(cmd)

			return app.New(log, cfg).Run(ctx)
		},
	}
}

func flags() []cli.Flag {
	var config string

	fromYAML := func(key string) cli.ValueSourceChain {
		return cli.NewValueSourceChain(yaml.YAML(key, altsrc.NewStringPtrSourcer(&config)))
	}

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Validator:   validateConfig,
			Usage:       "Load configuration from `FILE`",
			Destination: &config,
		},
		&cli.StringFlag{
			Name:      "environment",
			Aliases:   []string{"e"},
			Usage:     "Set deployment environment (development or production)",
			Value:     string(tables.Development),
			Sources:   cli.NewValueSourceChain(cli.EnvVar("TDDF_ENVIRONMENT"), yaml.YAML("app.environment", altsrc.NewStringPtrSourcer(&config))),
			Validator: validateEnvironment,
		},
		&cli.StringFlag{
			Name:      "storage-backend",
			Usage:     "Set storage backend (postgres or memory)",
			Value:     app.BackendPostgres,
			Sources:   fromYAML("app.storage_backend"),
			Validator: validateBackend,
		},
		&cli.StringFlag{
			Name:    "registry-file",
			Usage:   "Override record type processability from a TSV `FILE`",
			Sources: fromYAML("app.registry_file"),
		},
		&cli.DurationFlag{
			Name:    "process-interval",
			Usage:   "Set interval of the continuous processor",
			Value:   5 * time.Second,
			Sources: fromYAML("app.process_interval"),
		},
		&cli.IntFlag{
			Name:      "batch-size",
			Usage:     "Set rows claimed per encode batch",
			Value:     500,
			Sources:   fromYAML("encoder.batch_size"),
			Validator: validatePositive,
		},
		&cli.DurationFlag{
			Name:    "batch-timeout",
			Usage:   "Set time limit of one encode batch",
			Value:   time.Minute,
			Sources: fromYAML("encoder.batch_timeout"),
		},
		&cli.IntFlag{
			Name:    "max-batches",
			Usage:   "Set encode batches per upload per processor cycle, 0 for unlimited",
			Value:   0,
			Sources: fromYAML("encoder.max_batches"),
		},
		&cli.IntFlag{
			Name:      "insert-chunk",
			Usage:     "Set raw rows inserted per statement while identifying",
			Value:     1000,
			Sources:   fromYAML("encoder.insert_chunk"),
			Validator: validatePositive,
		},
		&cli.DurationFlag{
			Name:    "monitor-interval",
			Usage:   "Set backlog sampling interval",
			Value:   30 * time.Second,
			Sources: fromYAML("monitor.interval"),
		},
		&cli.DurationFlag{
			Name:    "stall-window",
			Usage:   "Set window without backlog progress that counts as a stall",
			Value:   2 * time.Minute,
			Sources: fromYAML("monitor.stall_window"),
		},
		&cli.IntFlag{
			Name:    "stall-tolerance",
			Usage:   "Set backlog decrease still treated as no progress",
			Value:   0,
			Sources: fromYAML("monitor.stall_tolerance"),
		},
		&cli.IntFlag{
			Name:    "stall-min-pending",
			Usage:   "Set smallest backlog that can stall",
			Value:   1,
			Sources: fromYAML("monitor.min_pending"),
		},
		&cli.IntFlag{
			Name:    "busy-threshold",
			Usage:   "Set backlog above which uploader clients are told to wait",
			Value:   50000,
			Sources: fromYAML("monitor.busy_threshold"),
		},
		&cli.IntFlag{
			Name:      "recovery-batch-size",
			Usage:     "Set rows claimed per recovery batch",
			Value:     1000,
			Sources:   fromYAML("recovery.batch_size"),
			Validator: validatePositive,
		},
		&cli.IntFlag{
			Name:      "recovery-max-iterations",
			Usage:     "Set batch budget of one recovery run",
			Value:     100,
			Sources:   fromYAML("recovery.max_iterations"),
			Validator: validatePositive,
		},
		&cli.DurationFlag{
			Name:    "recovery-time-budget",
			Usage:   "Set time budget of one recovery run",
			Value:   10 * time.Minute,
			Sources: fromYAML("recovery.time_budget"),
		},
		&cli.DurationFlag{
			Name:    "claim-ttl",
			Usage:   "Set age after which claimed rows are released",
			Value:   10 * time.Minute,
			Sources: fromYAML("recovery.claim_ttl"),
		},
		&cli.DurationFlag{
			Name:    "orphan-interval",
			Usage:   "Set orphan sweep interval",
			Value:   time.Minute,
			Sources: fromYAML("recovery.orphan_interval"),
		},
		&cli.DurationFlag{
			Name:    "orphan-stale-after",
			Usage:   "Set idle time after which an in-flight upload is inspected",
			Value:   15 * time.Minute,
			Sources: fromYAML("recovery.orphan_stale_after"),
		},
		&cli.Int64Flag{
			Name:    "max-upload-size",
			Usage:   "Set largest accepted upload in bytes",
			Value:   512 << 20,
			Sources: fromYAML("storage.max_upload_size"),
		},
		&cli.IntFlag{
			Name:      "storage-retry-attempts",
			Usage:     "Set attempts of a storage call before it is reported unavailable",
			Value:     4,
			Sources:   fromYAML("storage.retry_attempts"),
			Validator: validatePositive,
		},
		&cli.DurationFlag{
			Name:    "storage-retry-delay",
			Usage:   "Set first storage retry delay",
			Value:   200 * time.Millisecond,
			Sources: fromYAML("storage.retry_delay"),
		},
		&cli.DurationFlag{
			Name:    "storage-retry-max-delay",
			Usage:   "Set largest storage retry delay",
			Value:   5 * time.Second,
			Sources: fromYAML("storage.retry_max_delay"),
		},
		&cli.StringFlag{
			Name:    "pg-host",
			Usage:   "Set PostgreSQL host",
			Value:   "localhost",
			Sources: fromYAML("postgresql.host"),
		},
		&cli.StringFlag{
			Name:    "pg-port",
			Usage:   "Set PostgreSQL port",
			Value:   "5432",
			Sources: fromYAML("postgresql.port"),
		},
		&cli.StringFlag{
			Name:    "pg-username",
			Usage:   "Set PostgreSQL username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("TDDF_PG_USERNAME"), yaml.YAML("postgresql.username", altsrc.NewStringPtrSourcer(&config))),
		},
		&cli.StringFlag{
			Name:    "pg-password",
			Usage:   "Set PostgreSQL password",
			Sources: cli.EnvVars("TDDF_PG_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "pg-dbname",
			Usage:   "Set PostgreSQL database name",
			Value:   "tddf_pipeline",
			Sources: fromYAML("postgresql.dbname"),
		},
		&cli.StringFlag{
			Name:    "pg-sslmode",
			Usage:   "Set PostgreSQL sslmode",
			Value:   "disable",
			Sources: fromYAML("postgresql.sslmode"),
		},
		&cli.IntFlag{
			Name:    "pg-max-conns",
			Usage:   "Set the maximum size of the PostgreSQL pool, 0 keeps the driver default",
			Sources: fromYAML("postgresql.max_conns"),
		},
		&cli.IntFlag{
			Name:    "pg-connect-attempts",
			Usage:   "Set how many times to retry the initial PostgreSQL ping",
			Value:   5,
			Sources: fromYAML("postgresql.connect_attempts"),
		},
		&cli.DurationFlag{
			Name:    "pg-connect-delay",
			Usage:   "Set the delay between PostgreSQL ping retries",
			Value:   5 * time.Second,
			Sources: fromYAML("postgresql.connect_delay"),
		},
		&cli.StringFlag{
			Name:    "http-host",
			Usage:   "Set HTTP server host",
			Value:   "localhost",
			Sources: fromYAML("http.host"),
		},
		&cli.StringFlag{
			Name:    "http-port",
			Usage:   "Set HTTP server port",
			Value:   "8080",
			Sources: fromYAML("http.port"),
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Require this X-API-Key on uploader and v1 endpoints",
			Sources: cli.EnvVars("TDDF_API_KEY"),
		},
		&cli.DurationFlag{
			Name:    "http-idle-timeout",
			Usage:   "Set HTTP server idle timeout",
			Value:   1 * time.Minute,
			Sources: fromYAML("http.idle_timeout"),
		},
		&cli.DurationFlag{
			Name:    "http-read-timeout",
			Usage:   "Set HTTP server read timeout",
			Value:   5 * time.Minute,
			Sources: fromYAML("http.read_timeout"),
		},
		&cli.DurationFlag{
			Name:    "http-write-timeout",
			Usage:   "Set HTTP server write timeout",
			Value:   5 * time.Minute,
			Sources: fromYAML("http.write_timeout"),
		},
	}
}

func validateEnvironment(env string) error {
	_, err := tables.ParseEnvironment(env)
	return err
}

func validateBackend(backend string) error {
	if backend != app.BackendPostgres && backend != app.BackendMemory {
		return fmt.Errorf("unknown storage backend %q", backend)
	}

	return nil
}

func validatePositive(n int) error {
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}

	return nil
}

func validateConfig(config string) error {
	info, err := os.Stat(config)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%q does not exist", config)
		}
		return fmt.Errorf("failed to stat %q: %w", config, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", config)
	}

	ext := filepath.Ext(info.Name())
	if ext != ".yml" && ext != ".yaml" {
		return fmt.Errorf("invalid extension %q", config)
	}

	return nil
}
