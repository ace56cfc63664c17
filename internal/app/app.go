package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/config"
	v1 "github.com/kurochkinivan/tddf_pipeline/internal/controller/http/v1"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/events"
	"github.com/kurochkinivan/tddf_pipeline/internal/pipeline"
	"github.com/kurochkinivan/tddf_pipeline/internal/report"
	"github.com/kurochkinivan/tddf_pipeline/internal/repository/memory"
	"github.com/kurochkinivan/tddf_pipeline/internal/repository/postgresql"
	"github.com/kurochkinivan/tddf_pipeline/internal/tables"
	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
	"golang.org/x/sync/errgroup"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const shutdownTimeout = 5 * time.Second

// store is everything the pipeline and the HTTP layer read and write.
type store interface {
	pipeline.UploadStore
	pipeline.RowQueue
	pipeline.BacklogCounter
	pipeline.RecordStore
	v1.UploadQueries
}

type backend struct {
	store    store
	contents pipeline.ContentStore
	tx       pipeline.Transactor
	close    func()
}

type App struct {
	log *slog.Logger
	cfg *config.Config
}

func New(log *slog.Logger, cfg *config.Config) *App {
	return &App{
		log: log,
		cfg: cfg,
	}
}

func (a *App) Run(ctx context.Context) error {
	a.log.InfoContext(ctx, "starting app",
		slog.String("environment", a.cfg.App.Environment),
		slog.String("storage_backend", a.cfg.App.StorageBackend),
		slog.Int("batch_size", a.cfg.Encoder.BatchSize),
		slog.Duration("process_interval", a.cfg.App.ProcessInterval),
	)

	env, err := tables.ParseEnvironment(a.cfg.App.Environment)
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	registry, err := a.loadRegistry()
	if err != nil {
		return err
	}

	b, err := a.openBackend(ctx, env)
	if err != nil {
		return err
	}
	defer b.close()

	return a.startPipeline(ctx, b, registry)
}

func (a *App) loadRegistry() (*tddf.Registry, error) {
	if a.cfg.App.RegistryFile == "" {
		return tddf.DefaultRegistry(), nil
	}

	f, err := os.Open(a.cfg.App.RegistryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	registry, err := tddf.LoadRegistry(f, tddf.DefaultRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to load registry file %s: %w", a.cfg.App.RegistryFile, err)
	}

	return registry, nil
}

func (a *App) openBackend(ctx context.Context, env tables.Environment) (*backend, error) {
	if a.cfg.App.StorageBackend == BackendMemory {
		a.log.WarnContext(ctx, "using in-memory storage, state is lost on restart")

		s := memory.NewStore()
		return &backend{store: s, contents: memory.NewContentStore(), tx: s, close: func() {}}, nil
	}

	names, err := tables.Resolve(tables.NewPrefixResolver(), env)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tables: %w", err)
	}

	a.log.InfoContext(ctx, "establishing postgresql connection",
		slog.String("postgresql_host", a.cfg.PostgreSQL.Host),
		slog.String("postgresql_port", a.cfg.PostgreSQL.Port),
		slog.String("postgresql_dbname", a.cfg.PostgreSQL.DBName),
		slog.String("uploads_table", names.Uploads),
	)

	pool, err := postgresql.NewConnection(ctx, a.log, a.cfg.PostgreSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to create db connection: %w", err)
	}

	repo := postgresql.NewRepository(pool, names)

	return &backend{store: repo, contents: repo, tx: postgresql.NewTxManager(pool), close: pool.Close}, nil
}

func (a *App) startPipeline(ctx context.Context, b *backend, registry *tddf.Registry) error {
	publisher := events.NewLogPublisher(a.log)
	classifier := tddf.NewClassifier(registry)

	policy := pipeline.RetryPolicy{
		Attempts: a.cfg.Storage.RetryAttempts,
		Delay:    a.cfg.Storage.RetryDelay,
		MaxDelay: a.cfg.Storage.RetryMaxDelay,
	}

	machine := pipeline.NewStateMachine(a.log, b.store, b.store, b.contents, publisher)
	ingestor := pipeline.NewIngestor(a.log, machine, b.store, b.contents, a.cfg.Storage.MaxUploadSize, policy)
	identifier := pipeline.NewIdentifier(a.log, machine, b.store, b.contents, classifier, a.cfg.Encoder.InsertChunk, policy)
	encoder := pipeline.NewEncoder(a.log, machine, b.store, b.store, b.tx, classifier, a.cfg.Encoder.BatchTimeout)

	processor := pipeline.NewProcessor(a.log, pipeline.ProcessorConfig{
		Interval:   a.cfg.App.ProcessInterval,
		BatchSize:  a.cfg.Encoder.BatchSize,
		MaxBatches: a.cfg.Encoder.MaxBatches,
	}, b.store, identifier, encoder)

	recovery := pipeline.NewRecovery(a.log, pipeline.RecoveryConfig{
		BatchSize:     a.cfg.Recovery.RecoveryBatchSize,
		MaxIterations: a.cfg.Recovery.MaxIterations,
		TimeBudget:    a.cfg.Recovery.TimeBudget,
		Idle:          pipeline.DefaultRecoveryConfig().Idle,
	}, b.store, encoder, publisher, policy)

	monitor := pipeline.NewMonitor(a.log, pipeline.MonitorConfig{
		Interval:    a.cfg.Monitor.MonitorInterval,
		StallWindow: a.cfg.Monitor.StallWindow,
		Tolerance:   a.cfg.Monitor.StallTolerance,
		MinPending:  a.cfg.Monitor.MinPending,
		HistorySize: pipeline.DefaultMonitorConfig().HistorySize,
	}, b.store, recovery, publisher)

	orphans := pipeline.NewOrphanResolver(a.log, pipeline.OrphanConfig{
		Interval:   a.cfg.Recovery.OrphanInterval,
		StaleAfter: a.cfg.Recovery.OrphanStaleAfter,
		ClaimTTL:   a.cfg.Recovery.ClaimTTL,
	}, b.store, b.store, machine, encoder)

	// строки, захваченные до падения, возвращаются в очередь
	if _, err := orphans.ReleaseStaleClaims(ctx); err != nil {
		return err
	}

	server := v1.NewServer(a.log, a.cfg.HTTP, v1.Services{
		Lifecycle:  machine,
		Ingestor:   ingestor,
		Identifier: identifier,
		Encoder:    encoder,
		Queries:    b.store,
		Backlog:    monitor,
		Reports:    report.NewGenerator(),
	}, v1.Options{
		APIKey:        a.cfg.HTTP.APIKey,
		Environment:   a.cfg.App.Environment,
		MaxUploadSize: a.cfg.Storage.MaxUploadSize,
		BusyThreshold: a.cfg.Monitor.BusyThreshold,
		Encode: domain.EncodeOptions{
			BatchSize:  a.cfg.Encoder.BatchSize,
			MaxBatches: a.cfg.Encoder.MaxBatches,
		},
	})

	erg, ctx := errgroup.WithContext(ctx)

	erg.Go(func() error {
		a.log.InfoContext(ctx, "processor started")
		return processor.Run(ctx)
	})

	erg.Go(func() error {
		a.log.InfoContext(ctx, "backlog monitor started")
		return monitor.Run(ctx)
	})

	erg.Go(func() error {
		a.log.InfoContext(ctx, "orphan resolver started")
		return orphans.Run(ctx)
	})

	erg.Go(func() error {
		a.log.InfoContext(ctx, "starting http server",
			slog.String("addr", net.JoinHostPort(a.cfg.HTTP.Host, a.cfg.HTTP.Port)),
		)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}

		return nil
	})

	erg.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	a.log.InfoContext(ctx, "all components started")

	if err := erg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.log.ErrorContext(ctx, "pipeline stopped with error", slog.String("err", err.Error()))

		return err
	}

	a.log.InfoContext(ctx, "pipeline stopped gracefully")

	return nil
}
