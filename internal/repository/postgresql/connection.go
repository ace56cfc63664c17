package postgresql

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kurochkinivan/tddf_pipeline/internal/config"
)

const (
	defaultConnectAttempts = 5
	defaultConnectDelay    = 5 * time.Second
)

// NewConnection opens a pool and waits until the database answers a ping.
func NewConnection(ctx context.Context, log *slog.Logger, cfg config.PostgreSQL) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(ConnectionURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	attempts, delay := cfg.ConnectAttempts, cfg.ConnectDelay
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}
	if delay <= 0 {
		delay = defaultConnectDelay
	}

	if err := Retry(log, pool.Ping, attempts, delay)(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping pool: %w", err)
	}

	log.DebugContext(ctx, "database pool ready",
		slog.String("host", cfg.Host),
		slog.Int("max_conns", int(poolCfg.MaxConns)),
	)

	return pool, nil
}

func ConnectionURL(cfg config.PostgreSQL) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     cfg.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}).String()
}

type PingFunction func(context.Context) error

// Retry calls ping up to retries+1 times, sleeping delay between attempts.
func Retry(log *slog.Logger, ping PingFunction, retries int, delay time.Duration) PingFunction {
	return func(ctx context.Context) error {
		for r := 0; ; r++ {
			err := ping(ctx)
			if err == nil || r >= retries {
				return err
			}

			log.DebugContext(ctx, "database connection attempt failed, retrying",
				slog.Int("attempt", r+1),
				slog.Int("max_retries", retries),
				slog.String("err", err.Error()))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
