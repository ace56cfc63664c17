package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

type Config struct {
	App
	Encoder
	Monitor
	Recovery
	Storage
	PostgreSQL
	HTTP
}

type App struct {
	Environment     string
	StorageBackend  string
	RegistryFile    string
	ProcessInterval time.Duration
}

type Encoder struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxBatches   int
	InsertChunk  int
}

type Monitor struct {
	MonitorInterval time.Duration
	StallWindow     time.Duration
	StallTolerance  int
	MinPending      int
	BusyThreshold   int
}

type Recovery struct {
	RecoveryBatchSize int
	MaxIterations     int
	TimeBudget        time.Duration
	ClaimTTL          time.Duration
	OrphanInterval    time.Duration
	OrphanStaleAfter  time.Duration
}

type Storage struct {
	MaxUploadSize int64
	RetryAttempts int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

type PostgreSQL struct {
	Host            string
	Port            string
	Username        string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	ConnectAttempts int
	ConnectDelay    time.Duration
}

type HTTP struct {
	Host         string
	Port         string
	APIKey       string
	IdleTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func Load(cmd *cli.Command) *Config {
	return &Config{
		App: App{
			Environment:     cmd.String("environment"),
			StorageBackend:  cmd.String("storage-backend"),
			RegistryFile:    cmd.String("registry-file"),
			ProcessInterval: cmd.Duration("process-interval"),
		},
		Encoder: Encoder{
			BatchSize:    cmd.Int("batch-size"),
			BatchTimeout: cmd.Duration("batch-timeout"),
			MaxBatches:   cmd.Int("max-batches"),
			InsertChunk:  cmd.Int("insert-chunk"),
		},
		Monitor: Monitor{
			MonitorInterval: cmd.Duration("monitor-interval"),
			StallWindow:     cmd.Duration("stall-window"),
			StallTolerance:  cmd.Int("stall-tolerance"),
			MinPending:      cmd.Int("stall-min-pending"),
			BusyThreshold:   cmd.Int("busy-threshold"),
		},
		Recovery: Recovery{
			RecoveryBatchSize: cmd.Int("recovery-batch-size"),
			MaxIterations:     cmd.Int("recovery-max-iterations"),
			TimeBudget:        cmd.Duration("recovery-time-budget"),
			ClaimTTL:          cmd.Duration("claim-ttl"),
			OrphanInterval:    cmd.Duration("orphan-interval"),
			OrphanStaleAfter:  cmd.Duration("orphan-stale-after"),
		},
		Storage: Storage{
			MaxUploadSize: cmd.Int64("max-upload-size"),
			RetryAttempts: cmd.Int("storage-retry-attempts"),
			RetryDelay:    cmd.Duration("storage-retry-delay"),
			RetryMaxDelay: cmd.Duration("storage-retry-max-delay"),
		},
		PostgreSQL: PostgreSQL{
			Host:            cmd.String("pg-host"),
			Port:            cmd.String("pg-port"),
			Username:        cmd.String("pg-username"),
			Password:        cmd.String("pg-password"),
			DBName:          cmd.String("pg-dbname"),
			SSLMode:         cmd.String("pg-sslmode"),
			MaxConns:        int32(cmd.Int("pg-max-conns")),
			ConnectAttempts: cmd.Int("pg-connect-attempts"),
			ConnectDelay:    cmd.Duration("pg-connect-delay"),
		},
		HTTP: HTTP{
			Host:         cmd.String("http-host"),
			Port:         cmd.String("http-port"),
			APIKey:       cmd.String("api-key"),
			IdleTimeout:  cmd.Duration("http-idle-timeout"),
			ReadTimeout:  cmd.Duration("http-read-timeout"),
			WriteTimeout: cmd.Duration("http-write-timeout"),
		},
	}
}
