package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// ProcessorConfig bounds the work of one processing cycle.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxBatches int
	Uploads    uint64
}

// Processor advances uploads in the background: uploaded ones are identified
// and identified or encoding ones are encoded, oldest first.
type Processor struct {
	log        *slog.Logger
	cfg        ProcessorConfig
	uploads    UploadStore
	identifier *Identifier
	encoder    *Encoder
}

func NewProcessor(
	log *slog.Logger,
	cfg ProcessorConfig,
	uploads UploadStore,
	identifier *Identifier,
	encoder *Encoder,
) *Processor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Processor{
		log:        log,
		cfg:        cfg,
		uploads:    uploads,
		identifier: identifier,
		encoder:    encoder,
	}
}

func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.log.DebugContext(ctx, "processing cycle started")

			if err := p.Cycle(ctx); err != nil {
				p.log.ErrorContext(ctx, "failed to run processing cycle", slog.String("err", err.Error()))
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Cycle runs one identify pass and one encode pass. A failing upload is
// logged and skipped.
func (p *Processor) Cycle(ctx context.Context) error {
	uploaded, err := p.uploads.Uploads(ctx, domain.UploadFilter{
		Phases: []domain.Phase{domain.PhaseUploaded},
		Limit:  p.cfg.Uploads,
	})
	if err != nil {
		return fmt.Errorf("failed to get uploaded uploads: %w", err)
	}

	for _, u := range uploaded {
		if _, err := p.identifier.Identify(ctx, u.ID); err != nil {
			p.log.ErrorContext(ctx, "failed to identify upload, skipping",
				slog.String("upload_id", u.ID),
				slog.String("err", err.Error()),
			)
		}
	}

	encodable, err := p.uploads.Uploads(ctx, domain.UploadFilter{
		Phases: []domain.Phase{domain.PhaseIdentified, domain.PhaseEncoding},
		Limit:  p.cfg.Uploads,
	})
	if err != nil {
		return fmt.Errorf("failed to get encodable uploads: %w", err)
	}

	for _, u := range encodable {
		result, err := p.encoder.Encode(ctx, u.ID, domain.EncodeOptions{
			BatchSize:  p.cfg.BatchSize,
			MaxBatches: p.cfg.MaxBatches,
		})
		if err != nil {
			p.log.ErrorContext(ctx, "failed to encode upload, skipping",
				slog.String("upload_id", u.ID),
				slog.String("err", err.Error()),
			)
			continue
		}

		p.log.DebugContext(ctx, "upload encode pass finished",
			slog.String("upload_id", u.ID),
			slog.String("phase", string(result.Phase)),
			slog.Int("batches", result.Batches),
			slog.Any("summary", result.Summary),
		)
	}

	return nil
}
