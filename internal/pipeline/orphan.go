package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type OrphanConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	ClaimTTL   time.Duration
	Limit      uint64
}

// SweepReport counts what one orphan sweep changed.
type SweepReport struct {
	ReleasedClaims int
	Inspected      int
	Finalized      int
	Rewound        int
}

func (r SweepReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("released_claims", r.ReleasedClaims),
		slog.Int("inspected", r.Inspected),
		slog.Int("finalized", r.Finalized),
		slog.Int("rewound", r.Rewound),
	)
}

// OrphanResolver finds uploads left in an in-flight phase by a crashed or
// abandoned worker and reconciles their phase with their artifacts.
type OrphanResolver struct {
	log       *slog.Logger
	cfg       OrphanConfig
	uploads   UploadStore
	rows      RowQueue
	machine   *StateMachine
	finalizer Finalizer
	now       func() time.Time
}

func NewOrphanResolver(
	log *slog.Logger,
	cfg OrphanConfig,
	uploads UploadStore,
	rows RowQueue,
	machine *StateMachine,
	finalizer Finalizer,
) *OrphanResolver {
	return &OrphanResolver{
		log:       log,
		cfg:       cfg,
		uploads:   uploads,
		rows:      rows,
		machine:   machine,
		finalizer: finalizer,
		now:       time.Now,
	}
}

func (o *OrphanResolver) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := o.Sweep(ctx)
			if err != nil {
				o.log.ErrorContext(ctx, "failed to sweep orphaned uploads", slog.String("err", err.Error()))
				continue
			}

			o.log.DebugContext(ctx, "orphan sweep finished", slog.Any("report", report))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReleaseStaleClaims returns rows claimed longer than the claim TTL to pending.
func (o *OrphanResolver) ReleaseStaleClaims(ctx context.Context) (int, error) {
	released, err := o.rows.ReleaseStaleClaims(ctx, o.now().Add(-o.cfg.ClaimTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	if released > 0 {
		o.log.InfoContext(ctx, "stale claims released", slog.Int("rows", released))
	}

	return released, nil
}

func (o *OrphanResolver) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	released, err := o.ReleaseStaleClaims(ctx)
	if err != nil {
		return report, err
	}
	report.ReleasedClaims = released

	idleSince := o.now().Add(-o.cfg.StaleAfter)
	orphans, err := o.uploads.Uploads(ctx, domain.UploadFilter{
		Phases: []domain.Phase{
			domain.PhaseUploading,
			domain.PhaseUploaded,
			domain.PhaseIdentified,
			domain.PhaseEncoding,
		},
		UpdatedUntil: &idleSince,
		Limit:        o.cfg.Limit,
	})
	if err != nil {
		return report, fmt.Errorf("failed to get idle uploads: %w", err)
	}

	for _, u := range orphans {
		report.Inspected++

		log := o.log.With(slog.String("upload_id", u.ID), slog.String("phase", string(u.Phase)))

		if err := o.resolve(ctx, log, u, &report); err != nil {
			log.ErrorContext(ctx, "failed to resolve orphaned upload, skipping", slog.String("err", err.Error()))
		}
	}

	return report, nil
}

func (o *OrphanResolver) resolve(ctx context.Context, log *slog.Logger, u *domain.Upload, report *SweepReport) error {
	counts, err := o.rows.CountRows(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}

	rowsComplete := u.LineCount != nil && counts.Total == *u.LineCount

	if u.Phase == domain.PhaseEncoding && rowsComplete {
		if counts.Open() > 0 {
			// still encodable, the processor or recovery will pick it up
			return nil
		}

		if _, err := o.finalizer.Finalize(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to finalize: %w", err)
		}

		report.Finalized++
		log.InfoContext(ctx, "orphaned upload finalized")

		return nil
	}

	rewound, err := o.machine.RewindToLastKnownGood(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("failed to rewind: %w", err)
	}

	if rewound.Phase != u.Phase {
		report.Rewound++
	}

	return nil
}
