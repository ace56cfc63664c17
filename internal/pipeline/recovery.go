package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type RecoveryConfig struct {
	BatchSize     int
	MaxIterations int
	TimeBudget    time.Duration
	// Idle is the pause after an iteration that claimed nothing, e.g. when
	// another worker holds the remaining rows.
	Idle time.Duration
}

func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		BatchSize:     RecoveryBatchSize,
		MaxIterations: 100,
		TimeBudget:    10 * time.Minute,
		Idle:          time.Second,
	}
}

// Recovery drains the backlog oldest pending upload first, one upload at a
// time, with the large batch size.
type Recovery struct {
	log     *slog.Logger
	cfg     RecoveryConfig
	backlog BacklogCounter
	encoder *Encoder
	events  EventPublisher
	policy  RetryPolicy
	now     func() time.Time
}

func NewRecovery(
	log *slog.Logger,
	cfg RecoveryConfig,
	backlog BacklogCounter,
	encoder *Encoder,
	events EventPublisher,
	policy RetryPolicy,
) *Recovery {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = RecoveryBatchSize
	}

	return &Recovery{
		log:     log,
		cfg:     cfg,
		backlog: backlog,
		encoder: encoder,
		events:  events,
		policy:  policy,
		now:     time.Now,
	}
}

// Drain encodes batches until no row is pending. It returns a
// *domain.BacklogStallError when the iteration or time budget runs out or the
// storage stays unavailable.
func (r *Recovery) Drain(ctx context.Context) (*domain.RecoveryReport, error) {
	report := &domain.RecoveryReport{StartedAt: r.now()}

	pending, err := r.pending(ctx)
	if err != nil {
		return r.stall(ctx, report, 0, err)
	}
	report.Initial = pending

	r.log.InfoContext(ctx, "backlog recovery started",
		slog.Int("pending", pending),
		slog.Int("batch_size", r.cfg.BatchSize),
		slog.Int("max_iterations", r.cfg.MaxIterations),
	)

	deadline := report.StartedAt.Add(r.cfg.TimeBudget)

	for {
		if pending == 0 {
			return r.drained(ctx, report), nil
		}

		if report.Iterations >= r.cfg.MaxIterations || (r.cfg.TimeBudget > 0 && !r.now().Before(deadline)) {
			return r.stall(ctx, report, pending, nil)
		}

		if err := r.iterate(ctx, report); err != nil {
			if ctx.Err() != nil {
				report.Remaining = pending
				report.FinishedAt = r.now()
				return report, ctx.Err()
			}

			return r.stall(ctx, report, pending, err)
		}

		if pending, err = r.pending(ctx); err != nil {
			return r.stall(ctx, report, pending, err)
		}
	}
}

// iterate runs one batch on the oldest pending upload. Batch timeouts are
// transient: the rows were released and are picked up again.
func (r *Recovery) iterate(ctx context.Context, report *domain.RecoveryReport) error {
	report.Iterations++

	uploadID, ok, err := r.oldest(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	log := r.log.With(slog.String("upload_id", uploadID), slog.Int("iteration", report.Iterations))

	if _, err := r.encoder.Begin(ctx, uploadID); err != nil {
		var illegal *domain.IllegalTransitionError
		if errors.As(err, &illegal) || errors.Is(err, domain.ErrUploadNotFound) {
			// the upload left the backlog concurrently
			log.DebugContext(ctx, "upload no longer encodable", slog.String("err", err.Error()))
			return nil
		}

		return fmt.Errorf("failed to begin encoding: %w", err)
	}

	summary, err := r.encoder.EncodeBatch(ctx, uploadID, r.cfg.BatchSize)
	report.Summary.Merge(summary)

	switch {
	case errors.Is(err, domain.ErrBatchTimeout):
		log.WarnContext(ctx, "recovery batch timed out, rows released", slog.Int("released", summary.Released))
		return nil
	case errors.Is(err, domain.ErrEncodingCancelled), errors.Is(err, domain.ErrClaimLost):
		// загрузку отменили или удалили во время батча
		log.InfoContext(ctx, "upload left the backlog during recovery batch, rows released",
			slog.Int("released", summary.Released),
			slog.String("err", err.Error()),
		)
		return nil
	case err != nil:
		return fmt.Errorf("failed to encode batch of upload %s: %w", uploadID, err)
	}

	log.DebugContext(ctx, "recovery batch encoded", slog.Any("summary", summary))

	if summary.Claimed == 0 {
		r.idle(ctx)
		return nil
	}

	if _, err := r.encoder.Finalize(ctx, uploadID); err != nil {
		log.ErrorContext(ctx, "failed to finalize upload", slog.String("err", err.Error()))
	}

	return nil
}

func (r *Recovery) idle(ctx context.Context) {
	if r.cfg.Idle <= 0 {
		return
	}

	select {
	case <-time.After(r.cfg.Idle):
	case <-ctx.Done():
	}
}

func (r *Recovery) pending(ctx context.Context) (int, error) {
	var pending int
	err := retry(ctx, r.log, r.policy, "count pending rows", func(ctx context.Context) error {
		n, err := r.backlog.PendingCount(ctx)
		pending = n
		return err
	})

	return pending, err
}

func (r *Recovery) oldest(ctx context.Context) (string, bool, error) {
	var (
		uploadID string
		ok       bool
	)
	err := retry(ctx, r.log, r.policy, "find oldest pending upload", func(ctx context.Context) error {
		id, found, err := r.backlog.OldestPendingUpload(ctx)
		uploadID, ok = id, found
		return err
	})

	return uploadID, ok, err
}

func (r *Recovery) drained(ctx context.Context, report *domain.RecoveryReport) *domain.RecoveryReport {
	report.Drained = true
	report.FinishedAt = r.now()

	r.log.InfoContext(ctx, "backlog drained",
		slog.Int("initial_pending", report.Initial),
		slog.Int("iterations", report.Iterations),
		slog.Any("summary", report.Summary),
	)

	r.publish(ctx, domain.Event{Type: domain.EventBacklogDrained, At: report.FinishedAt})

	return report
}

func (r *Recovery) stall(
	ctx context.Context,
	report *domain.RecoveryReport,
	pending int,
	cause error,
) (*domain.RecoveryReport, error) {
	report.Remaining = pending
	report.FinishedAt = r.now()

	stall := &domain.BacklogStallError{
		Pending:    pending,
		Iterations: report.Iterations,
		Elapsed:    report.FinishedAt.Sub(report.StartedAt),
		Err:        cause,
	}
	report.Error = stall.Error()

	r.log.ErrorContext(ctx, "backlog recovery failed",
		slog.Int("pending", pending),
		slog.Int("iterations", report.Iterations),
		slog.String("err", stall.Error()),
	)

	r.publish(ctx, domain.Event{
		Type:    domain.EventRecoveryFailed,
		At:      report.FinishedAt,
		Reason:  stall.Error(),
		Pending: pending,
	})

	return report, stall
}

func (r *Recovery) publish(ctx context.Context, event domain.Event) {
	if r.events != nil {
		r.events.Publish(ctx, event)
	}
}
