package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
)

const (
	DefaultBatchSize  = 500
	RecoveryBatchSize = 1000

	releaseTimeout = 10 * time.Second
)

// Encoder decodes claimed raw import rows into structured records.
type Encoder struct {
	log        *slog.Logger
	machine    *StateMachine
	rows       RowQueue
	records    RecordStore
	tx         Transactor
	classifier *tddf.Classifier
	timeout    time.Duration
	now        func() time.Time

	mu      sync.Mutex
	runSeq  int64
	running map[string]map[int64]context.CancelCauseFunc
}

func NewEncoder(
	log *slog.Logger,
	machine *StateMachine,
	rows RowQueue,
	records RecordStore,
	tx Transactor,
	classifier *tddf.Classifier,
	batchTimeout time.Duration,
) *Encoder {
	return &Encoder{
		log:        log,
		machine:    machine,
		rows:       rows,
		records:    records,
		tx:         tx,
		classifier: classifier,
		timeout:    batchTimeout,
		now:        time.Now,
		running:    make(map[string]map[int64]context.CancelCauseFunc),
	}
}

// EncodeBatch claims up to batchSize pending rows of the upload, oldest line
// first, and writes their outcome. Row failures are recorded in the summary
// and never returned. When the batch cannot be persisted, including on
// timeout, its rows are released back to pending.
// A batch stopped by CancelEncoding returns ErrEncodingCancelled.
func (e *Encoder) EncodeBatch(ctx context.Context, uploadID string, batchSize int) (domain.BatchSummary, error) {
	ectx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	release := e.register(uploadID, cancel)
	defer release()

	summary, err := e.encodeBatch(ectx, uploadID, batchSize, nil)
	if err != nil && errors.Is(context.Cause(ectx), domain.ErrEncodingCancelled) {
		return summary, fmt.Errorf("%w: %w", domain.ErrEncodingCancelled, err)
	}

	return summary, err
}

func (e *Encoder) encodeBatch(
	ctx context.Context,
	uploadID string,
	batchSize int,
	lineNumbers []int,
) (summary domain.BatchSummary, err error) {
	if batchSize <= 0 {
		return summary, domain.NewValidationError("batch_size", "must be positive")
	}

	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	bctx, cancel := e.batchContext(ctx)
	defer cancel()

	log := e.log.With(slog.String("upload_id", uploadID))
	token := uuid.NewString()

	claimed, err := e.rows.ClaimRows(bctx, domain.Claim{
		UploadID:    uploadID,
		Limit:       batchSize,
		Token:       token,
		LineNumbers: lineNumbers,
		At:          e.now(),
	})
	if err != nil {
		err = e.abort(ctx, log, &summary, token, fmt.Errorf("failed to claim rows: %w", err))
		return summary, err
	}

	summary.Claimed = len(claimed)
	if len(claimed) == 0 {
		return summary, nil
	}

	decoded := domain.BatchSummary{Claimed: summary.Claimed}
	records, outcomes, owners := e.decode(ctx, log, claimed, &decoded)

	err = e.tx.WithTransaction(bctx, func(ctx context.Context) error {
		if len(records) > 0 {
			if err := e.records.SaveRecords(ctx, records); err != nil {
				return fmt.Errorf("failed to save records: %w", err)
			}

			for i, rec := range records {
				id := rec.ID
				outcomes[owners[i]].RecordID = &id
			}
		}

		completed, err := e.rows.CompleteRows(ctx, token, outcomes)
		if err != nil {
			return fmt.Errorf("failed to complete rows: %w", err)
		}

		if completed != len(outcomes) {
			return fmt.Errorf("%w: completed %d of %d rows", domain.ErrClaimLost, completed, len(outcomes))
		}

		return nil
	})
	if err != nil {
		err = e.abort(ctx, log, &summary, token, err)
		return summary, err
	}

	log.DebugContext(ctx, "batch encoded", slog.Any("summary", decoded))

	return decoded, nil
}

func (e *Encoder) batchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, e.timeout)
}

// abort releases the rows claimed under token. Their true outcome is unknown,
// so they go back to pending rather than to failed.
func (e *Encoder) abort(
	ctx context.Context,
	log *slog.Logger,
	summary *domain.BatchSummary,
	token string,
	cause error,
) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	released, err := e.rows.ReleaseClaims(rctx, token)
	if err != nil {
		log.ErrorContext(ctx, "failed to release claimed rows, leaving them to the stale claim sweep",
			slog.String("claim_token", token),
			slog.String("err", err.Error()),
		)
	}
	summary.Released = released

	log.WarnContext(ctx, "batch aborted",
		slog.Int("claimed", summary.Claimed),
		slog.Int("released", released),
		slog.String("err", cause.Error()),
	)

	if errors.Is(cause, context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %w", domain.ErrBatchTimeout, cause)
	}

	return cause
}

// decode is pure computation. owners[i] is the index in outcomes of the row
// that produced records[i].
func (e *Encoder) decode(
	ctx context.Context,
	log *slog.Logger,
	rows []*domain.RawImportRow,
	summary *domain.BatchSummary,
) ([]*domain.StructuredRecord, []domain.RowOutcome, []int) {
	var (
		records  []*domain.StructuredRecord
		owners   []int
		outcomes = make([]domain.RowOutcome, 0, len(rows))
	)

	for _, row := range rows {
		rec, outcome := e.decodeRow(ctx, log, row)

		switch outcome.Status {
		case domain.RowStatusProcessed:
			summary.Processed++
			records = append(records, rec)
			owners = append(owners, len(outcomes))
		case domain.RowStatusSkipped:
			summary.Skipped++
		case domain.RowStatusFailed:
			summary.AddFailure(row.LineNumber, outcome.Reason)
		}

		outcomes = append(outcomes, outcome)
	}

	return records, outcomes, owners
}

func (e *Encoder) decodeRow(
	ctx context.Context,
	log *slog.Logger,
	row *domain.RawImportRow,
) (rec *domain.StructuredRecord, outcome domain.RowOutcome) {
	outcome = domain.RowOutcome{RowID: row.ID, LineNumber: row.LineNumber}

	defer func() {
		if r := recover(); r != nil {
			rec = nil
			outcome.Status = domain.RowStatusFailed
			outcome.Reason = fmt.Sprintf("decode panic: %v", r)
		}
	}()

	c := e.classifier.Classify(row.RawLine)
	if !c.Processable() {
		outcome.Status = domain.RowStatusSkipped
		outcome.Reason = domain.ReasonNotProcessable
		return nil, outcome
	}

	start := time.Now()
	decoded := c.Schema.Extract(row.RawLine)

	for _, d := range decoded.Degradations {
		log.DebugContext(ctx, "field degraded",
			slog.Int("line_number", row.LineNumber),
			slog.String("record_type", c.Code),
			slog.String("field", d.Field),
			slog.String("reason", d.Reason),
		)
	}

	outcome.Status = domain.RowStatusProcessed

	return &domain.StructuredRecord{
		UploadID:         row.UploadID,
		LineNumber:       row.LineNumber,
		RecordType:       c.Code,
		Fields:           decoded.Fields,
		RawLine:          row.RawLine,
		ProcessingMicros: time.Since(start).Microseconds(),
	}, outcome
}

// Begin moves an identified upload to encoding. An upload already encoding is
// returned as is.
func (e *Encoder) Begin(ctx context.Context, uploadID string) (*domain.Upload, error) {
	u, err := e.machine.Upload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	switch u.Phase {
	case domain.PhaseEncoding:
		return u, nil
	case domain.PhaseIdentified:
	default:
		return nil, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseEncoding}
	}

	started, err := e.machine.AdvancePhase(ctx, uploadID, domain.PhaseChange{To: domain.PhaseEncoding})
	if errors.Is(err, domain.ErrPhaseConflict) {
		return e.Begin(ctx, uploadID)
	}

	return started, err
}

// Finalize moves an encoding upload to encoded once none of its rows is
// pending or claimed. Any other upload is returned unchanged.
func (e *Encoder) Finalize(ctx context.Context, uploadID string) (*domain.Upload, error) {
	u, err := e.machine.Upload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	if u.Phase != domain.PhaseEncoding {
		return u, nil
	}

	counts, err := e.rows.CountRows(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows of upload %s: %w", uploadID, err)
	}

	if counts.Open() > 0 {
		return u, nil
	}

	if u.LineCount != nil && counts.Total != *u.LineCount {
		e.log.WarnContext(ctx, "upload row count does not match line count, not finalizing",
			slog.String("upload_id", uploadID),
			slog.Int("rows", counts.Total),
			slog.Int("line_count", *u.LineCount),
		)
		return u, nil
	}

	progress := 100
	encoded, err := e.machine.AdvancePhase(ctx, uploadID, domain.PhaseChange{
		To:       domain.PhaseEncoded,
		Progress: &progress,
	})
	if errors.Is(err, domain.ErrPhaseConflict) {
		return e.machine.Upload(ctx, uploadID)
	}
	if err != nil {
		return nil, err
	}

	e.log.InfoContext(ctx, "upload encoded",
		slog.String("upload_id", uploadID),
		slog.Int("processed", counts.Processed),
		slog.Int("skipped", counts.Skipped),
		slog.Int("failed", counts.Failed),
	)

	return encoded, nil
}

// Encode drives an upload through encoding: it runs batches until no pending
// row is left or opts.MaxBatches is reached, then finalizes.
func (e *Encoder) Encode(ctx context.Context, uploadID string, opts domain.EncodeOptions) (*domain.EncodeResult, error) {
	if opts.BatchSize <= 0 {
		return nil, domain.NewValidationError("batch_size", "must be positive")
	}
	if opts.MaxBatches < 0 {
		return nil, domain.NewValidationError("max_batches", "must not be negative")
	}

	if _, err := e.Begin(ctx, uploadID); err != nil {
		return nil, err
	}

	ectx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	release := e.register(uploadID, cancel)
	defer release()

	result := &domain.EncodeResult{UploadID: uploadID}

	for opts.MaxBatches == 0 || result.Batches < opts.MaxBatches {
		summary, err := e.encodeBatch(ectx, uploadID, opts.BatchSize, opts.LineNumbers)
		result.Summary.Merge(summary)

		if err != nil {
			if errors.Is(context.Cause(ectx), domain.ErrEncodingCancelled) {
				return e.complete(ctx, result, domain.ErrEncodingCancelled)
			}

			return e.complete(ctx, result, fmt.Errorf("failed to encode batch %d of upload %s: %w",
				result.Batches+1, uploadID, err))
		}

		if summary.Claimed == 0 {
			break
		}

		result.Batches++
	}

	if errors.Is(context.Cause(ectx), domain.ErrEncodingCancelled) {
		return e.complete(ctx, result, domain.ErrEncodingCancelled)
	}

	if _, err := e.Finalize(ctx, uploadID); err != nil {
		return e.complete(ctx, result, err)
	}

	return e.complete(ctx, result, nil)
}

// complete fills the current phase and row counts into result.
func (e *Encoder) complete(ctx context.Context, result *domain.EncodeResult, cause error) (*domain.EncodeResult, error) {
	rctx := context.WithoutCancel(ctx)

	u, err := e.machine.Upload(rctx, result.UploadID)
	if err != nil {
		return result, errors.Join(cause, err)
	}
	result.Phase = u.Phase

	counts, err := e.rows.CountRows(rctx, result.UploadID)
	if err != nil {
		return result, errors.Join(cause, err)
	}
	result.Rows = counts

	return result, cause
}

func (e *Encoder) register(uploadID string, cancel context.CancelCauseFunc) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runSeq++
	seq := e.runSeq

	runs, ok := e.running[uploadID]
	if !ok {
		runs = make(map[int64]context.CancelCauseFunc)
		e.running[uploadID] = runs
	}
	runs[seq] = cancel

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		delete(runs, seq)
		if len(runs) == 0 {
			delete(e.running, uploadID)
		}
	}
}

// CancelEncoding fails an encoding upload and stops its in-process runs.
// Processed rows stay processed; the in-flight batch is released to pending.
func (e *Encoder) CancelEncoding(ctx context.Context, uploadID string) (*domain.Upload, error) {
	u, err := e.machine.MarkCancelled(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	stopped := len(e.running[uploadID])
	for _, cancel := range e.running[uploadID] {
		cancel(domain.ErrEncodingCancelled)
	}
	e.mu.Unlock()

	e.log.InfoContext(ctx, "encoding cancelled",
		slog.String("upload_id", uploadID),
		slog.Int("runs_stopped", stopped),
	)

	return u, nil
}

// Reprocess re-encodes lines of an already encoded or failed upload. Records
// previously produced for the lines are deleted and the rows reset to pending
// in one transaction, so no line ends up with two records. An empty
// LineNumbers reprocesses the whole upload.
func (e *Encoder) Reprocess(ctx context.Context, uploadID string, opts domain.EncodeOptions) (*domain.EncodeResult, error) {
	if opts.BatchSize <= 0 {
		return nil, domain.NewValidationError("batch_size", "must be positive")
	}

	u, err := e.machine.Upload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	switch u.Phase {
	case domain.PhaseEncoded, domain.PhaseCompleted, domain.PhaseFailed:
	default:
		return nil, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseEncoding}
	}

	if u.LineCount == nil {
		return nil, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseEncoding}
	}

	var deleted, reset int
	err = e.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error

		if deleted, err = e.records.DeleteRecords(ctx, uploadID, opts.LineNumbers); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}

		if reset, err = e.rows.ResetRows(ctx, uploadID, opts.LineNumbers); err != nil {
			return fmt.Errorf("failed to reset rows: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset upload %s: %w", uploadID, err)
	}

	e.log.InfoContext(ctx, "rows reset for reprocessing",
		slog.String("upload_id", uploadID),
		slog.Int("records_deleted", deleted),
		slog.Int("rows_reset", reset),
	)

	u, err = e.machine.RewindToLastKnownGood(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	if u.Phase != domain.PhaseIdentified {
		return nil, fmt.Errorf("upload %s rewound to %s, cannot reprocess: %w",
			uploadID, u.Phase, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseEncoding})
	}

	return e.Encode(ctx, uploadID, opts)
}
