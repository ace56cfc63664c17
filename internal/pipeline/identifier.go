package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/tddf"
)

const DefaultInsertChunk = 1000

// Identifier turns stored content into one raw import row per physical line.
type Identifier struct {
	log        *slog.Logger
	machine    *StateMachine
	rows       RowQueue
	contents   ContentStore
	classifier *tddf.Classifier
	chunkSize  int
	policy     RetryPolicy
}

func NewIdentifier(
	log *slog.Logger,
	machine *StateMachine,
	rows RowQueue,
	contents ContentStore,
	classifier *tddf.Classifier,
	chunkSize int,
	policy RetryPolicy,
) *Identifier {
	if chunkSize <= 0 {
		chunkSize = DefaultInsertChunk
	}

	return &Identifier{
		log:        log,
		machine:    machine,
		rows:       rows,
		contents:   contents,
		classifier: classifier,
		chunkSize:  chunkSize,
		policy:     policy,
	}
}

// Identify populates the raw import queue and moves the upload to identified
// with its line count. It runs from uploaded, or from failed to re-identify.
// Rows are inserted idempotently so an interrupted run can be repeated.
func (i *Identifier) Identify(ctx context.Context, uploadID string) (*domain.Upload, error) {
	u, err := i.machine.Upload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	if u.Phase != domain.PhaseUploaded && u.Phase != domain.PhaseFailed {
		return nil, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseIdentified}
	}

	log := i.log.With(slog.String("upload_id", uploadID), slog.String("phase", string(u.Phase)))

	if u.ContentKey == "" {
		return nil, fmt.Errorf("upload %s has no content: %w", uploadID, domain.ErrContentNotFound)
	}

	var data []byte
	err = retry(ctx, log, i.policy, "get content", func(ctx context.Context) error {
		content, err := i.contents.Get(ctx, u.ContentKey)
		data = content
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrContentNotFound) && u.Phase == domain.PhaseUploaded {
			if _, ferr := i.machine.MarkFailed(ctx, uploadID, "raw content missing"); ferr != nil {
				log.ErrorContext(ctx, "failed to mark upload failed", slog.String("err", ferr.Error()))
			}
		}

		return nil, fmt.Errorf("failed to load content of upload %s: %w", uploadID, err)
	}

	lines := tddf.SplitLines(data)
	rows := make([]*domain.RawImportRow, 0, len(lines))
	for _, line := range lines {
		text := tddf.Sanitize(line.Text)
		rows = append(rows, &domain.RawImportRow{
			UploadID:   uploadID,
			LineNumber: line.Number,
			RawLine:    text,
			RecordType: i.classifier.Classify(text).Code,
			Status:     domain.RowStatusPending,
		})
	}

	inserted := 0
	for part := range slices.Chunk(rows, i.chunkSize) {
		err := retry(ctx, log, i.policy, "insert rows", func(ctx context.Context) error {
			n, err := i.rows.InsertRows(ctx, part)
			inserted += n
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert rows of upload %s: %w", uploadID, err)
		}
	}

	counts, err := i.rows.CountRows(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows of upload %s: %w", uploadID, err)
	}

	if counts.Total != len(lines) {
		return nil, fmt.Errorf("upload %s has %d rows stored for %d lines", uploadID, counts.Total, len(lines))
	}

	lineCount := len(lines)
	u, err = i.machine.AdvancePhase(ctx, uploadID, domain.PhaseChange{
		To:        domain.PhaseIdentified,
		LineCount: &lineCount,
	})
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "upload identified",
		slog.Int("line_count", lineCount),
		slog.Int("rows_inserted", inserted),
		slog.Int("rows_pending", counts.Pending),
	)

	return u, nil
}
