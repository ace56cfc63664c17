package domain

import (
	"log/slog"
	"time"
)

// RowFailure is a row that failed during a batch. It never aborts the batch.
type RowFailure struct {
	LineNumber int    `json:"line_number"`
	Reason     string `json:"reason"`
}

const maxReportedFailures = 50

// BatchSummary counts the outcome of one encodeBatch invocation.
type BatchSummary struct {
	Claimed   int           `json:"claimed"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Released  int           `json:"released"`
	Failures  []RowFailure  `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

func (s *BatchSummary) AddFailure(line int, reason string) {
	s.Failed++
	if len(s.Failures) < maxReportedFailures {
		s.Failures = append(s.Failures, RowFailure{LineNumber: line, Reason: reason})
	}
}

func (s *BatchSummary) Merge(other BatchSummary) {
	s.Claimed += other.Claimed
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Released += other.Released
	s.Duration += other.Duration

	for _, f := range other.Failures {
		if len(s.Failures) >= maxReportedFailures {
			break
		}
		s.Failures = append(s.Failures, f)
	}
}

func (s BatchSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("claimed", s.Claimed),
		slog.Int("processed", s.Processed),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Int("released", s.Released),
		slog.Duration("duration", s.Duration),
	)
}

// EncodeOptions bound one run of the encode driver. A zero MaxBatches runs
// until no pending row is left.
type EncodeOptions struct {
	BatchSize   int   `json:"batch_size"`
	MaxBatches  int   `json:"max_batches"`
	LineNumbers []int `json:"line_numbers,omitempty"`
}

// EncodeResult is returned by the encode driver for one upload.
type EncodeResult struct {
	UploadID string       `json:"upload_id"`
	Phase    Phase        `json:"phase"`
	Batches  int          `json:"batches"`
	Summary  BatchSummary `json:"summary"`
	Rows     RowCounts    `json:"rows"`
}
