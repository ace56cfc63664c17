package domain_test

import (
	"testing"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestPhaseChange_Apply(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.June, 24, 10, 0, 0, 0, time.UTC)
	u := &domain.Upload{ID: "u1", Phase: domain.PhaseStarted}

	domain.PhaseChange{
		To:      domain.PhaseUploaded,
		At:      at,
		Content: &domain.ContentInfo{Key: "tddf/u1", Size: 512, Checksum: "abc"},
	}.Apply(u)

	assert.Equal(t, domain.PhaseUploaded, u.Phase)
	require.NotNil(t, u.UploadedAt)
	assert.Equal(t, at, *u.UploadedAt)
	assert.Equal(t, "tddf/u1", u.ContentKey)
	assert.Equal(t, int64(512), u.ByteSize)

	domain.PhaseChange{To: domain.PhaseIdentified, At: at.Add(time.Minute), LineCount: ptr(10)}.Apply(u)
	require.NotNil(t, u.LineCount)
	assert.Equal(t, 10, *u.LineCount)

	domain.PhaseChange{
		To:           domain.PhaseFailed,
		At:           at.Add(2 * time.Minute),
		ErrorMessage: ptr("encoding cancelled"),
		Cancelled:    true,
	}.Apply(u)
	assert.Equal(t, "encoding cancelled", u.LastError)
	assert.NotNil(t, u.FailedAt)
	assert.NotNil(t, u.CancelledAt)
	assert.NotNil(t, u.IdentifiedAt, "earlier timestamps are kept")
}

func TestUpload_LastKnownGood(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.June, 24, 10, 0, 0, 0, time.UTC)

	drained := domain.RowCounts{Total: 3, Processed: 2, Skipped: 1}
	partial := domain.RowCounts{Total: 3, Processed: 1, Pending: 2}

	tests := []struct {
		name   string
		upload domain.Upload
		ev     domain.Evidence
		want   domain.Phase
	}{
		{
			name:   "nothing recorded",
			upload: domain.Upload{},
			want:   domain.PhaseStarted,
		},
		{
			name:   "uploaded but content missing",
			upload: domain.Upload{UploadedAt: &at},
			ev:     domain.Evidence{ContentPresent: false},
			want:   domain.PhaseStarted,
		},
		{
			name:   "uploaded with content",
			upload: domain.Upload{UploadedAt: &at},
			ev:     domain.Evidence{ContentPresent: true},
			want:   domain.PhaseUploaded,
		},
		{
			name:   "identified but rows incomplete",
			upload: domain.Upload{UploadedAt: &at, IdentifiedAt: &at, LineCount: ptr(5)},
			ev:     domain.Evidence{ContentPresent: true, Rows: partial},
			want:   domain.PhaseUploaded,
		},
		{
			name:   "identified with all rows",
			upload: domain.Upload{UploadedAt: &at, IdentifiedAt: &at, LineCount: ptr(3)},
			ev:     domain.Evidence{ContentPresent: true, Rows: partial},
			want:   domain.PhaseIdentified,
		},
		{
			name: "encoding started but not completed",
			upload: domain.Upload{
				UploadedAt: &at, IdentifiedAt: &at, EncodingStartedAt: &at, LineCount: ptr(3),
			},
			ev:   domain.Evidence{ContentPresent: true, Rows: partial},
			want: domain.PhaseIdentified,
		},
		{
			name: "encoded with open rows",
			upload: domain.Upload{
				UploadedAt: &at, IdentifiedAt: &at, EncodingCompletedAt: &at, LineCount: ptr(3),
			},
			ev:   domain.Evidence{ContentPresent: true, Rows: partial},
			want: domain.PhaseIdentified,
		},
		{
			name: "encoded and drained",
			upload: domain.Upload{
				UploadedAt: &at, IdentifiedAt: &at, EncodingCompletedAt: &at, LineCount: ptr(3),
			},
			ev:   domain.Evidence{ContentPresent: true, Rows: drained},
			want: domain.PhaseEncoded,
		},
		{
			name: "completed",
			upload: domain.Upload{
				UploadedAt: &at, IdentifiedAt: &at, EncodingCompletedAt: &at, CompletedAt: &at, LineCount: ptr(3),
			},
			ev:   domain.Evidence{Rows: drained},
			want: domain.PhaseCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.upload.LastKnownGood(tt.ev))
		})
	}
}

func TestBatchSummary_Merge(t *testing.T) {
	t.Parallel()

	var total domain.BatchSummary
	for range 3 {
		var s domain.BatchSummary
		s.Claimed = 30
		s.Processed = 10
		for i := range 20 {
			s.AddFailure(i+1, "boom")
		}
		total.Merge(s)
	}

	assert.Equal(t, 90, total.Claimed)
	assert.Equal(t, 30, total.Processed)
	assert.Equal(t, 60, total.Failed)
	assert.Len(t, total.Failures, 50)
}

func TestPhaseChange_ApplyRewind(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, time.June, 24, 10, 0, 0, 0, time.UTC)
	later := at.Add(time.Hour)
	u := &domain.Upload{
		Phase:               domain.PhaseEncoded,
		UploadingAt:         &at,
		UploadedAt:          &at,
		IdentifiedAt:        &at,
		EncodingStartedAt:   &at,
		EncodingCompletedAt: &at,
		LineCount:           ptr(4),
	}

	domain.PhaseChange{To: domain.PhaseIdentified, At: later, Rewind: true}.Apply(u)

	assert.Equal(t, domain.PhaseIdentified, u.Phase)
	assert.Equal(t, later, u.UpdatedAt)
	require.NotNil(t, u.IdentifiedAt)
	assert.Equal(t, at, *u.IdentifiedAt, "rewind does not restamp the target phase")
	assert.Nil(t, u.EncodingStartedAt)
	assert.Nil(t, u.EncodingCompletedAt)
	assert.NotNil(t, u.LineCount)
}
