package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUpload(t *testing.T, s *memory.Store, id string, phase domain.Phase, lines int) *domain.Upload {
	t.Helper()

	ctx := context.Background()
	now := time.Now()

	u := &domain.Upload{ID: id, Filename: id + ".TSYSO", FileType: domain.FileTypeTDDF, Phase: phase, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.CreateUpload(ctx, u))

	rows := make([]*domain.RawImportRow, 0, lines)
	for i := 1; i <= lines; i++ {
		rows = append(rows, &domain.RawImportRow{
			UploadID:   id,
			LineNumber: i,
			RawLine:    fmt.Sprintf("line %d", i),
			RecordType: "DT",
			Status:     domain.RowStatusPending,
		})
	}

	inserted, err := s.InsertRows(ctx, rows)
	require.NoError(t, err)
	require.Equal(t, lines, inserted)

	return u
}

func TestStore_UpdatePhase_Conflict(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	u := seedUpload(t, s, "u1", domain.PhaseIdentified, 0)

	next := *u
	next.Phase = domain.PhaseEncoding
	require.NoError(t, s.UpdatePhase(ctx, &next, domain.PhaseIdentified))

	// второй писатель считал фазу до первого перехода
	stale := *u
	stale.Phase = domain.PhaseFailed
	require.ErrorIs(t, s.UpdatePhase(ctx, &stale, domain.PhaseIdentified), domain.ErrPhaseConflict)

	missing := *u
	missing.ID = "nope"
	require.ErrorIs(t, s.UpdatePhase(ctx, &missing, domain.PhaseIdentified), domain.ErrUploadNotFound)

	stored, err := s.Upload(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseEncoding, stored.Phase)
}

func TestStore_InsertRows_Idempotent(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseUploaded, 5)

	inserted, err := s.InsertRows(ctx, []*domain.RawImportRow{
		{UploadID: "u1", LineNumber: 5, Status: domain.RowStatusPending},
		{UploadID: "u1", LineNumber: 6, Status: domain.RowStatusPending},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	counts, err := s.CountRows(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 6, counts.Total)
}

func TestStore_ClaimRows(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseEncoding, 10)

	first, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 4, Token: "a", At: time.Now()})
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 4, Token: "b", At: time.Now()})
	require.NoError(t, err)
	require.Len(t, second, 4)

	for i, row := range first {
		assert.Equal(t, i+1, row.LineNumber)
		assert.Equal(t, domain.RowStatusClaimed, row.Status)
	}
	for i, row := range second {
		assert.Equal(t, i+5, row.LineNumber)
	}

	restricted, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 10, Token: "c", LineNumbers: []int{2, 9}, At: time.Now()})
	require.NoError(t, err)
	require.Len(t, restricted, 1)
	assert.Equal(t, 9, restricted[0].LineNumber)

	counts, err := s.CountRows(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, counts.Claimed)
	assert.Equal(t, 1, counts.Pending)
}

func TestStore_ClaimRows_OnlyBackloggedUploads(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	for _, phase := range []domain.Phase{domain.PhaseUploaded, domain.PhaseFailed, domain.PhaseEncoded} {
		id := string(phase)
		seedUpload(t, s, id, phase, 3)

		claimed, err := s.ClaimRows(ctx, domain.Claim{UploadID: id, Limit: 3, Token: "t", At: time.Now()})
		require.NoError(t, err)
		assert.Empty(t, claimed, phase)
	}

	pending, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	_, ok, err := s.OldestPendingUpload(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_CompleteRows_RequiresToken(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseEncoding, 3)

	claimed, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 3, Token: "mine", At: time.Now()})
	require.NoError(t, err)

	outcomes := make([]domain.RowOutcome, 0, len(claimed))
	for _, row := range claimed {
		outcomes = append(outcomes, domain.RowOutcome{RowID: row.ID, LineNumber: row.LineNumber, Status: domain.RowStatusSkipped})
	}

	updated, err := s.CompleteRows(ctx, "other", outcomes)
	require.NoError(t, err)
	assert.Zero(t, updated)

	updated, err = s.CompleteRows(ctx, "mine", outcomes)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	rows, err := s.Rows(ctx, "u1", 0, 0)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, domain.RowStatusSkipped, row.Status)
		assert.NotNil(t, row.ProcessedAt)
		assert.Nil(t, row.ClaimToken)
	}
}

func TestStore_CompleteRows_UploadLeftBacklog(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	u := seedUpload(t, s, "u1", domain.PhaseEncoding, 3)

	claimed, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 3, Token: "mine", At: time.Now()})
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	// загрузку отменили, пока батч был в работе
	failed := *u
	failed.Phase = domain.PhaseFailed
	require.NoError(t, s.UpdatePhase(ctx, &failed, domain.PhaseEncoding))

	outcomes := make([]domain.RowOutcome, 0, len(claimed))
	for _, row := range claimed {
		outcomes = append(outcomes, domain.RowOutcome{RowID: row.ID, LineNumber: row.LineNumber, Status: domain.RowStatusProcessed})
	}

	updated, err := s.CompleteRows(ctx, "mine", outcomes)
	require.NoError(t, err)
	assert.Zero(t, updated)

	counts, err := s.CountRows(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Claimed)
	assert.Zero(t, counts.Processed)
}

func TestStore_WithTransaction_Rollback(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseEncoding, 2)

	claimed, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 2, Token: "tok", At: time.Now()})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTransaction(ctx, func(ctx context.Context) error {
		records := []*domain.StructuredRecord{
			{UploadID: "u1", LineNumber: 1, RecordType: "DT"},
			{UploadID: "u1", LineNumber: 2, RecordType: "DT"},
		}
		if err := s.SaveRecords(ctx, records); err != nil {
			return err
		}

		outcomes := []domain.RowOutcome{
			{RowID: claimed[0].ID, Status: domain.RowStatusProcessed, RecordID: &records[0].ID},
			{RowID: claimed[1].ID, Status: domain.RowStatusProcessed, RecordID: &records[1].ID},
		}
		if _, err := s.CompleteRows(ctx, "tok", outcomes); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	_, total, err := s.Records(ctx, "u1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	counts, err := s.CountRows(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Claimed, "rows keep their claim after rollback")
}

func TestStore_WithTransaction_CancelledContext(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()

	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		cancel()
		return s.SaveRecords(ctx, []*domain.StructuredRecord{{UploadID: "u1", LineNumber: 1}})
	})
	require.ErrorIs(t, err, context.Canceled)

	_, total, err := s.Records(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStore_SaveRecords_RejectsDuplicateLine(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, s.SaveRecords(ctx, []*domain.StructuredRecord{{UploadID: "u1", LineNumber: 1}}))
	require.Error(t, s.SaveRecords(ctx, []*domain.StructuredRecord{{UploadID: "u1", LineNumber: 1}}))
}

func TestStore_ResetRows(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseEncoding, 4)

	claimed, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 3, Token: "tok", At: time.Now()})
	require.NoError(t, err)

	_, err = s.CompleteRows(ctx, "tok", []domain.RowOutcome{
		{RowID: claimed[0].ID, Status: domain.RowStatusFailed, Reason: "panic"},
		{RowID: claimed[1].ID, Status: domain.RowStatusSkipped},
	})
	require.NoError(t, err)

	// третья строка все еще claimed и не сбрасывается
	reset, err := s.ResetRows(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reset)

	counts, err := s.CountRows(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Pending)
	assert.Equal(t, 1, counts.Claimed)
}

func TestStore_ReleaseStaleClaims(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "u1", domain.PhaseEncoding, 5)

	_, err := s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 3, Token: "old", At: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	_, err = s.ClaimRows(ctx, domain.Claim{UploadID: "u1", Limit: 2, Token: "new", At: time.Now()})
	require.NoError(t, err)

	released, err := s.ReleaseStaleClaims(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, released)

	released, err = s.ReleaseClaims(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 2, released)
}

func TestStore_OldestPendingUpload(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "first", domain.PhaseEncoding, 2)
	seedUpload(t, s, "second", domain.PhaseIdentified, 2)

	id, ok, err := s.OldestPendingUpload(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", id)

	_, err = s.ClaimRows(ctx, domain.Claim{UploadID: "first", Limit: 2, Token: "t", At: time.Now()})
	require.NoError(t, err)

	id, ok, err = s.OldestPendingUpload(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", id)

	pending, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestStore_Uploads_Filter(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	seedUpload(t, s, "a", domain.PhaseUploaded, 0)
	seedUpload(t, s, "b", domain.PhaseEncoding, 0)
	seedUpload(t, s, "c", domain.PhaseUploaded, 0)

	uploads, err := s.Uploads(ctx, domain.UploadFilter{Phases: []domain.Phase{domain.PhaseUploaded}})
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "a", uploads[0].ID)
	assert.Equal(t, "c", uploads[1].ID)

	limited, err := s.Uploads(ctx, domain.UploadFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	past := time.Now().Add(-time.Hour)
	idle, err := s.Uploads(ctx, domain.UploadFilter{UpdatedUntil: &past})
	require.NoError(t, err)
	assert.Empty(t, idle)

	counts, err := s.CountUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadCounts{Pending: 2, Processing: 1}, counts)
}

func TestStore_Records_Pagination(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	ctx := context.Background()

	var records []*domain.StructuredRecord
	for _, line := range []int{5, 1, 3, 2, 4} {
		records = append(records, &domain.StructuredRecord{UploadID: "u1", LineNumber: line})
	}
	require.NoError(t, s.SaveRecords(ctx, records))

	page, total, err := s.Records(ctx, "u1", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].LineNumber)
	assert.Equal(t, 4, page[1].LineNumber)

	deleted, err := s.DeleteRecords(ctx, "u1", []int{1, 5})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, total, err = s.Records(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestContentStore_Chunks(t *testing.T) {
	t.Parallel()

	s := memory.NewContentStore()
	ctx := context.Background()

	require.NoError(t, s.PutChunk(ctx, "k", 1, []byte("world")))

	_, err := s.Assemble(ctx, "k", 2)
	require.Error(t, err, "chunk 0 is missing")

	require.NoError(t, s.PutChunk(ctx, "k", 0, []byte("hello ")))

	n, err := s.ChunkCount(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := s.Assemble(ctx, "k", 2)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	n, err = s.ChunkCount(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	s.Delete("k")
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrContentNotFound)
}
