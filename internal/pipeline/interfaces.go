package pipeline

import (
	"context"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type UploadStore interface {
	CreateUpload(ctx context.Context, upload *domain.Upload) error
	Upload(ctx context.Context, id string) (*domain.Upload, error)
	// UpdatePhase persists upload only if its stored phase is still from.
	UpdatePhase(ctx context.Context, upload *domain.Upload, from domain.Phase) error
	Uploads(ctx context.Context, filter domain.UploadFilter) ([]*domain.Upload, error)
	UploadByChecksum(ctx context.Context, checksum string) (*domain.Upload, error)
	CountUploads(ctx context.Context) (domain.UploadCounts, error)
}

type RowQueue interface {
	InsertRows(ctx context.Context, rows []*domain.RawImportRow) (int, error)
	CountRows(ctx context.Context, uploadID string) (domain.RowCounts, error)
	ClaimRows(ctx context.Context, claim domain.Claim) ([]*domain.RawImportRow, error)
	CompleteRows(ctx context.Context, token string, outcomes []domain.RowOutcome) (int, error)
	ReleaseClaims(ctx context.Context, token string) (int, error)
	ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int, error)
	ResetRows(ctx context.Context, uploadID string, lineNumbers []int) (int, error)
}

// BacklogCounter counts pending rows of uploads that are expected to encode.
type BacklogCounter interface {
	PendingCount(ctx context.Context) (int, error)
	OldestPendingUpload(ctx context.Context) (string, bool, error)
}

type RecordStore interface {
	SaveRecords(ctx context.Context, records []*domain.StructuredRecord) error
	DeleteRecords(ctx context.Context, uploadID string, lineNumbers []int) (int, error)
}

type ContentStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	PutChunk(ctx context.Context, key string, index int, data []byte) error
	ChunkCount(ctx context.Context, key string) (int, error)
	Assemble(ctx context.Context, key string, total int) ([]byte, error)
}

type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

type Drainer interface {
	Drain(ctx context.Context) (*domain.RecoveryReport, error)
}

type Finalizer interface {
	Finalize(ctx context.Context, uploadID string) (*domain.Upload, error)
}
