package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
	"github.com/kurochkinivan/tddf_pipeline/internal/report"
)

type Lifecycle interface {
	CreateUpload(ctx context.Context, filename, fileType, sessionID string) (*domain.Upload, error)
	Upload(ctx context.Context, id string) (*domain.Upload, error)
	AdvancePhase(ctx context.Context, id string, change domain.PhaseChange) (*domain.Upload, error)
	RewindToLastKnownGood(ctx context.Context, id string) (*domain.Upload, error)
	MarkFailed(ctx context.Context, id, reason string) (*domain.Upload, error)
	SoftDelete(ctx context.Context, id, deletedBy string) (*domain.Upload, error)
}

type ContentIngestor interface {
	StoreContent(ctx context.Context, uploadID string, data []byte) (*domain.Upload, error)
	StoreChunk(ctx context.Context, uploadID string, index, total int, data []byte) (*domain.Upload, bool, error)
}

type UploadIdentifier interface {
	Identify(ctx context.Context, uploadID string) (*domain.Upload, error)
}

type UploadEncoder interface {
	Encode(ctx context.Context, uploadID string, opts domain.EncodeOptions) (*domain.EncodeResult, error)
	CancelEncoding(ctx context.Context, uploadID string) (*domain.Upload, error)
	Reprocess(ctx context.Context, uploadID string, opts domain.EncodeOptions) (*domain.EncodeResult, error)
}

type UploadQueries interface {
	Uploads(ctx context.Context, filter domain.UploadFilter) ([]*domain.Upload, error)
	CountUploads(ctx context.Context) (domain.UploadCounts, error)
	CountRows(ctx context.Context, uploadID string) (domain.RowCounts, error)
	Rows(ctx context.Context, uploadID string, afterLine int, limit uint64) ([]*domain.RawImportRow, error)
	RecordTypeCounts(ctx context.Context, uploadID string) (map[string]int, error)
	Records(ctx context.Context, uploadID string, limit, offset uint64) ([]*domain.StructuredRecord, int, error)
}

type BacklogReporter interface {
	Status() domain.BacklogStatus
}

type ReportGenerator interface {
	GenerateReport(in report.Input) ([]byte, error)
}

// Services are the operations exposed over HTTP.
type Services struct {
	Lifecycle  Lifecycle
	Ingestor   ContentIngestor
	Identifier UploadIdentifier
	Encoder    UploadEncoder
	Queries    UploadQueries
	Backlog    BacklogReporter
	Reports    ReportGenerator
}

// Options tune request handling.
type Options struct {
	APIKey        string
	Environment   string
	MaxUploadSize int64
	BusyThreshold int
	Encode        domain.EncodeOptions
}

type Handler struct {
	log  *slog.Logger
	svc  Services
	opts Options
}

func NewHandler(log *slog.Logger, svc Services, opts Options) *Handler {
	if opts.Encode.BatchSize <= 0 {
		opts.Encode.BatchSize = 500
	}

	return &Handler{
		log:  log,
		svc:  svc,
		opts: opts,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func decodeJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", err.Error())
	}

	return nil
}
