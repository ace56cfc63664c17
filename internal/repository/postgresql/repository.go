package postgresql

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kurochkinivan/tddf_pipeline/internal/tables"
)

// Repository implements every store the pipeline needs on top of one pool.
// Table names are resolved per environment once at construction.
type Repository struct {
	pool   *pgxpool.Pool
	qb     sq.StatementBuilderType
	tables tables.Names
}

func NewRepository(pool *pgxpool.Pool, names tables.Names) *Repository {
	return &Repository{
		pool:   pool,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		tables: names,
	}
}

var uploadColumns = []string{
	"id",
	"filename",
	"file_type",
	"session_id",
	"byte_size",
	"line_count",
	"phase",
	"progress",
	"content_key",
	"checksum",
	"last_error",
	"created_at",
	"updated_at",
	"uploading_at",
	"uploaded_at",
	"identified_at",
	"encoding_started_at",
	"encoding_completed_at",
	"completed_at",
	"failed_at",
	"cancelled_at",
	"deleted_at",
	"deleted_by",
}

var rowColumns = []string{
	"id",
	"upload_id",
	"line_number",
	"raw_line",
	"record_type",
	"status",
	"reason",
	"record_id",
	"claim_token",
	"claimed_at",
	"processed_at",
}

var recordColumns = []string{
	"id",
	"upload_id",
	"line_number",
	"record_type",
	"fields",
	"raw_line",
	"processing_micros",
	"created_at",
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
