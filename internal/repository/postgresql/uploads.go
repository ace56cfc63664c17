package postgresql

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

func (r *Repository) CreateUpload(ctx context.Context, upload *domain.Upload) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(r.tables.Uploads).
		SetMap(uploadValues(upload)).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *Repository) Upload(ctx context.Context, id string) (*domain.Upload, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select(uploadColumns...).
		From(r.tables.Uploads).
		Where(sq.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	upload, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[domain.Upload])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, collectRowsError(err)
	}

	return upload, nil
}

// UpdatePhase writes every mutable column of upload guarded by the stored
// phase. An untouched row is then told apart as missing or conflicting.
func (r *Repository) UpdatePhase(ctx context.Context, upload *domain.Upload, from domain.Phase) error {
	db := extractDB(ctx, r.pool)

	values := uploadValues(upload)
	delete(values, "id")
	delete(values, "created_at")

	sql, args, err := r.qb.
		Update(r.tables.Uploads).
		SetMap(values).
		Where(sq.Eq{"id": upload.ID, "phase": string(from), "deleted_at": nil}).
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return executeQueryError(err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.Upload(ctx, upload.ID); err != nil {
		return err
	}

	return domain.ErrPhaseConflict
}

func (r *Repository) Uploads(ctx context.Context, filter domain.UploadFilter) ([]*domain.Upload, error) {
	db := extractDB(ctx, r.pool)

	query := r.qb.
		Select(uploadColumns...).
		From(r.tables.Uploads).
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at ASC", "id ASC")

	if len(filter.Phases) > 0 {
		query = query.Where(sq.Eq{"phase": phaseStrings(filter.Phases)})
	}
	if filter.UpdatedUntil != nil {
		query = query.Where(sq.LtOrEq{"updated_at": *filter.UpdatedUntil})
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	uploads, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.Upload])
	if err != nil {
		return nil, collectRowsError(err)
	}

	return uploads, nil
}

// UploadByChecksum returns the earliest live upload with the checksum. Failed
// uploads do not block a retry of the same file.
func (r *Repository) UploadByChecksum(ctx context.Context, checksum string) (*domain.Upload, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select(uploadColumns...).
		From(r.tables.Uploads).
		Where(sq.Eq{"checksum": checksum, "deleted_at": nil}).
		Where(sq.NotEq{"phase": string(domain.PhaseFailed)}).
		OrderBy("created_at ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	upload, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByNameLax[domain.Upload])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUploadNotFound
		}
		return nil, collectRowsError(err)
	}

	return upload, nil
}

func (r *Repository) CountUploads(ctx context.Context) (domain.UploadCounts, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("phase", "COUNT(*)").
		From(r.tables.Uploads).
		Where(sq.Eq{"deleted_at": nil}).
		GroupBy("phase").
		ToSql()
	if err != nil {
		return domain.UploadCounts{}, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return domain.UploadCounts{}, executeQueryError(err)
	}
	defer rows.Close()

	var counts domain.UploadCounts
	for rows.Next() {
		var (
			phase domain.Phase
			n     int
		)
		if err := rows.Scan(&phase, &n); err != nil {
			return domain.UploadCounts{}, scanRowError(err)
		}

		switch phase {
		case domain.PhaseStarted, domain.PhaseUploading, domain.PhaseUploaded:
			counts.Pending += n
		case domain.PhaseIdentified, domain.PhaseEncoding:
			counts.Processing += n
		case domain.PhaseEncoded, domain.PhaseCompleted:
			counts.Completed += n
		case domain.PhaseFailed:
			counts.Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		return domain.UploadCounts{}, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return counts, nil
}

func uploadValues(u *domain.Upload) map[string]any {
	return map[string]any{
		"id":                    u.ID,
		"filename":              u.Filename,
		"file_type":             string(u.FileType),
		"session_id":            u.SessionID,
		"byte_size":             u.ByteSize,
		"line_count":            u.LineCount,
		"phase":                 string(u.Phase),
		"progress":              u.Progress,
		"content_key":           u.ContentKey,
		"checksum":              u.Checksum,
		"last_error":            u.LastError,
		"created_at":            u.CreatedAt,
		"updated_at":            u.UpdatedAt,
		"uploading_at":          u.UploadingAt,
		"uploaded_at":           u.UploadedAt,
		"identified_at":         u.IdentifiedAt,
		"encoding_started_at":   u.EncodingStartedAt,
		"encoding_completed_at": u.EncodingCompletedAt,
		"completed_at":          u.CompletedAt,
		"failed_at":             u.FailedAt,
		"cancelled_at":          u.CancelledAt,
		"deleted_at":            u.DeletedAt,
		"deleted_by":            u.DeletedBy,
	}
}

func phaseStrings(phases []domain.Phase) []string {
	out := make([]string, len(phases))
	for i, p := range phases {
		out[i] = string(p)
	}

	return out
}
