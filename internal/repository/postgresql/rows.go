package postgresql

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// insertChunk keeps a multi row insert well under the bind parameter limit.
const insertChunk = 1000

var backlogPhases = []string{string(domain.PhaseIdentified), string(domain.PhaseEncoding)}

// InsertRows adds rows whose (upload, line number) is not stored yet and
// returns how many were added.
func (r *Repository) InsertRows(ctx context.Context, rows []*domain.RawImportRow) (int, error) {
	db := extractDB(ctx, r.pool)

	inserted := 0
	for chunk := range slices.Chunk(rows, insertChunk) {
		query := r.qb.
			Insert(r.tables.RawRows).
			Columns("upload_id", "line_number", "raw_line", "record_type", "status", "reason").
			Suffix("ON CONFLICT (upload_id, line_number) DO NOTHING")

		for _, row := range chunk {
			query = query.Values(
				row.UploadID,
				row.LineNumber,
				row.RawLine,
				row.RecordType,
				string(row.Status),
				row.Reason,
			)
		}

		sql, args, err := query.ToSql()
		if err != nil {
			return inserted, createQueryError(err)
		}

		tag, err := db.Exec(ctx, sql, args...)
		if err != nil {
			return inserted, executeQueryError(err)
		}

		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

func (r *Repository) CountRows(ctx context.Context, uploadID string) (domain.RowCounts, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("status", "COUNT(*)").
		From(r.tables.RawRows).
		Where(sq.Eq{"upload_id": uploadID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return domain.RowCounts{}, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return domain.RowCounts{}, executeQueryError(err)
	}
	defer rows.Close()

	var counts domain.RowCounts
	for rows.Next() {
		var (
			status domain.RowStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return domain.RowCounts{}, scanRowError(err)
		}
		counts.Add(status, n)
	}
	if err := rows.Err(); err != nil {
		return domain.RowCounts{}, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return counts, nil
}

// ClaimRows claims pending rows in line order. Rows locked by a concurrent
// claim are skipped. Only uploads in identified or encoding are claimable.
func (r *Repository) ClaimRows(ctx context.Context, claim domain.Claim) ([]*domain.RawImportRow, error) {
	if claim.Limit <= 0 {
		return nil, nil
	}

	db := extractDB(ctx, r.pool)

	candidates := sq.
		Select("r.id").
		From(r.tables.RawRows + " r").
		Join(r.tables.Uploads + " u ON u.id = r.upload_id").
		Where(sq.Eq{
			"r.upload_id":  claim.UploadID,
			"r.status":     string(domain.RowStatusPending),
			"u.phase":      backlogPhases,
			"u.deleted_at": nil,
		}).
		OrderBy("r.line_number ASC").
		Limit(uint64(claim.Limit)).
		Suffix("FOR UPDATE OF r SKIP LOCKED")

	if len(claim.LineNumbers) > 0 {
		candidates = candidates.Where(sq.Eq{"r.line_number": claim.LineNumbers})
	}

	sql, args, err := r.qb.
		Update(r.tables.RawRows).
		Set("status", string(domain.RowStatusClaimed)).
		Set("claim_token", claim.Token).
		Set("claimed_at", claim.At).
		Where(sq.Expr("id IN (?)", candidates)).
		Suffix("RETURNING " + joinColumns(rowColumns)).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	claimed, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.RawImportRow])
	if err != nil {
		return nil, collectRowsError(err)
	}

	slices.SortFunc(claimed, func(a, b *domain.RawImportRow) int {
		return cmp.Compare(a.LineNumber, b.LineNumber)
	})

	return claimed, nil
}

// CompleteRows writes outcomes for rows still claimed under token whose
// upload is still identified or encoding and not deleted.
func (r *Repository) CompleteRows(ctx context.Context, token string, outcomes []domain.RowOutcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}

	db := extractDB(ctx, r.pool)

	// FOR SHARE holds off a concurrent cancel or delete until the batch commits
	lockSQL, lockArgs, err := r.qb.
		Select("u.id").
		From(r.tables.Uploads+" u").
		Where(sq.Expr("u.id IN (?)", sq.
			Select("upload_id").
			From(r.tables.RawRows).
			Where(sq.Eq{"claim_token": token}))).
		Where(sq.Eq{
			"u.phase":      backlogPhases,
			"u.deleted_at": nil,
		}).
		Suffix("FOR SHARE OF u").
		ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	rows, err := db.Query(ctx, lockSQL, lockArgs...)
	if err != nil {
		return 0, executeQueryError(err)
	}

	uploads, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, collectRowsError(err)
	}
	if len(uploads) == 0 {
		return 0, nil
	}

	var (
		ids       = make([]int64, len(outcomes))
		statuses  = make([]string, len(outcomes))
		reasons   = make([]string, len(outcomes))
		recordIDs = make([]*int64, len(outcomes))
	)
	for i, o := range outcomes {
		ids[i] = o.RowID
		statuses[i] = string(o.Status)
		reasons[i] = o.Reason
		recordIDs[i] = o.RecordID
	}

	sql := fmt.Sprintf(`
		UPDATE %s AS r
		SET status = o.status,
			reason = o.reason,
			record_id = o.record_id,
			processed_at = now(),
			claim_token = NULL,
			claimed_at = NULL
		FROM (
			SELECT
				unnest($1::bigint[]) AS id,
				unnest($2::text[]) AS status,
				unnest($3::text[]) AS reason,
				unnest($4::bigint[]) AS record_id
		) AS o
		WHERE r.id = o.id AND r.status = $5 AND r.claim_token = $6 AND r.upload_id = ANY($7::text[])`,
		pgx.Identifier{r.tables.RawRows}.Sanitize(),
	)

	tag, err := db.Exec(ctx, sql, ids, statuses, reasons, recordIDs, string(domain.RowStatusClaimed), token, uploads)
	if err != nil {
		return 0, executeQueryError(err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *Repository) ReleaseClaims(ctx context.Context, token string) (int, error) {
	return r.release(ctx, sq.Eq{"claim_token": token})
}

func (r *Repository) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int, error) {
	return r.release(ctx, sq.Lt{"claimed_at": claimedBefore})
}

func (r *Repository) release(ctx context.Context, pred sq.Sqlizer) (int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Update(r.tables.RawRows).
		Set("status", string(domain.RowStatusPending)).
		Set("claim_token", nil).
		Set("claimed_at", nil).
		Where(sq.Eq{"status": string(domain.RowStatusClaimed)}).
		Where(pred).
		ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, executeQueryError(err)
	}

	return int(tag.RowsAffected()), nil
}

// ResetRows returns final rows to pending. An empty lineNumbers resets every
// final row of the upload. Claimed rows are left alone.
func (r *Repository) ResetRows(ctx context.Context, uploadID string, lineNumbers []int) (int, error) {
	db := extractDB(ctx, r.pool)

	query := r.qb.
		Update(r.tables.RawRows).
		Set("status", string(domain.RowStatusPending)).
		Set("reason", "").
		Set("record_id", nil).
		Set("processed_at", nil).
		Where(sq.Eq{
			"upload_id": uploadID,
			"status": []string{
				string(domain.RowStatusProcessed),
				string(domain.RowStatusSkipped),
				string(domain.RowStatusFailed),
			},
		})

	if len(lineNumbers) > 0 {
		query = query.Where(sq.Eq{"line_number": lineNumbers})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, executeQueryError(err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *Repository) PendingCount(ctx context.Context) (int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.backlog(r.qb.Select("COUNT(*)")).ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	var pending int
	if err := db.QueryRow(ctx, sql, args...).Scan(&pending); err != nil {
		return 0, scanRowError(err)
	}

	return pending, nil
}

// OldestPendingUpload returns the earliest created upload with backlog.
func (r *Repository) OldestPendingUpload(ctx context.Context) (string, bool, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.backlog(r.qb.Select("u.id")).
		OrderBy("u.created_at ASC", "u.id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return "", false, executeQueryError(err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", false, collectRowsError(err)
	}

	if len(ids) == 0 {
		return "", false, nil
	}

	return ids[0], true, nil
}

func (r *Repository) backlog(query sq.SelectBuilder) sq.SelectBuilder {
	return query.
		From(r.tables.RawRows + " r").
		Join(r.tables.Uploads + " u ON u.id = r.upload_id").
		Where(sq.Eq{
			"r.status":     string(domain.RowStatusPending),
			"u.phase":      backlogPhases,
			"u.deleted_at": nil,
		})
}

// Rows returns rows after line afterLine in line order.
func (r *Repository) Rows(ctx context.Context, uploadID string, afterLine int, limit uint64) ([]*domain.RawImportRow, error) {
	db := extractDB(ctx, r.pool)

	query := r.qb.
		Select(rowColumns...).
		From(r.tables.RawRows).
		Where(sq.Eq{"upload_id": uploadID}).
		Where(sq.Gt{"line_number": afterLine}).
		OrderBy("line_number ASC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.RawImportRow])
	if err != nil {
		return nil, collectRowsError(err)
	}

	return out, nil
}

func (r *Repository) RecordTypeCounts(ctx context.Context, uploadID string) (map[string]int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("record_type", "COUNT(*)").
		From(r.tables.RawRows).
		Where(sq.Eq{"upload_id": uploadID}).
		GroupBy("record_type").
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, executeQueryError(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			recordType string
			n          int
		)
		if err := rows.Scan(&recordType, &n); err != nil {
			return nil, scanRowError(err)
		}
		counts[recordType] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return counts, nil
}
