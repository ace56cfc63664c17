package postgresql

import (
	"context"
	"fmt"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type recordKey struct {
	uploadID   string
	lineNumber int
}

// SaveRecords stores records and assigns their ids. A second record for the
// same upload line violates the unique key and fails the batch.
func (r *Repository) SaveRecords(ctx context.Context, records []*domain.StructuredRecord) error {
	db := extractDB(ctx, r.pool)

	for chunk := range slices.Chunk(records, insertChunk) {
		query := r.qb.
			Insert(r.tables.Records).
			Columns("upload_id", "line_number", "record_type", "fields", "raw_line", "processing_micros").
			Suffix("RETURNING id, upload_id, line_number, created_at")

		byKey := make(map[recordKey]*domain.StructuredRecord, len(chunk))
		for _, rec := range chunk {
			byKey[recordKey{rec.UploadID, rec.LineNumber}] = rec

			query = query.Values(
				rec.UploadID,
				rec.LineNumber,
				rec.RecordType,
				rec.Fields,
				rec.RawLine,
				rec.ProcessingMicros,
			)
		}

		sql, args, err := query.ToSql()
		if err != nil {
			return createQueryError(err)
		}

		rows, err := db.Query(ctx, sql, args...)
		if err != nil {
			return executeQueryError(err)
		}

		var (
			id        int64
			key       recordKey
			createdAt time.Time
		)
		_, err = pgx.ForEachRow(rows, []any{&id, &key.uploadID, &key.lineNumber, &createdAt}, func() error {
			rec, ok := byKey[key]
			if !ok {
				return fmt.Errorf("unexpected record for upload %s line %d", key.uploadID, key.lineNumber)
			}

			rec.ID = id
			rec.CreatedAt = createdAt

			return nil
		})
		if err != nil {
			return executeQueryError(err)
		}
	}

	return nil
}

func (r *Repository) DeleteRecords(ctx context.Context, uploadID string, lineNumbers []int) (int, error) {
	db := extractDB(ctx, r.pool)

	query := r.qb.
		Delete(r.tables.Records).
		Where(sq.Eq{"upload_id": uploadID})

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

// Records returns one page of an upload's records in line order and the
// total number of records.
func (r *Repository) Records(
	ctx context.Context,
	uploadID string,
	limit, offset uint64,
) (records []*domain.StructuredRecord, total int, err error) {
	// count and page come from the same snapshot
	err = runInTx(ctx, r.pool, snapshotOptions, func(ctx context.Context) error {
		db := extractDB(ctx, r.pool)

		sql, args, err := r.qb.
			Select("COUNT(*)").
			From(r.tables.Records).
			Where(sq.Eq{"upload_id": uploadID}).
			ToSql()
		if err != nil {
			return createQueryError(err)
		}

		if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
			return scanRowError(err)
		}

		query := r.qb.
			Select(recordColumns...).
			From(r.tables.Records).
			Where(sq.Eq{"upload_id": uploadID}).
			OrderBy("line_number ASC").
			Offset(offset)

		if limit > 0 {
			query = query.Limit(limit)
		}

		sql, args, err = query.ToSql()
		if err != nil {
			return createQueryError(err)
		}

		rows, err := db.Query(ctx, sql, args...)
		if err != nil {
			return executeQueryError(err)
		}

		records, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[domain.StructuredRecord])
		if err != nil {
			return collectRowsError(err)
		}

		return nil
	})
	if err != nil {
		return nil, -1, err
	}

	return records, total, nil
}
