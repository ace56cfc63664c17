package postgresql

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// Put stores data under key, replacing an earlier object.
func (r *Repository) Put(ctx context.Context, key string, data []byte) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(r.tables.Contents).
		Columns("key", "data", "size").
		Values(key, data, len(data)).
		Suffix("ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, size = EXCLUDED.size, created_at = now()").
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, key string) ([]byte, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("data").
		From(r.tables.Contents).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, createQueryError(err)
	}

	var data []byte
	if err := db.QueryRow(ctx, sql, args...).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, scanRowError(err)
	}

	return data, nil
}

func (r *Repository) Exists(ctx context.Context, key string) (bool, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(r.tables.Contents).
		Where(sq.Eq{"key": key}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, createQueryError(err)
	}

	var exists bool
	if err := db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, scanRowError(err)
	}

	return exists, nil
}

func (r *Repository) PutChunk(ctx context.Context, key string, index int, data []byte) error {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Insert(r.tables.ContentChunks).
		Columns("key", "idx", "data").
		Values(key, index, data).
		Suffix("ON CONFLICT (key, idx) DO UPDATE SET data = EXCLUDED.data").
		ToSql()
	if err != nil {
		return createQueryError(err)
	}

	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return executeQueryError(err)
	}

	return nil
}

func (r *Repository) ChunkCount(ctx context.Context, key string) (int, error) {
	db := extractDB(ctx, r.pool)

	sql, args, err := r.qb.
		Select("COUNT(*)").
		From(r.tables.ContentChunks).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return 0, createQueryError(err)
	}

	var n int
	if err := db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, scanRowError(err)
	}

	return n, nil
}

// Assemble joins chunks 0..total-1 into the object at key and drops them.
func (r *Repository) Assemble(ctx context.Context, key string, total int) (data []byte, err error) {
	err = pgx.BeginFunc(ctx, extractDB(ctx, r.pool), func(tx pgx.Tx) error {
		sql, args, err := r.qb.
			Select("idx", "data").
			From(r.tables.ContentChunks).
			Where(sq.Eq{"key": key}).
			Where(sq.Lt{"idx": total}).
			OrderBy("idx ASC").
			ToSql()
		if err != nil {
			return createQueryError(err)
		}

		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return executeQueryError(err)
		}

		var (
			buf   bytes.Buffer
			next  int
			idx   int
			chunk []byte
		)
		_, err = pgx.ForEachRow(rows, []any{&idx, &chunk}, func() error {
			if idx != next {
				return fmt.Errorf("chunk %d of %s is missing", next, key)
			}
			buf.Write(chunk)
			next++
			return nil
		})
		if err != nil {
			return err
		}
		if next != total {
			return fmt.Errorf("chunk %d of %s is missing", next, key)
		}

		data = buf.Bytes()

		ctx := context.WithValue(ctx, ctxKey{}, tx)
		if err := r.Put(ctx, key, data); err != nil {
			return err
		}

		sql, args, err = r.qb.
			Delete(r.tables.ContentChunks).
			Where(sq.Eq{"key": key}).
			ToSql()
		if err != nil {
			return createQueryError(err)
		}

		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return executeQueryError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return data, nil
}
