package document

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patreg/patreg/internal/apperr"
	"github.com/patreg/patreg/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const fileCols = `id, original_filename, storage_path, content_type, size_bytes, created_at, updated_at`

func scanFile(row pgx.Row) (*File, error) {
	var f File
	err := row.Scan(&f.ID, &f.OriginalFilename, &f.StoragePath, &f.ContentType,
		&f.SizeBytes, &f.CreatedAt, &f.UpdatedAt)
	return &f, err
}

func (r *repoPG) Create(ctx context.Context, f *File) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return scanInto(f, r.conn(ctx).QueryRow(ctx, `
		INSERT INTO files (id, original_filename, storage_path, content_type, size_bytes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+fileCols,
		f.ID, f.OriginalFilename, f.StoragePath, f.ContentType, f.SizeBytes))
}

func scanInto(f *File, row pgx.Row) error {
	got, err := scanFile(row)
	if err != nil {
		return err
	}
	*f = *got
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*File, error) {
	f, err := scanFile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+fileCols+` FROM files WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "file not found")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	return err
}
