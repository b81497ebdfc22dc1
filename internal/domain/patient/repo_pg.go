package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patreg/patreg/internal/apperr"
	"github.com/patreg/patreg/internal/domain/document"
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

const patientCols = `p.id, p.full_name, p.email, p.phone_number, p.document_file_id,
	p.created_at, p.updated_at,
	f.id, f.original_filename, f.storage_path, f.content_type, f.size_bytes,
	f.created_at, f.updated_at`

const patientFrom = ` FROM patients p JOIN files f ON f.id = p.document_file_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var f document.File
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.PhoneNumber, &p.DocumentFileID,
		&p.CreatedAt, &p.UpdatedAt,
		&f.ID, &f.OriginalFilename, &f.StoragePath, &f.ContentType, &f.SizeBytes,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DocumentFile = &f
	return &p, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505). The constraint is the authoritative duplicate
// guard when two creates race past the pre-check.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, full_name, email, phone_number, document_file_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		p.ID, p.FullName, p.Email, p.PhoneNumber, p.DocumentFileID).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "Patient not found.")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) FindByEmail(ctx context.Context, email string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) FindByEmailExcluding(ctx context.Context, email string, excludeID uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+patientFrom+` WHERE p.email = $1 AND p.id <> $2`, email, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET full_name=$2, email=$3, phone_number=$4,
			document_file_id=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.FullName, p.Email, p.PhoneNumber, p.DocumentFileID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.New(apperr.NotFound, "Patient not found.")
	}
	if isUniqueViolation(err) {
		return apperr.New(apperr.DuplicateResource, "A patient with this email already exists.")
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+patientFrom+` ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
