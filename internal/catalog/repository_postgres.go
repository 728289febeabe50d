package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	packageColumns = `id, slug, title, COALESCE(description, ''), COALESCE(image_url, ''), price_cents, active, created_at`

	listActiveQuery = `SELECT ` + packageColumns + ` FROM packages WHERE active = true ORDER BY created_at DESC`
	getBySlugQuery  = `SELECT ` + packageColumns + ` FROM packages WHERE slug = $1`
	getByIDQuery    = `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`

	createPackagesTable = `CREATE TABLE IF NOT EXISTS packages (
		id BIGSERIAL PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		image_url TEXT,
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the packages table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createPackagesTable)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPackage(row rowScanner) (Package, error) {
	var p Package
	var created time.Time
	if err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Description, &p.ImageURL, &p.PriceCents, &p.Active, &created); err != nil {
		return Package{}, err
	}
	p.CreatedAt = created.UTC().Format(time.RFC3339)
	return p, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context) ([]Package, error) {
	rows, err := r.db.QueryContext(ctx, listActiveQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, getBySlugQuery, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, getByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Package{}, ErrNotFound
	}
	return p, err
}
