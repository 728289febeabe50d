package user

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	userColumns = `id::text, email, password_hash, COALESCE(display_name, ''), created_at`

	getUserByIDQuery    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByEmailQuery = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	createUsersTable = `CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the users table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createUsersTable)
	return err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, getUserByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, getUserByEmailQuery, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, arg string) (User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

func scanUser(row rowScanner) (User, error) {
	var user User
	var created time.Time
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.DisplayName, &created); err != nil {
		return User{}, err
	}
	user.CreatedAt = created.UTC().Format(time.RFC3339)
	return user, nil
}
