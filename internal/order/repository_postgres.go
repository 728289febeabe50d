package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	orderColumns = `id, user_id::text, total_cents, currency, status, COALESCE(stripe_pi_id, ''), created_at, updated_at`

	insertOrderQuery = `INSERT INTO orders (user_id, total_cents, currency, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + orderColumns
	getOrderQuery           = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersByUserQuery   = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id DESC`
	listOrdersByStatusQuery = `SELECT ` + orderColumns + ` FROM orders WHERE status = ANY($1::text[]) ORDER BY id`

	createOrdersTable = `CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id UUID,
		total_cents BIGINT NOT NULL CHECK (total_cents > 0),
		currency TEXT NOT NULL DEFAULT 'BRL',
		status TEXT NOT NULL DEFAULT 'pending',
		stripe_pi_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	createOrdersStatusIndex = `CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status)`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the orders table and its status index when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createOrdersTable); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, createOrdersStatusIndex)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var ord Order
	var userID sql.NullString
	var status string
	if err := row.Scan(&ord.ID, &userID, &ord.TotalCents, &ord.Currency, &status, &ord.PaymentRef, &ord.CreatedAt, &ord.UpdatedAt); err != nil {
		return Order{}, err
	}
	if userID.Valid {
		uid := userID.String
		ord.UserID = &uid
	}
	ord.Status = Status(status)
	return ord, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, ord Order) (Order, error) {
	var userID any
	if ord.UserID != nil {
		userID = *ord.UserID
	}
	return scanOrder(r.db.QueryRowContext(ctx, insertOrderQuery, userID, ord.TotalCents, ord.Currency, string(ord.Status)))
}

// Update builds SET clauses only for the fields present in patch.
func (r *PostgresRepository) Update(ctx context.Context, id int64, patch Patch) (Order, error) {
	if patch.empty() {
		return r.GetByID(ctx, id)
	}

	sets := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if patch.Status != nil {
		args = append(args, string(*patch.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if patch.PaymentRef != nil {
		args = append(args, *patch.PaymentRef)
		sets = append(sets, fmt.Sprintf("stripe_pi_id = $%d", len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), orderColumns)
	ord, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (Order, error) {
	ord, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, listOrdersByUserQuery, userID)
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, statuses ...Status) ([]Order, error) {
	if len(statuses) == 0 {
		return []Order{}, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return r.list(ctx, listOrdersByStatusQuery, pq.Array(names))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, rows.Err()
}
