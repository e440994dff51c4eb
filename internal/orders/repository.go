package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exotic-pets/exotic-pets/internal/platform/db"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order Order) error
	InsertItem(ctx context.Context, item OrderItem) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("orders repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Get returns an order and its items.
func (r *Repository) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT id, number, customer_name, customer_email, shipping_city, shipping_line, status, currency, subtotal, total, created_at, updated_at
FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.ShippingCity, &o.ShippingLine, &o.Status, &o.Currency, &o.Subtotal, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("order %s: %w", id, shared.ErrNotFound)
		}
		return Order{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total
FROM order_items WHERE order_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.UnitPrice, &item.Quantity, &item.LineTotal); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns orders matching the filter, newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, number, customer_name, customer_email, shipping_city, shipping_line, status, currency, subtotal, total, created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR status=$1) AND ($2::text = '' OR customer_email=$2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, nullStatus(filter.Status), filter.Email, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerName, &o.CustomerEmail, &o.ShippingCity, &o.ShippingLine, &o.Status, &o.Currency, &o.Subtotal, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves an order to status. The caller validates the transition.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// NextNumber allocates a human-readable order number, ORD-{YYMM}-{SEQ}. The
// sequence lives in a per-period counter row so concurrent creates never mint
// the same number and the counter restarts each month. A failed create leaves
// a gap, which is harmless.
func (r *Repository) NextNumber(ctx context.Context, date time.Time) (string, error) {
	period := date.Format("0601")
	var seq int64
	err := r.pool.QueryRow(ctx, `INSERT INTO order_counters (period, seq) VALUES ($1, 1)
ON CONFLICT (period) DO UPDATE SET seq = order_counters.seq + 1
RETURNING seq`, period).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("orders: next number for %s: %w", period, err)
	}
	return fmt.Sprintf("ORD-%s-%04d", period, seq), nil
}

func (r *txRepository) InsertOrder(ctx context.Context, o Order) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO orders (id, number, customer_name, customer_email, shipping_city, shipping_line, status, currency, subtotal, total, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)`,
		o.ID, o.Number, o.CustomerName, o.CustomerEmail, o.ShippingCity, o.ShippingLine, o.Status, o.Currency, o.Subtotal, o.Total, o.CreatedAt)
	return err
}

func (r *txRepository) InsertItem(ctx context.Context, item OrderItem) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity, line_total)
VALUES ($1,$2,$3,$4,$5,$6)`,
		item.OrderID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.LineTotal)
	return err
}

func nullStatus(status *Status) any {
	if status == nil {
		return nil
	}
	return string(*status)
}
