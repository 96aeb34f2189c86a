package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Provider order ids are sampled from this range and kept unique by the
// orders_wata_order_id_key constraint.
const (
	orderIDMin = 100000
	orderIDMax = 2147483647
)

const uniqueViolation = "23505"

// Store provides access to the orders schema. All mutations run inside a
// single transaction so an order and its items, or a status change, become
// visible together.
type Store struct {
	Pool *pgxpool.Pool
}

// New constructs a Store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

const orderColumns = `id, order_number, wata_order_id, amount, currency, status,
	user_name, user_email, user_phone, delivery_address, order_comment,
	COALESCE(payment_url, ''), COALESCE(wata_transaction_id, ''),
	paid_at, created_at, updated_at`

// CreateOrder persists an order and its items atomically. The provider order
// id is sampled randomly and uniqueness is delegated to the database
// constraint: on conflict the whole transaction is retried with a fresh id,
// up to attempts times.
func (s *Store) CreateOrder(ctx context.Context, in NewOrder, items []OrderItem, attempts int) (Order, error) {
	if attempts <= 0 {
		attempts = 10
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		wataOrderID := orderIDMin + rand.Int64N(orderIDMax-orderIDMin+1)
		order, err := s.createOrderOnce(ctx, in, items, wataOrderID)
		if err == nil {
			return order, nil
		}
		if isUniqueViolation(err) {
			lastErr = err
			continue
		}
		return Order{}, err
	}
	return Order{}, fmt.Errorf("%w: %v", ErrOrderIDExhausted, lastErr)
}

func (s *Store) createOrderOnce(ctx context.Context, in NewOrder, items []OrderItem, wataOrderID int64) (Order, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderNumber := FormatOrderNumber(time.Now(), wataOrderID)
	row := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, wata_order_id, amount, currency, status,
			user_name, user_email, user_phone, delivery_address, order_comment)
		VALUES ($1, $2, ROUND($3::numeric, 2), $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+orderColumns,
		orderNumber, wataOrderID, in.Amount, in.Currency, StatusPending,
		in.UserName, in.UserEmail, in.UserPhone, in.DeliveryAddress, in.OrderComment,
	)
	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	for _, item := range items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, item.ProductID, item.ProductName, item.ProductPrice, item.Quantity,
		); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return order, nil
}

// SetPaymentLink stores the provider payment link and transaction id after a
// successful link creation call.
func (s *Store) SetPaymentLink(ctx context.Context, orderID string, paymentURL, transactionID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET payment_url = $2, wata_transaction_id = $3, updated_at = now()
		WHERE id = $1`,
		orderID, paymentURL, transactionID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// GetOrderByWataID fetches an order by its provider-assigned numeric id.
func (s *Store) GetOrderByWataID(ctx context.Context, wataOrderID int64) (Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE wata_order_id = $1`, wataOrderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return order, err
}

// ApplyPaymentStatus performs the conditional webhook status transition
// inside one transaction with a row lock, so concurrent deliveries for the
// same order cannot race the read-then-write.
//
// For StatusPaid the write happens only when the order is not already paid
// (idempotent redelivery). For StatusFailed the write is unconditional,
// which means a late failure callback downgrades a paid order; that matches
// the provider contract as documented and tested.
func (s *Store) ApplyPaymentStatus(ctx context.Context, wataOrderID int64, target OrderStatus) (Order, bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE wata_order_id = $1 FOR UPDATE`, wataOrderID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, false, err
	}

	changed := false
	switch target {
	case StatusPaid:
		if order.Status != StatusPaid {
			row := tx.QueryRow(ctx, `
				UPDATE orders
				SET status = $2, paid_at = now(), updated_at = now()
				WHERE id = $1
				RETURNING `+orderColumns,
				order.ID, StatusPaid,
			)
			if order, err = scanOrder(row); err != nil {
				return Order{}, false, err
			}
			changed = true
		}
	case StatusFailed:
		row := tx.QueryRow(ctx, `
			UPDATE orders
			SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING `+orderColumns,
			order.ID, StatusFailed,
		)
		if order, err = scanOrder(row); err != nil {
			return Order{}, false, err
		}
		changed = true
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, false, err
	}
	return order, changed, nil
}

// CountOrderItems reports the number of items stored for an order.
func (s *Store) CountOrderItems(ctx context.Context, orderID string) (int64, error) {
	var count int64
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1`, orderID).Scan(&count)
	return count, err
}

// FormatOrderNumber renders the human readable order number for a provider id.
func FormatOrderNumber(t time.Time, wataOrderID int64) string {
	return fmt.Sprintf("ORD-%s-%d", t.Format("20060102"), wataOrderID)
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.WataOrderID, &o.Amount, &o.Currency, &o.Status,
		&o.UserName, &o.UserEmail, &o.UserPhone, &o.DeliveryAddress, &o.OrderComment,
		&o.PaymentURL, &o.WataTransactionID,
		&o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
