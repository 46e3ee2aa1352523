package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateOrderTx inserts the order and its items atomically. It reports
	// created=false when an order for the same checkout session already
	// exists, in which case nothing is written.
	CreateOrderTx(ctx context.Context, order *Order) (created bool, err error)

	GetOrderBySessionID(ctx context.Context, sessionID string) (*Order, error)
	GetOrderDetail(ctx context.Context, orderID string) (*Order, error)

	// GetOrders lists orders newest first. An empty userID lists every user.
	GetOrders(ctx context.Context, userID string, filter OrderFilter) ([]*Order, error)

	// TransitionStatus moves one order to `to` only if its current status
	// is an allowed source. A nil paymentIntentID keeps the stored one.
	TransitionStatus(ctx context.Context, orderID string, to OrderStatus, paymentIntentID *string) (bool, error)

	// TransitionByPaymentIntent applies the same guard to every order
	// carrying the payment intent and returns how many moved.
	TransitionByPaymentIntent(ctx context.Context, paymentIntentID string, to OrderStatus) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	o.id, o.user_id, o.total_price, o.status,
	o.payment_intent_id, o.token, o.checkout_session_id,
	o.created_at, o.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.TotalPrice,
		&o.Status,
		&o.PaymentIntentID,
		&o.Token,
		&o.CheckoutSessionID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) CreateOrderTx(ctx context.Context, order *Order) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	// 1. Insert order, unless the session already produced one
	var id string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			id, user_id, total_price, status,
			payment_intent_id, token, checkout_session_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
		ON CONFLICT (checkout_session_id) DO NOTHING
		RETURNING id
	`,
		order.ID,
		order.UserID,
		order.TotalPrice,
		order.Status,
		order.PaymentIntentID,
		order.Token,
		order.CheckoutSessionID,
		order.CreatedAt,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}

	// 2. Insert order items
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.OrderID = order.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, store_id
			) VALUES ($1,$2,$3,$4)
		`,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.StoreID,
		)
		if err != nil {
			return false, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) GetOrderBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.checkout_session_id = $1
	`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) GetOrderDetail(ctx context.Context, orderID string) (*Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.id = $1
	`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, orderID))
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.id, oi.order_id, oi.product_id, oi.store_id,
			COALESCE(p.name, ''), COALESCE(p.price, 0)
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.StoreID,
			&item.ProductName,
			&item.Price,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *repository) GetOrders(ctx context.Context, userID string, filter OrderFilter) ([]*Order, error) {
	filter = filter.Normalize()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetOrders"),
		zap.String("user_id", userID),
		zap.Int("limit", filter.Limit),
		zap.Int("page", filter.Page),
	)

	var sb strings.Builder
	sb.WriteString(`SELECT ` + orderColumns + `
		FROM orders o
		WHERE 1=1`)

	args := []any{}
	argPos := 1

	if userID != "" {
		sb.WriteString(fmt.Sprintf(" AND o.user_id = $%d", argPos))
		args = append(args, userID)
		argPos++
	}

	if filter.Status != nil {
		sb.WriteString(fmt.Sprintf(" AND o.status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}

	sb.WriteString(" ORDER BY o.created_at DESC, o.id")
	sb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, filter.Limit, filter.Offset())

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order", zap.Error(err))
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("orders fetched", zap.Int("count", len(orders)))
	return orders, nil
}

func (r *repository) TransitionStatus(
	ctx context.Context,
	orderID string,
	to OrderStatus,
	paymentIntentID *string,
) (bool, error) {
	from := AllowedSources(to)
	if len(from) == 0 {
		return false, fmt.Errorf("%w: nothing may move to %s", ErrInvalidTransition, to)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			payment_intent_id = COALESCE($2, payment_intent_id),
			updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)
	`, to, paymentIntentID, orderID, pq.Array(statusStrings(from)))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) TransitionByPaymentIntent(
	ctx context.Context,
	paymentIntentID string,
	to OrderStatus,
) (int64, error) {
	from := AllowedSources(to)
	if len(from) == 0 {
		return 0, fmt.Errorf("%w: nothing may move to %s", ErrInvalidTransition, to)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE payment_intent_id = $2 AND status = ANY($3)
	`, to, paymentIntentID, pq.Array(statusStrings(from)))
	if err != nil {
		return 0, fmt.Errorf("update order status by payment intent: %w", err)
	}

	return res.RowsAffected()
}
