package order

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderRowColumns = []string{
	"id", "user_id", "total_price", "status",
	"payment_intent_id", "token", "checkout_session_id",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepository_CreateOrderTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pi := "pi_1"
	session := "cs_1"

	newOrder := func() *Order {
		return &Order{
			ID:                "TRX-abcd-12345678",
			UserID:            "user-1",
			TotalPrice:        decimal.RequireFromString("350"),
			Status:            StatusCompleted,
			PaymentIntentID:   &pi,
			CheckoutSessionID: &session,
			CreatedAt:         now,
			Items: []OrderItem{
				{ProductID: "p1", StoreID: "s1"},
				{ProductID: "p2", StoreID: "s2"},
			},
		}
	}

	t.Run("Inserts order and items", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders .* ON CONFLICT \(checkout_session_id\) DO NOTHING RETURNING id`).
			WithArgs("TRX-abcd-12345678", "user-1", decimal.RequireFromString("350"), StatusCompleted, "pi_1", nil, "cs_1", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("TRX-abcd-12345678"))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(sqlmock.AnyArg(), "TRX-abcd-12345678", "p1", "s1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO order_items`).
			WithArgs(sqlmock.AnyArg(), "TRX-abcd-12345678", "p2", "s2").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o := newOrder()
		created, err := repo.CreateOrderTx(ctx, o)

		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, o.Items[0].ID)
		assert.Equal(t, o.ID, o.Items[1].OrderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Existing session writes nothing", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		created, err := repo.CreateOrderTx(ctx, newOrder())

		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Item failure rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("TRX-abcd-12345678"))
		mock.ExpectExec(`INSERT INTO order_items`).
			WillReturnError(errors.New("fk violation"))
		mock.ExpectRollback()

		created, err := repo.CreateOrderTx(ctx, newOrder())

		assert.ErrorContains(t, err, "insert order item")
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Begin error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		_, err := repo.CreateOrderTx(ctx, newOrder())
		assert.Error(t, err)
	})
}

func TestRepository_GetOrderBySessionID(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders o WHERE o.checkout_session_id = \$1`).
			WithArgs("cs_1").
			WillReturnRows(sqlmock.NewRows(orderRowColumns).
				AddRow("TRX-1", "user-1", "350.00", "COMPLETED", "pi_1", nil, "cs_1", now, now))

		o, err := repo.GetOrderBySessionID(ctx, "cs_1")

		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, StatusCompleted, o.Status)
		assert.Equal(t, "pi_1", *o.PaymentIntentID)
		assert.Nil(t, o.Token)
	})

	t.Run("Missing is nil, nil", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders o WHERE o.checkout_session_id`).
			WithArgs("cs_x").
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		o, err := repo.GetOrderBySessionID(ctx, "cs_x")
		assert.NoError(t, err)
		assert.Nil(t, o)
	})
}

func TestRepository_GetOrderDetail(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Loads items", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders o WHERE o.id = \$1`).
			WithArgs("TRX-1").
			WillReturnRows(sqlmock.NewRows(orderRowColumns).
				AddRow("TRX-1", "user-1", "100.00", "PENDING", nil, "tok_1", nil, now, now))
		mock.ExpectQuery(`FROM order_items oi LEFT JOIN products p`).
			WithArgs("TRX-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "store_id", "name", "price"}).
				AddRow("item-1", "TRX-1", "p1", "s1", "Mug", "100.00"))

		o, err := repo.GetOrderDetail(ctx, "TRX-1")

		require.NoError(t, err)
		assert.Equal(t, StatusPending, o.Status)
		assert.Equal(t, "tok_1", *o.Token)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "Mug", o.Items[0].ProductName)
		assert.True(t, o.Items[0].Price.Equal(decimal.NewFromInt(100)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders o WHERE o.id`).
			WithArgs("TRX-x").
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		_, err := repo.GetOrderDetail(ctx, "TRX-x")
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestRepository_GetOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("User scoped with status", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		status := StatusPending

		mock.ExpectQuery(`WHERE 1=1 AND o.user_id = \$1 AND o.status = \$2 ORDER BY o.created_at DESC, o.id LIMIT \$3 OFFSET \$4`).
			WithArgs("user-1", StatusPending, 10, 10).
			WillReturnRows(sqlmock.NewRows(orderRowColumns).
				AddRow("TRX-2", "user-1", "50", "PENDING", nil, nil, nil, now, now))

		orders, err := repo.GetOrders(ctx, "user-1", OrderFilter{Status: &status, Limit: 10, Page: 2})

		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "TRX-2", orders[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("All users, default paging", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`WHERE 1=1 ORDER BY o.created_at DESC, o.id LIMIT \$1 OFFSET \$2`).
			WithArgs(defaultLimit, 0).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		orders, err := repo.GetOrders(ctx, "", OrderFilter{})

		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Huge page keeps a positive offset", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`WHERE 1=1 ORDER BY o.created_at DESC, o.id LIMIT \$1 OFFSET \$2`).
			WithArgs(maxLimit, (maxPage-1)*maxLimit).
			WillReturnRows(sqlmock.NewRows(orderRowColumns))

		orders, err := repo.GetOrders(ctx, "", OrderFilter{Limit: maxLimit, Page: math.MaxInt})

		require.NoError(t, err)
		assert.Empty(t, orders)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Query error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM orders o`).WillReturnError(errors.New("db down"))

		_, err := repo.GetOrders(ctx, "user-1", OrderFilter{})
		assert.Error(t, err)
	})
}

func TestRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Guarded by allowed sources", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		pi := "pi_1"

		mock.ExpectExec(`UPDATE orders SET status = \$1, payment_intent_id = COALESCE\(\$2, payment_intent_id\), updated_at = NOW\(\) WHERE id = \$3 AND status = ANY\(\$4\)`).
			WithArgs(StatusPaid, "pi_1", "TRX-1", pq.Array([]string{"PENDING"})).
			WillReturnResult(sqlmock.NewResult(0, 1))

		moved, err := repo.TransitionStatus(ctx, "TRX-1", StatusPaid, &pi)

		require.NoError(t, err)
		assert.True(t, moved)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No row in an allowed source", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE orders SET status`).
			WithArgs(StatusCanceled, nil, "TRX-1", pq.Array([]string{"PENDING"})).
			WillReturnResult(sqlmock.NewResult(0, 0))

		moved, err := repo.TransitionStatus(ctx, "TRX-1", StatusCanceled, nil)

		require.NoError(t, err)
		assert.False(t, moved)
	})

	t.Run("Completed accepts pending or paid", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE orders SET status`).
			WithArgs(StatusCompleted, nil, "TRX-1", pq.Array([]string{"PENDING", "PAID"})).
			WillReturnResult(sqlmock.NewResult(0, 1))

		moved, err := repo.TransitionStatus(ctx, "TRX-1", StatusCompleted, nil)

		require.NoError(t, err)
		assert.True(t, moved)
	})

	t.Run("Unreachable target skips the query", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		_, err := repo.TransitionStatus(ctx, "TRX-1", StatusPending, nil)

		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_TransitionByPaymentIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("Moves every pending order", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE payment_intent_id = \$2 AND status = ANY\(\$3\)`).
			WithArgs(StatusFailed, "pi_9", pq.Array([]string{"PENDING"})).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := repo.TransitionByPaymentIntent(ctx, "pi_9", StatusFailed)

		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DB error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("db down"))

		_, err := repo.TransitionByPaymentIntent(ctx, "pi_9", StatusPaid)
		assert.ErrorContains(t, err, "update order status by payment intent")
	})
}
