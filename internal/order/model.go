package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPaid      OrderStatus = "PAID"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusFailed    OrderStatus = "FAILED"
)

type Order struct {
	ID                string
	UserID            string
	TotalPrice        decimal.Decimal
	Status            OrderStatus
	PaymentIntentID   *string
	Token             *string
	CheckoutSessionID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []OrderItem
}

// OrderItem links an order to a product and the store that sells it.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	StoreID   string

	// Read-side catalog fields, joined from products.
	ProductName string
	Price       decimal.Decimal
}

// CompletedCheckout is what a completed provider session tells us.
type CompletedCheckout struct {
	SessionID         string
	PaymentIntentID   string
	ClientReferenceID string
	UserID            string
	ProductIDs        []string
	// MetadataTotal is the total recorded at checkout, if any. It is only
	// compared against the re-priced total, never stored.
	MetadataTotal decimal.NullDecimal
}

type OrderFilter struct {
	Status *OrderStatus
	Limit  int
	Page   int
}

const (
	defaultLimit = 20
	maxLimit     = 100
	maxPage      = 10000
)

// Normalize clamps paging to sane bounds.
func (f OrderFilter) Normalize() OrderFilter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Page > maxPage {
		f.Page = maxPage
	}
	return f
}

func (f OrderFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
