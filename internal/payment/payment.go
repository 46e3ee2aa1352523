package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway is the payment provider as seen by the checkout and webhook flows.
// A configured instance is built once at startup and injected.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ConstructEvent verifies signatureHeader against the raw payload and
	// only then decodes it.
	ConstructEvent(payload []byte, signatureHeader string) (*Event, error)
}

type LineItem struct {
	Name        string
	Description *string
	UnitAmount  decimal.Decimal
	Quantity    int64
}

type CheckoutRequest struct {
	LineItems []LineItem
	Metadata  Metadata
	// ClientReferenceID links the provider session to an existing order.
	ClientReferenceID string
	CustomerEmail     string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
	EventPaymentSucceeded  EventType = "payment_intent.succeeded"
	EventPaymentFailed     EventType = "payment_intent.payment_failed"
)

// Event is a verified provider notification. Exactly one of Session and
// PaymentIntent is set for the known event types.
type Event struct {
	ID            string
	Type          EventType
	Created       time.Time
	Session       *SessionObject
	PaymentIntent *PaymentIntentObject
	Payload       json.RawMessage
}

type SessionObject struct {
	ID                string
	ClientReferenceID string
	PaymentIntentID   string
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
	Metadata          map[string]string
}

type PaymentIntentObject struct {
	ID             string
	Status         string
	FailureMessage string
}

// ExternalID is the provider object the event is about.
func (e *Event) ExternalID() string {
	switch {
	case e.Session != nil:
		return e.Session.ID
	case e.PaymentIntent != nil:
		return e.PaymentIntent.ID
	default:
		return ""
	}
}
