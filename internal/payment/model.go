package payment

import (
	"encoding/json"
	"time"
)

const ProviderStripe = "STRIPE"

// WebhookRecord is one row of the payment_webhooks ledger.
type WebhookRecord struct {
	ID           int64
	Provider     string
	EventID      string
	EventType    string
	ExternalID   string
	Payload      json.RawMessage
	Attempts     int
	ProcessedAt  *time.Time
	ProcessError *string
	CreatedAt    time.Time
}
