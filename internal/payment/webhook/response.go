package webhook

import (
	"encoding/json"
	"time"

	"storefront-be/internal/payment"
)

type RecordResponse struct {
	ID           int64           `json:"id"`
	Provider     string          `json:"provider"`
	EventID      string          `json:"eventId"`
	EventType    string          `json:"eventType"`
	ExternalID   string          `json:"externalId,omitempty"`
	Attempts     int             `json:"attempts"`
	Processed    bool            `json:"processed"`
	ProcessedAt  *time.Time      `json:"processedAt,omitempty"`
	ProcessError *string         `json:"processError,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

func toRecordResponse(rec *payment.WebhookRecord) RecordResponse {
	resp := RecordResponse{
		ID:           rec.ID,
		Provider:     rec.Provider,
		EventID:      rec.EventID,
		EventType:    rec.EventType,
		ExternalID:   rec.ExternalID,
		Attempts:     rec.Attempts,
		Processed:    rec.ProcessedAt != nil,
		ProcessedAt:  rec.ProcessedAt,
		ProcessError: rec.ProcessError,
		CreatedAt:    rec.CreatedAt,
	}
	if json.Valid(rec.Payload) {
		resp.Payload = rec.Payload
	}
	return resp
}
