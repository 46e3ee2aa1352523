package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type Repository interface {
	// SavePaymentWebhook records a verified event. It returns a ledger id
	// for a first delivery or for a redelivery of an event that has not yet
	// been processed; an already processed event reports isDuplicate.
	SavePaymentWebhook(
		ctx context.Context,
		provider string,
		eventID string,
		eventType string,
		externalID string,
		payload json.RawMessage,
	) (webhookID int64, isDuplicate bool, err error)

	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
	GetWebhook(ctx context.Context, provider, eventID string) (*WebhookRecord, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePaymentWebhook(
	ctx context.Context,
	provider string,
	eventID string,
	eventType string,
	externalID string,
	payload json.RawMessage,
) (int64, bool, error) {

	// A conflicting row is only touched (and returned) while unprocessed,
	// so a failed event is retried on redelivery.
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event_id,
		event_type,
		external_id,
		payload
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (provider, event_id)
	DO UPDATE SET attempts = payment_webhooks.attempts + 1,
		process_error = NULL
	WHERE payment_webhooks.processed_at IS NULL
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		provider,
		eventID,
		eventType,
		externalID,
		[]byte(payload),
	).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}

func (r *repository) GetWebhook(ctx context.Context, provider, eventID string) (*WebhookRecord, error) {
	const q = `
	SELECT id, provider, event_id, event_type, external_id, payload,
		attempts, processed_at, process_error, created_at
	FROM payment_webhooks
	WHERE provider = $1 AND event_id = $2;
	`

	var (
		w       WebhookRecord
		payload []byte
	)
	err := r.db.QueryRowContext(ctx, q, provider, eventID).Scan(
		&w.ID, &w.Provider, &w.EventID, &w.EventType, &w.ExternalID, &payload,
		&w.Attempts, &w.ProcessedAt, &w.ProcessError, &w.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.Payload = payload
	return &w, nil
}
