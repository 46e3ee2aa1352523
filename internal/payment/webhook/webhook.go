package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	SignatureHeader = "Stripe-Signature"

	// Provider events are small; anything larger is not one.
	maxPayloadBytes = 64 << 10
)

// errIgnored marks event types this service does not act on.
var errIgnored = errors.New("event type ignored")

type Handler struct {
	orders  order.Service
	gateway payment.Gateway
	repo    payment.Repository
	stats   *metrics.WebhookStats
}

func NewWebhookHandler(
	orders order.Service,
	gateway payment.Gateway,
	repo payment.Repository,
	stats *metrics.WebhookStats,
) *Handler {
	if stats == nil {
		stats = &metrics.WebhookStats{}
	}
	return &Handler{
		orders:  orders,
		gateway: gateway,
		repo:    repo,
		stats:   stats,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks", h.PaymentWebhookHandler)
}

// RegisterInternalRoutes mounts ledger inspection; callers must already be
// behind the internal auth middleware.
func (h *Handler) RegisterInternalRoutes(r chi.Router) {
	r.Get("/webhooks/{eventId}", h.GetWebhook)
}

func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := metrics.StartTimer()
	h.stats.Received.Inc()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("provider", payment.ProviderStripe),
	)

	// 1. Raw body, exactly as signed
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.stats.Rejected.Inc()
		log.Warn("failed to read webhook body", zap.Error(err))
		utils.WriteText(w, http.StatusBadRequest, "Webhook Error: unreadable body")
		return
	}

	// 2. Verify before parsing
	evt, err := h.gateway.ConstructEvent(body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.stats.Rejected.Inc()
		log.Warn("webhook rejected", zap.Error(err))
		utils.WriteText(w, http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	log = log.With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)),
	)
	ctx = logger.WithLogger(ctx, log)

	// 3. Ledger (idempotency)
	webhookID, isDuplicate, err := h.repo.SavePaymentWebhook(
		ctx,
		payment.ProviderStripe,
		evt.ID,
		string(evt.Type),
		evt.ExternalID(),
		evt.Payload,
	)
	if err != nil {
		h.stats.Failed.Inc()
		log.Error("failed to record webhook", zap.Error(err))
		utils.WriteText(w, http.StatusInternalServerError, "Error recording webhook")
		return
	}
	if isDuplicate {
		h.stats.Duplicate.Inc()
		log.Info("duplicate webhook ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	// 4. Apply
	err = h.dispatch(ctx, evt)

	if err != nil && !errors.Is(err, errIgnored) {
		h.stats.Failed.Inc()
		h.stats.ObserveProcessing(timer.Duration())
		log.Error("webhook processing failed", zap.Error(err))
		if markErr := h.repo.MarkWebhookFailed(ctx, webhookID, err.Error()); markErr != nil {
			log.Error("failed to mark webhook failed", zap.Error(markErr))
		}
		code, msg := failureResponse(err)
		utils.WriteText(w, code, msg)
		return
	}

	// 5. Done; a failed mark only means a redelivery is re-applied, which
	// the guarded transitions tolerate.
	if markErr := h.repo.MarkWebhookProcessed(ctx, webhookID); markErr != nil {
		log.Error("failed to mark webhook processed", zap.Error(markErr))
	}

	if errors.Is(err, errIgnored) {
		h.stats.Ignored.Inc()
		log.Debug("webhook event ignored")
	} else {
		d := timer.Duration()
		h.stats.Processed.Inc()
		h.stats.ObserveProcessing(d)
		log.Info("webhook processed", zap.Duration("duration", d))
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) dispatch(ctx context.Context, evt *payment.Event) error {
	switch evt.Type {
	case payment.EventCheckoutCompleted:
		return h.handleCheckoutCompleted(ctx, evt)

	case payment.EventCheckoutExpired:
		if evt.Session == nil {
			return fmt.Errorf("%w: no session object", payment.ErrMalformedEvent)
		}
		_, err := h.orders.ExpireCheckout(ctx, evt.Session.ClientReferenceID)
		return err

	case payment.EventPaymentFailed:
		if evt.PaymentIntent == nil {
			return fmt.Errorf("%w: no payment intent object", payment.ErrMalformedEvent)
		}
		n, err := h.orders.MarkFailedByPaymentIntent(ctx, evt.PaymentIntent.ID)
		if err == nil && n > 0 {
			logger.FromCtx(ctx).Info("payment failed",
				zap.String("payment_intent_id", evt.PaymentIntent.ID),
				zap.String("reason", evt.PaymentIntent.FailureMessage),
			)
		}
		return err

	case payment.EventPaymentSucceeded:
		if evt.PaymentIntent == nil {
			return fmt.Errorf("%w: no payment intent object", payment.ErrMalformedEvent)
		}
		_, err := h.orders.MarkPaidByPaymentIntent(ctx, evt.PaymentIntent.ID)
		return err

	default:
		return errIgnored
	}
}

func (h *Handler) handleCheckoutCompleted(ctx context.Context, evt *payment.Event) error {
	s := evt.Session
	if s == nil {
		return fmt.Errorf("%w: no session object", payment.ErrMalformedEvent)
	}

	c := order.CompletedCheckout{
		SessionID:         s.ID,
		PaymentIntentID:   s.PaymentIntentID,
		ClientReferenceID: s.ClientReferenceID,
	}

	// Metadata is only needed when no pre-created order is referenced.
	meta, metaErr := payment.DecodeMetadata(s.Metadata)
	if metaErr == nil {
		c.UserID = meta.UserID
		c.ProductIDs = meta.ProductIDs
		c.MetadataTotal = meta.TotalAmount
	} else if c.ClientReferenceID == "" {
		return metaErr
	}

	o, created, err := h.orders.CompleteCheckout(ctx, c)
	if err != nil {
		if metaErr != nil && errors.Is(err, product.ErrNoProductIDs) {
			return metaErr
		}
		return err
	}

	if o == nil {
		return fmt.Errorf("no order recorded for session %s", s.ID)
	}

	logger.FromCtx(ctx).Info("checkout completed",
		zap.String("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.Bool("changed", created),
	)
	return nil
}

// failureResponse maps a processing error to what the provider sees. Bad
// input is 400; anything else is 500 so the provider retries.
func failureResponse(err error) (int, string) {
	switch {
	case errors.Is(err, payment.ErrMissingMetadata),
		errors.Is(err, payment.ErrInvalidMetadata),
		errors.Is(err, product.ErrNoProductIDs):
		return http.StatusBadRequest, "Missing metadata"
	case errors.Is(err, product.ErrNoProducts):
		return http.StatusBadRequest, "No products found"
	case errors.Is(err, payment.ErrMalformedEvent):
		return http.StatusBadRequest, "Webhook Error: " + err.Error()
	default:
		return http.StatusInternalServerError, "Error creating order"
	}
}

func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")

	rec, err := h.repo.GetWebhook(r.Context(), payment.ProviderStripe, eventID)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to load webhook",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "Error loading webhook", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		utils.WriteJSONError(w, "Webhook not found", http.StatusNotFound)
		return
	}

	utils.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}
