package metrics

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

func Handler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, reg.Snapshot())
	}
}

// LogSnapshot writes the current counters, used on shutdown.
func LogSnapshot(reg *Registry) {
	s := reg.Snapshot()
	logger.Named("metrics").Info("final counters",
		zap.Uint64("webhooks_received", s.Webhooks.Received),
		zap.Uint64("webhooks_rejected", s.Webhooks.Rejected),
		zap.Uint64("webhooks_duplicate", s.Webhooks.Duplicate),
		zap.Uint64("webhooks_ignored", s.Webhooks.Ignored),
		zap.Uint64("webhooks_processed", s.Webhooks.Processed),
		zap.Uint64("webhooks_failed", s.Webhooks.Failed),
		zap.Uint64("checkout_created", s.Checkout.Created),
		zap.Uint64("checkout_failed", s.Checkout.Failed),
	)
}
