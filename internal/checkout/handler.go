package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

type CreateSessionRequest struct {
	ProductIDs []string `json:"productIds"`
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	OK        bool   `json:"ok"`
}

// Handler exposes checkout HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Post("/checkout", h.createSession)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req CreateSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		utils.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateSession(r.Context(), userID, req.ProductIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			utils.WriteJSONError(w, "Product IDs are required", http.StatusBadRequest)
		case errors.Is(err, product.ErrNoProducts):
			utils.WriteJSONError(w, "No products found", http.StatusNotFound)
		case errors.Is(err, payment.ErrMetadataTooLarge):
			utils.WriteJSONError(w, "Too many products for one checkout", http.StatusBadRequest)
		default:
			logger.FromCtx(r.Context()).Error("checkout failed", zap.Error(err))
			utils.WriteJSONError(w, "Error creating checkout session", http.StatusInternalServerError)
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, CreateSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
		OK:        true,
	})
}
