package order

import (
	"errors"
	"net/http"
	"strconv"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes the order endpoints of the storefront.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.listOrders) // ?status=PENDING&limit=20&page=1
		r.Get("/{orderId}", h.getOrder)
		r.Delete("/{orderId}/cancel", h.cancelOrder)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter OrderFilter
	if raw := q.Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Status = &st
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Page, _ = strconv.Atoi(q.Get("page"))

	orders, err := h.service.GetOrders(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "Error fetching orders")
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToResponses(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrderDetail(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err, "Error fetching order")
		return
	}
	utils.WriteJSON(w, http.StatusOK, ToResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	err := h.service.Cancel(r.Context(), orderID)
	switch {
	case err == nil:
		utils.WriteText(w, http.StatusOK, "Order canceled successfully")
	case errors.Is(err, ErrUnauthorized):
		utils.WriteText(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrForbidden):
		utils.WriteText(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrInvalidTransition):
		utils.WriteText(w, http.StatusConflict, "Order can no longer be canceled")
	default:
		// Unknown orders land here too.
		logger.FromCtx(r.Context()).Error("cancel order failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		utils.WriteText(w, http.StatusInternalServerError, "Error canceling order")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		utils.WriteJSONError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		utils.WriteJSONError(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, ErrOrderNotFound):
		utils.WriteJSONError(w, "Order not found", http.StatusNotFound)
	default:
		logger.FromCtx(r.Context()).Error(fallback, zap.Error(err))
		utils.WriteJSONError(w, fallback, http.StatusInternalServerError)
	}
}
