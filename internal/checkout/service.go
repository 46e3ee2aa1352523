package checkout

import (
	"context"
	"errors"
	"fmt"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	// CreateSession prices the selected products from the catalog and opens
	// a hosted payment session for them. Nothing is stored locally.
	CreateSession(ctx context.Context, userID string, productIDs []string) (*payment.CheckoutSession, error)
}

type service struct {
	products product.Service
	gateway  payment.Gateway
	stats    *metrics.CheckoutStats
}

func NewService(products product.Service, gateway payment.Gateway, stats *metrics.CheckoutStats) Service {
	if stats == nil {
		stats = &metrics.CheckoutStats{}
	}
	return &service{products: products, gateway: gateway, stats: stats}
}

func (s *service) CreateSession(ctx context.Context, userID string, productIDs []string) (*payment.CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateSession"),
		zap.String("user_id", userID),
	)

	// 1. Resolve cart against the catalog
	sel, err := s.products.Resolve(ctx, productIDs)
	if err != nil {
		if errors.Is(err, product.ErrNoProductIDs) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	// 2. Line items come from catalog rows only
	items := make([]payment.LineItem, 0, len(sel.Products))
	for _, p := range sel.Products {
		items = append(items, payment.LineItem{
			Name:        p.Name,
			Description: p.Description,
			UnitAmount:  p.Price,
			Quantity:    1,
		})
	}

	// 3. Open provider session
	timer := metrics.StartTimer()
	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		LineItems:     items,
		Metadata:      payment.NewMetadata(userID, sel.IDs(), sel.Total),
		CustomerEmail: utils.GetUserEmailFromContext(ctx),
	})
	s.stats.ObserveProvider(timer.Duration())
	if err != nil {
		s.stats.Failed.Inc()
		log.Error("failed to create checkout session", zap.Error(err))
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	s.stats.Created.Inc()
	log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("total", sel.Total.String()),
		zap.Int("products", len(sel.Products)),
	)
	return session, nil
}
