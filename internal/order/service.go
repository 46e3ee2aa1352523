package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/product"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	// CompleteCheckout settles a completed provider session. An order named
	// by the client reference is marked PAID; otherwise a COMPLETED order is
	// created from the session metadata with catalog-verified prices. The
	// returned bool reports whether this call changed anything.
	CompleteCheckout(ctx context.Context, c CompletedCheckout) (*Order, bool, error)

	// ExpireCheckout cancels the PENDING order named by the client
	// reference. Unknown or already settled orders are left alone.
	ExpireCheckout(ctx context.Context, orderID string) (bool, error)

	MarkPaidByPaymentIntent(ctx context.Context, paymentIntentID string) (int64, error)
	MarkFailedByPaymentIntent(ctx context.Context, paymentIntentID string) (int64, error)

	// Cancel is the user-facing cancellation; the actor comes from ctx.
	Cancel(ctx context.Context, orderID string) error

	GetOrders(ctx context.Context, filter OrderFilter) ([]*Order, error)
	GetOrderDetail(ctx context.Context, orderID string) (*Order, error)
}

type service struct {
	repo     Repository
	products product.Service
	now      func() time.Time
}

func NewService(repo Repository, products product.Service) Service {
	return &service{
		repo:     repo,
		products: products,
		now:      time.Now,
	}
}

func (s *service) CompleteCheckout(ctx context.Context, c CompletedCheckout) (*Order, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CompleteCheckout"),
		zap.String("session_id", c.SessionID),
		zap.String("client_reference_id", c.ClientReferenceID),
	)

	// 1. Pre-created order: PENDING -> PAID
	if c.ClientReferenceID != "" {
		existing, err := s.repo.GetOrderDetail(ctx, c.ClientReferenceID)
		switch {
		case err == nil:
			moved, err := s.repo.TransitionStatus(ctx, existing.ID, StatusPaid, utils.NilIfEmpty(c.PaymentIntentID))
			if err != nil {
				log.Error("failed to mark order paid", zap.Error(err))
				return nil, false, err
			}
			if !moved {
				log.Info("order not pending, leaving as is", zap.String("status", string(existing.Status)))
				return existing, false, nil
			}
			existing.Status = StatusPaid
			if c.PaymentIntentID != "" {
				existing.PaymentIntentID = utils.StrPtr(c.PaymentIntentID)
			}
			log.Info("order marked as paid", zap.String("order_id", existing.ID))
			return existing, true, nil

		case !errors.Is(err, ErrOrderNotFound):
			log.Error("failed to load referenced order", zap.Error(err))
			return nil, false, err
		}
		log.Info("referenced order not found, creating from metadata")
	}

	// 2. IDEMPOTENCY CHECK
	if c.SessionID != "" {
		existing, err := s.repo.GetOrderBySessionID(ctx, c.SessionID)
		if err != nil {
			log.Error("failed to look up order by session", zap.Error(err))
			return nil, false, err
		}
		if existing != nil {
			log.Info("order already exists for session", zap.String("order_id", existing.ID))
			return existing, false, nil
		}
	}

	// 3. Re-price from the catalog
	sel, err := s.products.Resolve(ctx, c.ProductIDs)
	if err != nil {
		return nil, false, err
	}
	if c.MetadataTotal.Valid && !c.MetadataTotal.Decimal.Equal(sel.Total) {
		log.Warn("checkout total differs from catalog total",
			zap.String("metadata_total", c.MetadataTotal.Decimal.String()),
			zap.String("catalog_total", sel.Total.String()),
		)
	}

	now := s.now().UTC()
	order := &Order{
		ID:                utils.GenerateOrderID(),
		UserID:            c.UserID,
		TotalPrice:        sel.Total,
		Status:            StatusCompleted,
		PaymentIntentID:   utils.NilIfEmpty(c.PaymentIntentID),
		CheckoutSessionID: utils.NilIfEmpty(c.SessionID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, p := range sel.Products {
		order.Items = append(order.Items, OrderItem{
			ProductID:   p.ID,
			StoreID:     p.StoreID,
			ProductName: p.Name,
			Price:       p.Price,
		})
	}

	// 4. Transaction boundary
	created, err := s.repo.CreateOrderTx(ctx, order)
	if err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, false, err
	}
	if !created {
		// A concurrent delivery won the insert.
		existing, err := s.repo.GetOrderBySessionID(ctx, c.SessionID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("order for session %s missing after conflicting insert", c.SessionID)
		}
		return existing, false, nil
	}

	log.Info("order created from checkout",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.TotalPrice.String()),
		zap.Int("items", len(order.Items)),
	)
	return order, true, nil
}

func (s *service) ExpireCheckout(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, nil
	}

	moved, err := s.repo.TransitionStatus(ctx, orderID, StatusCanceled, nil)
	if err != nil {
		return false, err
	}

	logger.FromCtx(ctx).Info("checkout expired",
		zap.String("order_id", orderID),
		zap.Bool("canceled", moved),
	)
	return moved, nil
}

func (s *service) MarkPaidByPaymentIntent(ctx context.Context, paymentIntentID string) (int64, error) {
	return s.transitionByPaymentIntent(ctx, paymentIntentID, StatusPaid)
}

func (s *service) MarkFailedByPaymentIntent(ctx context.Context, paymentIntentID string) (int64, error) {
	return s.transitionByPaymentIntent(ctx, paymentIntentID, StatusFailed)
}

func (s *service) transitionByPaymentIntent(ctx context.Context, paymentIntentID string, to OrderStatus) (int64, error) {
	if paymentIntentID == "" {
		return 0, nil
	}

	n, err := s.repo.TransitionByPaymentIntent(ctx, paymentIntentID, to)
	if err != nil {
		return 0, err
	}

	logger.FromCtx(ctx).Info("orders updated by payment intent",
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("status", string(to)),
		zap.Int64("count", n),
	)
	return n, nil
}

func (s *service) Cancel(ctx context.Context, orderID string) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Cancel"),
		zap.String("order_id", orderID),
		zap.String("user_id", userID),
	)

	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		log.Warn("failed to load order", zap.Error(err))
		return err
	}

	if !utils.IsAdmin(ctx) && o.UserID != userID {
		log.Warn("cancel attempt on another user's order")
		return ErrForbidden
	}

	if o.Status == StatusCanceled {
		return nil
	}
	if !o.Status.CanTransitionTo(StatusCanceled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusCanceled)
	}

	moved, err := s.repo.TransitionStatus(ctx, orderID, StatusCanceled, nil)
	if err != nil {
		log.Error("failed to cancel order", zap.Error(err))
		return err
	}
	if !moved {
		// Status changed between the read and the guarded update.
		return fmt.Errorf("%w: order no longer pending", ErrInvalidTransition)
	}

	log.Info("order canceled")
	return nil
}

func (s *service) GetOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if utils.IsAdmin(ctx) {
		userID = ""
	}

	return s.repo.GetOrders(ctx, userID, filter)
}

func (s *service) GetOrderDetail(ctx context.Context, orderID string) (*Order, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	o, err := s.repo.GetOrderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !utils.IsAdmin(ctx) && o.UserID != userID {
		return nil, ErrForbidden
	}
	return o, nil
}
