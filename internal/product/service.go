package product

import (
	"context"
	"strings"

	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// Resolve prices a cart from trusted catalog data. Each distinct id
	// counts as one unit; ids without a catalog row are dropped.
	Resolve(ctx context.Context, ids []string) (*Selection, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Resolve(ctx context.Context, ids []string) (*Selection, error) {
	ids = UniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoProductIDs
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Resolve"),
		zap.Strings("product_ids", ids),
	)

	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		log.Error("failed to load products", zap.Error(err))
		return nil, err
	}
	if len(products) == 0 {
		log.Warn("no products matched")
		return nil, ErrNoProducts
	}
	if len(products) < len(ids) {
		log.Info("some product ids did not resolve",
			zap.Int("requested", len(ids)),
			zap.Int("resolved", len(products)),
		)
	}

	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}

	return &Selection{Products: products, Total: total}, nil
}

// UniqueIDs trims ids and drops blanks and repeats, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
