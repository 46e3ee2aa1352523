package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/checkout"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.IsProduction())
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newServer(cfg, database)
	go app.limiter.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.L().Info("storefront server starting",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.AppEnv),
	)

	err := startServerFunc(ctx, srv)
	metrics.LogSnapshot(app.metrics)
	return err
}

type server struct {
	router  http.Handler
	limiter *middleware.RateLimiter
	metrics *metrics.Registry
}

func newServer(cfg *config.Config, database *sql.DB) *server {
	reg := metrics.NewRegistry()
	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey)

	gateway := payment.NewStripeGateway(payment.StripeConfig{
		SecretKey:         cfg.StripeSecretKey,
		WebhookSecret:     cfg.StripeWebhookSecret,
		AppURL:            cfg.AppURL,
		Currency:          cfg.Currency,
		ShippingCountries: cfg.ShippingCountries,
	})

	productSvc := product.NewService(product.NewRepository(database))
	orderSvc := order.NewService(order.NewRepository(database), productSvc)
	checkoutSvc := checkout.NewService(productSvc, gateway, &reg.Checkout)
	paymentRepo := payment.NewRepository(database)

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
	r.Use(logger.LoggingMiddleware)
	r.Use(limiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	webhookHandler := webhook.NewWebhookHandler(orderSvc, gateway, paymentRepo, &reg.Webhooks)

	checkout.NewHandler(checkoutSvc).RegisterRoutes(r)
	order.NewHandler(orderSvc).RegisterRoutes(r)
	webhookHandler.RegisterRoutes(r)

	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireInternal(cfg.InternalSecretKey))
		r.Get("/metrics", metrics.Handler(reg))
		webhookHandler.RegisterInternalRoutes(r)
	})

	return &server{router: r, limiter: limiter, metrics: reg}
}

// startServer serves until ctx is canceled, then drains in-flight requests.
func startServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
