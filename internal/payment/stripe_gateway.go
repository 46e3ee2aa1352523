package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	AppURL            string
	Currency          string
	ShippingCountries []string

	// BaseURL overrides the API endpoint (stripe-mock, tests).
	BaseURL    string
	HTTPClient *http.Client
}

type stripeGateway struct {
	api               *client.API
	webhookSecret     string
	successURL        string
	cancelURL         string
	currency          string
	shippingCountries []string
}

// Currencies Stripe charges in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true, "xpf": true,
}

func NewStripeGateway(cfg StripeConfig) Gateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     logger.Named("stripe").Sugar(),
		MaxNetworkRetries: stripe.Int64(2),
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	appURL := strings.TrimRight(cfg.AppURL, "/")
	return &stripeGateway{
		api:               api,
		webhookSecret:     cfg.WebhookSecret,
		successURL:        appURL + "/dashboard/orders?success=true",
		cancelURL:         appURL + "/cart?canceled=true",
		currency:          strings.ToLower(cfg.Currency),
		shippingCountries: cfg.ShippingCountries,
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("provider", "stripe"),
		zap.String("user_id", req.Metadata.UserID),
		zap.Int("line_items", len(req.LineItems)),
	)

	metadata, err := req.Metadata.Encode()
	if err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(item.Name),
					Description: item.Description,
				},
				UnitAmount: stripe.Int64(MinorUnits(item.UnitAmount, g.currency)),
			},
			Quantity: stripe.Int64(qty),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:                lineItems,
		SuccessURL:               stripe.String(g.successURL),
		CancelURL:                stripe.String(g.cancelURL),
		BillingAddressCollection: stripe.String("required"),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(g.shippingCountries),
		},
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	start := time.Now()
	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		log.Error("stripe checkout session failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	log.Info("stripe checkout session created",
		zap.String("session_id", s.ID),
		zap.Duration("duration", time.Since(start)),
	)
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *stripeGateway) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	if err := webhook.ValidatePayload(payload, signatureHeader, g.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var se stripe.Event
	if err := json.Unmarshal(payload, &se); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if se.ID == "" || se.Type == "" {
		return nil, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	evt := &Event{
		ID:      se.ID,
		Type:    EventType(se.Type),
		Created: time.Unix(se.Created, 0).UTC(),
		Payload: json.RawMessage(payload),
	}
	if se.Data == nil {
		return evt, nil
	}

	switch evt.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(se.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: checkout session: %v", ErrMalformedEvent, err)
		}
		evt.Session = &SessionObject{
			ID:                cs.ID,
			ClientReferenceID: cs.ClientReferenceID,
			PaymentStatus:     string(cs.PaymentStatus),
			AmountTotal:       cs.AmountTotal,
			Currency:          string(cs.Currency),
			Metadata:          cs.Metadata,
		}
		if cs.PaymentIntent != nil {
			evt.Session.PaymentIntentID = cs.PaymentIntent.ID
		}

	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(se.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: payment intent: %v", ErrMalformedEvent, err)
		}
		evt.PaymentIntent = &PaymentIntentObject{
			ID:     pi.ID,
			Status: string(pi.Status),
		}
		if pi.LastPaymentError != nil {
			evt.PaymentIntent.FailureMessage = pi.LastPaymentError.Msg
		}
	}

	return evt, nil
}

// MinorUnits converts a decimal amount to the provider's integer unit.
func MinorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[strings.ToLower(currency)] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
