// Package stripe adapts the Stripe Go SDK to the checkout ports.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = stripeapi.APIURL
	defaultMaxRetries = 2
)

var ErrNotConfigured = errors.New("stripe: secret key is not configured")

type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
	// MaxRetries caps SDK network retries; negative disables them.
	MaxRetries int
	// Logger receives SDK diagnostics; nil discards them.
	Logger *zap.Logger
}

type Client struct {
	secret   string
	sessions session.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "stripe " + r.Method + " " + r.URL.Path
				}),
			),
		}
	}
	retries := int64(cfg.MaxRetries)
	switch {
	case cfg.MaxRetries == 0:
		retries = defaultMaxRetries
	case cfg.MaxRetries < 0:
		retries = 0
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient:        hc,
		URL:               stripeapi.String(base),
		MaxNetworkRetries: stripeapi.Int64(retries),
		LeveledLogger:     logger.Sugar(),
	})
	return &Client{
		secret:   cfg.SecretKey,
		sessions: session.Client{B: backend, Key: cfg.SecretKey},
	}
}

// APIError is a non-2xx answer from Stripe.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: api error (%d %s): %s", e.Status, e.Type, e.Message)
}

func (c *Client) CreateSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error) {
	if c.secret == "" {
		return domain.Session{}, ErrNotConfigured
	}

	out, err := c.sessions.New(sessionParams(ctx, req))
	if err != nil {
		var apiErr *stripeapi.Error
		if errors.As(err, &apiErr) {
			return domain.Session{}, &APIError{
				Status:  apiErr.HTTPStatusCode,
				Type:    string(apiErr.Type),
				Message: apiErr.Msg,
			}
		}
		return domain.Session{}, fmt.Errorf("stripe: create session: %w", err)
	}
	if out.ID == "" || out.URL == "" {
		return domain.Session{}, errors.New("stripe: session response missing id or url")
	}
	return domain.Session{ID: out.ID, URL: out.URL, AmountTotal: out.AmountTotal}, nil
}

func sessionParams(ctx context.Context, req domain.SessionRequest) *stripeapi.CheckoutSessionParams {
	params := &stripeapi.CheckoutSessionParams{
		Params:             stripeapi.Params{Context: ctx},
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		SuccessURL:         stripeapi.String(req.SuccessURL),
		CancelURL:          stripeapi.String(req.CancelURL),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripeapi.String(req.CustomerEmail)
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripeapi.String(req.ClientReferenceID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	for _, li := range req.LineItems {
		product := &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripeapi.String(li.Name),
		}
		if li.Description != "" {
			product.Description = stripeapi.String(li.Description)
		}
		if len(li.Images) > 0 {
			product.Images = stripeapi.StringSlice(li.Images)
		}
		params.LineItems = append(params.LineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(int64(li.Quantity)),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripeapi.String(req.Currency),
				UnitAmount:  stripeapi.Int64(li.UnitAmount),
				ProductData: product,
			},
		})
	}
	return params
}
