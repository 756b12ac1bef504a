package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService = "checkout-service"

	useCaseCreateSession = "checkout.create_session"
	useCaseWebhook       = "checkout.webhook"

	providerPeer            = "stripe"
	providerSessionEndpoint = "checkout.sessions.create"
	publishPeer             = "outbox"
	publishTimeout          = 300 * time.Millisecond

	defaultCurrency = "usd"
)

type Options struct {
	FrontendURL string
	Currency    string
}

func (o Options) successURL() string {
	return strings.TrimRight(o.FrontendURL, "/") + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

func (o Options) cancelURL() string {
	return strings.TrimRight(o.FrontendURL, "/") + "/checkout/cancel"
}

func (o Options) currency() string {
	if o.Currency == "" {
		return defaultCurrency
	}
	return strings.ToLower(o.Currency)
}

type CreateSessionCommand struct {
	Identity identity.Identity
}

type CreateSessionResult struct {
	SessionID   string
	URL         string
	AmountTotal int64
}

var _ application.UseCase[CreateSessionCommand, *CreateSessionResult] = (*CreateSessionUseCase)(nil)

// CreateSessionUseCase prices the caller's cart from authoritative product data
// and opens a hosted payment session. It never mutates stock or the cart.
type CreateSessionUseCase struct {
	carts    domcart.Repository
	products catalog.Repository
	provider domain.PaymentProvider
	opts     Options
	probe    *application.Probe
}

func NewCreateSessionUseCase(
	carts domcart.Repository,
	products catalog.Repository,
	provider domain.PaymentProvider,
	opts Options,
	tel observability.Observability,
) *CreateSessionUseCase {
	return &CreateSessionUseCase{
		carts:    carts,
		products: products,
		provider: provider,
		opts:     opts,
		probe:    application.NewProbe(tel, checkoutService),
	}
}

func (uc *CreateSessionUseCase) Execute(ctx context.Context, cmd CreateSessionCommand) (_ *CreateSessionResult, err error) {
	ctx, run := uc.probe.Begin(ctx, useCaseCreateSession, "CreateCheckoutSession")
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(cmd.Identity)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	cart, err := uc.carts.FindByUser(ctx, principal.ID)
	switch {
	case errors.Is(err, domcart.ErrNotFound):
		run.Fail("EMPTY_CART")
		return nil, application.ErrEmptyCart
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return nil, application.Repository(err)
	case cart.IsEmpty():
		run.Fail("EMPTY_CART")
		return nil, application.ErrEmptyCart
	}
	run.With(observability.F("cart_id", cart.ID))

	req := domain.SessionRequest{
		LineItems:         make([]domain.LineItem, 0, len(cart.Items)),
		Currency:          uc.opts.currency(),
		CustomerEmail:     principal.Email,
		ClientReferenceID: cart.ID,
		SuccessURL:        uc.opts.successURL(),
		CancelURL:         uc.opts.cancelURL(),
		Metadata: map[string]string{
			domain.MetadataUserID: principal.ID,
			domain.MetadataCartID: cart.ID,
		},
	}

	for _, item := range cart.Items {
		product, perr := uc.products.Get(ctx, item.ProductID)
		switch {
		case errors.Is(perr, catalog.ErrNotFound):
			run.Fail("INSUFFICIENT_STOCK")
			return nil, &application.InsufficientStockError{}
		case perr != nil:
			run.Fail("PRODUCT_LOAD_FAILED")
			return nil, application.Repository(perr)
		case !product.Available(item.Quantity):
			run.Fail("INSUFFICIENT_STOCK")
			return nil, &application.InsufficientStockError{ProductName: product.Name}
		}
		req.LineItems = append(req.LineItems, domain.LineItem{
			Name:        product.Name,
			Description: fmt.Sprintf("%s, Size: %s", product.Color, item.Size),
			Images:      append([]string(nil), product.Images...),
			UnitAmount:  product.PriceCents,
			Quantity:    item.Quantity,
		})
	}

	amountTotal := req.AmountTotal()
	run.Span().SetAttributes(
		attribute.Int("checkout.line_items", len(req.LineItems)),
		attribute.Int64("checkout.amount_total", amountTotal),
	)

	start := time.Now()
	session, err := uc.provider.CreateSession(ctx, req)
	uc.probe.External(providerPeer, providerSessionEndpoint, start, err)
	if err != nil {
		run.Fail("PROVIDER_FAILED")
		return nil, application.Upstream(err)
	}
	if session.AmountTotal == 0 {
		session.AmountTotal = amountTotal
	}

	run.Span().AddEvent("checkout.session_created",
		trace.WithAttributes(attribute.String("checkout.session_id", session.ID)),
	)
	run.With(
		observability.F("session_id", session.ID),
		observability.F("amount_total", session.AmountTotal),
	)

	return &CreateSessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		AmountTotal: session.AmountTotal,
	}, nil
}
