package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domcart "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type WebhookCommand struct {
	Payload   []byte
	Signature string
}

type WebhookResult struct {
	EventType string
	Duplicate bool
	Fulfilled bool
}

var _ application.UseCase[WebhookCommand, *WebhookResult] = (*HandleWebhookUseCase)(nil)

// HandleWebhookUseCase fulfills paid sessions exactly once per session id.
// Only a bad signature is reported to the caller; every other failure is
// logged and acknowledged so the provider stops redelivering.
type HandleWebhookUseCase struct {
	verifier  domain.WebhookVerifier
	ledger    domain.Ledger
	carts     domcart.Repository
	products  catalog.Repository
	publisher domoutbox.Publisher
	probe     *application.Probe
}

func NewHandleWebhookUseCase(
	verifier domain.WebhookVerifier,
	ledger domain.Ledger,
	carts domcart.Repository,
	products catalog.Repository,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		verifier:  verifier,
		ledger:    ledger,
		carts:     carts,
		products:  products,
		publisher: publisher,
		probe:     application.NewProbe(tel, checkoutService),
	}
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, cmd WebhookCommand) (_ *WebhookResult, err error) {
	ctx, run := uc.probe.Begin(ctx, useCaseWebhook, "HandlePaymentWebhook")
	defer func() { run.End(err) }()

	event, err := uc.verifier.Verify(cmd.Payload, cmd.Signature)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMalformedEvent):
		// Authentic but undecodable; a redelivery would carry the same bytes.
		run.Status("MALFORMED_EVENT")
		run.Logger().Warn("webhook_event_malformed", observability.F("error", err.Error()))
		return &WebhookResult{}, nil
	case errors.Is(err, domain.ErrInvalidSignature):
		run.Fail("INVALID_SIGNATURE")
		return nil, err
	default:
		run.Fail("INVALID_SIGNATURE")
		return nil, errors.Join(domain.ErrInvalidSignature, err)
	}

	result := &WebhookResult{EventType: event.Type}
	run.Span().SetAttributes(attribute.String("checkout.event_type", event.Type))
	run.With(observability.F("event_type", event.Type))

	if event.Type != domain.EventCheckoutCompleted {
		run.Status("IGNORED_EVENT_TYPE")
		return result, nil
	}
	run.Span().SetAttributes(attribute.String("checkout.session_id", event.SessionID))
	run.With(observability.F("session_id", event.SessionID))

	status, fulfilled := uc.fulfill(ctx, run, event)
	run.Status(status)
	result.Duplicate = status == "DUPLICATE"
	result.Fulfilled = fulfilled
	return result, nil
}

// fulfill applies the side effects of a paid session and returns a status
// code for telemetry. Failures stay internal.
func (uc *HandleWebhookUseCase) fulfill(ctx context.Context, run *application.Run, event domain.Event) (string, bool) {
	logger := run.Logger()

	if event.SessionID == "" {
		logger.Warn("webhook_fulfillment_failed", observability.F("reason", "missing session id"))
		return "MALFORMED_EVENT", false
	}

	claimed, err := uc.ledger.Claim(ctx, event.SessionID)
	if err != nil {
		logger.Error("webhook_fulfillment_failed",
			observability.F("stage", "claim"),
			observability.F("error", err.Error()),
		)
		return "LEDGER_FAILED", false
	}
	if !claimed {
		logger.Info("webhook_duplicate_delivery")
		return "DUPLICATE", false
	}
	// The claim is held from here on, so the side effects must not be cut
	// short by the provider hanging up.
	ctx = context.WithoutCancel(ctx)

	cartID := event.Metadata[domain.MetadataCartID]
	cart, err := uc.carts.FindByID(ctx, cartID)
	switch {
	case errors.Is(err, domcart.ErrNotFound):
		logger.Warn("webhook_cart_missing", observability.F("cart_id", cartID))
		return "CART_MISSING", false
	case err != nil:
		// Nothing was mutated, so let a redelivery try again.
		if rerr := uc.ledger.Release(ctx, event.SessionID); rerr != nil {
			logger.Error("webhook_claim_release_failed", observability.F("error", rerr.Error()))
		}
		logger.Error("webhook_fulfillment_failed",
			observability.F("stage", "cart_load"),
			observability.F("cart_id", cartID),
			observability.F("error", err.Error()),
		)
		return "CART_LOAD_FAILED", false
	}

	fulfilled := domain.FulfilledEvent{
		SessionID:  event.SessionID,
		UserID:     event.Metadata[domain.MetadataUserID],
		CartID:     cart.ID,
		Lines:      make([]domain.FulfilledLine, 0, len(cart.Items)),
		OccurredAt: time.Now().UTC(),
	}
	depleted := make(map[string]*catalog.Product)
	status := "FULFILLED"

	for _, item := range cart.Items {
		product, err := uc.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			status = "PARTIALLY_FULFILLED"
			logger.Error("webhook_fulfillment_failed",
				observability.F("stage", "decrement_stock"),
				observability.F("product_id", item.ProductID),
				observability.F("quantity", item.Quantity),
				observability.F("error", err.Error()),
			)
			continue
		}
		fulfilled.Lines = append(fulfilled.Lines, domain.FulfilledLine{ProductID: item.ProductID, Quantity: item.Quantity})
		if product.TotalStock == 0 {
			depleted[product.ID] = product
		}
	}

	if err := uc.carts.Clear(ctx, cart.ID); err != nil {
		status = "PARTIALLY_FULFILLED"
		logger.Error("webhook_fulfillment_failed",
			observability.F("stage", "cart_clear"),
			observability.F("cart_id", cart.ID),
			observability.F("error", err.Error()),
		)
	}

	run.With(
		observability.F("cart_id", cart.ID),
		observability.F("units", fulfilled.Units()),
	)
	if len(fulfilled.Lines) == 0 {
		if len(cart.Items) > 0 {
			status = "NOT_FULFILLED"
		}
		return status, false
	}

	uc.publish(ctx, run, fulfilled)
	for _, p := range depleted {
		uc.publish(ctx, run, catalog.NewStockDepletedEvent(p))
	}
	return status, true
}

func (uc *HandleWebhookUseCase) publish(ctx context.Context, run *application.Run, e domoutbox.Event) {
	if uc.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err := uc.publisher.Publish(pubCtx, e)
	uc.probe.External(publishPeer, e.EventName(), start, err)
	if err != nil {
		run.Span().RecordError(err)
		run.Logger().Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
