package httppresentation

import (
	"errors"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	appCheckout "github.com/Zhima-Mochi/minishop-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

const headerStripeSignature = "Stripe-Signature"

func (h *Handler) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CreateCheckout.Execute(r.Context(), appCheckout.CreateSessionCommand{
		Identity: callerFrom(r.Context()),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutSessionResponse{
		SessionID:   res.SessionID,
		URL:         res.URL,
		AmountTotal: res.AmountTotal,
		Amount:      price(res.AmountTotal),
	})
}

// handleWebhook verifies over the exact bytes received, so the body is read raw.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeDomainError(w, r, application.Invalid("webhook payload too large"))
			return
		}
		h.writeDomainError(w, r, application.Invalid("cannot read webhook payload"))
		return
	}

	res, err := h.svc.Webhook.Execute(r.Context(), appCheckout.WebhookCommand{
		Payload:   payload,
		Signature: r.Header.Get(headerStripeSignature),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	logctx.FromOr(r.Context(), h.log).Debug("webhook_acknowledged",
		observability.F("event_type", res.EventType),
		observability.F("duplicate", res.Duplicate),
		observability.F("fulfilled", res.Fulfilled),
	)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
