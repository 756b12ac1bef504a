package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/checkout"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const DefaultTolerance = 5 * time.Minute

// Verifier checks the Stripe-Signature header against the endpoint secret
// and decodes the event.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

func (v *Verifier) Verify(payload []byte, header string) (domain.Event, error) {
	if v.secret == "" {
		return domain.Event{}, fmt.Errorf("%w: webhook secret not configured", domain.ErrInvalidSignature)
	}

	evt, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	switch {
	case err == nil:
	case isSignatureError(err):
		return domain.Event{}, fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	default:
		return domain.Event{}, fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
	}

	out := domain.Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Type != stripeapi.EventTypeCheckoutSessionCompleted || evt.Data == nil {
		return out, nil
	}
	var sess stripeapi.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err)
	}
	out.SessionID = sess.ID
	out.Metadata = sess.Metadata
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld) ||
		errors.Is(err, webhook.ErrNoValidSignature)
}

// SignatureHeader builds a header Verify accepts. Used by tests and local tooling.
func SignatureHeader(secret string, payload []byte, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	}).Header
}
