// Package checkout holds the payment provider contract and fulfillment
// bookkeeping used by the checkout orchestrator.
package checkout

import (
	"context"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("checkout: invalid webhook signature")
	ErrMalformedEvent   = errors.New("checkout: malformed webhook event")
)

const EventCheckoutCompleted = "checkout.session.completed"

const (
	MetadataUserID = "userId"
	MetadataCartID = "cartId"
)

type LineItem struct {
	Name        string
	Description string
	Images      []string
	UnitAmount  int64
	Quantity    int
}

func (l LineItem) Total() int64 { return l.UnitAmount * int64(l.Quantity) }

type SessionRequest struct {
	LineItems         []LineItem
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
}

// AmountTotal sums every line in minor units.
func (r SessionRequest) AmountTotal() int64 {
	var total int64
	for _, l := range r.LineItems {
		total += l.Total()
	}
	return total
}

type Session struct {
	ID          string
	URL         string
	AmountTotal int64
}

// Event is a verified provider notification.
type Event struct {
	ID        string
	Type      string
	SessionID string
	Metadata  map[string]string
}

type PaymentProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

// WebhookVerifier authenticates a raw webhook payload and decodes it.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (Event, error)
}

// Ledger records which provider sessions have been fulfilled.
type Ledger interface {
	// Claim returns false when key was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
