package memory

import (
	"context"
	"sync"
)

// Ledger is a process-local fulfillment ledger. Claims do not survive a restart.
type Ledger struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{claimed: make(map[string]struct{})}
}

func (l *Ledger) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.claimed[key]; ok {
		return false, nil
	}
	l.claimed[key] = struct{}{}
	return true, nil
}

func (l *Ledger) Release(ctx context.Context, key string) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.claimed, key)
	return nil
}
