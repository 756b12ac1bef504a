// Package redisledger keeps the checkout fulfillment ledger in Redis so duplicate
// webhook deliveries are recognised across restarts and replicas.
package redisledger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultKeyPrefix = "storefront:fulfilled"
	DefaultTTL       = 30 * 24 * time.Hour
)

type LedgerConfig struct {
	// KeyPrefix namespaces ledger keys: {prefix}:{session_id}.
	KeyPrefix string
	// TTL bounds how long a claim is remembered. Stripe retries for three days.
	TTL time.Duration
}

type Ledger struct {
	client redis.UniversalClient
	cfg    LedgerConfig
}

func NewLedger(client redis.UniversalClient, cfg LedgerConfig) *Ledger {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Ledger{client: client, cfg: cfg}
}

func (l *Ledger) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", l.cfg.KeyPrefix, sessionID)
}

// Claim sets the key only if absent, so exactly one caller wins.
func (l *Ledger) Claim(ctx context.Context, sessionID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(sessionID), time.Now().UTC().Format(time.RFC3339Nano), l.cfg.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis ledger: claim %s: %w", sessionID, err)
	}
	return ok, nil
}

func (l *Ledger) Release(ctx context.Context, sessionID string) error {
	if err := l.client.Del(ctx, l.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis ledger: release %s: %w", sessionID, err)
	}
	return nil
}

type ClientOptions struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and pings it so misconfiguration fails at startup.
func Connect(ctx context.Context, opts ClientOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return client, nil
}
