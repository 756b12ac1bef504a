package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
)

type CartRepository struct {
	mu     sync.RWMutex
	carts  map[string]*domain.Cart
	byUser map[string]string
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts:  make(map[string]*domain.Cart),
		byUser: make(map[string]string),
	}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.carts[id].Clone(), nil
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.ID == "" || c.UserID == "" {
		return fmt.Errorf("cart repository: id and user id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Version == 0 {
		if _, exists := r.byUser[c.UserID]; exists {
			return domain.ErrConflict
		}
		if _, exists := r.carts[c.ID]; exists {
			return domain.ErrConflict
		}
	} else {
		current, ok := r.carts[c.ID]
		if !ok || current.Version != c.Version {
			return domain.ErrConflict
		}
	}

	c.Version++
	r.carts[c.ID] = c.Clone()
	r.byUser[c.UserID] = c.ID
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[id]
	if !ok {
		return nil
	}
	c.Items = nil
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	return nil
}
