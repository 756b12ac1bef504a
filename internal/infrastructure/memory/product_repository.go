package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
	slugs    map[string]string
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]*domain.Product),
		slugs:    make(map[string]string),
	}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return fmt.Errorf("product repository: duplicate id %q", p.ID)
	}
	if _, taken := r.slugs[p.Slug]; taken {
		return domain.ErrSlugTaken
	}
	r.products[p.ID] = p.Clone()
	r.slugs[p.Slug] = p.ID
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("product repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := r.slugs[p.Slug]; taken && owner != p.ID {
		return domain.ErrSlugTaken
	}
	delete(r.slugs, current.Slug)
	r.products[p.ID] = p.Clone()
	r.slugs[p.Slug] = p.ID
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.slugs, p.Slug)
	delete(r.products, id)
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugs[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.products[id].Clone(), nil
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p.Clone()
		}
	}
	return out, nil
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.slugs[slug]
	return ok && owner != excludeID, nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Product, int64, error) {
	_ = ctx

	r.mu.RLock()
	matched := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if matches(p, f) {
			matched = append(matched, p.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortStableFunc(matched, ordering(f.Sort))

	total := int64(len(matched))
	start := min(max(f.Offset, 0), len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (*domain.Product, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := p.Sell(qty); err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

func matches(p *domain.Product, f domain.Filter) bool {
	if f.Color != "" && p.Color != f.Color {
		return false
	}
	if f.Size != "" && p.Size != f.Size {
		return false
	}
	if f.Tag != "" && !slices.Contains(p.Tags, f.Tag) {
		return false
	}
	if f.MinPriceCents != nil && p.PriceCents < *f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents != nil && p.PriceCents > *f.MaxPriceCents {
		return false
	}
	return true
}

func ordering(s domain.SortOrder) func(a, b *domain.Product) int {
	switch s {
	case domain.SortPriceAsc:
		return func(a, b *domain.Product) int { return cmp.Compare(a.PriceCents, b.PriceCents) }
	case domain.SortPriceDesc:
		return func(a, b *domain.Product) int { return cmp.Compare(b.PriceCents, a.PriceCents) }
	case domain.SortPopular:
		return func(a, b *domain.Product) int { return cmp.Compare(b.SoldCount, a.SoldCount) }
	default:
		return func(a, b *domain.Product) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		}
	}
}
