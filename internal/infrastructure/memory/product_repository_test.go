package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

func seedProduct(t *testing.T, r *ProductRepository, id string, price int64, sold int, created time.Time, mutate ...func(*domain.Product)) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:          id,
		Name:        "Product " + id,
		Slug:        "product-" + id,
		Description: "d",
		Tags:        []string{"basic"},
		PriceCents:  price,
		Color:       "black",
		Size:        domain.SizeMedium,
		TotalStock:  5,
		InStock:     true,
		SoldCount:   sold,
		CreatedAt:   created,
	}
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, r.Insert(context.Background(), p))
	return p
}

func TestProductRepositorySlugUniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository()
	p := seedProduct(t, r, "p1", 100, 0, time.Now())

	dup := p.Clone()
	dup.ID = "p2"
	assert.ErrorIs(t, r.Insert(ctx, dup), domain.ErrSlugTaken)

	exists, err := r.SlugExists(ctx, "product-p1", "")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = r.SlugExists(ctx, "product-p1", "p1")
	require.NoError(t, err)
	assert.False(t, exists)

	p.Slug = "renamed"
	require.NoError(t, r.Update(ctx, p))
	_, err = r.GetBySlug(ctx, "product-p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := r.GetBySlug(ctx, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestProductRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository()
	seedProduct(t, r, "p1", 100, 0, time.Now())

	got, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := r.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "basic", again.Tags[0])
}

func TestProductRepositoryListFiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		seedProduct(t, r, fmt.Sprintf("p%d", i), int64(i*1000), 10-i, base.Add(time.Duration(i)*time.Hour))
	}
	seedProduct(t, r, "red", 2500, 0, base, func(p *domain.Product) {
		p.Color = "red"
		p.Size = domain.SizeLarge
		p.Tags = []string{"sale"}
	})

	all, total, err := r.List(ctx, domain.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	assert.Equal(t, "p5", all[0].ID)

	page, total, err := r.List(ctx, domain.Filter{Sort: domain.SortPriceAsc, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, page, 2)
	assert.Equal(t, "red", page[0].ID)
	assert.Equal(t, "p3", page[1].ID)

	popular, _, err := r.List(ctx, domain.Filter{Sort: domain.SortPopular, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "p1", popular[0].ID)

	minPrice, maxPrice := int64(2000), int64(3000)
	ranged, total, err := r.List(ctx, domain.Filter{MinPriceCents: &minPrice, MaxPriceCents: &maxPrice, Sort: domain.SortPriceDesc})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, "p3", ranged[0].ID)

	tagged, _, err := r.List(ctx, domain.Filter{Tag: "sale", Color: "red", Size: domain.SizeLarge})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "red", tagged[0].ID)

	beyond, total, err := r.List(ctx, domain.Filter{Offset: 50, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	assert.Empty(t, beyond)
}

func TestProductRepositoryDecrementStock(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository()
	seedProduct(t, r, "p1", 1999, 0, time.Now(), func(p *domain.Product) { p.TotalStock = 2 })

	p, err := r.DecrementStock(ctx, "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalStock)
	assert.Equal(t, 2, p.SoldCount)
	assert.False(t, p.InStock)

	p, err = r.DecrementStock(ctx, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalStock)
	assert.Equal(t, 5, p.SoldCount)

	_, err = r.DecrementStock(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProductRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	r := NewProductRepository()
	seedProduct(t, r, "p1", 100, 0, time.Now())

	require.NoError(t, r.Delete(ctx, "p1"))
	assert.ErrorIs(t, r.Delete(ctx, "p1"), domain.ErrNotFound)
	exists, err := r.SlugExists(ctx, "product-p1", "")
	require.NoError(t, err)
	assert.False(t, exists)
}
