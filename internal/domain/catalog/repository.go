package catalog

import "context"

type SortOrder string

const (
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortPopular   SortOrder = "popular"
)

// ParseSortOrder maps unknown values to SortNewest.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(s); o {
	case SortPriceAsc, SortPriceDesc, SortPopular:
		return o
	default:
		return SortNewest
	}
}

// Filter selects products for listing. Zero Limit means no limit.
type Filter struct {
	Color         string
	Size          Size
	Tag           string
	MinPriceCents *int64
	MaxPriceCents *int64
	Sort          SortOrder
	Offset        int
	Limit         int
}

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	// GetMany returns the products that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]*Product, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	List(ctx context.Context, f Filter) ([]*Product, int64, error)
	// DecrementStock atomically sells qty units: stock floors at zero, SoldCount
	// grows by qty and InStock is re-derived. Returns the updated product.
	DecrementStock(ctx context.Context, id string, qty int) (*Product, error)
}
