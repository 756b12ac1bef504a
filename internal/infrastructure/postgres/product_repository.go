package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	rec := productFromDomain(p)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	rec := productFromDomain(p)
	res := r.db.WithContext(ctx).
		Model(&productRecord{ID: p.ID}).
		Select("*").
		Omit("id", "created_at").
		Updates(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrSlugTaken
		}
		return fmt.Errorf("update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&productRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.first(ctx, "slug = ?", slug)
}

func (r *ProductRepository) first(ctx context.Context, cond string, arg any) (*domain.Product, error) {
	var rec productRecord
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *ProductRepository) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var recs []productRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	for _, rec := range recs {
		out[rec.ID] = rec.toDomain()
	}
	return out, nil
}

func (r *ProductRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&productRecord{}).Where("slug = ?", slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return n > 0, nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&productRecord{})
	if f.Color != "" {
		q = q.Where("color = ?", f.Color)
	}
	if f.Size != "" {
		q = q.Where("size = ?", string(f.Size))
	}
	if f.Tag != "" {
		q = q.Where("? = ANY(tags)", f.Tag)
	}
	if f.MinPriceCents != nil {
		q = q.Where("price_cents >= ?", *f.MinPriceCents)
	}
	if f.MaxPriceCents != nil {
		q = q.Where("price_cents <= ?", *f.MaxPriceCents)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	q = q.Order(orderClause(f.Sort))
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var recs []productRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products := make([]*domain.Product, 0, len(recs))
	for _, rec := range recs {
		products = append(products, rec.toDomain())
	}
	return products, total, nil
}

func orderClause(s domain.SortOrder) string {
	switch s {
	case domain.SortPriceAsc:
		return "price_cents ASC, created_at DESC, id ASC"
	case domain.SortPriceDesc:
		return "price_cents DESC, created_at DESC, id ASC"
	case domain.SortPopular:
		return "sold_count DESC, created_at DESC, id ASC"
	default:
		return "created_at DESC, id ASC"
	}
}

// DecrementStock is a single UPDATE so concurrent sales never overwrite each other.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	query, args, err := sq.Update("products").
		Set("total_stock", sq.Expr("GREATEST(total_stock - ?, 0)", qty)).
		Set("sold_count", sq.Expr("sold_count + ?", qty)).
		Set("in_stock", sq.Expr("(total_stock - ?) > 0", qty)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build decrement: %w", err)
	}

	var recs []productRecord
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&recs).Error; err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if len(recs) == 0 {
		return nil, domain.ErrNotFound
	}
	return recs[0].toDomain(), nil
}
