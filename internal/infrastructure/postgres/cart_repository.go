package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	return r.find(ctx, "user_id = ?", userID)
}

func (r *CartRepository) FindByID(ctx context.Context, id string) (*domain.Cart, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *CartRepository) find(ctx context.Context, cond string, arg any) (*domain.Cart, error) {
	var rec cartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(cond, arg).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.ID == "" || c.UserID == "" {
		return fmt.Errorf("cart repository: id and user id are required")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.Version == 0 {
			rec := cartRecord{ID: c.ID, UserID: c.UserID, Version: 1, CreatedAt: c.CreatedAt, UpdatedAt: now}
			if err := tx.Omit("Items").Create(&rec).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return domain.ErrConflict
				}
				return err
			}
		} else {
			n, err := exec(ctx, tx, sq.Update("carts").
				Set("version", sq.Expr("version + 1")).
				Set("updated_at", now).
				Where(sq.Eq{"id": c.ID, "version": c.Version}))
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrConflict
			}
			if err := tx.Where("cart_id = ?", c.ID).Delete(&cartItemRecord{}).Error; err != nil {
				return err
			}
		}
		if items := cartItemsFromDomain(c); len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("save cart: %w", err)
	}
	c.Version++
	c.UpdatedAt = now
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&cartItemRecord{}).Error; err != nil {
			return err
		}
		_, err := exec(ctx, tx, sq.Update("carts").
			Set("version", sq.Expr("version + 1")).
			Set("updated_at", time.Now().UTC()).
			Where(sq.Eq{"id": id}))
		return err
	})
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
