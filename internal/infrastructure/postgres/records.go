package postgres

import (
	"time"

	"github.com/lib/pq"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/user"
)

type productRecord struct {
	ID          string         `gorm:"primaryKey;type:varchar(64)"`
	Name        string         `gorm:"not null"`
	Slug        string         `gorm:"not null;uniqueIndex"`
	Description string         `gorm:"not null"`
	Tags        pq.StringArray `gorm:"type:text[]"`
	PriceCents  int64          `gorm:"not null"`
	Color       string         `gorm:"not null;index"`
	Size        string         `gorm:"not null;type:varchar(2);index"`
	Images      pq.StringArray `gorm:"type:text[]"`
	InStock     bool           `gorm:"not null"`
	TotalStock  int            `gorm:"not null"`
	SoldCount   int            `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"index"`
	UpdatedAt   time.Time
}

func (productRecord) TableName() string { return "products" }

func productFromDomain(p *catalog.Product) productRecord {
	return productRecord{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Tags:        pq.StringArray(append([]string{}, p.Tags...)),
		PriceCents:  p.PriceCents,
		Color:       p.Color,
		Size:        string(p.Size),
		Images:      pq.StringArray(append([]string{}, p.Images...)),
		InStock:     p.InStock,
		TotalStock:  p.TotalStock,
		SoldCount:   p.SoldCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r productRecord) toDomain() *catalog.Product {
	return &catalog.Product{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		Tags:        []string(r.Tags),
		PriceCents:  r.PriceCents,
		Color:       r.Color,
		Size:        catalog.Size(r.Size),
		Images:      []string(r.Images),
		InStock:     r.InStock,
		TotalStock:  r.TotalStock,
		SoldCount:   r.SoldCount,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type userRecord struct {
	ID           string `gorm:"primaryKey;type:varchar(64)"`
	Username     string `gorm:"not null"`
	Email        string `gorm:"not null;uniqueIndex"`
	Phone        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;type:varchar(16);default:user"`
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

func userFromDomain(u *user.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRecord) toDomain() *user.User {
	return &user.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		Phone:        r.Phone,
		PasswordHash: r.PasswordHash,
		Role:         user.Role(r.Role),
		ProfileImage: r.ProfileImage,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type cartRecord struct {
	ID        string           `gorm:"primaryKey;type:varchar(64)"`
	UserID    string           `gorm:"not null;uniqueIndex;type:varchar(64)"`
	Version   int64            `gorm:"not null"`
	Items     []cartItemRecord `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartRecord) TableName() string { return "carts" }

type cartItemRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	CartID    string `gorm:"not null;index;type:varchar(64)"`
	Position  int    `gorm:"not null"`
	ProductID string `gorm:"not null;type:varchar(64)"`
	Quantity  int    `gorm:"not null"`
	Color     string `gorm:"not null"`
	Size      string `gorm:"not null;type:varchar(2)"`
}

func (cartItemRecord) TableName() string { return "cart_items" }

func cartItemsFromDomain(c *cart.Cart) []cartItemRecord {
	items := make([]cartItemRecord, 0, len(c.Items))
	for i, it := range c.Items {
		items = append(items, cartItemRecord{
			ID:        it.ID,
			CartID:    c.ID,
			Position:  i,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Color:     it.Color,
			Size:      string(it.Size),
		})
	}
	return items
}

func (r cartRecord) toDomain() *cart.Cart {
	c := &cart.Cart{
		ID:        r.ID,
		UserID:    r.UserID,
		Version:   r.Version,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	for _, it := range r.Items {
		c.Items = append(c.Items, cart.Item{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Color:     it.Color,
			Size:      catalog.Size(it.Size),
		})
	}
	return c
}
