package httppresentation

import (
	"encoding/json"
	"time"

	appAuth "github.com/Zhima-Mochi/minishop-storefront/internal/application/auth"
	appCart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	appCatalog "github.com/Zhima-Mochi/minishop-storefront/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

// Prices leave the service in major units with two decimals.
func price(cents int64) json.Number {
	return json.Number(catalog.MajorUnits(cents).StringFixed(2))
}

type productResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	Price       json.Number `json:"price"`
	PriceCents  int64       `json:"priceCents"`
	Color       string      `json:"color"`
	Size        string      `json:"size"`
	Images      []string    `json:"images"`
	InStock     bool        `json:"inStock"`
	TotalStock  int         `json:"totalStock"`
	SoldCount   int         `json:"soldCount"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func toProductResponse(p *catalog.Product) *productResponse {
	if p == nil {
		return nil
	}
	return &productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Tags:        nonNil(p.Tags),
		Price:       price(p.PriceCents),
		PriceCents:  p.PriceCents,
		Color:       p.Color,
		Size:        string(p.Size),
		Images:      nonNil(p.Images),
		InStock:     p.InStock,
		TotalStock:  p.TotalStock,
		SoldCount:   p.SoldCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type productPageResponse struct {
	Products      []*productResponse `json:"products"`
	TotalPages    int                `json:"totalPages"`
	CurrentPage   int                `json:"currentPage"`
	TotalProducts int64              `json:"totalProducts"`
}

func toProductPageResponse(page *appCatalog.ProductPage) productPageResponse {
	out := productPageResponse{
		Products:      make([]*productResponse, 0, len(page.Products)),
		TotalPages:    page.TotalPages,
		CurrentPage:   page.CurrentPage,
		TotalProducts: page.TotalProducts,
	}
	for _, p := range page.Products {
		out.Products = append(out.Products, toProductResponse(p))
	}
	return out
}

type cartItemResponse struct {
	ID       string           `json:"id"`
	Product  *productResponse `json:"product"`
	Quantity int              `json:"quantity"`
	Color    string           `json:"color"`
	Size     string           `json:"size"`
}

type cartResponse struct {
	ID        string             `json:"id,omitempty"`
	UserID    string             `json:"user,omitempty"`
	Items     []cartItemResponse `json:"items"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

func toCartResponse(v *appCart.View) cartResponse {
	out := cartResponse{Items: []cartItemResponse{}}
	if v == nil {
		return out
	}
	out.ID = v.ID
	out.UserID = v.UserID
	if !v.UpdatedAt.IsZero() {
		ts := v.UpdatedAt
		out.UpdatedAt = &ts
	}
	for _, it := range v.Items {
		out.Items = append(out.Items, cartItemResponse{
			ID:       it.ID,
			Product:  toProductResponse(it.Product),
			Quantity: it.Quantity,
			Color:    it.Color,
			Size:     string(it.Size),
		})
	}
	return out
}

type sessionResponse struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ProfileImage string `json:"profileImage,omitempty"`
	Token        string `json:"token"`
}

func toSessionResponse(s *appAuth.Session) sessionResponse {
	return sessionResponse{
		ID:           s.User.ID,
		Username:     s.User.Username,
		Email:        s.User.Email,
		Role:         string(s.User.Role),
		ProfileImage: s.User.ProfileImage,
		Token:        s.Token,
	}
}

type checkoutSessionResponse struct {
	SessionID   string      `json:"sessionId"`
	URL         string      `json:"url"`
	AmountTotal int64       `json:"amountTotal"`
	Amount      json.Number `json:"amount"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
