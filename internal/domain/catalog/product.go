package catalog

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound            = errors.New("catalog: product not found")
	ErrSlugTaken           = errors.New("catalog: slug already taken")
	ErrNameRequired        = errors.New("catalog: name is required")
	ErrDescriptionRequired = errors.New("catalog: description is required")
	ErrColorRequired       = errors.New("catalog: color is required")
	ErrInvalidSize         = errors.New("catalog: size must be one of sm, md, lg, xl")
	ErrInvalidPrice        = errors.New("catalog: price must be greater than zero")
	ErrInvalidStock        = errors.New("catalog: stock must be zero or greater")
	ErrInvalidQuantity     = errors.New("catalog: quantity must be greater than zero")
)

type Size string

const (
	SizeSmall  Size = "sm"
	SizeMedium Size = "md"
	SizeLarge  Size = "lg"
	SizeXLarge Size = "xl"
)

// ParseSize accepts the four catalog sizes, case-insensitively.
func ParseSize(s string) (Size, error) {
	switch size := Size(strings.ToLower(strings.TrimSpace(s))); size {
	case SizeSmall, SizeMedium, SizeLarge, SizeXLarge:
		return size, nil
	default:
		return "", ErrInvalidSize
	}
}

// Product is a catalog entry. Prices are integer minor units.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Tags        []string
	PriceCents  int64
	Color       string
	Size        Size
	Images      []string
	InStock     bool
	TotalStock  int
	SoldCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Draft carries the caller-supplied fields of a new product.
type Draft struct {
	Name        string
	Slug        string
	Description string
	Tags        []string
	PriceCents  int64
	Color       string
	Size        Size
	Images      []string
	TotalStock  int
}

func New(id string, d Draft) (*Product, error) {
	p := &Product{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Slug:        d.Slug,
		Description: strings.TrimSpace(d.Description),
		Tags:        NormalizeTags(d.Tags),
		PriceCents:  d.PriceCents,
		Color:       strings.TrimSpace(d.Color),
		Size:        d.Size,
		Images:      append([]string(nil), d.Images...),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.SetStock(d.TotalStock); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

// Validate checks every field except stock, which SetStock guards.
func (p *Product) Validate() error {
	switch {
	case p.Name == "":
		return ErrNameRequired
	case p.Description == "":
		return ErrDescriptionRequired
	case p.Color == "":
		return ErrColorRequired
	case p.PriceCents <= 0:
		return ErrInvalidPrice
	}
	if _, err := ParseSize(string(p.Size)); err != nil {
		return err
	}
	return nil
}

// SetStock replaces the stock level and re-derives InStock.
func (p *Product) SetStock(total int) error {
	if total < 0 {
		return ErrInvalidStock
	}
	p.TotalStock = total
	p.InStock = total > 0
	p.touch()
	return nil
}

// Sell records qty units sold. Stock floors at zero; SoldCount always grows by qty.
func (p *Product) Sell(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	remaining := p.TotalStock - qty
	if remaining < 0 {
		remaining = 0
	}
	p.SoldCount += qty
	return p.SetStock(remaining)
}

// Available reports whether qty units can be sold right now.
func (p *Product) Available(qty int) bool {
	return p.InStock && p.TotalStock >= qty
}

func (p *Product) AddImages(urls ...string) {
	p.Images = append(p.Images, urls...)
	p.touch()
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Images = append([]string(nil), p.Images...)
	return &c
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// NormalizeTags trims, drops blanks and de-duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTags parses the comma separated tag list used by the product forms.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}
