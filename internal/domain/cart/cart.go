package cart

import (
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

var (
	ErrNotFound         = errors.New("cart: not found")
	ErrItemNotFound     = errors.New("cart: item not found")
	ErrInvalidQuantity  = errors.New("cart: quantity must be greater than zero")
	ErrQuantityTooLarge = errors.New("cart: quantity exceeds the per-line limit")
	// ErrConflict means the cart changed since it was loaded.
	ErrConflict = errors.New("cart: concurrent modification")
)

// MaxQuantity bounds a single line.
const MaxQuantity = 10_000

// Item is one line of a cart. (ProductID, Color, Size) is unique within a cart.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
	Color     string
	Size      catalog.Size
}

type Cart struct {
	ID        string
	UserID    string
	Items     []Item
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id, userID string) *Cart {
	now := time.Now().UTC()
	return &Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
}

// Add merges into an existing line with the same product, color and size, or
// appends a new line with itemID. It returns the resulting line.
func (c *Cart) Add(itemID, productID string, qty int, color string, size catalog.Size) (Item, error) {
	if qty <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if qty > MaxQuantity {
		return Item{}, ErrQuantityTooLarge
	}
	for i := range c.Items {
		it := &c.Items[i]
		if it.ProductID == productID && it.Color == color && it.Size == size {
			if it.Quantity > MaxQuantity-qty {
				return Item{}, ErrQuantityTooLarge
			}
			it.Quantity += qty
			c.touch()
			return *it, nil
		}
	}
	it := Item{ID: itemID, ProductID: productID, Quantity: qty, Color: color, Size: size}
	c.Items = append(c.Items, it)
	c.touch()
	return it, nil
}

// SetQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) SetQuantity(itemID string, qty int) error {
	if qty <= 0 {
		return c.Remove(itemID)
	}
	if qty > MaxQuantity {
		return ErrQuantityTooLarge
	}
	i := c.index(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items[i].Quantity = qty
	c.touch()
	return nil
}

func (c *Cart) Remove(itemID string) error {
	i := c.index(itemID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
	return nil
}

func (c *Cart) Clear() {
	c.Items = nil
	c.touch()
}

func (c *Cart) Item(itemID string) (Item, bool) {
	if i := c.index(itemID); i >= 0 {
		return c.Items[i], true
	}
	return Item{}, false
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

// ProductIDs lists distinct product ids in line order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}

func (c *Cart) index(itemID string) int {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
