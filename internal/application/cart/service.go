package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService = "cart-service"

	useCaseGet    = "cart.get"
	useCaseAdd    = "cart.add_item"
	useCaseUpdate = "cart.update_item"
	useCaseRemove = "cart.remove_item"
	useCaseClear  = "cart.clear"

	// maxAttempts bounds the read-modify-write loop when a save loses the version race.
	maxAttempts = 3
)

// Service is the cart manager. Every mutation loads the caller's cart, applies
// the change and writes the whole cart back under a version check.
type Service struct {
	carts    domain.Repository
	products catalog.Repository
	ids      application.IDGenerator
	probe    *application.Probe
}

func NewService(
	carts domain.Repository,
	products catalog.Repository,
	ids application.IDGenerator,
	tel observability.Observability,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		ids:      ids,
		probe:    application.NewProbe(tel, cartService),
	}
}

// View is a cart with every line expanded to the current product.
type View struct {
	ID        string
	UserID    string
	Items     []ItemView
	UpdatedAt time.Time
}

// ItemView.Product is nil when the product has since been deleted.
type ItemView struct {
	ID       string
	Product  *catalog.Product
	Quantity int
	Color    string
	Size     catalog.Size
}

type AddItemInput struct {
	ProductID string
	Color     string
	Size      string
	// Quantity defaults to 1 when zero.
	Quantity int
}

func (s *Service) GetCart(ctx context.Context, who identity.Identity) (_ *View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseGet, "GetCart")
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(who)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	c, err := s.carts.FindByUser(ctx, principal.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Status("CART_ABSENT")
		return &View{UserID: principal.ID}, nil
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return nil, application.Repository(err)
	}

	view, err := s.expand(ctx, c)
	if err != nil {
		run.Fail("PRODUCT_LOAD_FAILED")
		return nil, err
	}
	return view, nil
}

func (s *Service) AddItem(ctx context.Context, who identity.Identity, in AddItemInput) (_ *View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseAdd, "AddItem",
		attribute.String("cart.product_id", in.ProductID),
	)
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(who)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	size, color, qty, err := validateAdd(in)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	product, err := s.products.Get(ctx, in.ProductID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		run.Fail("PRODUCT_NOT_AVAILABLE")
		return nil, application.ErrNotAvailable
	case err != nil:
		run.Fail("PRODUCT_LOAD_FAILED")
		return nil, application.Repository(err)
	case !product.InStock:
		run.Fail("PRODUCT_NOT_AVAILABLE")
		return nil, application.ErrNotAvailable
	}

	c, err := s.mutate(ctx, principal.ID, true, func(c *domain.Cart) error {
		_, err := c.Add(s.ids.NewID(), product.ID, qty, color, size)
		return err
	})
	if err != nil {
		run.Fail(statusFor(err))
		return nil, translate(err)
	}
	run.With(observability.F("cart_id", c.ID), observability.F("items", len(c.Items)))

	return s.expand(ctx, c)
}

func (s *Service) UpdateItem(ctx context.Context, who identity.Identity, itemID string, quantity int) (_ *View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseUpdate, "UpdateItem",
		attribute.String("cart.item_id", itemID),
	)
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(who)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	c, err := s.mutate(ctx, principal.ID, false, func(c *domain.Cart) error {
		return c.SetQuantity(itemID, quantity)
	})
	if err != nil {
		run.Fail(statusFor(err))
		return nil, translate(err)
	}
	if quantity <= 0 {
		run.Status("ITEM_REMOVED")
	}

	return s.expand(ctx, c)
}

func (s *Service) RemoveItem(ctx context.Context, who identity.Identity, itemID string) (_ *View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseRemove, "RemoveItem",
		attribute.String("cart.item_id", itemID),
	)
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(who)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	c, err := s.mutate(ctx, principal.ID, false, func(c *domain.Cart) error {
		return c.Remove(itemID)
	})
	if err != nil {
		run.Fail(statusFor(err))
		return nil, translate(err)
	}

	return s.expand(ctx, c)
}

// ClearCart empties the caller's cart. A missing cart is not an error.
func (s *Service) ClearCart(ctx context.Context, who identity.Identity) (_ *View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseClear, "ClearCart")
	defer func() { run.End(err) }()

	principal, err := identity.RequireUser(who)
	if err != nil {
		run.Fail("UNAUTHENTICATED")
		return nil, err
	}

	c, err := s.mutate(ctx, principal.ID, false, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Status("CART_ABSENT")
		return &View{UserID: principal.ID}, nil
	case err != nil:
		run.Fail(statusFor(err))
		return nil, translate(err)
	}

	return s.expand(ctx, c)
}

// mutate runs a version-checked read-modify-write of the user's cart, retrying
// on ErrConflict. With create set, a missing cart is started fresh.
func (s *Service) mutate(ctx context.Context, userID string, create bool, apply func(*domain.Cart) error) (*domain.Cart, error) {
	logger := s.probe.Logger()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c, err := s.carts.FindByUser(ctx, userID)
		switch {
		case errors.Is(err, domain.ErrNotFound) && create:
			c = domain.New(s.ids.NewID(), userID)
		case err != nil:
			return nil, err
		}

		if err := apply(c); err != nil {
			return nil, err
		}

		err = s.carts.Save(ctx, c)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= maxAttempts {
			return nil, err
		}
		logger.Debug("cart_save_conflict_retry",
			observability.F("user_id", userID),
			observability.F("attempt", attempt),
		)
	}
}

func (s *Service) expand(ctx context.Context, c *domain.Cart) (*View, error) {
	products, err := s.products.GetMany(ctx, c.ProductIDs())
	if err != nil {
		return nil, application.Repository(err)
	}
	view := &View{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     make([]ItemView, 0, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		view.Items = append(view.Items, ItemView{
			ID:       it.ID,
			Product:  products[it.ProductID],
			Quantity: it.Quantity,
			Color:    it.Color,
			Size:     it.Size,
		})
	}
	return view, nil
}

func validateAdd(in AddItemInput) (catalog.Size, string, int, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return "", "", 0, application.Invalid("productId is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		return "", "", 0, application.Invalid("color is required")
	}
	size, err := catalog.ParseSize(in.Size)
	if err != nil {
		return "", "", 0, application.Invalid("size must be one of sm, md, lg, xl")
	}
	qty := in.Quantity
	switch {
	case qty == 0:
		qty = 1
	case qty < 0:
		return "", "", 0, application.Invalid("quantity must be at least 1")
	case qty > domain.MaxQuantity:
		return "", "", 0, application.Invalid(quantityLimitMsg)
	}
	return size, color, qty, nil
}

var quantityLimitMsg = fmt.Sprintf("quantity must be at most %d", domain.MaxQuantity)

func translate(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrItemNotFound):
		return application.NotFound(err)
	case errors.Is(err, domain.ErrInvalidQuantity):
		return application.Invalid("quantity must be at least 1")
	case errors.Is(err, domain.ErrQuantityTooLarge):
		return application.Invalid(quantityLimitMsg)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return application.Repository(fmt.Errorf("cart: save: %w", err))
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "CART_NOT_FOUND"
	case errors.Is(err, domain.ErrItemNotFound):
		return "ITEM_NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		return "CONFLICT_RETRIES_EXHAUSTED"
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrQuantityTooLarge):
		return "VALIDATION_FAILED"
	default:
		return "REPO_SAVE_FAILED"
	}
}
