package cart

import "context"

type Repository interface {
	FindByUser(ctx context.Context, userID string) (*Cart, error)
	FindByID(ctx context.Context, id string) (*Cart, error)
	// Save inserts a cart whose Version is zero, otherwise it replaces the
	// stored cart only if the stored Version still matches, returning
	// ErrConflict when it does not. On success c.Version is incremented.
	Save(ctx context.Context, c *Cart) error
	// Clear empties the cart's items unconditionally. Missing carts are not an error.
	Clear(ctx context.Context, id string) error
}
