package application

import (
	"errors"
	"fmt"
)

// Error classes shared by every service. Handlers classify with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrNotAvailable      = errors.New("product not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUpstream          = errors.New("upstream failure")
	ErrRepository        = errors.New("repository failure")
)

// ValidationError carries a client-facing message and, optionally, the
// domain rule that was violated.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

func Invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

func Invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientStockError names the product that cannot cover the requested quantity.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName == "" {
		return "insufficient stock"
	}
	return "insufficient stock for " + e.ProductName
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// NotFound wraps a domain error so it classifies as ErrNotFound.
func NotFound(err error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, err)
}

func Repository(err error) error {
	return fmt.Errorf("%w: %w", ErrRepository, err)
}

func Upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
