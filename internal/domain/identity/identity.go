// Package identity models who is calling: nobody, a customer, or an admin.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("identity: not authenticated")
	ErrForbidden       = errors.New("identity: insufficient role")
)

// Identity is a closed set: Guest, User and Admin are its only members.
type Identity interface {
	identity()
}

// Guest is an anonymous caller.
type Guest struct{}

// User is an authenticated customer.
type User struct {
	ID    string
	Email string
}

// Admin is an authenticated catalog administrator.
type Admin struct {
	ID    string
	Email string
}

func (Guest) identity() {}
func (User) identity()  {}
func (Admin) identity() {}

// Principal is the authenticated part of an identity.
type Principal struct {
	ID      string
	Email   string
	IsAdmin bool
}

// RequireUser accepts any authenticated identity.
func RequireUser(id Identity) (Principal, error) {
	switch v := id.(type) {
	case User:
		return Principal{ID: v.ID, Email: v.Email}, nil
	case Admin:
		return Principal{ID: v.ID, Email: v.Email, IsAdmin: true}, nil
	default:
		return Principal{}, ErrUnauthenticated
	}
}

// RequireAdmin accepts only Admin.
func RequireAdmin(id Identity) (Principal, error) {
	switch v := id.(type) {
	case Admin:
		return Principal{ID: v.ID, Email: v.Email, IsAdmin: true}, nil
	case User:
		return Principal{}, ErrForbidden
	default:
		return Principal{}, ErrUnauthenticated
	}
}

type ctxKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	if id == nil {
		id = Guest{}
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity on ctx, Guest when none was set.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Guest{}
	}
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok && id != nil {
		return id
	}
	return Guest{}
}
