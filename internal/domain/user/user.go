package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("user: not found")
	ErrAlreadyExists    = errors.New("user: already exists")
	ErrUsernameRequired = errors.New("user: username is required")
	ErrPhoneRequired    = errors.New("user: phone is required")
	ErrInvalidEmail     = errors.New("user: invalid email")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New validates the profile fields. The password hash is set by the caller.
func New(id, username, email, phone string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	phone = strings.TrimSpace(phone)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if role != RoleAdmin {
		role = RoleUser
	}
	now := time.Now().UTC()
	return &User{
		ID:        id,
		Username:  username,
		Email:     normalized,
		Phone:     phone,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail lower-cases a bare address and rejects display-name forms.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

type Repository interface {
	// Insert fails with ErrAlreadyExists when the email or phone is taken.
	Insert(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
