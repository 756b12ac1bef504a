package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	authService = "auth-service"

	useCaseRegister     = "auth.register"
	useCaseLogin        = "auth.login"
	useCaseAuthenticate = "auth.authenticate"

	avatarFolder = "profiles"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies session tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Parse(token string) (string, error)
}

type Options struct {
	// AdminEmail is granted the admin role at registration.
	AdminEmail string
}

type Service struct {
	users  domain.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	images media.ImageStore
	ids    application.IDGenerator
	opts   Options
	probe  *application.Probe
}

func NewService(
	users domain.Repository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	images media.ImageStore,
	ids application.IDGenerator,
	opts Options,
	tel observability.Observability,
) *Service {
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		images: images,
		ids:    ids,
		opts:   opts,
		probe:  application.NewProbe(tel, authService),
	}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	Phone           string
}

// Session is an authenticated user plus a freshly signed token.
type Session struct {
	User  *domain.User
	Token string
}

func (s *Service) Register(ctx context.Context, in RegisterInput, avatar *media.Upload) (_ *Session, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseRegister, "Register")
	defer func() { run.End(err) }()

	if in.Password == "" {
		run.Fail("VALIDATION_FAILED")
		return nil, application.Invalid("password is required")
	}
	if in.Password != in.ConfirmPassword {
		run.Fail("PASSWORD_MISMATCH")
		return nil, application.Invalid("passwords do not match")
	}

	role := domain.RoleUser
	if s.opts.AdminEmail != "" && strings.EqualFold(strings.TrimSpace(in.Email), s.opts.AdminEmail) {
		role = domain.RoleAdmin
	}
	u, err := domain.New(s.ids.NewID(), in.Username, in.Email, in.Phone, role)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, &application.ValidationError{Msg: strings.TrimPrefix(err.Error(), "user: "), Err: err}
	}

	if u.PasswordHash, err = s.hasher.Hash(in.Password); err != nil {
		run.Fail("HASH_FAILED")
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	if avatar != nil {
		start := time.Now()
		u.ProfileImage, err = s.images.Upload(ctx, avatarFolder, *avatar)
		s.probe.External("image_store", "upload", start, err)
		if err != nil {
			run.Fail("IMAGE_UPLOAD_FAILED")
			return nil, application.Upstream(err)
		}
	}

	if err = s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			run.Fail("USER_EXISTS")
			return nil, &application.ValidationError{Msg: "user already exists", Err: err}
		}
		run.Fail("REPO_INSERT_FAILED")
		return nil, application.Repository(err)
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		run.Fail("TOKEN_ISSUE_FAILED")
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	run.Span().SetAttributes(attribute.String("user.id", u.ID), attribute.String("user.role", string(u.Role)))
	run.With(observability.F("user_id", u.ID), observability.F("role", string(u.Role)))
	return &Session{User: u, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseLogin, "Login")
	defer func() { run.End(err) }()

	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Fail("INVALID_CREDENTIALS")
		return nil, ErrInvalidCredentials
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return nil, application.Repository(err)
	}

	if err = s.hasher.Compare(u.PasswordHash, password); err != nil {
		run.Fail("INVALID_CREDENTIALS")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		run.Fail("TOKEN_ISSUE_FAILED")
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	run.With(observability.F("user_id", u.ID))
	return &Session{User: u, Token: token}, nil
}

// Authenticate resolves a token to User or Admin. Any failure is ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (_ identity.Identity, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseAuthenticate, "Authenticate")
	defer func() { run.End(err) }()

	userID, err := s.tokens.Parse(token)
	if err != nil {
		run.Fail("INVALID_TOKEN")
		return identity.Guest{}, fmt.Errorf("%w: %w", identity.ErrUnauthenticated, err)
	}

	u, err := s.users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		run.Fail("USER_NOT_FOUND")
		return identity.Guest{}, fmt.Errorf("%w: %w", identity.ErrUnauthenticated, err)
	case err != nil:
		run.Fail("REPO_LOAD_FAILED")
		return identity.Guest{}, application.Repository(err)
	}

	if u.IsAdmin() {
		return identity.Admin{ID: u.ID, Email: u.Email}, nil
	}
	return identity.User{ID: u.ID, Email: u.Email}, nil
}
