package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/media"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/security"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
)

func newService(t *testing.T) *Service {
	t.Helper()
	tokens, err := security.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(
		memory.NewUserRepository(),
		security.BcryptHasher{Cost: bcrypt.MinCost},
		tokens,
		memory.NewImageStore("http://img.local"),
		id.NewGenerator(),
		Options{AdminEmail: "boss@example.com"},
		observability.Nop(),
	)
}

func registration(email, phone string) RegisterInput {
	return RegisterInput{
		Username:        "ada",
		Email:           email,
		Password:        "pw-123",
		ConfirmPassword: "pw-123",
		Phone:           phone,
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, err := svc.Register(ctx, registration("ada@example.com", "555"), &media.Upload{
		Filename: "me.png", Body: strings.NewReader("img"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "http://img.local/profiles/1-me.png", sess.User.ProfileImage)
	assert.NotEqual(t, "pw-123", sess.User.PasswordHash)

	who, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.User{ID: sess.User.ID, Email: "ada@example.com"}, who)
}

func TestRegisterGrantsAdminByEmail(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	sess, err := svc.Register(ctx, registration("Boss@Example.com", "1"), nil)
	require.NoError(t, err)

	who, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.IsType(t, identity.Admin{}, who)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Register(ctx, registration("ada@example.com", "555"), nil)
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("ADA@example.com", "777"), nil)
	assert.ErrorIs(t, err, application.ErrValidation)
	assert.EqualError(t, err, "user already exists")

	_, err = svc.Register(ctx, registration("bob@example.com", "555"), nil)
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	in := registration("ada@example.com", "555")
	in.ConfirmPassword = "different"
	_, err := svc.Register(ctx, in, nil)
	assert.ErrorIs(t, err, application.ErrValidation)
	assert.EqualError(t, err, "passwords do not match")

	in = registration("not-an-email", "555")
	_, err = svc.Register(ctx, in, nil)
	assert.ErrorIs(t, err, application.ErrValidation)

	in = registration("ada@example.com", "")
	_, err = svc.Register(ctx, in, nil)
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.Register(ctx, registration("ada@example.com", "555"), nil)
	require.NoError(t, err)

	sess, err := svc.Login(ctx, "ada@example.com", "pw-123")
	require.NoError(t, err)
	assert.Equal(t, "ada", sess.User.Username)

	_, err = svc.Login(ctx, "ada@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "ghost@example.com", "pw-123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	who, err := svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	assert.Equal(t, identity.Guest{}, who)

	other, err := security.NewJWTIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	orphan, err := other.Issue("no-such-user")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}
