package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/rosilias-store/internal/apiclient"
	"github.com/wichananm65/rosilias-store/internal/user"
	"golang.org/x/crypto/bcrypt"
)

type stubAuth struct {
	id  *Identity
	err error
}

func (s stubAuth) SignIn(context.Context, string, string) (*Identity, error) {
	return s.id, s.err
}

func TestSession_PublishesOnlyWhenUserChanges(t *testing.T) {
	s := NewSession(nil, nil)
	var seen []string
	unsub := s.Subscribe(func(id *Identity) { seen = append(seen, uid(id)) })
	defer unsub()

	s.Set(&Identity{UserID: "u1", Token: "a"})
	s.Set(&Identity{UserID: "u1", Token: "b"})
	s.Set(&Identity{UserID: "u2"})
	s.Set(nil)
	s.Set(nil)

	assert.Equal(t, []string{"", "u1", "u2", ""}, seen)
}

func TestSession_EmptyUserIDIsGuest(t *testing.T) {
	s := NewSession(nil, nil)
	s.Set(&Identity{Email: "x@example.com"})
	assert.Nil(t, s.Current())
	assert.Equal(t, "", s.Token())
}

func TestSession_UnsubscribeStopsDelivery(t *testing.T) {
	s := NewSession(nil, nil)
	calls := 0
	unsub := s.Subscribe(func(*Identity) { calls++ })
	unsub()
	unsub()

	s.Set(&Identity{UserID: "u1"})
	assert.Equal(t, 1, calls)
}

func TestSession_SignInFailureKeepsGuest(t *testing.T) {
	s := NewSession(stubAuth{err: ErrSignInFailed}, nil)

	_, err := s.SignIn(context.Background(), "a@example.com", "bad")

	assert.ErrorIs(t, err, ErrSignInFailed)
	assert.Nil(t, s.Current())
}

func TestSession_SignInAndOut(t *testing.T) {
	s := NewSession(stubAuth{id: &Identity{UserID: "u1", Email: "a@example.com", Token: "tok"}}, nil)

	id, err := s.SignIn(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "tok", s.Token())

	require.NoError(t, s.SignOut(context.Background()))
	assert.Equal(t, "", s.UserID())
}

func TestAPIAuthenticator_AgainstSignInRoute(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := user.NewInMemoryRepository([]user.User{{ID: "u-ana", Email: "ana@example.com", Password: string(hash)}})
	app := fiber.New()
	user.NewHandler(user.NewService(repo, "secret", time.Hour)).RegisterPublicRoutes(app)
	srv := httptest.NewServer(adaptor.FiberApp(app))
	defer srv.Close()

	auth := NewAPIAuthenticator(apiclient.New(srv.URL, nil))

	id, err := auth.SignIn(context.Background(), "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "u-ana", id.UserID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.NotEmpty(t, id.Token)

	_, err = auth.SignIn(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, ErrSignInFailed)
	var apiErr *apiclient.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fiber.StatusUnauthorized, apiErr.Status)
}
