package storefront

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/rosilias-store/internal/broadcast"
	"github.com/wichananm65/rosilias-store/internal/cart"
	"github.com/wichananm65/rosilias-store/internal/catalog"
	"github.com/wichananm65/rosilias-store/internal/checkout"
	"github.com/wichananm65/rosilias-store/internal/idle"
	"github.com/wichananm65/rosilias-store/internal/order"
	"github.com/wichananm65/rosilias-store/internal/payment"
	"github.com/wichananm65/rosilias-store/internal/user"
	"golang.org/x/crypto/bcrypt"
)

const jwtSecret = "storefront-test-secret"

type instantProcessor struct {
	mu      sync.Mutex
	intents map[string]payment.Intent
}

func (p *instantProcessor) CreateIntent(_ context.Context, req payment.IntentRequest) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("pi_%d", len(p.intents)+1)
	in := payment.Intent{ID: id, ClientSecret: id + "_secret_x", Status: payment.IntentRequiresPaymentMethod, AmountCents: req.AmountCents}
	p.intents[id] = in
	return in, nil
}

func (p *instantProcessor) Retrieve(_ context.Context, id string) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intents[id], nil
}

func (p *instantProcessor) Confirm(_ context.Context, id string, _ payment.ConfirmRequest) (payment.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in := p.intents[id]
	in.Status = payment.IntentSucceeded
	p.intents[id] = in
	return in, nil
}

type server struct {
	url    string
	orders *order.Service
	proc   *instantProcessor
}

func newServer(t *testing.T) server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	pkgs := catalog.NewInMemoryRepository([]catalog.Package{
		{ID: 1, Slug: "lisbon-weekend", Title: "Lisbon weekend", PriceCents: 10000, Active: true, CreatedAt: "2026-01-02T00:00:00Z"},
		{ID: 2, Slug: "porto-day", Title: "Porto day trip", PriceCents: 5000, Active: true, CreatedAt: "2026-01-01T00:00:00Z"},
	})
	users := user.NewInMemoryRepository([]user.User{{ID: "u-ana", Email: "ana@example.com", Password: string(hash)}})
	orders := order.NewService(order.NewInMemoryRepository(), nil)
	proc := &instantProcessor{intents: map[string]payment.Intent{}}

	app := fiber.New()
	catalog.NewHandler(catalog.NewService(pkgs)).RegisterPublicRoutes(app)
	user.NewHandler(user.NewService(users, jwtSecret, time.Hour)).RegisterPublicRoutes(app)
	order.NewHandler(orders, user.OptionalAuth(jwtSecret)).RegisterPublicRoutes(app)
	payment.NewIntentHandler("sk_test_x", proc, orders, "BRL").RegisterPublicRoutes(app)

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return server{url: srv.URL, orders: orders, proc: proc}
}

func newApp(t *testing.T, srv server, store cart.Store, quiet time.Duration, deps Deps) *App {
	t.Helper()
	deps.Store = store
	deps.Processor = srv.proc
	a, err := New(Config{APIBaseURL: srv.url, Currency: "BRL", QuietPeriod: quiet}, deps)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestApp_SignInMergesGuestCartAndPersistsSession(t *testing.T) {
	srv := newServer(t)
	store := cart.NewMemoryStore()
	a := newApp(t, srv, store, time.Minute, Deps{})
	ctx := context.Background()

	pkgs, err := a.Packages(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, "lisbon-weekend", pkgs[0].Slug)

	require.NoError(t, a.AddToCart(ctx, "lisbon-weekend", 2))
	require.NoError(t, a.AddToCart(ctx, "porto-day", 1))
	assert.Error(t, a.AddToCart(ctx, "atlantis", 1))

	_, err = a.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, cart.UserKey("u-ana"), a.Cart.ActiveKey())
	assert.Equal(t, int64(25000), a.Cart.TotalAmount())

	// a second run over the same storage picks the session back up
	b := newApp(t, srv, store, time.Minute, Deps{})
	assert.Equal(t, "u-ana", b.Session.UserID())
	assert.Equal(t, cart.UserKey("u-ana"), b.Cart.ActiveKey())
	assert.Equal(t, int64(25000), b.Cart.TotalAmount())

	require.NoError(t, b.SignOut(ctx))
	assert.Equal(t, cart.GuestKey, b.Cart.ActiveKey())
	assert.Zero(t, b.Cart.ItemCount())
	_, ok, _ := store.Get(SessionKey)
	assert.False(t, ok)
}

func TestApp_SignedInCheckoutCreatesOwnedPendingOrder(t *testing.T) {
	srv := newServer(t)
	a := newApp(t, srv, cart.NewMemoryStore(), time.Minute, Deps{})
	ctx := context.Background()

	_, err := a.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.NoError(t, a.AddToCart(ctx, "lisbon-weekend", 2))
	require.NoError(t, a.AddToCart(ctx, "porto-day", 1))

	attempt, err := a.Checkout.Begin(ctx)
	require.NoError(t, err)
	out, err := attempt.Submit(ctx, checkout.Details{PaymentMethod: "pm_card_visa"})
	require.NoError(t, err)
	assert.Equal(t, checkout.StateSucceeded, out.State)
	assert.Zero(t, a.Cart.ItemCount())

	ord, err := srv.orders.Get(ctx, attempt.OrderID)
	require.NoError(t, err)
	require.NotNil(t, ord.UserID)
	assert.Equal(t, "u-ana", *ord.UserID)
	assert.Equal(t, int64(25000), ord.TotalCents)
	assert.Equal(t, order.StatusPending, ord.Status)
}

func TestApp_IdleExpirySignsOutToGuest(t *testing.T) {
	srv := newServer(t)
	store := cart.NewMemoryStore()
	hub := broadcast.NewHub()
	var redirected []string
	var mu sync.Mutex
	a := newApp(t, srv, store, 80*time.Millisecond, Deps{
		Channel: hub.Join(),
		Redirect: func(target string) {
			mu.Lock()
			redirected = append(redirected, target)
			mu.Unlock()
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.Start(ctx)
	assert.False(t, a.Idle.Running())

	_, err := a.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.True(t, a.Idle.Running())
	expired := a.Idle.Expired()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("idle monitor did not expire")
	}

	assert.Nil(t, a.Session.Current())
	assert.Equal(t, cart.GuestKey, a.Cart.ActiveKey())
	assert.Equal(t, idle.LoginRedirect, a.LastRedirect())
	mu.Lock()
	assert.Equal(t, []string{idle.LoginRedirect}, redirected)
	mu.Unlock()
	flag, ok, _ := store.Get(idle.ReasonFlag)
	assert.True(t, ok)
	assert.Equal(t, "1", flag)
	assert.False(t, a.Idle.Running())
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}
