// Package storefront wires the buyer-side components: session, cart engine,
// identity binding, idle monitor and checkout.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/wichananm65/rosilias-store/internal/apiclient"
	"github.com/wichananm65/rosilias-store/internal/broadcast"
	"github.com/wichananm65/rosilias-store/internal/cart"
	"github.com/wichananm65/rosilias-store/internal/catalog"
	"github.com/wichananm65/rosilias-store/internal/checkout"
	"github.com/wichananm65/rosilias-store/internal/identity"
	"github.com/wichananm65/rosilias-store/internal/idle"
	"github.com/wichananm65/rosilias-store/internal/payment"
)

// SessionKey is where the signed-in identity is kept between runs.
const SessionKey = "auth_session_v1"

type Config struct {
	APIBaseURL  string
	ReturnURL   string
	Currency    string
	QuietPeriod time.Duration
}

type Deps struct {
	Store     cart.Store
	Channel   broadcast.Channel
	Processor payment.Processor
	HTTP      *http.Client
	Clock     idle.Clock
	Redirect  func(target string)
	Log       *slog.Logger
}

type App struct {
	Session  *identity.Session
	Cart     *cart.Engine
	Checkout *checkout.Orchestrator
	Idle     *idle.Monitor

	api   *apiclient.Client
	store cart.Store
	log   *slog.Logger

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	closers  []func()
	redirect string
}

func New(cfg Config, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("storefront: cart store required")
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	a := &App{store: deps.Store, log: log.With("component", "storefront"), ctx: context.Background()}
	a.api = apiclient.New(cfg.APIBaseURL, func() string { return a.Session.Token() })
	if deps.HTTP != nil {
		a.api.WithHTTPClient(deps.HTTP)
	}
	a.Session = identity.NewSession(identity.NewAPIAuthenticator(a.api), log)

	a.Cart = cart.NewEngine(deps.Store, log)
	a.restoreSession()
	a.closers = append(a.closers, identity.Bind(a.Session, a.Cart, log))

	api := checkout.NewAPI(a.api)
	var confirmer checkout.Confirmer
	if deps.Processor != nil {
		confirmer = checkout.NewProcessorConfirmer(deps.Processor, cfg.ReturnURL)
	}
	a.Checkout = checkout.New(checkout.Options{
		Orders:    api,
		Intents:   api,
		Confirmer: confirmer,
		Cart:      a.Cart,
		Currency:  cfg.Currency,
		Log:       log,
	})

	a.Idle = idle.New(idle.Options{
		QuietPeriod: cfg.QuietPeriod,
		Channel:     deps.Channel,
		SignOut:     a.Session.SignOut,
		Redirect:    a.redirectTo(deps.Redirect),
		Flags:       deps.Store,
		Clock:       deps.Clock,
		Log:         log,
	})

	a.closers = append(a.closers, a.Session.Subscribe(a.onIdentity))
	return a, nil
}

// Start makes ctx the context for background work. The idle monitor runs
// only while someone is signed in.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.started = true
	a.mu.Unlock()
	if a.Session.Current() != nil {
		a.Idle.Start(ctx)
	}
}

// Close stops the idle monitor and detaches all subscriptions.
func (a *App) Close() {
	a.Idle.Stop()
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}

func (a *App) runContext() (context.Context, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx, a.started
}

// onIdentity persists the session and starts or stops the idle monitor.
func (a *App) onIdentity(id *identity.Identity) {
	a.saveSession(id)
	if id == nil {
		a.Idle.Stop()
		return
	}
	if ctx, ok := a.runContext(); ok {
		a.Idle.Start(ctx)
	}
}

func (a *App) redirectTo(next func(string)) func(string) {
	return func(target string) {
		a.mu.Lock()
		a.redirect = target
		a.mu.Unlock()
		if next != nil {
			next(target)
		}
	}
}

// LastRedirect is the last navigation target requested by the idle monitor.
func (a *App) LastRedirect() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.redirect
}

func (a *App) restoreSession() {
	raw, ok, err := a.store.Get(SessionKey)
	if err != nil {
		a.log.Warn("session restore failed", "error", err)
		return
	}
	if !ok || raw == "" {
		return
	}
	var id identity.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		a.log.Warn("stored session corrupt", "error", err)
		return
	}
	a.Session.Set(&id)
}

func (a *App) saveSession(id *identity.Identity) {
	if id == nil {
		if err := a.store.Remove(SessionKey); err != nil {
			a.log.Debug("session remove failed", "error", err)
		}
		return
	}
	b, err := json.Marshal(id)
	if err != nil {
		return
	}
	if err := a.store.Set(SessionKey, string(b)); err != nil {
		a.log.Debug("session save failed", "error", err)
	}
}

func (a *App) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	return a.Session.SignIn(ctx, email, password)
}

func (a *App) SignOut(ctx context.Context) error {
	return a.Session.SignOut(ctx)
}

// Packages lists the active catalog.
func (a *App) Packages(ctx context.Context) ([]catalog.Package, error) {
	var out []catalog.Package
	if err := a.api.GetJSON(ctx, "/api/v1/packages", &out); err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return out, nil
}

// AddToCart looks the package up by slug and adds qty of it. The price is
// captured now and never re-fetched.
func (a *App) AddToCart(ctx context.Context, slug string, qty int) error {
	var pkg catalog.Package
	if err := a.api.GetJSON(ctx, "/api/v1/packages/"+url.PathEscape(slug), &pkg); err != nil {
		return fmt.Errorf("package %q: %w", slug, err)
	}
	return a.Cart.Add(pkg, qty)
}
