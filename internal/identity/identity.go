// Package identity tracks who the storefront session belongs to and tells
// interested components when that changes.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/wichananm65/rosilias-store/internal/apiclient"
)

var ErrSignInFailed = errors.New("sign-in failed")

// Identity is an authenticated user. A nil *Identity means guest.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Authenticator exchanges credentials for an identity.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
}

// Session holds the current identity and notifies subscribers whenever the
// user id changes, including changes to and from guest.
type Session struct {
	auth Authenticator
	log  *slog.Logger

	mu      sync.RWMutex
	current *Identity

	subMu  sync.Mutex
	subs   map[int]func(*Identity)
	nextID int
}

func NewSession(auth Authenticator, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		auth: auth,
		log:  log.With("component", "identity"),
		subs: make(map[int]func(*Identity)),
	}
}

// Current returns a copy of the active identity, or nil for a guest.
func (s *Session) Current() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// UserID is "" for a guest.
func (s *Session) UserID() string {
	if id := s.Current(); id != nil {
		return id.UserID
	}
	return ""
}

// Token is the bearer token of the active identity, "" for a guest.
func (s *Session) Token() string {
	if id := s.Current(); id != nil {
		return id.Token
	}
	return ""
}

// Set replaces the current identity, e.g. when restoring a saved session.
func (s *Session) Set(id *Identity) {
	if id != nil && id.UserID == "" {
		id = nil
	}
	s.mu.Lock()
	prev := s.current
	if id != nil {
		cp := *id
		s.current = &cp
	} else {
		s.current = nil
	}
	s.mu.Unlock()

	if uid(prev) != uid(id) {
		s.log.Debug("identity changed", "from", uid(prev), "to", uid(id))
		s.publish(s.Current())
	}
}

func (s *Session) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if s.auth == nil {
		return nil, ErrSignInFailed
	}
	id, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.Set(id)
	return s.Current(), nil
}

// SignOut drops the identity; subscribers see the switch to guest.
func (s *Session) SignOut(_ context.Context) error {
	s.Set(nil)
	return nil
}

// Subscribe registers fn for identity changes and calls it once with the
// current identity.
func (s *Session) Subscribe(fn func(*Identity)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	fn(s.Current())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Session) publish(id *Identity) {
	s.subMu.Lock()
	fns := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}

func uid(id *Identity) string {
	if id == nil {
		return ""
	}
	return id.UserID
}

// APIAuthenticator signs in against POST /api/v1/sign-in.
type APIAuthenticator struct {
	client *apiclient.Client
}

func NewAPIAuthenticator(client *apiclient.Client) *APIAuthenticator {
	return &APIAuthenticator{client: client}
}

func (a *APIAuthenticator) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	var out struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := a.client.PostJSON(ctx, "/api/v1/sign-in", in, &out); err != nil {
		return nil, errors.Join(ErrSignInFailed, err)
	}
	if out.Token == "" || out.User.ID == "" {
		return nil, ErrSignInFailed
	}
	return &Identity{UserID: out.User.ID, Email: out.User.Email, Token: out.Token}, nil
}
