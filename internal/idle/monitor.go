// Package idle signs a session out after a quiet period without user
// activity, in step with the other tabs sharing the session.
package idle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wichananm65/rosilias-store/internal/broadcast"
)

const (
	DefaultQuietPeriod = 3 * time.Minute

	// ReasonFlag is set to "1" in the flag store when the session ended
	// through inactivity, so the sign-in page can explain why.
	ReasonFlag = "idle-logged-out"

	// LoginRedirect is where an idle session is sent.
	LoginRedirect = "/auth/login?m=idle"
)

// Kind is a user activity signal.
type Kind int

const (
	PointerMove Kind = iota
	KeyPress
	Click
	Touch
	Scroll
	VisibilityVisible
)

func (k Kind) String() string {
	switch k {
	case PointerMove:
		return "pointer_move"
	case KeyPress:
		return "key_press"
	case Click:
		return "click"
	case Touch:
		return "touch"
	case Scroll:
		return "scroll"
	case VisibilityVisible:
		return "visibility_visible"
	default:
		return "unknown"
	}
}

// FlagSetter stores the idle reason flag; cart.Store implementations fit.
type FlagSetter interface {
	Set(key, value string) error
}

type Options struct {
	QuietPeriod time.Duration
	Channel     broadcast.Channel
	SignOut     func(ctx context.Context) error
	Redirect    func(target string)
	Flags       FlagSetter
	Clock       Clock
	Log         *slog.Logger
}

// Monitor runs one rolling deadline per Start. Expiry happens at most once
// per Start; after it the monitor is inactive until started again.
type Monitor struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	running bool
	timer   Timer
	stop    chan struct{}
	done    chan struct{}
	expired chan struct{}
}

func New(opts Options) *Monitor {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	return &Monitor{
		opts:    opts,
		log:     opts.Log.With("component", "idle"),
		expired: make(chan struct{}),
	}
}

// Start arms the deadline and tells sibling tabs about the activity. Calling
// Start on a running monitor does nothing.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.expired = make(chan struct{})
	m.timer = m.opts.Clock.NewTimer(m.opts.QuietPeriod)

	var ticks <-chan struct{}
	cancelTicks := func() {}
	if m.opts.Channel != nil {
		ticks, cancelTicks = m.opts.Channel.Subscribe()
	}
	go m.run(ctx, m.timer, ticks, cancelTicks, m.stop, m.done, m.expired)
	m.mu.Unlock()

	m.ping(ctx)
}

// Stop tears down the deadline and the cross-tab subscription and waits for
// the loop to exit. Stopping an inactive monitor does nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
}

// Running reports whether a deadline is armed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Expired is closed when the current run ended through inactivity.
func (m *Monitor) Expired() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expired
}

// Activity pushes the deadline to now+QuietPeriod and pings sibling tabs.
// It is ignored while the monitor is inactive.
func (m *Monitor) Activity(ctx context.Context, kind Kind) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.timer.Reset(m.opts.QuietPeriod)
	m.mu.Unlock()

	m.log.Debug("activity", "kind", kind.String())
	m.ping(ctx)
}

// Visibility counts as activity only when the page became visible.
func (m *Monitor) Visibility(ctx context.Context, visible bool) {
	if visible {
		m.Activity(ctx, VisibilityVisible)
	}
}

func (m *Monitor) ping(ctx context.Context) {
	if m.opts.Channel == nil {
		return
	}
	if err := m.opts.Channel.Tick(ctx); err != nil {
		m.log.Debug("activity ping failed", "error", err)
	}
}

func (m *Monitor) run(ctx context.Context, timer Timer, ticks <-chan struct{}, cancelTicks func(), stop, done, expired chan struct{}) {
	defer close(done)
	defer cancelTicks()

	for {
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return
		case <-ticks:
			// sibling activity: reset only, never re-broadcast
			m.mu.Lock()
			if m.running {
				timer.Reset(m.opts.QuietPeriod)
			}
			m.mu.Unlock()
		case <-timer.C():
			m.mu.Lock()
			if !m.running {
				m.mu.Unlock()
				return
			}
			m.running = false
			m.mu.Unlock()

			m.expire(ctx)
			close(expired)
			return
		}
	}
}

func (m *Monitor) expire(ctx context.Context) {
	m.log.Info("session idle, signing out", "quiet_period", m.opts.QuietPeriod.String())

	if m.opts.Flags != nil {
		if err := m.opts.Flags.Set(ReasonFlag, "1"); err != nil {
			m.log.Warn("idle flag not stored", "error", err)
		}
	}
	if m.opts.SignOut != nil {
		if err := m.opts.SignOut(ctx); err != nil {
			m.log.Warn("idle sign-out failed", "error", err)
		}
	}
	if m.opts.Redirect != nil {
		m.opts.Redirect(LoginRedirect)
	}
}
