package cart

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/wichananm65/rosilias-store/internal/catalog"
)

// Snapshot is what subscribers receive after every change of the active cart.
type Snapshot struct {
	Key   string
	Lines []Line
	Total int64
	Count int
}

// Engine owns the active cart, persists it under the active storage key and
// notifies subscribers. It is safe for concurrent use.
type Engine struct {
	store Store
	log   *slog.Logger

	mu   sync.Mutex
	key  string
	cart Cart

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewEngine activates the guest cart.
func NewEngine(store Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		store: store,
		log:   log.With("component", "cart"),
		key:   GuestKey,
		subs:  make(map[int]func(Snapshot)),
	}
	e.cart = e.load(GuestKey)
	return e
}

// load never fails: a missing, unreadable or corrupt value yields an empty cart.
func (e *Engine) load(key string) Cart {
	raw, ok, err := e.store.Get(key)
	if err != nil {
		e.log.Warn("cart load failed", "key", key, "error", err)
		return Cart{}
	}
	if !ok || raw == "" {
		return Cart{}
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		e.log.Warn("cart data corrupt, starting empty", "key", key, "error", err)
		return Cart{}
	}
	return c
}

func (e *Engine) persist(key string, c Cart) {
	b, err := json.Marshal(c)
	if err != nil {
		e.log.Warn("cart encode failed", "key", key, "error", err)
		return
	}
	if err := e.store.Set(key, string(b)); err != nil {
		e.log.Warn("cart persist failed", "key", key, "error", err)
	}
}

func (e *Engine) snapshotLocked() Snapshot {
	c := e.cart.clone()
	return Snapshot{Key: e.key, Lines: c.Lines, Total: c.Total(), Count: c.Count()}
}

// commit persists the cart held in e and returns the snapshot to publish.
// Must be called with e.mu held.
func (e *Engine) commitLocked() Snapshot {
	e.persist(e.key, e.cart)
	return e.snapshotLocked()
}

func (e *Engine) publish(s Snapshot) {
	e.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// Subscribe registers fn and immediately calls it with the current snapshot.
func (e *Engine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.subMu.Unlock()

	fn(e.Snapshot())

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
		})
	}
}

func (e *Engine) mutate(fn func(c *Cart)) {
	e.mu.Lock()
	fn(&e.cart)
	s := e.commitLocked()
	e.mu.Unlock()
	e.publish(s)
}

// Add inserts pkg or increases its quantity by delta.
func (e *Engine) Add(pkg catalog.Package, delta int) error {
	if delta <= 0 {
		return ErrInvalidQuantity
	}
	e.mutate(func(c *Cart) {
		if i := c.index(pkg.ID); i >= 0 {
			c.Lines[i].Qty += delta
			return
		}
		c.Lines = append(c.Lines, Line{Pkg: pkg, Qty: delta})
	})
	return nil
}

// AddByID changes the quantity of an existing line by a signed delta. The line
// is removed when the result is not positive. Unknown ids are ignored.
func (e *Engine) AddByID(id int64, delta int) {
	e.mutate(func(c *Cart) {
		i := c.index(id)
		if i < 0 {
			return
		}
		setQty(c, i, c.Lines[i].Qty+delta)
	})
}

// SetQuantity sets the quantity of an existing line; qty <= 0 removes it.
func (e *Engine) SetQuantity(id int64, qty int) {
	e.mutate(func(c *Cart) {
		if i := c.index(id); i >= 0 {
			setQty(c, i, qty)
		}
	})
}

func (e *Engine) Remove(id int64) {
	e.mutate(func(c *Cart) {
		if i := c.index(id); i >= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		}
	})
}

func (e *Engine) Clear() {
	e.mutate(func(c *Cart) {
		c.Lines = nil
	})
}

func setQty(c *Cart, i, qty int) {
	if qty <= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return
	}
	c.Lines[i].Qty = qty
}

// SwitchToUser merges the guest cart into the cart of uid, stores the result
// under the user key, empties the guest key and activates the user cart.
// Calling it again with an empty guest cart leaves the user cart unchanged.
func (e *Engine) SwitchToUser(uid string) error {
	if uid == "" {
		return ErrNoUser
	}
	userKey := UserKey(uid)

	e.mu.Lock()
	guest := e.load(GuestKey)
	user := e.load(userKey)
	merged := Merge(user, guest)

	e.persist(userKey, merged)
	e.persist(GuestKey, Cart{})

	e.key = userKey
	e.cart = merged
	s := e.snapshotLocked()
	e.mu.Unlock()

	e.log.Debug("cart switched to user", "key", userKey, "guest_lines", len(guest.Lines), "lines", len(merged.Lines))
	e.publish(s)
	return nil
}

// SwitchToGuest activates the guest cart as stored. The user cart is left in
// place for the next sign-in.
func (e *Engine) SwitchToGuest() {
	e.mu.Lock()
	e.key = GuestKey
	e.cart = e.load(GuestKey)
	s := e.snapshotLocked()
	e.mu.Unlock()

	e.publish(s)
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) TotalAmount() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Total()
}

func (e *Engine) ItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Count()
}

func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.clone().Lines
}

func (e *Engine) ActiveKey() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}
