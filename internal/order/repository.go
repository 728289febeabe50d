package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrNotAuthoritative = errors.New("only the payment processor may set settlement status")
	ErrInvalidOrder     = errors.New("invalid order")
)

// Repository persists orders. Update applies a partial patch and reports
// ErrNotFound when no row matched.
type Repository interface {
	Insert(ctx context.Context, ord Order) (Order, error)
	Update(ctx context.Context, id int64, patch Patch) (Order, error)
	GetByID(ctx context.Context, id int64) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Order, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[int64]Order
	nextID int64
	now    func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[int64]Order), nextID: 1, now: time.Now}
}

func (r *InMemoryRepository) Insert(_ context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord.ID = r.nextID
	r.nextID++
	now := r.now().UTC()
	ord.CreatedAt, ord.UpdatedAt = now, now
	r.orders[ord.ID] = ord
	return ord, nil
}

func (r *InMemoryRepository) Update(_ context.Context, id int64, patch Patch) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if patch.Status != nil {
		ord.Status = *patch.Status
	}
	if patch.PaymentRef != nil {
		ord.PaymentRef = *patch.PaymentRef
	}
	ord.UpdatedAt = r.now().UTC()
	r.orders[id] = ord
	return ord, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ord, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

// ListByUser returns the user's orders newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.UserID != nil && *ord.UserID == userID {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListByStatus returns matching orders oldest first.
func (r *InMemoryRepository) ListByStatus(_ context.Context, statuses ...Status) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]Order, 0)
	for _, ord := range r.orders {
		if want[ord.Status] {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
