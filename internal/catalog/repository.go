package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrNotFound = errors.New("package not found")
)

// Repository provides read access to the package catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]Package, error)
	GetBySlug(ctx context.Context, slug string) (Package, error)
	GetByID(ctx context.Context, id int64) (Package, error)
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu       sync.RWMutex
	packages []Package
}

func NewInMemoryRepository(seed []Package) *InMemoryRepository {
	r := &InMemoryRepository{packages: make([]Package, 0, len(seed))}
	r.packages = append(r.packages, seed...)
	return r
}

// ListActive returns active packages newest first (by CreatedAt, RFC3339).
func (r *InMemoryRepository) ListActive(_ context.Context) ([]Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Package, 0, len(r.packages))
	for _, p := range r.packages {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *InMemoryRepository) GetBySlug(_ context.Context, slug string) (Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.packages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Package{}, ErrNotFound
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int64) (Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.packages {
		if p.ID == id {
			return p, nil
		}
	}
	return Package{}, ErrNotFound
}
