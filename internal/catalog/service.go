package catalog

import (
	"context"
	"strings"
)

// Service exposes catalog reads to handlers and to the storefront client.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]Package, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) BySlug(ctx context.Context, slug string) (Package, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Package{}, ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

func (s *Service) ByID(ctx context.Context, id int64) (Package, error) {
	if id <= 0 {
		return Package{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}
