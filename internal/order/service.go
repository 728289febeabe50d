package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wichananm65/rosilias-store/internal/metrics"
)

const DefaultCurrency = "BRL"

// Service is the single entry point for order writes. Settlement statuses
// are only written through ApplyStatus with SourceProcessor.
type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(r Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: r, log: log.With("component", "order")}
}

// Create stores a pending order. userID nil means a guest order.
func (s *Service) Create(ctx context.Context, userID *string, totalCents int64, currency string) (Order, error) {
	if totalCents <= 0 {
		return Order{}, fmt.Errorf("%w: total must be positive", ErrInvalidOrder)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if userID != nil && *userID == "" {
		userID = nil
	}

	ord, err := s.repo.Insert(ctx, Order{
		UserID:     userID,
		TotalCents: totalCents,
		Currency:   currency,
		Status:     StatusPending,
	})
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	s.log.Info("order created", "order_id", ord.ID, "total_cents", ord.TotalCents, "guest", ord.UserID == nil)
	return ord, nil
}

// AttachPaymentRef records the processor payment id without touching status.
func (s *Service) AttachPaymentRef(ctx context.Context, id int64, ref string) (Order, error) {
	return s.repo.Update(ctx, id, Patch{PaymentRef: &ref})
}

// ApplyStatus writes an authoritative status. Writes from SourceClient are
// rejected with ErrNotAuthoritative. Re-applying the same status is a
// harmless overwrite.
func (s *Service) ApplyStatus(ctx context.Context, id int64, status Status, ref string, source Source) (Order, error) {
	if source != SourceProcessor {
		s.log.Warn("rejected non-authoritative status write", "order_id", id, "status", status, "source", source.String())
		return Order{}, ErrNotAuthoritative
	}
	if !status.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}

	patch := Patch{Status: &status}
	if ref != "" {
		patch.PaymentRef = &ref
	}
	ord, err := s.repo.Update(ctx, id, patch)
	metrics.StatusWrite(string(status), err)
	if err != nil {
		return Order{}, err
	}
	s.log.Info("order status applied", "order_id", id, "status", status, "payment_ref", ref)
	return ord, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListByStatus(ctx context.Context, statuses ...Status) ([]Order, error) {
	return s.repo.ListByStatus(ctx, statuses...)
}
