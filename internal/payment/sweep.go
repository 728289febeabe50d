package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wichananm65/rosilias-store/internal/order"
)

// OrderLister lists orders by status for the sweep.
type OrderLister interface {
	ListByStatus(ctx context.Context, statuses ...order.Status) ([]order.Order, error)
}

// StatusForIntent maps a re-fetched intent status onto an order status.
// Statuses that still wait for the buyer report false and are left alone.
func StatusForIntent(intentStatus string) (order.Status, bool) {
	switch intentStatus {
	case IntentSucceeded:
		return order.StatusPaid, true
	case IntentProcessing:
		return order.StatusProcessing, true
	case IntentCanceled:
		return order.StatusFailed, true
	}
	return "", false
}

type SweepResult struct {
	Checked   int
	Updated   int
	Unchanged int
	Errors    int
}

// Sweeper re-fetches open orders from the processor and applies what it
// reports through the authoritative writer. It is the manual repair path for
// webhook writes that failed; it never deletes or expires orders.
type Sweeper struct {
	orders    OrderLister
	writer    StatusWriter
	processor Processor
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewSweeper(orders OrderLister, writer StatusWriter, p Processor, publisher Publisher, log *slog.Logger) *Sweeper {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{orders: orders, writer: writer, processor: p, publisher: publisher, log: log, now: time.Now}
}

// Run sweeps once. dryRun reports what would change without writing.
func (s *Sweeper) Run(ctx context.Context, dryRun bool) (SweepResult, error) {
	var res SweepResult

	open, err := s.orders.ListByStatus(ctx, order.StatusPending, order.StatusProcessing)
	if err != nil {
		return res, fmt.Errorf("list open orders: %w", err)
	}

	for _, ord := range open {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if ord.PaymentRef == "" {
			continue
		}
		res.Checked++
		log := s.log.With("order_id", ord.ID, "payment_ref", ord.PaymentRef)

		intent, err := s.processor.Retrieve(ctx, ord.PaymentRef)
		if err != nil {
			res.Errors++
			log.Warn("intent re-fetch failed", "error", err)
			continue
		}
		status, ok := StatusForIntent(intent.Status)
		if !ok || status == ord.Status {
			res.Unchanged++
			continue
		}
		if dryRun {
			res.Updated++
			log.Info("would update order", "from", string(ord.Status), "to", string(status))
			continue
		}

		updated, err := s.writer.ApplyStatus(ctx, ord.ID, status, intent.ID, order.SourceProcessor)
		if err != nil {
			res.Errors++
			log.Error("sweep write failed", "error", err)
			continue
		}
		res.Updated++
		log.Info("order updated from processor", "from", string(ord.Status), "to", string(updated.Status))

		if err := s.publisher.Publish(ctx, StatusChanged{
			OrderID:    updated.ID,
			Status:     string(updated.Status),
			PaymentRef: updated.PaymentRef,
			Source:     "reconcile",
			OccurredAt: s.now().UTC(),
		}); err != nil {
			log.Warn("status change not published", "error", err)
		}
	}
	return res, nil
}
