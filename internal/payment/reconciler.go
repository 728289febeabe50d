package payment

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/wichananm65/rosilias-store/internal/logging"
	"github.com/wichananm65/rosilias-store/internal/metrics"
	"github.com/wichananm65/rosilias-store/internal/order"
)

// Webhook event kinds that carry settlement information.
const (
	EventIntentProcessing = "payment_intent.processing"
	EventIntentSucceeded  = "payment_intent.succeeded"
	EventIntentFailed     = "payment_intent.payment_failed"
)

// StatusWriter is the authoritative order writer.
type StatusWriter interface {
	ApplyStatus(ctx context.Context, id int64, status order.Status, ref string, source order.Source) (order.Order, error)
}

// Outcome describes what the reconciler did with one event.
type Outcome string

const (
	OutcomeApplied     Outcome = "applied"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeBadOrderRef Outcome = "bad_order_ref"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeWriteFailed Outcome = "write_failed"
)

// StatusForEvent maps a webhook event kind onto an order status.
func StatusForEvent(eventType string) (order.Status, bool) {
	switch eventType {
	case EventIntentProcessing:
		return order.StatusProcessing, true
	case EventIntentSucceeded:
		return order.StatusPaid, true
	case EventIntentFailed:
		return order.StatusFailed, true
	}
	return "", false
}

// ParseOrderRef accepts a positive integer order id.
func ParseOrderRef(ref string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Reconciler applies verified processor events to orders. It never fails
// the delivery: every outcome is acknowledged and logged.
type Reconciler struct {
	orders    StatusWriter
	processed ProcessedStore
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewReconciler(orders StatusWriter, processed ProcessedStore, publisher Publisher, log *slog.Logger) *Reconciler {
	if processed == nil {
		processed = NewMemoryProcessedStore()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{orders: orders, processed: processed, publisher: publisher, log: log, now: time.Now}
}

func (r *Reconciler) Handle(ctx context.Context, ev Event) Outcome {
	out := r.handle(ctx, ev)
	metrics.WebhookEvent(ev.Type, string(out))
	return out
}

func (r *Reconciler) handle(ctx context.Context, ev Event) Outcome {
	log := logging.FromCtx(ctx, r.log).With("event_id", ev.ID, "event_type", ev.Type, "payment_ref", ev.IntentID)

	status, ok := StatusForEvent(ev.Type)
	if !ok {
		log.Debug("webhook event ignored")
		return OutcomeIgnored
	}
	orderID, ok := ParseOrderRef(ev.OrderRef)
	if !ok {
		log.Warn("webhook event without usable order_id", "order_ref", ev.OrderRef)
		return OutcomeBadOrderRef
	}
	log = log.With("order_id", orderID, "status", string(status))

	if ev.ID != "" {
		first, err := r.processed.MarkProcessed(ctx, ev.ID)
		if err != nil {
			// dedupe is unavailable; the write itself is idempotent
			log.Warn("processed-event store unavailable", "error", err)
		} else if !first {
			log.Info("duplicate webhook delivery skipped")
			return OutcomeDuplicate
		}
	}

	ord, err := r.orders.ApplyStatus(ctx, orderID, status, ev.IntentID, order.SourceProcessor)
	if err != nil {
		log.Error("order status write failed; needs manual reconciliation", "error", err)
		// The delivery is still acknowledged, so the processor will not retry
		// on its own. Releasing the marker only lets a manual resend of the
		// same event apply; the sweep is what repairs the order.
		if ev.ID != "" {
			if ferr := r.processed.Forget(ctx, ev.ID); ferr != nil {
				log.Warn("could not release processed marker", "error", ferr)
			}
		}
		return OutcomeWriteFailed
	}

	msg := StatusChanged{
		OrderID:    ord.ID,
		Status:     string(ord.Status),
		PaymentRef: ord.PaymentRef,
		EventID:    ev.ID,
		Source:     order.SourceProcessor.String(),
		OccurredAt: r.now().UTC(),
	}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		log.Warn("status change not published", "error", err)
	}
	log.Info("order settled from webhook")
	return OutcomeApplied
}
