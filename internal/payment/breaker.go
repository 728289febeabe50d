package payment

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v79"
)

// breakerProcessor fails fast while the processor keeps erroring. Calls are
// never retried.
type breakerProcessor struct {
	next Processor
	cb   *gobreaker.CircuitBreaker[Intent]
}

// WithBreaker wraps p in a circuit breaker that opens after five consecutive
// processor failures and probes again after 30s. Errors caused by the request
// itself do not count; see processorFault.
func WithBreaker(p Processor, name string, log *slog.Logger) Processor {
	if log == nil {
		log = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[Intent](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		IsSuccessful: func(err error) bool {
			return !processorFault(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("processor breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &breakerProcessor{next: p, cb: cb}
}

func (b *breakerProcessor) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	return b.cb.Execute(func() (Intent, error) { return b.next.CreateIntent(ctx, req) })
}

func (b *breakerProcessor) Retrieve(ctx context.Context, intentID string) (Intent, error) {
	return b.cb.Execute(func() (Intent, error) { return b.next.Retrieve(ctx, intentID) })
}

func (b *breakerProcessor) Confirm(ctx context.Context, intentID string, req ConfirmRequest) (Intent, error) {
	return b.cb.Execute(func() (Intent, error) { return b.next.Confirm(ctx, intentID, req) })
}

// processorFault reports whether err says the processor is unhealthy:
// transport failures, timeouts, 429 and 5xx. Rejections of the request
// (4xx such as invalid amounts, declines, unknown intents) and caller
// cancellation are not faults.
func processorFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 {
		return se.HTTPStatusCode == http.StatusTooManyRequests
	}
	return true
}
