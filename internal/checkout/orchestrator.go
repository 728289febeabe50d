package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/wichananm65/rosilias-store/internal/payment"
)

type Options struct {
	Orders    OrderCreator
	Intents   IntentRequester
	Confirmer Confirmer
	Cart      Cart
	Currency  string
	Log       *slog.Logger
}

// Orchestrator starts payment attempts for the active cart. Nothing is
// retried automatically.
type Orchestrator struct {
	orders    OrderCreator
	intents   IntentRequester
	confirmer Confirmer
	cart      Cart
	currency  string
	log       *slog.Logger
}

func New(opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	confirmer := opts.Confirmer
	if confirmer == nil {
		confirmer = noProcessor{}
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = "BRL"
	}
	return &Orchestrator{
		orders:    opts.Orders,
		intents:   opts.Intents,
		confirmer: confirmer,
		cart:      opts.Cart,
		currency:  currency,
		log:       log.With("component", "checkout"),
	}
}

// Begin creates the pending order sized to the cart total and requests a
// payment handle for it. The returned attempt is AwaitingInput; on error no
// attempt exists.
func (o *Orchestrator) Begin(ctx context.Context) (*Attempt, error) {
	total := o.cart.TotalAmount()
	if total <= 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInitFailed)
	}

	orderID, err := o.orders.CreateOrder(ctx, total, o.currency)
	if err != nil {
		o.log.Warn("order creation failed", "error", err)
		return nil, fmt.Errorf("%w: create order: %w", ErrInitFailed, err)
	}
	secret, err := o.intents.RequestIntent(ctx, orderID, total, o.currency)
	if err != nil {
		o.log.Warn("payment handle request failed", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("%w: payment handle: %w", ErrInitFailed, err)
	}

	o.log.Info("checkout ready", "order_id", orderID, "amount_cents", total, "currency", o.currency)
	return &Attempt{
		o:            o,
		OrderID:      orderID,
		ClientSecret: secret,
		AmountCents:  total,
		Currency:     o.currency,
		state:        StateAwaitingInput,
	}, nil
}

// Resume classifies an attempt the buyer returns to after a redirect. The
// status is always re-fetched from the processor.
func (o *Orchestrator) Resume(ctx context.Context, clientSecret string) Outcome {
	if clientSecret == "" {
		return Outcome{State: StateUnknown, Message: "Payment not found. Please try again."}
	}
	in, err := o.confirmer.Retrieve(ctx, clientSecret)
	if err != nil {
		o.log.Warn("payment re-fetch failed", "error", err)
		return Outcome{State: StateUnknown, Message: "Could not verify the payment: " + err.Error()}
	}
	return o.settle(in)
}

// settle classifies in and clears the cart only for a processor-reported
// success.
func (o *Orchestrator) settle(in payment.Intent) Outcome {
	out := Classify(in.Status)
	out.PaymentRef = in.ID
	if out.State == StateRequiresAction {
		out.RedirectURL = in.RedirectURL
	}
	if out.State == StateSucceeded {
		o.cart.Clear()
	}
	o.log.Info("payment classified", "payment_ref", in.ID, "processor_status", in.Status, "state", string(out.State))
	return out
}

// Attempt is one payment confirmation for one order.
type Attempt struct {
	o            *Orchestrator
	OrderID      int64
	ClientSecret string
	AmountCents  int64
	Currency     string

	mu    sync.Mutex
	state State
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Submit confirms the payment with details. Processor errors come back as a
// Failed outcome; the error return is only for attempts that are closed or
// already confirming.
func (a *Attempt) Submit(ctx context.Context, d Details) (Outcome, error) {
	a.mu.Lock()
	if !a.state.open() {
		st := a.state
		a.mu.Unlock()
		return Outcome{State: st}, ErrAttemptClosed
	}
	a.state = StateConfirming
	a.mu.Unlock()

	var out Outcome
	in, err := a.o.confirmer.Confirm(ctx, a.ClientSecret, d)
	if err != nil {
		a.o.log.Warn("payment confirmation failed", "order_id", a.OrderID, "error", err)
		out = Outcome{State: StateFailed, Message: "Payment not completed: " + err.Error()}
	} else {
		out = a.o.settle(in)
	}

	a.mu.Lock()
	a.state = out.State
	a.mu.Unlock()
	return out, nil
}
