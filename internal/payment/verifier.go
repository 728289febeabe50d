package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Event is a verified processor notification about a payment intent.
type Event struct {
	ID           string
	Type         string
	IntentID     string
	IntentStatus string
	// OrderRef is metadata.order_id exactly as the processor sent it.
	OrderRef string
}

// Verifier authenticates a raw webhook body against its signature header.
type Verifier interface {
	Verify(payload []byte, signature string) (Event, error)
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(signingSecret string) *StripeVerifier {
	return &StripeVerifier{secret: signingSecret}
}

func (v *StripeVerifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Verify checks the Stripe-Signature header over the exact payload bytes.
// Any verification failure wraps ErrBadSignature.
func (v *StripeVerifier) Verify(payload []byte, signature string) (Event, error) {
	if signature == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrBadSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Data.Raw, &pi); err != nil {
		// not a payment intent object; the reconciler acks it
		return out, nil
	}
	out.IntentID = pi.ID
	out.IntentStatus = string(pi.Status)
	out.OrderRef = pi.Metadata["order_id"]
	return out, nil
}
