package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// StripeProcessor is the Processor backed by Stripe payment intents.
type StripeProcessor struct {
	client paymentintent.Client
}

// NewStripeProcessor builds a client bound to key. The key is not checked
// here; handlers report misconfiguration per request.
func NewStripeProcessor(key string, timeout time.Duration) *StripeProcessor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	})
	return &StripeProcessor{client: paymentintent.Client{B: backend, Key: key}}
}

func (s *StripeProcessor) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))

	pi, err := s.client.New(params)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (s *StripeProcessor) Retrieve(ctx context.Context, intentID string) (Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.client.Get(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("retrieve payment intent %s: %w", intentID, err)
	}
	return fromStripe(pi), nil
}

func (s *StripeProcessor) Confirm(ctx context.Context, intentID string, req ConfirmRequest) (Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if req.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethod)
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}

	pi, err := s.client.Confirm(intentID, params)
	if err != nil {
		return Intent{}, fmt.Errorf("confirm payment intent %s: %w", intentID, err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) Intent {
	in := Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		OrderRef:     pi.Metadata["order_id"],
	}
	if pi.NextAction != nil && pi.NextAction.RedirectToURL != nil {
		in.RedirectURL = pi.NextAction.RedirectToURL.URL
	}
	return in
}
