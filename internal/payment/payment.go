// Package payment talks to the payment processor and owns the webhook that
// writes authoritative settlement status.
package payment

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMisconfigured = errors.New("payment processor misconfigured")
	ErrBadSignature  = errors.New("webhook signature verification failed")
)

// Processor intent statuses the storefront and reconciliation understand.
const (
	IntentSucceeded             = "succeeded"
	IntentProcessing            = "processing"
	IntentRequiresAction        = "requires_action"
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentRequiresConfirmation  = "requires_confirmation"
	IntentCanceled              = "canceled"
)

// Intent is the processor's payment handle as far as this service cares.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
	OrderRef     string
	// RedirectURL is set when the processor needs the buyer to complete a
	// challenge (3-D Secure, bank redirect) before the payment can settle.
	RedirectURL string
}

type IntentRequest struct {
	OrderID     int64
	AmountCents int64
	Currency    string
}

// ConfirmRequest carries the payment details collected by the storefront.
type ConfirmRequest struct {
	PaymentMethod string
	ReturnURL     string
}

type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	Retrieve(ctx context.Context, intentID string) (Intent, error)
	Confirm(ctx context.Context, intentID string, req ConfirmRequest) (Intent, error)
}

// IntentIDFromClientSecret returns the intent id embedded in a client
// secret ("pi_123_secret_abc" -> "pi_123").
func IntentIDFromClientSecret(secret string) string {
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return secret
}

// CheckSecretKey reports ErrMisconfigured unless key looks like a secret key.
func CheckSecretKey(key string) error {
	if !strings.HasPrefix(key, "sk_") {
		return ErrMisconfigured
	}
	return nil
}

func keyPrefix(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) < 3 {
		return key
	}
	return key[:3]
}
