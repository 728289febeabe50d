// Package checkout drives one payment attempt from the storefront: it creates
// the pending order, obtains a payment handle, confirms it with the processor
// and classifies what the processor reported. It never writes order status;
// settlement is recorded by the webhook.
package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrInitFailed wraps every failure before the attempt reaches AwaitingInput.
	ErrInitFailed = errors.New("could not prepare the payment")
	// ErrAttemptClosed is returned by Submit once the attempt has settled.
	ErrAttemptClosed = errors.New("payment attempt is no longer open")
)

type State string

const (
	StateInitializing   State = "initializing"
	StateAwaitingInput  State = "awaiting_input"
	StateConfirming     State = "confirming"
	StateSucceeded      State = "succeeded"
	StateProcessing     State = "processing"
	StateRequiresAction State = "requires_action"
	StateFailed         State = "failed"
	StateCanceled       State = "canceled"
	StateUnknown        State = "unknown"
)

// open reports whether the buyer may still submit payment details.
func (s State) open() bool {
	switch s {
	case StateAwaitingInput, StateRequiresAction, StateFailed, StateUnknown:
		return true
	}
	return false
}

// Outcome is the optimistic, never persisted result of a confirmation.
type Outcome struct {
	State           State
	// OK is true for outcomes shown as positive (succeeded, processing).
	OK              bool
	ProcessorStatus string
	PaymentRef      string
	RedirectURL     string
	Message         string
}

// Classify maps a processor status onto an outcome state and buyer message.
func Classify(status string) Outcome {
	out := Outcome{ProcessorStatus: status}
	switch status {
	case "succeeded":
		out.State, out.OK = StateSucceeded, true
		out.Message = "Payment completed successfully."
	case "processing":
		out.State, out.OK = StateProcessing, true
		out.Message = "Payment received and processing. You will be notified when it completes."
	case "requires_payment_method":
		out.State = StateFailed
		out.Message = "Payment was not authorized. Check your card details or try another method."
	case "requires_action":
		out.State = StateRequiresAction
		out.Message = "Additional verification is required. Submit the payment again to continue."
	case "canceled":
		out.State = StateCanceled
		out.Message = "Payment canceled. Please try again."
	default:
		out.State = StateUnknown
		out.Message = fmt.Sprintf("Payment status: %s. Contact support if this persists.", status)
	}
	return out
}
