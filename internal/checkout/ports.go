package checkout

import (
	"context"

	"github.com/wichananm65/rosilias-store/internal/payment"
)

// OrderCreator inserts a pending order for the current identity.
type OrderCreator interface {
	CreateOrder(ctx context.Context, amountCents int64, currency string) (orderID int64, err error)
}

// IntentRequester obtains a payment handle tagged with the order id.
type IntentRequester interface {
	RequestIntent(ctx context.Context, orderID, amountCents int64, currency string) (clientSecret string, err error)
}

// Confirmer is the processor as seen by the buyer's side.
type Confirmer interface {
	Confirm(ctx context.Context, clientSecret string, details Details) (payment.Intent, error)
	Retrieve(ctx context.Context, clientSecret string) (payment.Intent, error)
}

// Cart is the part of the cart engine checkout needs.
type Cart interface {
	TotalAmount() int64
	Clear()
}

// Details are the payment details collected from the buyer.
type Details struct {
	PaymentMethod string
}
