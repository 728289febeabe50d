package checkout

import (
	"context"
	"errors"

	"github.com/wichananm65/rosilias-store/internal/apiclient"
	"github.com/wichananm65/rosilias-store/internal/payment"
)

// API implements OrderCreator and IntentRequester against the store's HTTP API.
type API struct {
	client *apiclient.Client
}

func NewAPI(client *apiclient.Client) *API {
	return &API{client: client}
}

func (a *API) CreateOrder(ctx context.Context, amountCents int64, currency string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	in := map[string]any{"total_cents": amountCents, "currency": currency}
	if err := a.client.PostJSON(ctx, "/api/v1/orders", in, &out); err != nil {
		return 0, err
	}
	if out.ID <= 0 {
		return 0, errors.New("order created without id")
	}
	return out.ID, nil
}

func (a *API) RequestIntent(ctx context.Context, orderID, amountCents int64, currency string) (string, error) {
	var out struct {
		ClientSecret string `json:"clientSecret"`
	}
	in := map[string]any{"orderId": orderID, "amount_cents": amountCents, "currency": currency}
	if err := a.client.PostJSON(ctx, "/api/create-payment-intent", in, &out); err != nil {
		return "", err
	}
	if out.ClientSecret == "" {
		return "", errors.New("payment handle missing client secret")
	}
	return out.ClientSecret, nil
}

// ProcessorConfirmer confirms and re-fetches intents through a payment.Processor.
type ProcessorConfirmer struct {
	processor payment.Processor
	returnURL string
}

func NewProcessorConfirmer(p payment.Processor, returnURL string) *ProcessorConfirmer {
	return &ProcessorConfirmer{processor: p, returnURL: returnURL}
}

func (c *ProcessorConfirmer) Confirm(ctx context.Context, clientSecret string, d Details) (payment.Intent, error) {
	return c.processor.Confirm(ctx, payment.IntentIDFromClientSecret(clientSecret), payment.ConfirmRequest{
		PaymentMethod: d.PaymentMethod,
		ReturnURL:     c.returnURL,
	})
}

func (c *ProcessorConfirmer) Retrieve(ctx context.Context, clientSecret string) (payment.Intent, error) {
	return c.processor.Retrieve(ctx, payment.IntentIDFromClientSecret(clientSecret))
}

// noProcessor is used when no processor is configured on the buyer side.
type noProcessor struct{}

func (noProcessor) Confirm(context.Context, string, Details) (payment.Intent, error) {
	return payment.Intent{}, payment.ErrMisconfigured
}

func (noProcessor) Retrieve(context.Context, string) (payment.Intent, error) {
	return payment.Intent{}, payment.ErrMisconfigured
}
