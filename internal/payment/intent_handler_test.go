package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/rosilias-store/internal/order"
)

func postIntent(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/create-payment-intent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return res.StatusCode, out
}

func TestCreateIntent_Misconfigured(t *testing.T) {
	for _, key := range []string{"", "pk_live_oops"} {
		app := fiber.New()
		NewIntentHandler(key, newFakeProcessor(), nil, "").RegisterPublicRoutes(app)

		status, out := postIntent(t, app, `{"orderId":1,"amount_cents":100}`)

		assert.Equal(t, fiber.StatusInternalServerError, status)
		assert.NotEmpty(t, out["error"])
		hint, _ := out["hint"].(map[string]any)
		require.NotNil(t, hint, "hint missing for key %q", key)
		assert.Equal(t, key != "", hint["hasVar"])
	}
}

func TestCreateIntent_MissingFields(t *testing.T) {
	app := fiber.New()
	NewIntentHandler("sk_test_x", newFakeProcessor(), nil, "").RegisterPublicRoutes(app)

	for _, body := range []string{`{"amount_cents":100}`, `{"orderId":5}`, `{"orderId":"abc","amount_cents":100}`} {
		status, out := postIntent(t, app, body)
		assert.Equal(t, fiber.StatusBadRequest, status, body)
		assert.NotEmpty(t, out["error"], body)
	}
}

func TestCreateIntent_ReturnsClientSecretAndRecordsRef(t *testing.T) {
	ctx := context.Background()
	orders := newOrders(t)
	ord, err := orders.Create(ctx, nil, 25000, "BRL")
	require.NoError(t, err)

	proc := newFakeProcessor()
	app := fiber.New()
	NewIntentHandler("sk_test_x", proc, orders, "BRL").RegisterPublicRoutes(app)

	status, out := postIntent(t, app, `{"orderId":"`+jsonID(ord.ID)+`","amount_cents":25000}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pi_test_secret_abc", out["clientSecret"])
	require.Len(t, proc.created, 1)
	assert.Equal(t, IntentRequest{OrderID: ord.ID, AmountCents: 25000, Currency: "BRL"}, proc.created[0])

	got, err := orders.Get(ctx, ord.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_test", got.PaymentRef)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestCreateIntent_UnknownOrderStillReturnsSecret(t *testing.T) {
	app := fiber.New()
	NewIntentHandler("sk_test_x", newFakeProcessor(), newOrders(t), "").RegisterPublicRoutes(app)

	status, out := postIntent(t, app, `{"orderId":999,"amount_cents":100,"currency":"usd"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pi_test_secret_abc", out["clientSecret"])
}

func TestCreateIntent_ProcessorFailure(t *testing.T) {
	proc := newFakeProcessor()
	proc.failWith = errors.New("card_declined")
	app := fiber.New()
	NewIntentHandler("sk_test_x", proc, nil, "").RegisterPublicRoutes(app)

	status, out := postIntent(t, app, `{"orderId":1,"amount_cents":100}`)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "card_declined", out["error"])
	_, hasHint := out["hint"]
	assert.False(t, hasHint)
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
