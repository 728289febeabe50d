package order

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// withUserHeader injects a jwt.Token into locals when X-User-ID is provided,
// standing in for the real JWT middleware.
func withUserHeader(c *fiber.Ctx) error {
	if v := c.Get("X-User-ID"); v != "" {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": v}})
	}
	return c.Next()
}

func makeApp(svc *Service) *fiber.App {
	app := fiber.New()
	h := NewHandler(svc, withUserHeader)
	h.RegisterPublicRoutes(app)
	app.Use(withUserHeader)
	h.RegisterProtectedRoutes(app)
	return app
}

func postOrder(t *testing.T, app *fiber.App, body, userID string) (int, Order) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	var ord Order
	_ = json.NewDecoder(res.Body).Decode(&ord)
	return res.StatusCode, ord
}

func TestCreateOrder_GuestAndOwned(t *testing.T) {
	app := makeApp(NewService(NewInMemoryRepository(), nil))

	status, guest := postOrder(t, app, `{"total_cents":25000,"currency":"BRL"}`, "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", status)
	}
	if guest.UserID != nil || guest.Status != StatusPending {
		t.Fatalf("unexpected guest order %+v", guest)
	}

	status, owned := postOrder(t, app, `{"total_cents":5000}`, "u-1")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", status)
	}
	if owned.UserID == nil || *owned.UserID != "u-1" {
		t.Fatalf("expected order owned by u-1, got %+v", owned)
	}
}

func TestCreateOrder_IgnoresClientStatus(t *testing.T) {
	app := makeApp(NewService(NewInMemoryRepository(), nil))

	status, ord := postOrder(t, app, `{"total_cents":25000,"status":"paid"}`, "")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201 got %d", status)
	}
	if ord.Status != StatusPending {
		t.Fatalf("client supplied status must be ignored, got %s", ord.Status)
	}
}

func TestCreateOrder_InvalidTotal(t *testing.T) {
	app := makeApp(NewService(NewInMemoryRepository(), nil))

	if status, _ := postOrder(t, app, `{"total_cents":0}`, ""); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 got %d", status)
	}
}

func TestGetOrder_Visibility(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	app := makeApp(svc)
	uid := "u-1"
	owned, _ := svc.Create(context.Background(), &uid, 100, "BRL")
	guest, _ := svc.Create(context.Background(), nil, 100, "BRL")

	get := func(id int64, userID string) int {
		req := httptest.NewRequest("GET", "/api/v1/orders/"+strconv.FormatInt(id, 10), nil)
		if userID != "" {
			req.Header.Set("X-User-ID", userID)
		}
		res, err := app.Test(req)
		if err != nil {
			t.Fatalf("get request failed: %v", err)
		}
		return res.StatusCode
	}

	if s := get(guest.ID, ""); s != fiber.StatusOK {
		t.Fatalf("guest order: expected 200 got %d", s)
	}
	if s := get(owned.ID, "u-1"); s != fiber.StatusOK {
		t.Fatalf("owner: expected 200 got %d", s)
	}
	if s := get(owned.ID, "u-2"); s != fiber.StatusNotFound {
		t.Fatalf("other user: expected 404 got %d", s)
	}
	if s := get(owned.ID, ""); s != fiber.StatusNotFound {
		t.Fatalf("anonymous: expected 404 got %d", s)
	}
	if s := get(9999, ""); s != fiber.StatusNotFound {
		t.Fatalf("missing: expected 404 got %d", s)
	}
}

func TestListOrders_RequiresUser(t *testing.T) {
	svc := NewService(NewInMemoryRepository(), nil)
	app := makeApp(svc)
	uid := "u-1"
	_, _ = svc.Create(context.Background(), &uid, 100, "BRL")
	_, _ = svc.Create(context.Background(), nil, 100, "BRL")

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/orders", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", "u-1")
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var orders []Order
	if err := json.NewDecoder(res.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order for u-1, got %d", len(orders))
	}
}
