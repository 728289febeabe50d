package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func seededService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	repo := NewInMemoryRepository([]User{{ID: "0b6f3c1e-5d0a-4c36-8d6c-2d1b7b1c9e01", Email: "ana@example.com", Password: string(hash), DisplayName: "Ana"}})
	return NewService(repo, testSecret, time.Hour)
}

func signIn(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/sign-in", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("sign-in request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	return res.StatusCode, out
}

func TestSignIn_IssuesTokenWithUserID(t *testing.T) {
	app := fiber.New()
	NewHandler(seededService(t)).RegisterPublicRoutes(app)

	status, out := signIn(t, app, `{"email":"ana@example.com","password":"s3cret"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d (%v)", status, out)
	}
	signed, _ := out["token"].(string)
	tok, err := jwt.Parse(signed, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("token did not verify: %v", err)
	}
	claims := tok.Claims.(jwt.MapClaims)
	if claims["user_id"] != "0b6f3c1e-5d0a-4c36-8d6c-2d1b7b1c9e01" {
		t.Fatalf("unexpected user_id claim %v", claims["user_id"])
	}
	u, _ := out["user"].(map[string]any)
	if _, has := u["password"]; has {
		t.Fatalf("password hash leaked in response: %v", u)
	}
}

func TestSignIn_Rejections(t *testing.T) {
	app := fiber.New()
	NewHandler(seededService(t)).RegisterPublicRoutes(app)

	if status, _ := signIn(t, app, `{"email":"ana@example.com","password":"nope"}`); status != fiber.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401 got %d", status)
	}
	if status, _ := signIn(t, app, `{"email":"who@example.com","password":"s3cret"}`); status != fiber.StatusUnauthorized {
		t.Fatalf("unknown email: expected 401 got %d", status)
	}
	if status, _ := signIn(t, app, `{"email":""}`); status != fiber.StatusBadRequest {
		t.Fatalf("missing fields: expected 400 got %d", status)
	}
}

func TestProfile_RequiresToken(t *testing.T) {
	svc := seededService(t)
	h := NewHandler(svc)
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	app.Use(RequireAuth(testSecret))
	h.RegisterProtectedRoutes(app)

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.StatusCode)
	}

	user, _ := svc.Authenticate(context.Background(), "ana@example.com", "s3cret")
	signed, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), "ana@example.com") {
		t.Fatalf("unexpected body %s", b)
	}
}

func TestOptionalAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/who", OptionalAuth(testSecret), func(c *fiber.Ctx) error {
		id, err := GetUserIDFromCtx(c)
		if err != nil {
			return c.SendString("guest")
		}
		return c.SendString(id)
	})

	res, err := app.Test(httptest.NewRequest("GET", "/who", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	if string(b) != "guest" {
		t.Fatalf("expected guest, got %q", b)
	}

	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(time.Minute).Unix()}).SignedString([]byte(testSecret))
	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	b, _ = io.ReadAll(res.Body)
	if string(b) != "u-1" {
		t.Fatalf("expected u-1, got %q", b)
	}

	bad := httptest.NewRequest("GET", "/who", nil)
	bad.Header.Set("Authorization", "Bearer not-a-token")
	res, err = app.Test(bad)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", res.StatusCode)
	}
}
