package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"gatekeeper/internal/config"
	"gatekeeper/internal/domain"
	"gatekeeper/internal/http/handlers"
	"gatekeeper/internal/repos"
	"gatekeeper/internal/services"
	"gatekeeper/internal/validate"
)

type testEnv struct {
	app   *fiber.App
	auth  *services.AuthService
	users *repos.UserRepo
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		CookieSecure:    true,
		CookieSameSite:  "Strict",
		RequireApproval: true,
		BcryptCost:      bcrypt.MinCost,
		LoginRateMax:    5,
		LoginRateWindow: time.Minute,
		CORSOrigins:     "http://localhost:3000",
		BodyLimit:       1 << 20,
	}
}

// newTestEnv builds the real app on an in-memory database. storage may be nil.
func newTestEnv(t *testing.T, cfg config.Config, opts services.Options, storage fiber.Storage) *testEnv {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repos.NewUserRepo(db)
	opts.RequireApproval = cfg.RequireApproval
	opts.BcryptCost = cfg.BcryptCost
	authSvc, err := services.NewAuthService(users, services.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL), opts)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	app := handlers.NewApp(handlers.NewDeps(cfg, authSvc), storage)
	return &testEnv{app: app, auth: authSvc, users: users}
}

func newDefaultEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, testConfig(), services.Options{}, nil)
}

// adminCookie seeds an admin and returns its session cookie without going
// through the login limiter.
func (e *testEnv) adminCookie(t *testing.T) *http.Cookie {
	t.Helper()
	ctx := context.Background()
	_, _, err := e.auth.SeedAdmin(ctx, validate.Account{Email: "root@example.com", Password: "rootpass", Name: "Root"})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return e.sessionFor(t, "root@example.com", "rootpass")
}

func (e *testEnv) sessionFor(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	s, err := e.auth.Authenticate(context.Background(), email, password)
	if err != nil {
		t.Fatalf("authenticate %s: %v", email, err)
	}
	return &http.Cookie{Name: handlers.SessionCookie, Value: s.Token}
}

// approvedUser creates an approved plain user directly through the service.
func (e *testEnv) approvedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()
	admin, _, err := e.auth.SeedAdmin(ctx, validate.Account{Email: "root@example.com", Password: "rootpass", Name: "Root"})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	u, err := e.auth.CreateByAdmin(ctx, admin, validate.Account{Email: email, Password: password, Name: "User"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func extractCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func creds(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}
