package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/auth"
	"github.com/homefixer/homefixer/internal/clock"
	"github.com/homefixer/homefixer/internal/logging"
)

func sendOTP(t *testing.T, app *fiber.App, email string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/otp", strings.NewReader(`{"email":"`+email+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func rateLimitedApp(cache *redis.Client, perMinute int) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Post("/otp", OTPSendLimit(cache, perMinute, logging.Discard()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "sent"})
	})
	return app
}

func TestOTPSendLimitWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := rateLimitedApp(cache, 3)

	for i := 0; i < 3; i++ {
		if status := sendOTP(t, app, "a@x.com"); status != fiber.StatusOK {
			t.Fatalf("send %d: expected 200 got %d", i, status)
		}
	}
	if status := sendOTP(t, app, "a@x.com"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", status)
	}
	if status := sendOTP(t, app, "b@x.com"); status != fiber.StatusOK {
		t.Fatalf("other emails have their own budget, got %d", status)
	}

	if ttl := mr.TTL(otpRatePrefix + "a@x.com"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected counter to expire within a minute, ttl=%v", ttl)
	}
	mr.FastForward(time.Minute + time.Second)
	if status := sendOTP(t, app, "a@x.com"); status != fiber.StatusOK {
		t.Fatalf("expected budget to reset, got %d", status)
	}
}

func TestOTPSendLimitInProcess(t *testing.T) {
	app := rateLimitedApp(nil, 2)

	for i := 0; i < 2; i++ {
		if status := sendOTP(t, app, "a@x.com"); status != fiber.StatusOK {
			t.Fatalf("send %d: expected 200 got %d", i, status)
		}
	}
	// The domain is case-insensitive.
	if status := sendOTP(t, app, "a@X.COM"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", status)
	}
	// The local part is not: A@x.com is a different account.
	if status := sendOTP(t, app, "A@x.com"); status != fiber.StatusOK {
		t.Fatalf("expected a separate budget for A@x.com, got %d", status)
	}
}

func TestOTPSendLimitRedisKeysOnNormalizedEmail(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	app := rateLimitedApp(cache, 1)

	if status := sendOTP(t, app, "a@X.com"); status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if !mr.Exists(otpRatePrefix + "a@x.com") {
		t.Fatalf("expected counter under the normalized email, keys=%v", mr.Keys())
	}
	if status := sendOTP(t, app, "A@x.com"); status != fiber.StatusOK {
		t.Fatalf("expected a separate budget for A@x.com, got %d", status)
	}
	for _, key := range mr.Keys() {
		if ttl := mr.TTL(key); ttl <= 0 {
			t.Fatalf("counter %s has no expiry", key)
		}
	}
}

func TestLocalLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newLocalLimiter(2, func() time.Time { return now })

	for _, key := range []string{"a@x.com", "b@x.com", "10.0.0.1"} {
		if !l.allow(key) {
			t.Fatalf("first send for %s rejected", key)
		}
	}
	if len(l.limiters) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(l.limiters))
	}

	now = now.Add(2 * time.Minute)
	if !l.allow("c@x.com") {
		t.Fatalf("first send for c@x.com rejected")
	}
	if len(l.limiters) != 1 {
		t.Fatalf("expected idle buckets to be swept, got %d", len(l.limiters))
	}
}

type accountsByID map[string]account.Account

func (m accountsByID) FindByID(_ context.Context, id string) (account.Account, error) {
	acc, ok := m[id]
	if !ok {
		return account.Account{}, apperr.New(apperr.ErrNotFound, "account not found")
	}
	return acc, nil
}

func TestJWTAuth(t *testing.T) {
	clk := clock.System{}
	active := account.Account{ID: "u1", Email: "a@x.com", Role: account.RoleCustomer, Active: true}
	disabled := account.Account{ID: "u2", Email: "b@x.com", Role: account.RoleCustomer}
	accounts := accountsByID{active.ID: active, disabled.ID: disabled}
	sessions := auth.NewService(auth.Config{
		Secret: "s", Issuer: "HomeFixer", AccessTTL: time.Minute, RefreshTTL: time.Hour,
	}, auth.NewMemoryBlacklist(clk), accounts, clk, logging.Discard())

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/me", JWTAuth(sessions, accounts), func(c *fiber.Ctx) error {
		return c.SendString(AccountID(c))
	})

	call := func(authz string) (int, string) {
		req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
		if authz != "" {
			req.Header.Set(fiber.HeaderAuthorization, authz)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	pair, err := sessions.Issue(active)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if status, body := call("Bearer " + pair.Access); status != fiber.StatusOK || body != "u1" {
		t.Fatalf("expected 200 u1, got %d %s", status, body)
	}
	if status, _ := call(""); status != fiber.StatusUnauthorized {
		t.Fatalf("missing header: expected 401 got %d", status)
	}
	if status, _ := call("Bearer " + pair.Refresh); status != fiber.StatusUnauthorized {
		t.Fatalf("refresh token: expected 401 got %d", status)
	}

	inactivePair, err := sessions.Issue(disabled)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if status, _ := call("Bearer " + inactivePair.Access); status != fiber.StatusUnauthorized {
		t.Fatalf("inactive account: expected 401 got %d", status)
	}
}

func TestErrorHandlerHidesServerFaults(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Use(RequestID())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperr.New(apperr.ErrNotFound, "User not found. Please register.")
	})

	cases := []struct {
		path   string
		status int
		detail string
	}{
		{"/boom", fiber.StatusInternalServerError, `{"detail":"internal server error"}`},
		{"/missing", fiber.StatusNotFound, `{"detail":"User not found. Please register."}`},
		{"/nowhere", fiber.StatusNotFound, `{"detail":"Cannot GET /nowhere"}`},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tc.path, nil))
		if err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.status || string(body) != tc.detail {
			t.Fatalf("%s: expected %d %s, got %d %s", tc.path, tc.status, tc.detail, resp.StatusCode, body)
		}
		if resp.Header.Get(requestIDHeader) == "" && tc.path != "/nowhere" {
			t.Fatalf("%s: missing request id header", tc.path)
		}
	}
}
