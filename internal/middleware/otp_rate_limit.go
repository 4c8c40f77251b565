package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
)

const (
	otpRatePrefix = "rl:otp:"
	otpRateWindow = time.Minute
)

// OTPSendLimit caps OTP sends per email per minute. Redis holds the counters
// when available; otherwise a per-process token bucket per email is used.
// Cache errors fail open.
func OTPSendLimit(cache *redis.Client, perMinute int, logger *slog.Logger) fiber.Handler {
	if perMinute <= 0 {
		perMinute = 5
	}
	local := newLocalLimiter(perMinute, time.Now)

	return func(c *fiber.Ctx) error {
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		key := account.NormalizeEmail(req.Email)
		if key == "" {
			key = c.IP()
		}

		if cache == nil {
			if !local.allow(key) {
				return tooManyOTPs()
			}
			return c.Next()
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		cnt, err := countSend(ctx, cache, otpRatePrefix+key)
		if err != nil {
			if logger != nil {
				logger.Warn("otp rate limit lookup failed", slog.Any("error", err))
			}
			return c.Next()
		}
		if cnt > int64(perMinute) {
			return tooManyOTPs()
		}
		return c.Next()
	}
}

// countSend creates the window counter with its expiry and increments it in
// one transaction, so a counter never exists without a TTL.
func countSend(ctx context.Context, cache *redis.Client, key string) (int64, error) {
	var incr *redis.IntCmd
	_, err := cache.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, otpRateWindow)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func tooManyOTPs() error {
	return apperr.New(apperr.ErrRateLimited, "Too many OTP requests. Try again later.")
}

type localEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per key. A bucket idle for a full
// window has refilled, so it is dropped on the next sweep.
type localLimiter struct {
	mu        sync.Mutex
	perMin    int
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*localEntry
}

func newLocalLimiter(perMinute int, now func() time.Time) *localLimiter {
	return &localLimiter{
		perMin:    perMinute,
		now:       now,
		lastSweep: now(),
		limiters:  make(map[string]*localEntry),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= otpRateWindow {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) >= otpRateWindow {
				delete(l.limiters, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[key]
	if !ok {
		e = &localEntry{lim: rate.NewLimiter(rate.Every(otpRateWindow/time.Duration(l.perMin)), l.perMin)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}
