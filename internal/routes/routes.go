package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/auth"
	"github.com/homefixer/homefixer/internal/clock"
	"github.com/homefixer/homefixer/internal/config"
	"github.com/homefixer/homefixer/internal/identity"
	"github.com/homefixer/homefixer/internal/middleware"
	"github.com/homefixer/homefixer/internal/notification"
	"github.com/homefixer/homefixer/internal/otp"
	"github.com/homefixer/homefixer/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. A nil DB or
// Cache selects the in-memory stores, which is only allowed in development.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Notifier notification.Notifier
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLoggerNotifier(d.Logger)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		accountRepo account.Repository
		otpRepo     otp.Repository
		walletRepo  wallet.Repository
		blacklist   auth.Blacklist
	)
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		otpRepo = otp.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		otpRepo = otp.NewMemoryRepository()
		walletRepo = wallet.NewMemoryRepository()
	}
	if d.Cache != nil {
		blacklist = auth.NewRedisBlacklist(d.Cache, d.Clock)
	} else {
		blacklist = auth.NewMemoryBlacklist(d.Clock)
	}

	accounts := account.NewService(accountRepo, d.Logger, account.WithClock(d.Clock))
	codes := otp.NewService(otpRepo, d.Notifier, d.Logger, otp.WithClock(d.Clock), otp.WithTTL(d.Cfg.OTPTTL))
	sessions := auth.NewService(auth.Config{
		Secret:     d.Cfg.JWTSecret,
		Issuer:     d.Cfg.AppName,
		AccessTTL:  d.Cfg.AccessTokenTTL,
		RefreshTTL: d.Cfg.RefreshTokenTTL,
	}, blacklist, accounts, d.Clock, d.Logger)
	flows := identity.NewService(codes, accounts, sessions, d.Cfg.VerifiedEmailWindow, d.Logger)
	wallets := wallet.NewService(walletRepo, d.Clock, d.Logger)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  d.Clock.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	requireAuth := middleware.JWTAuth(sessions, accounts)
	otpLimit := middleware.OTPSendLimit(d.Cache, d.Cfg.OTPSendPerMinute, d.Logger)

	flowHandler := identity.NewHandler(flows)
	RegisterAuthRoutes(api, flowHandler, auth.NewHandler(sessions), otpLimit, requireAuth)
	RegisterUserRoutes(api, flowHandler, wallet.NewHandler(wallets), requireAuth)

	return nil
}
