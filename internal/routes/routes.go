package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/padipay/padipay/internal/config"
	"github.com/padipay/padipay/internal/gateway"
	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/middleware"
	"github.com/padipay/padipay/internal/payout"
	"github.com/padipay/padipay/internal/wallet"
	"github.com/padipay/padipay/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Gateway *gateway.Client
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
	} else {
		store = ledger.NewInMemory()
	}

	var guard *webhook.ReplayGuard
	if d.Cache != nil {
		guard = webhook.NewReplayGuard(d.Cache, d.Cfg.WebhookReplayTTL, d.Logger)
	}
	webhookSvc := webhook.NewService(store, d.Cfg.WebhookSecret, webhook.FeePolicy{
		Percent: d.Cfg.DepositFeePercent,
		Flat:    d.Cfg.DepositFlatFee,
	}, guard, d.Logger)

	payoutSvc := payout.NewService(store, d.Gateway, payout.Config{
		WithdrawalMinimum:   d.Cfg.WithdrawalMinimum,
		WithdrawalFeeRate:   d.Cfg.WithdrawalFeeRate,
		AirtimeMinimum:      d.Cfg.AirtimeMinimum,
		AirtimeDiscountRate: d.Cfg.AirtimeDiscountRate,
	}, d.Logger)

	walletSvc := wallet.NewService(store, d.Gateway, d.Cfg.SignupBonus)

	webhookHandler := webhook.NewHandler(webhookSvc)
	payoutHandler := payout.NewHandler(payoutSvc)
	walletHandler := wallet.NewHandler(walletSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Webhooks authenticate by signature over the raw body, so they must
	// never sit behind the client idempotency middleware: redeliveries are
	// handled inside the service, and a cached 500 would mask a retry that
	// could succeed.
	RegisterWebhookRoutes(api, webhookHandler)

	protected := api.Group("", middleware.Identity(d.Cfg.AuthSecret))
	RegisterWalletRoutes(protected, walletHandler)

	debits := protected.Group("")
	if d.Cache != nil {
		debits.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
		if d.Cfg.DebitRatePerMin > 0 {
			debits.Use(middleware.DebitRateLimit(d.Cache, d.Cfg.DebitRatePerMin))
		}
	}
	RegisterPayoutRoutes(debits, payoutHandler)

	return nil
}
