package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "PadiPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultReplayTTL      = 48 * time.Hour
	defaultGatewayTimeout = 15 * time.Second
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	AuthSecret    string
	WebhookSecret string

	GatewayBaseURL string
	GatewayAPIKey  string
	GatewayTimeout time.Duration

	// Deposit fee policy: percent of the gross amount (2.5 means 2.5%) plus
	// an optional flat fee, both defaulting per deployment.
	DepositFeePercent decimal.Decimal
	DepositFlatFee    decimal.Decimal

	WithdrawalMinimum   decimal.Decimal
	WithdrawalFeeRate   decimal.Decimal
	AirtimeMinimum      decimal.Decimal
	AirtimeDiscountRate decimal.Decimal
	SignupBonus         decimal.Decimal

	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	WebhookReplayTTL time.Duration
	DebitRatePerMin  int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		AuthSecret:       os.Getenv("AUTH_SECRET"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://sandbox.gateway.local/api/v1"),
		GatewayAPIKey:    os.Getenv("GATEWAY_API_KEY"),
		GatewayTimeout:   defaultGatewayTimeout,
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		WebhookReplayTTL: defaultReplayTTL,
	}

	var err error
	if cfg.DepositFeePercent, err = getDecimal("DEPOSIT_FEE_PERCENT", "2.5"); err != nil {
		return Config{}, err
	}
	if cfg.DepositFlatFee, err = getDecimal("DEPOSIT_FLAT_FEE", "0"); err != nil {
		return Config{}, err
	}
	if cfg.WithdrawalMinimum, err = getDecimal("WITHDRAWAL_MINIMUM", "500.00"); err != nil {
		return Config{}, err
	}
	if cfg.WithdrawalFeeRate, err = getDecimal("WITHDRAWAL_FEE_RATE", "0.015"); err != nil {
		return Config{}, err
	}
	if cfg.AirtimeMinimum, err = getDecimal("AIRTIME_MINIMUM", "50.00"); err != nil {
		return Config{}, err
	}
	if cfg.AirtimeDiscountRate, err = getDecimal("AIRTIME_DISCOUNT_RATE", "0.02"); err != nil {
		return Config{}, err
	}
	if cfg.SignupBonus, err = getDecimal("SIGNUP_BONUS", "50.00"); err != nil {
		return Config{}, err
	}

	if cfg.ShutdownPeriod, err = getDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.WebhookReplayTTL, err = getDuration("WEBHOOK_REPLAY_TTL", cfg.WebhookReplayTTL); err != nil {
		return Config{}, err
	}
	if cfg.GatewayTimeout, err = getDuration("GATEWAY_TIMEOUT", cfg.GatewayTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("DEBIT_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEBIT_RATE_PER_MINUTE: %w", err)
		}
		cfg.DebitRatePerMin = n
	}

	if cfg.WebhookSecret == "" {
		return Config{}, fmt.Errorf("WEBHOOK_SECRET must be set")
	}
	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("AUTH_SECRET must be set")
	}
	if cfg.DepositFeePercent.IsNegative() || cfg.DepositFeePercent.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return Config{}, fmt.Errorf("DEPOSIT_FEE_PERCENT must be in [0, 100)")
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.GatewayAPIKey == "" {
			return Config{}, fmt.Errorf("GATEWAY_API_KEY must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-style environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getEnv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}
