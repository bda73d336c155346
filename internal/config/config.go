package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration.
type Config struct {
	AppPort   string
	EnvName   string
	LogLevel  string
	LogFormat string

	StorageDriver string
	DatabaseDSN   string
	MenuFile      string

	TokenTTL              time.Duration
	TokenLength           int
	MaxOrders             int
	MaxAmountPerOrderItem int
	OrderRetention        time.Duration
	SweepInterval         time.Duration

	PaymentTestMode  bool
	PaymentTestEmail string
	StripeURL        string
	StripeSecretKey  string
	StripeCurrency   string
	StripeSource     string
	CurrencySign     string

	MailgunURL    string
	MailgunDomain string
	MailgunAPIKey string
	MailSender    string
	MailSubject   string

	RabbitMQURL string

	LoginRateLimit float64
	LoginRateBurst int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":3000")
	v.SetDefault("ENV_NAME", "staging")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("STORAGE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_DSN", "data/pizza.db")
	v.SetDefault("MENU_FILE", "menu.json")

	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("TOKEN_LENGTH", 20)
	v.SetDefault("MAX_ORDERS", 5)
	v.SetDefault("MAX_AMOUNT_PER_ORDER_ITEM", 10)
	v.SetDefault("ORDER_RETENTION", 7*24*time.Hour)
	v.SetDefault("SWEEP_INTERVAL", 15*time.Minute)

	v.SetDefault("PAYMENT_TEST_MODE", true)
	v.SetDefault("PAYMENT_TEST_EMAIL", "")
	v.SetDefault("STRIPE_URL", "https://api.stripe.com")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_CURRENCY", "usd")
	v.SetDefault("STRIPE_SOURCE", "tok_visa")
	v.SetDefault("CURRENCY_SIGN", "$")

	v.SetDefault("MAILGUN_URL", "https://api.mailgun.net")
	v.SetDefault("MAILGUN_DOMAIN", "")
	v.SetDefault("MAILGUN_API_KEY", "")
	v.SetDefault("MAIL_SENDER", "")
	v.SetDefault("MAIL_SUBJECT", "Pizza receipt")

	v.SetDefault("RABBITMQ_URL", "")

	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)
}

// Load reads an optional .env file and then the environment. Files that do
// not exist are skipped.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:   v.GetString("APP_PORT"),
		EnvName:   v.GetString("ENV_NAME"),
		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		DatabaseDSN:   v.GetString("DATABASE_DSN"),
		MenuFile:      v.GetString("MENU_FILE"),

		TokenTTL:              v.GetDuration("TOKEN_TTL"),
		TokenLength:           v.GetInt("TOKEN_LENGTH"),
		MaxOrders:             v.GetInt("MAX_ORDERS"),
		MaxAmountPerOrderItem: v.GetInt("MAX_AMOUNT_PER_ORDER_ITEM"),
		OrderRetention:        v.GetDuration("ORDER_RETENTION"),
		SweepInterval:         v.GetDuration("SWEEP_INTERVAL"),

		PaymentTestMode:  v.GetBool("PAYMENT_TEST_MODE"),
		PaymentTestEmail: v.GetString("PAYMENT_TEST_EMAIL"),
		StripeURL:        v.GetString("STRIPE_URL"),
		StripeSecretKey:  v.GetString("STRIPE_SECRET_KEY"),
		StripeCurrency:   v.GetString("STRIPE_CURRENCY"),
		StripeSource:     v.GetString("STRIPE_SOURCE"),
		CurrencySign:     v.GetString("CURRENCY_SIGN"),

		MailgunURL:    v.GetString("MAILGUN_URL"),
		MailgunDomain: v.GetString("MAILGUN_DOMAIN"),
		MailgunAPIKey: v.GetString("MAILGUN_API_KEY"),
		MailSender:    v.GetString("MAIL_SENDER"),
		MailSubject:   v.GetString("MAIL_SUBJECT"),

		RabbitMQURL: v.GetString("RABBITMQ_URL"),

		LoginRateLimit: v.GetFloat64("LOGIN_RATE_LIMIT"),
		LoginRateBurst: v.GetInt("LOGIN_RATE_BURST"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks limits and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.StorageDriver != DriverMemory && c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required for a database driver"))
	}
	if c.TokenTTL <= 0 || c.TokenLength <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL and TOKEN_LENGTH must be positive"))
	}
	if c.MaxOrders <= 0 || c.MaxAmountPerOrderItem <= 0 {
		errs = append(errs, errors.New("MAX_ORDERS and MAX_AMOUNT_PER_ORDER_ITEM must be positive"))
	}
	if c.OrderRetention <= 0 || c.SweepInterval <= 0 {
		errs = append(errs, errors.New("ORDER_RETENTION and SWEEP_INTERVAL must be positive"))
	}
	if c.PaymentTestMode && c.PaymentTestEmail == "" {
		errs = append(errs, errors.New("PAYMENT_TEST_EMAIL is required when PAYMENT_TEST_MODE is on"))
	}
	if c.LoginRateLimit <= 0 || c.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
