package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pizzeria/internal/config"
	"pizzeria/internal/handlers"
	"pizzeria/internal/metrics"
	"pizzeria/internal/middleware"
	"pizzeria/internal/models"
	"pizzeria/internal/repositories"
	"pizzeria/internal/services"
	"pizzeria/pkg/mailgun"
	"pizzeria/pkg/rabbitmq"
	"pizzeria/pkg/stripe"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// App holds the wired application.
type App struct {
	Fiber    *fiber.App
	Sweeper  *services.Sweeper
	Purchase *services.PurchaseService
	Metrics  *metrics.Collectors

	closers []func() error
}

// configureLogging applies the level and format from cfg to the standard
// logrus logger.
func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// openStore opens the record store selected by cfg.StorageDriver.
func openStore(cfg *config.Config) (repositories.Store, func() error, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return repositories.NewMemoryStore(), func() error { return nil }, nil
	}

	gormCfg := &gorm.Config{
		Logger: gormlogger.New(log.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var dialector gorm.Dialector
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DatabaseDSN); !strings.HasPrefix(cfg.DatabaseDSN, "file:") && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DatabaseDSN)
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, err := repositories.NewGORMStore(db)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	return store, sqlDB.Close, nil
}

// NewApp builds storage, services and routes from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	a := &App{Metrics: metrics.New()}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)
	if err := repositories.EnsureFolders(ctx, store); err != nil {
		a.Close()
		return nil, err
	}

	catalog, err := services.LoadCatalogFile(cfg.MenuFile)
	if err != nil {
		a.Close()
		return nil, err
	}

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, mq.Close)
		if err := mq.ConsumeOrderEvents(logOrderEvent); err != nil {
			log.WithError(err).Warn("order event consumer not started")
		}
		events = mq
	} else {
		log.Info("RABBITMQ_URL is empty, order events are disabled")
	}

	var mail services.MailGateway
	if cfg.MailgunDomain != "" {
		mail = mailgun.NewClient(mailgun.Config{
			BaseURL: cfg.MailgunURL,
			Domain:  cfg.MailgunDomain,
			APIKey:  cfg.MailgunAPIKey,
		})
	} else {
		log.Warn("MAILGUN_DOMAIN is empty, receipts will not be emailed")
	}
	payments := stripe.NewClient(stripe.Config{
		BaseURL:   cfg.StripeURL,
		SecretKey: cfg.StripeSecretKey,
	})

	userRepo := repositories.NewStoreUserRepository(store)
	orderRepo := repositories.NewStoreOrderRepository(store)
	tokenRepo := repositories.NewStoreTokenRepository(store)

	tokenService := services.NewTokenService(userRepo, tokenRepo, services.TokenConfig{
		TTL:     cfg.TokenTTL,
		Length:  cfg.TokenLength,
		Metrics: a.Metrics,
	})
	a.Sweeper = services.NewSweeper(store, services.SweeperConfig{
		Interval:  cfg.SweepInterval,
		Retention: cfg.OrderRetention,
		Metrics:   a.Metrics,
	})
	userService := services.NewUserService(userRepo, tokenService, a.Sweeper)
	cartService := services.NewCartService(orderRepo, userRepo, tokenService, catalog, services.CartConfig{
		MaxOrders:   cfg.MaxOrders,
		MaxQuantity: cfg.MaxAmountPerOrderItem,
		Metrics:     a.Metrics,
		Events:      events,
	})
	a.Purchase = services.NewPurchaseService(orderRepo, userRepo, tokenService, catalog, payments, mail, services.PurchaseConfig{
		Currency:     cfg.StripeCurrency,
		CurrencySign: cfg.CurrencySign,
		Source:       cfg.StripeSource,
		TestMode:     cfg.PaymentTestMode,
		TestEmail:    cfg.PaymentTestEmail,
		MailSender:   cfg.MailSender,
		MailSubject:  cfg.MailSubject,
		MaxQuantity:  cfg.MaxAmountPerOrderItem,
		Metrics:      a.Metrics,
		Events:       events,
	})

	app := fiber.New(fiber.Config{AppName: "pizzeria"})
	app.Use(logger.New())
	app.Use(middleware.Metrics(a.Metrics))
	app.Use(middleware.ExtractToken())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"env":    cfg.EnvName,
			"time":   time.Now().Format(time.RFC3339),
			"events": events != nil,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Metrics.Registry, promhttp.HandlerOpts{})))

	apiV1 := app.Group("/api/v1")
	loginLimit := middleware.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst)
	handlers.NewUserHandler(userService).RegisterRoutes(apiV1)
	handlers.NewTokenHandler(tokenService, loginLimit.Handler()).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(cartService).RegisterRoutes(apiV1)
	handlers.NewPurchaseHandler(a.Purchase).RegisterRoutes(apiV1)
	handlers.NewMenuHandler(catalog).RegisterRoutes(apiV1)

	a.Fiber = app
	return a, nil
}

// Close releases the broker connection and the database.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("error during shutdown")
		}
	}
	a.closers = nil
}

func logOrderEvent(event models.OrderEvent) error {
	log.WithFields(log.Fields{
		"event":    event.Type,
		"order_id": event.OrderID,
		"email":    event.UserEmail,
		"total":    event.TotalPrice,
	}).Info("order event received")
	return nil
}
