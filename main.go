package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pizzeria/internal/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(".env")
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogging(cfg)

	app, err := NewApp(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize application")
	}
	defer app.Close()

	// --- Background sweeper: runs once now, then every SWEEP_INTERVAL ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app.Sweeper.Start(ctx)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(log.Fields{"port": cfg.AppPort, "env": cfg.EnvName}).Info("Starting server")
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	log.Info("Shutting down server...")

	if err := app.Fiber.Shutdown(); err != nil {
		log.WithError(err).Warn("Error during Fiber shutdown")
	}
	cancel()
	app.Sweeper.Stop()
	// Receipts already handed to the mail gateway are allowed to finish.
	app.Purchase.Wait()

	log.Info("Server gracefully stopped")
}
