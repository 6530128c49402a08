/*
Package main is the entry point for the NeoChat server.

It is responsible for loading configuration, initializing the global logging system,
wiring the account store, the settings provider, the authenticator, and the hook
pipeline into the package engine, setting up the HTTP server, and gracefully
handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth
server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"neochat/internal/app/account"
	"neochat/internal/app/auth"
	"neochat/internal/app/engine"
	"neochat/internal/app/hook"
	"neochat/internal/app/settings"
	"neochat/internal/app/storage"
	"neochat/internal/configs"
	"neochat/internal/handler"
	"neochat/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.Init(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("guests_allowed", cfg.GuestsAllowed).
		Bool("registration_allowed", cfg.RegistrationAllowed).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Account store: Postgres when a DSN is configured, in-memory otherwise.
	var store account.Store
	if cfg.DatabaseDSN != "" {
		pgStore, err := account.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			logx.Fatal(err, "Failed to connect to database")
		}
		store = pgStore
		logx.Info("Using Postgres account store")
	} else {
		store = account.NewMemoryStore()
		logx.Info("Using in-memory account store")
	}
	defer store.Close()

	// Avatar storage is optional; without a bucket the avatar endpoints
	// are not mounted.
	var storageService storage.Service
	if cfg.S3BucketName != "" {
		storageService, err = storage.NewService(storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			logx.Fatal(err, "Failed to initialize avatar storage")
		}
	}

	settingsProvider := settings.NewProvider(settings.ServerSettings{
		ServerName:          cfg.ServerName,
		GuestsAllowed:       cfg.GuestsAllowed,
		RegistrationAllowed: cfg.RegistrationAllowed,
	})

	eng := engine.New(engine.Options{
		Settings:      settingsProvider,
		Store:         store,
		Authenticator: auth.NewService(store),
		Hooks:         hook.NewPipeline(),
		JWTSecret:     cfg.JWTSecret,
	})

	// Setup HTTP server and routes
	router := handler.Router(&handler.AppDeps{
		Engine:   eng,
		Config:   cfg,
		Storage:  storageService,
		Settings: settingsProvider,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("NeoChat Server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}
