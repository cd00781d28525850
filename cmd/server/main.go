package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dlt194/ipn-webmanager/internal/api"
	"github.com/dlt194/ipn-webmanager/internal/auth"
	"github.com/dlt194/ipn-webmanager/internal/config"
	"github.com/dlt194/ipn-webmanager/internal/database"
	"github.com/dlt194/ipn-webmanager/internal/ipo"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logger
	logger := initLogger(cfg.Logging)
	logger.Info("Starting IPN WebManager",
		"version", "1.0.0",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		log.Fatalf("DB init failed: %v", err)
	}
	defer database.Close()

	// Run embedded migrations (compiled into the binary)
	if err := database.RunMigrations(cfg); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}

	// Initialize authentication service
	authService, err := auth.NewService(auth.Config{
		JWTSecret:         cfg.Auth.JWTSecret,
		EncryptionKey:     cfg.Auth.EncryptionKey,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPassword:     cfg.Auth.AdminPassword,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		TokenExpiry:       cfg.Auth.GetJWTExpiry(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}

	// Initialize the appliance client and its wire logger
	wire := ipo.NewWireLogger(cfg.Appliance.WireLogDir, logger)
	ipoClient := ipo.NewClient(ipo.Options{
		ConnectTimeout: cfg.Appliance.GetConnectTimeout(),
		RequestTimeout: cfg.Appliance.GetRequestTimeout(),
		Wire:           wire,
		Logger:         logger,
	})

	// Create API router
	router := api.NewRouter(cfg, authService, db, ipoClient, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped gracefully")
}

func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	// Set log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Set format
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
