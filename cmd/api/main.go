package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pocketledger/internal/app"
	"pocketledger/internal/config"
	"pocketledger/internal/handlers"
	"pocketledger/internal/logger"
	"pocketledger/internal/validator"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg, app.Options{})
	if err := a.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	// The local API serves the UI process on the same machine only.
	srv := &http.Server{
		Addr:              "127.0.0.1:" + cfg.Port,
		Handler:           handlers.NewRouter(a, cfg.LocalAPIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting PocketLedger local API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			_ = a.Shutdown(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
	if err := a.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down app: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
