// Package app initializes and runs the cats API service.
// It configures logging, tracing, storage, authentication and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/catsapi/internal/auth"
	"github.com/patric-chuzhbe/catsapi/internal/config"
	"github.com/patric-chuzhbe/catsapi/internal/db/jsondb"
	"github.com/patric-chuzhbe/catsapi/internal/db/memorystorage"
	"github.com/patric-chuzhbe/catsapi/internal/db/postgresdb"
	"github.com/patric-chuzhbe/catsapi/internal/db/storage"
	"github.com/patric-chuzhbe/catsapi/internal/logger"
	"github.com/patric-chuzhbe/catsapi/internal/models"
	"github.com/patric-chuzhbe/catsapi/internal/router"
	"github.com/patric-chuzhbe/catsapi/internal/service"
	"github.com/patric-chuzhbe/catsapi/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var setupTelemetry = telemetry.Setup

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the service.
type App struct {
	cfg               *config.Config
	db                storage.Storage
	httpHandler       http.Handler
	shutdownTelemetry telemetry.ShutdownFunc
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger and tracing
// - selecting and setting up storage
// - seeding the default user
// - setting up the router and middleware
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.shutdownTelemetry = setupTelemetry(context.Background(), app.cfg.ServiceName)

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		app.stopTelemetry()
		return nil, err
	}

	seedCtx, cancel := context.WithTimeout(context.Background(), app.cfg.DBConnectionTimeout)
	defer cancel()
	if err := service.SeedDefaultUser(seedCtx, app.db, app.cfg.DefaultEmail, app.cfg.DefaultPass); err != nil {
		if closeErr := app.db.Close(); closeErr != nil {
			logger.Log.Debugln("Error calling the `app.db.Close()`: ", zap.Error(closeErr))
		}
		app.stopTelemetry()
		return nil, err
	}

	theRouter := router.New(
		service.NewCats(app.db),
		auth.New(app.db, []byte(app.cfg.JWTSecret), app.cfg.TokenTTL),
		app.db,
		app.cfg.CSRFOrigin,
	)
	app.httpHandler = otelhttp.NewHandler(theRouter, app.cfg.ServiceName)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		if err := a.shutdownTelemetry(shutdownCtx); err != nil {
			logger.Log.Warnln("Error calling the `a.shutdownTelemetry()`: ", zap.Error(err))
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Debugln("Error calling the `a.db.Close()`: ", zap.Error(closeErr))
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func (a *App) stopTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.shutdownTelemetry(ctx); err != nil {
		logger.Log.Warnln("Error calling the `a.shutdownTelemetry()`: ", zap.Error(err))
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
