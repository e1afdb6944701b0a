package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/validy-app/validy/internal/certificate"
	"github.com/validy-app/validy/internal/config"
	"github.com/validy-app/validy/internal/health"
	"github.com/validy-app/validy/internal/metrics"
	"github.com/validy-app/validy/internal/notify"
	"github.com/validy-app/validy/internal/secret"
)

func main() {
	// Configuration flags
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	httpAddr := flag.String("http", "", "HTTP server address (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	scheduleStr := flag.String("schedule", "", "Cron expression for scheduled scans (e.g. '0 9 * * *')")
	daysThresholdStr := flag.String("days-threshold", "", "How many days before expiration to notify")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogger(cfg.Log)

	if *httpAddr != "" {
		cfg.Server.Addr = *httpAddr
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := certificate.NewSqliteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "err", closeErr)
		}
	}()

	// Create certificate service
	service := certificate.NewService(db)

	// Create health service with root context
	healthService := health.NewService(ctx)

	// Hash the endpoint keys into the credentials table
	if err := hashAndStoreKey(db, certificate.CredentialScanKey, cfg.API.ScanKey); err != nil {
		slog.Error("failed to hash scan API key", "err", err)
		return
	}
	if err := hashAndStoreKey(db, certificate.CredentialControlKey, cfg.API.ControlKey); err != nil {
		slog.Error("failed to hash control API key", "err", err)
		return
	}

	// Update schedule if provided
	if *scheduleStr != "" {
		if err := service.SetScanSchedule(*scheduleStr); err != nil {
			slog.Error("failed to set scan schedule", "err", err)
			return
		}
		slog.Info("updated scan schedule", "newVal", *scheduleStr)
	} else if *configPath != "" {
		if err := service.SetScanSchedule(cfg.Notify.Schedule); err != nil {
			slog.Error("failed to set scan schedule", "err", err)
			return
		}
	}

	// Update days threshold if provided
	if *daysThresholdStr != "" {
		days, err := strconv.Atoi(*daysThresholdStr)
		if err != nil {
			slog.Error("invalid days threshold", "val", *daysThresholdStr, "err", err)
			return
		}
		if err := service.SetDaysThreshold(days); err != nil {
			slog.Error("failed to set days threshold", "err", err)
			return
		}
		slog.Info("updated days threshold", "newVal", days)
	}

	// Log current configuration
	schedule, err := service.ScanSchedule()
	if err != nil {
		slog.Error("failed to get scan schedule from config", "err", err)
		return
	}
	daysThreshold, err := service.DaysThreshold()
	if err != nil {
		slog.Error("failed to get days threshold from config", "err", err)
		return
	}
	slog.Info("configured scan", "schedule", schedule, "daysThreshold", daysThreshold)

	// Password cipher
	cipher, err := secret.NewCipher(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("Failed to initialize password cipher: %v", err)
	}

	// Notifier: template renderer over the mail provider's HTTP API
	var mailClient *notify.ResendClient
	if cfg.Mail.BaseURL != "" {
		mailClient = notify.NewResendClientWithBaseURL(cfg.Mail.APIKey, cfg.Mail.BaseURL)
	} else {
		mailClient = notify.NewResendClient(cfg.Mail.APIKey)
	}
	mailer, err := notify.NewMailer(mailClient, cfg.Mail.From)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	// Scanner with its inter-send rate gate
	gate := notify.NewGate(cfg.Notify.SendInterval, nil)
	scanner := certificate.NewScanner(db, mailer, gate, nil)

	// Metrics
	reporter := metrics.NewPrometheusReporter()
	scanner.SetObserver(reporter)
	updater := metrics.NewUpdater(service, reporter)
	updater.Start(ctx)
	updater.Trigger()

	// Start scheduler for recurring expiration scans
	scheduler, err := certificate.NewScheduler(service, scanner, schedule)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()

	// HTTP routes
	router := chi.NewRouter()
	apiServer := certificate.NewAPIServer(service, scanner, cipher, updater.Trigger)
	apiServer.RegisterRoutes(router)

	healthApi := health.NewApi(healthService)
	router.Get("/healthz", healthApi.GetHealth)
	router.Method(http.MethodGet, "/metrics", reporter.Handler())

	// Start HTTP server with cancellation context
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		slog.Info("http server listening", "address", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		slog.Info("received shutdown signal")
	case <-ctx.Done():
		slog.Info("context cancelled")
	}

	slog.Info("shutting down...")
	healthService.Shutdown()

	// Halt future firings; a scan already in flight runs to completion
	scheduler.Stop()

	// Cancel the root context to signal all components
	cancel()

	// Create a shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	slog.Info("shutting down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "err", err)
	}

	slog.Info("shutdown complete")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func hashAndStoreKey(db certificate.Store, dbKey string, key string) error {
	hashedKey, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.SetCredential(dbKey, string(hashedKey))
}
