package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openkiosk/donation-engine/internal/adapters/boltstore"
	"github.com/openkiosk/donation-engine/internal/adapters/catalogapi"
	"github.com/openkiosk/donation-engine/internal/adapters/terminalsim"
	"github.com/openkiosk/donation-engine/internal/adapters/zaplog"
	"github.com/openkiosk/donation-engine/internal/config"
	"github.com/openkiosk/donation-engine/internal/domain/models"
	"github.com/openkiosk/donation-engine/internal/handlers/kiosk"
	"github.com/openkiosk/donation-engine/internal/services/catalog"
	"github.com/openkiosk/donation-engine/internal/services/keystore"
	"github.com/openkiosk/donation-engine/internal/services/offline"
	"github.com/openkiosk/donation-engine/internal/services/payment"
	"github.com/openkiosk/donation-engine/internal/services/reader"
	"github.com/openkiosk/donation-engine/pkg/observability"
	"github.com/openkiosk/donation-engine/pkg/shutdown"
)

func main() {
	// Load configuration from environment
	cfg, err := config.LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	// Initialize logger
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting donation engine",
		zap.String("version", "0.1.0"),
		zap.String("org_id", cfg.Remote.OrgID),
	)

	portLogger := zaplog.New(logger)

	// Open the embedded store
	store, err := boltstore.New(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}

	logger.Info("Storage opened", zap.String("path", cfg.Storage.Path))

	// Initialize adapters
	catalogClient := catalogapi.NewCatalogAdapterWithDefaults(cfg.Remote.CatalogBaseURL, cfg.Remote.AuthToken, portLogger)
	orderClient := catalogapi.NewOrderAdapterWithDefaults(cfg.Remote.OrdersBaseURL, cfg.Remote.AuthToken, portLogger)
	terminal := terminalsim.New(portLogger)

	// Initialize services
	keys := keystore.NewStore(store, portLogger)

	catalogSvc, err := catalog.NewService(store, catalogClient, cfg.Remote.OrgID, portLogger)
	if err != nil {
		logger.Fatal("Failed to initialize catalog service", zap.Error(err))
	}

	statusSink := &loggingSink{logger: logger}
	readerTracker := reader.NewTracker(terminal, statusSink, portLogger)
	offlineMonitor := offline.NewMonitor(terminal, statusSink, portLogger)
	offlinePoller := offline.NewPoller(offlineMonitor, cfg.Offline.PollInterval, nil, portLogger)

	inflight := shutdown.NewInFlightTracker("payments", logger)

	orchestrator := payment.NewOrchestrator(
		payment.Config{
			OrgID:        cfg.Remote.OrgID,
			Currency:     cfg.Payments.Currency,
			CreateOrders: cfg.Payments.CreateOrders,
		},
		keys,
		catalogSvc,
		readerTracker,
		tokenAuth{token: cfg.Remote.AuthToken},
		orderClient,
		terminal,
		inflight,
		portLogger,
	)

	// Establish initial state
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	readerTracker.RefreshStatus(startCtx)
	if err := catalogSvc.SyncUp(startCtx); err != nil {
		logger.Warn("Initial catalog sync failed", zap.Error(err))
	}
	cancel()

	// Start background workers
	offlinePoller.Start()

	// Kiosk-facing HTTP API
	kioskHandler := kiosk.NewHandler(orchestrator, catalogSvc, readerTracker, offlineMonitor, logger)
	mux := http.NewServeMux()
	kioskHandler.Routes(mux)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Metrics/health server
	healthChecker := observability.NewHealthChecker()
	healthChecker.Register("storage", func(ctx context.Context) error {
		_, err := store.Get("catalog", "presets")
		return err
	})
	metricsServer := observability.StartMetricsServer(
		fmt.Sprintf("%d", cfg.Server.MetricsPort), healthChecker, logger)

	// Register shutdown in reverse dependency order (LIFO)
	shutdownManager := shutdown.NewManager(logger, 30*time.Second)
	shutdownManager.RegisterCloser("storage", store)
	shutdownManager.Register("in-flight payments", inflight.Shutdown)
	shutdownManager.Register("offline poller", offlinePoller.Shutdown)
	shutdownManager.RegisterHTTPServer("kiosk api", httpServer)
	shutdownManager.RegisterHTTPServer("metrics server", metricsServer)

	logger.Info("Donation engine started",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.Bool("create_orders", cfg.Payments.CreateOrders),
	)

	shutdownManager.WaitForShutdown()
}

// initLogger builds the zap logger from config
func initLogger(cfg *config.Config) *zap.Logger {
	if cfg.Logger.Development {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	zapCfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

// tokenAuth treats the kiosk as authenticated while a backend token is
// configured.
type tokenAuth struct {
	token string
}

func (a tokenAuth) IsAuthenticated() bool { return a.token != "" }

// loggingSink surfaces connection and offline-queue status to the log until
// a frontend subscribes over the kiosk API.
type loggingSink struct {
	logger *zap.Logger
}

func (s *loggingSink) PublishConnectionStatus(status models.ConnectionStatus) {
	s.logger.Info("Connection status",
		zap.String("state", string(status.State)),
		zap.Bool("connected", status.Connected),
		zap.String("message", status.Message),
	)
}

func (s *loggingSink) OfflinePaymentsProcessed(message string) {
	s.logger.Info("Offline payments processed", zap.String("message", message))
}

func (s *loggingSink) OfflinePaymentFailed(localID string, err error) {
	s.logger.Warn("Offline payment failed",
		zap.String("local_id", localID),
		zap.Error(err),
	)
}
