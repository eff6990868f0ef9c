package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/service"
	"github.com/tontina/caisse-engine/internal/infrastructure/adapter"
	"github.com/tontina/caisse-engine/internal/infrastructure/config"
	"github.com/tontina/caisse-engine/internal/infrastructure/kafka"
	pgRepo "github.com/tontina/caisse-engine/internal/infrastructure/persistence/postgres"
	"github.com/tontina/caisse-engine/internal/presentation/rest"
	pkgkafka "github.com/tontina/caisse-engine/pkg/kafka"
	"github.com/tontina/caisse-engine/pkg/observability"
	pkgpostgres "github.com/tontina/caisse-engine/pkg/postgres"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg := config.Load()
	cfg.Validate()

	// Initialize structured logger via shared observability package.
	logger := observability.InitLogger(observability.LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: "json",
	})
	logger.Info("starting caisse-engine",
		"http_port", cfg.HTTPPort,
	)

	// Initialize metrics.
	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		logger.Warn("failed to initialize metrics, continuing without them", "error", err)
	} else {
		defer func() { _ = meterProvider.Shutdown(ctx) }() //nolint:errcheck // best-effort shutdown
	}

	// Database connection.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()

	pool, err := pkgpostgres.NewPool(dbCtx, pkgpostgres.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Run database migrations.
	migDSN := pkgpostgres.Config{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
	}.DSN()
	if migErr := pkgpostgres.RunMigrations(migDSN, "file://internal/infrastructure/persistence/postgres/migrations"); migErr != nil {
		logger.Warn("migration warning", "error", migErr)
	}

	// Wire infrastructure adapters.
	contractRepo := pgRepo.NewContractRepo(pool)
	advanceRepo := pgRepo.NewAdvanceRepo(pool)
	refundRepo := pgRepo.NewRefundRepo(pool)
	unitOfWork := pgRepo.NewUnitOfWork(pool)
	kafkaProducer := pkgkafka.NewProducer(pkgkafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		TLS:           cfg.Kafka.TLS,
		SASLEnabled:   cfg.Kafka.SASLEnabled,
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
	})
	defer kafkaProducer.Close()
	publisher := kafka.NewEventPublisher(kafkaProducer, cfg.Kafka.Topic, logger)
	documents := adapter.NewStubDocumentStore(getEnv("DOCUMENT_BASE_URL", ""))
	locks := usecase.NewContractLocks()
	penaltyCalc := service.NewPenaltyCalculator()
	bonusCalc := service.NewBonusCalculator()

	// Wire use cases.
	createUC := usecase.NewCreateContractUseCase(contractRepo, publisher, logger)
	reviewUC := usecase.NewReviewContractUseCase(contractRepo, locks, logger)
	activateUC := usecase.NewActivateContractUseCase(contractRepo, publisher, locks, logger)
	rescheduleUC := usecase.NewRescheduleContractUseCase(contractRepo, locks, logger)
	paymentUC := usecase.NewApplyPaymentUseCase(contractRepo, advanceRepo, unitOfWork, penaltyCalc, bonusCalc, publisher, locks, logger)
	advanceUC := usecase.NewRequestAdvanceUseCase(contractRepo, advanceRepo, documents, publisher, locks, logger)
	refundUC := usecase.NewRequestRefundUseCase(contractRepo, refundRepo, unitOfWork, documents, publisher, locks, logger)
	progressRefundUC := usecase.NewProgressRefundUseCase(contractRepo, refundRepo, locks, logger)
	getUC := usecase.NewGetContractUseCase(contractRepo)
	listContractsUC := usecase.NewListMemberContractsUseCase(contractRepo)
	listAdvancesUC := usecase.NewListAdvancesUseCase(advanceRepo)

	// HTTP server (ledger API, health checks, metrics).
	mux := http.NewServeMux()
	handler := rest.NewLedgerHandler(
		createUC, reviewUC, activateUC, rescheduleUC,
		paymentUC, advanceUC, refundUC, progressRefundUC,
		getUC, listContractsUC, listAdvancesUC, logger,
	)
	handler.RegisterRoutes(mux)
	healthHandler := rest.NewHealthHandler(pool, logger)
	healthHandler.RegisterRoutes(mux)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server.
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("caisse-engine stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
