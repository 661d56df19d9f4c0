package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/qh20812/shopnest-inventory/internal/app"
	"github.com/qh20812/shopnest-inventory/internal/clock"
	"github.com/qh20812/shopnest-inventory/internal/config"
	"github.com/qh20812/shopnest-inventory/internal/events"
	"github.com/qh20812/shopnest-inventory/internal/storage/postgres"
	"github.com/qh20812/shopnest-inventory/internal/sweep"
	transporthttp "github.com/qh20812/shopnest-inventory/internal/transport/http"
	"github.com/qh20812/shopnest-inventory/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if path, err := config.LoadEnvFile(); err != nil {
		log.Printf("WARN: failed to load .env: %v", err)
	} else if path != "" {
		log.Printf("loaded env from %s", path)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	var publisher app.Publisher = app.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() { _ = kp.Close() }()
		publisher = kp
		logger.Info("stock events enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	store := postgres.NewStore(pool)
	clk := clock.NewSystem()

	stockSvc := app.NewStockService(store, clk,
		app.WithStockLogger(logger),
		app.WithStockPublisher(publisher),
	)
	resvSvc := app.NewReservationService(store, clk,
		app.WithDefaultTTL(cfg.CartHoldTTL),
		app.WithExtendTTL(cfg.CheckoutHoldTTL),
		app.WithReservationLogger(logger),
		app.WithReservationPublisher(publisher),
	)
	saleSvc := app.NewFlashSaleService(store, resvSvc, clk)
	fulfillSvc := app.NewFulfillmentService(store, saleSvc, stockSvc, clk)

	sweeper := sweep.New(resvSvc, cfg.SweepInterval, cfg.SweepBatchSize, logger)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweeper.Run(sweepCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/availability/", transporthttp.HandleAvailability(stockSvc))
	mux.Handle("/reservations", transporthttp.HandleCreateReservation(saleSvc))
	mux.Handle("/reservations/", transporthttp.HandleReservation(saleSvc, resvSvc))
	mux.Handle("/order-lines", transporthttp.HandleOpenOrderLine(fulfillSvc))
	mux.Handle("/order-lines/", transporthttp.HandleOrderLineActions(fulfillSvc))
	mux.Handle("/admin/variants", transporthttp.HandleAdminVariants(stockSvc))
	mux.Handle("/admin/variants/", transporthttp.HandleAdminVariantOps(stockSvc))
	mux.Handle("/admin/flash-sales", transporthttp.HandleAdminFlashSales(saleSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info("api listening", zap.String("port", cfg.Port))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
