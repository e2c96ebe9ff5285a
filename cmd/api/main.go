package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/huhumeme2002/CreditToken/internal/app"
	"github.com/huhumeme2002/CreditToken/internal/clock"
	"github.com/huhumeme2002/CreditToken/internal/config"
	"github.com/huhumeme2002/CreditToken/internal/storage/postgres"
	"github.com/huhumeme2002/CreditToken/internal/telemetry/logger"
	"github.com/huhumeme2002/CreditToken/internal/telemetry/metric"
	transporthttp "github.com/huhumeme2002/CreditToken/internal/transport/http"
	"github.com/huhumeme2002/CreditToken/migrations"
)

func main() {
	configPath := flag.String("config", os.Getenv("CREDITTOKEN_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Environment, cfg.Log.Level)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.Database.URL)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatal("db ping", zap.Error(err))
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatal("apply migrations", zap.Error(err))
	}

	metrics := metric.NewRegistry()
	clk := clock.NewSystem()

	issueRepo := postgres.NewIssueRepository(pool)
	issueSvc := app.NewIssueService(issueRepo, clk,
		app.WithTokenCost(cfg.Pricing.TokenCostCents),
		app.WithIssueMetrics(metrics),
	)

	reportRepo := postgres.NewReportRepository(pool)
	reportSvc := app.NewReportService(reportRepo, clk,
		app.WithRefundPolicy(app.RefundPolicy{
			FullCents:        cfg.Pricing.RefundFullCents,
			PartialCents:     cfg.Pricing.RefundPartialCents,
			FullRefundWindow: cfg.Pricing.FullRefundWindow,
		}),
		app.WithReportMetrics(metrics),
	)

	keyRepo := postgres.NewKeyRepository(pool)
	keySvc := app.NewKeyService(keyRepo)

	adminRepo := postgres.NewAdminRepository(pool)
	adminSvc := app.NewAdminService(adminRepo, clk)

	handler := transporthttp.NewRouter(transporthttp.RouterConfig{
		Issuer:         issueSvc,
		Reports:        reportSvc,
		Resolver:       reportSvc,
		Keys:           keySvc,
		Admin:          adminSvc,
		KeyResolver:    keyRepo,
		AdminToken:     cfg.Admin.Token,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		IssuePerMinute: cfg.RateLimit.IssuePerMinute,
		IssueBurst:     cfg.RateLimit.IssueBurst,
		Logger:         log,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler,
	}

	log.Info("api listening", zap.String("addr", cfg.HTTP.Addr))

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	case <-stopCtx.Done():
		log.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
}
