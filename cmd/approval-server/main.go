// cmd/approval-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"approval-service/internal/audit"
	"approval-service/internal/common/aws"
	"approval-service/internal/common/config"
	"approval-service/internal/common/database"
	commonhttp "approval-service/internal/common/http"
	"approval-service/internal/common/logger"
	"approval-service/internal/common/observability"
	"approval-service/internal/notify"
	"approval-service/internal/server"
	"approval-service/internal/store/dealcache"
	"approval-service/internal/store/postgres"
	"approval-service/internal/webhook"
	"approval-service/internal/workflow"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting approval server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("approval-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL initialization")
	if err != nil {
		zapLog.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pg.Close()

	store := postgres.New(pg.GetDB())

	svc := workflow.NewService(store, workflow.Config{
		FrontendBaseURL: cfg.Approval.FrontendBaseURL,
		OwnerEmail:      cfg.Approval.OwnerEmail,
	}, log)

	// --- Optional Redis deal snapshot cache ---
	if cfg.Database.Redis.Address != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Warn("redis unavailable, running without deal cache", zap.Error(err))
		} else {
			defer rdb.Close()
			ttl := time.Duration(cfg.Database.Redis.CacheTTL) * time.Second
			svc.SetCache(dealcache.New(rdb.GetClient(), ttl))
			zapLog.Info("deal snapshot cache enabled", zap.Duration("ttl", ttl))
		}
	}

	// --- Email notifications via SES ---
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SES client init failed, emails disabled", zap.Error(err))
		} else {
			svc.UseNotifier(notify.NewDispatcher(
				sesClient,
				cfg.Notifications.Email.FromEmail,
				true,
				log,
			))
			zapLog.Info("email notifications enabled",
				zap.String("from", cfg.Notifications.Email.FromEmail))
		}
	}

	// --- Signed webhook delivery ---
	svc.UseWebhooks(webhook.NewDispatcher(
		commonhttp.NewClient(config.GetDuration(cfg.Webhooks.Timeout)),
		cfg.Webhooks.SigningSecret,
		cfg.Webhooks.MaxAttempts,
		log,
	))

	// --- Optional Elasticsearch audit mirror ---
	if cfg.Database.Elasticsearch.Enabled() {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, audit mirror disabled", zap.Error(err))
		} else {
			svc.Use(audit.NewIndexer(es, cfg.Database.Elasticsearch.AuditIndex))
			zapLog.Info("audit mirror enabled",
				zap.String("index", cfg.Database.Elasticsearch.AuditIndex))
		}
	}

	// --- HTTP Server ---
	handler := server.NewHandler(svc, pg, log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.NewRouter(handler, obs, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Approval server stopped")
}
