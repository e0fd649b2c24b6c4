// Command ingest runs the webhook-facing half of the system: it verifies
// and classifies inbound chat-platform updates and enqueues work, but never
// executes business logic itself (spec.md §4.1). Enqueued tasks are handed
// to the worker service over HTTP POST (internal/queue.InProcess wraps each
// delivery in exponential backoff via cenkalti/backoff).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rivergate/invoiceflow/internal/cache"
	"github.com/rivergate/invoiceflow/internal/config"
	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/httpapi"
	"github.com/rivergate/invoiceflow/internal/logging"
	"github.com/rivergate/invoiceflow/internal/queue"
	"github.com/rivergate/invoiceflow/internal/router"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

const approvalAndOnboardTTL = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level: cfg.Logger.Level, OutputPath: cfg.Logger.OutputPath, Format: cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting ingest service", zap.Int("port", cfg.Server.Port))

	db, err := docstore.Open(docstore.Config{
		Path: cfg.Database.Path, MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns, ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}
	defer db.Close()

	tenants := tenantstore.New(db)
	onboardingSessions := sessions.NewOnboardingStore(db)

	approvedTTL := cache.New(approvalAndOnboardTTL, logger)
	onboardTTL := cache.New(approvalAndOnboardTTL, logger)
	if err := approvedTTL.Start("@every 1m"); err != nil {
		logger.Fatal("failed to start approved-tenant cache sweep", zap.Error(err))
	}
	defer approvedTTL.Stop()
	if err := onboardTTL.Start("@every 1m"); err != nil {
		logger.Fatal("failed to start onboarding cache sweep", zap.Error(err))
	}
	defer onboardTTL.Stop()

	dispatchQueue := queue.New(queue.Config{
		MaxRetries: cfg.Queue.MaxRetries, BaseDelay: cfg.Queue.BaseDelay,
		MaxDelay: cfg.Queue.MaxDelay, BufferSize: 256,
	}, logger)

	rt := router.New(router.Deps{
		Secret: cfg.Server.WebhookSecret, Queue: dispatchQueue, Tenants: tenants,
		Onboarding: onboardingSessions, ApprovedTTL: approvedTTL, OnboardTTL: onboardTTL,
		Logger: logger,
	})

	httpClient := &http.Client{Timeout: 30 * time.Second}
	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	go dispatchQueue.Run(dispatchCtx, dispatchHandler(httpClient, cfg.Server.WorkerURL, logger))

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := httpapi.NewIngestServer(rt, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("ingest HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ingest HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down ingest service")
	dispatchQueue.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ingest server forced to shutdown", zap.Error(err))
	}
}

// dispatchHandler posts a task's payload to the worker's matching /tasks/*
// route. A 5xx response or transport error is returned as an error so
// queue.InProcess retries with backoff, per spec.md §6's worker contract; a
// 4xx response is logged and treated as non-retryable.
func dispatchHandler(client *http.Client, workerURL string, logger *zap.Logger) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		url := workerURL + "/tasks/" + task.Kind
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(task.Payload))
		if err != nil {
			return fmt.Errorf("build task request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("dispatch task %s: %w", task.Kind, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("worker rejected task %s with status %d", task.Kind, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			logger.Warn("worker rejected task as non-retryable",
				zap.String("kind", task.Kind), zap.Int("status", resp.StatusCode))
		}
		return nil
	}
}
