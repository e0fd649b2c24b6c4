// Command worker runs the synchronous processing half of the system: each
// /tasks/* route decodes the payload the ingest service's queue dispatched
// and calls straight into the matching orchestrator (internal/pipeline,
// internal/onboarding, internal/invoicegen). Every route is idempotent and
// returns 5xx only for failures the ingest-side dispatcher should retry, per
// spec.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rivergate/invoiceflow/internal/config"
	"github.com/rivergate/invoiceflow/internal/counter"
	"github.com/rivergate/invoiceflow/internal/docstore"
	"github.com/rivergate/invoiceflow/internal/dupdetect"
	"github.com/rivergate/invoiceflow/internal/httpapi"
	"github.com/rivergate/invoiceflow/internal/i18n"
	"github.com/rivergate/invoiceflow/internal/invoicegen"
	"github.com/rivergate/invoiceflow/internal/invoicestore"
	"github.com/rivergate/invoiceflow/internal/jobstore"
	"github.com/rivergate/invoiceflow/internal/llm"
	"github.com/rivergate/invoiceflow/internal/llm/anthropicprovider"
	"github.com/rivergate/invoiceflow/internal/llm/openaiprovider"
	"github.com/rivergate/invoiceflow/internal/logging"
	"github.com/rivergate/invoiceflow/internal/metrics"
	"github.com/rivergate/invoiceflow/internal/objectstore"
	"github.com/rivergate/invoiceflow/internal/onboarding"
	"github.com/rivergate/invoiceflow/internal/pdfrender"
	"github.com/rivergate/invoiceflow/internal/pipeline"
	"github.com/rivergate/invoiceflow/internal/platform/lark"
	"github.com/rivergate/invoiceflow/internal/sanitizer"
	"github.com/rivergate/invoiceflow/internal/sessions"
	"github.com/rivergate/invoiceflow/internal/sheets"
	"github.com/rivergate/invoiceflow/internal/tenantstore"
	"go.uber.org/zap"
)

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

	logger.Info("starting worker service", zap.Int("port", cfg.Worker.Port))

	db, err := docstore.Open(docstore.Config{
		Path: cfg.Database.Path, MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns, ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}
	defer db.Close()

	objects, err := objectstore.NewLocalStore(cfg.Storage.BaseDir, logger)
	if err != nil {
		logger.Fatal("failed to initialize object store", zap.Error(err))
	}

	chat := lark.NewClient(lark.Config{
		AppID: cfg.Lark.AppID, AppSecret: cfg.Lark.AppSecret, APITimeout: cfg.Lark.APITimeout,
	}, logger)

	jobs := jobstore.New(db)
	tenants := tenantstore.New(db)
	counters := counter.New(db)
	invoices := invoicestore.New(db)
	callbacks := sessions.NewCallbackDedupStore(db)
	onboardingSessions := sessions.NewOnboardingStore(db)
	invoiceGenSessions := sessions.NewInvoiceGenStore(db)
	sheetsCli := sheets.NewClient(logger)
	dup := dupdetect.New(jobs)
	sanitize := sanitizer.New()
	renderer := pdfrender.New()

	primary := openaiprovider.New(cfg.LLM.PrimaryAPIKey, cfg.LLM.PrimaryModel, logger)
	fallback := anthropicprovider.New(cfg.LLM.FallbackAPIKey, cfg.LLM.FallbackModel, logger)
	policy := llm.NewPolicy(primary, fallback, cfg.LLM.PrimaryAPIKey != "", logger)

	pipe := pipeline.New(pipeline.Deps{
		Jobs: jobs, Tenants: tenants, Callbacks: callbacks, Chat: chat, Objects: objects,
		Policy: policy, Sanitizer: sanitize, DupDetect: dup, Sheets: sheetsCli, Logger: logger,
	})

	catalog := i18n.NewFromDefaults()

	onboardingCtl := onboarding.New(onboarding.Deps{
		Sessions: onboardingSessions, Tenants: tenants, Counters: counters,
		Sheets: sheetsCli, Objects: objects, Catalog: catalog, Logger: logger,
	})

	invoiceGenCtl := invoicegen.New(invoicegen.Deps{
		Sessions: invoiceGenSessions, Tenants: tenants, Counters: counters, Invoices: invoices,
		Objects: objects, Renderer: renderer, Sheets: sheetsCli, Catalog: catalog, Logger: logger,
	})

	metricsReader := metrics.New(jobs)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := httpapi.NewWorkerServer(httpapi.WorkerDeps{
		Pipeline: pipe, Onboarding: onboardingCtl, InvoiceGen: invoiceGenCtl,
		Chat: chat, Metrics: metricsReader, Logger: logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Worker.Host, cfg.Worker.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Worker.ReadTimeout,
		WriteTimeout: cfg.Worker.WriteTimeout,
	}

	go func() {
		logger.Info("worker HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("worker HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker service")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("worker server forced to shutdown", zap.Error(err))
	}
}
