package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/panopticron/panopticron/internal/adapter/driven/github"
	sqliteadapter "github.com/panopticron/panopticron/internal/adapter/driven/sqlite"
	verceladapter "github.com/panopticron/panopticron/internal/adapter/driven/vercel"
	httphandler "github.com/panopticron/panopticron/internal/adapter/driving/http"
	"github.com/panopticron/panopticron/internal/application"
	"github.com/panopticron/panopticron/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required secrets).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
		"production_branch", cfg.ProductionBranch,
		"environment", cfg.Environment,
	)

	// 2. Signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on the writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	projectStore := sqliteadapter.NewProjectRepo(db)
	snapshotStore := sqliteadapter.NewSnapshotRepo(db)
	historyStore := sqliteadapter.NewPriorityHistoryRepo(db)
	workerRunStore := sqliteadapter.NewWorkerRunRepo(db)
	ciRunStore := sqliteadapter.NewCIRunRepo(db)

	vercelClient := verceladapter.NewClient(cfg.VercelToken, cfg.VercelTeamSlug)
	githubClient := githubadapter.NewClient(cfg.GitHubToken)

	// 6. Application services.
	prioritySvc := application.NewPriorityService(projectStore, historyStore)
	runLogger := application.NewRunLogger(workerRunStore)
	vercelWorker := application.NewVercelSyncWorker(vercelClient, projectStore, snapshotStore, prioritySvc, runLogger)
	githubWorker := application.NewGitHubSyncWorker(githubClient, projectStore, snapshotStore, prioritySvc, runLogger)
	webhookSvc := application.NewWebhookService(projectStore, snapshotStore, prioritySvc, cfg.ProductionBranch)
	ciSvc := application.NewCIIngestService(ciRunStore)

	// 7. Start the periodic sync scheduler.
	scheduler := application.NewSyncScheduler(vercelWorker, githubWorker, cfg.SyncInterval)
	go scheduler.Start(ctx)

	// 8. HTTP handler and routes.
	apiHandler := httphandler.NewHandler(httphandler.HandlerConfig{
		Projects:      projectStore,
		Snapshots:     snapshotStore,
		History:       historyStore,
		WorkerRuns:    workerRunStore,
		CIRuns:        ciRunStore,
		VercelWorker:  vercelWorker,
		GitHubWorker:  githubWorker,
		WebhookSvc:    webhookSvc,
		CISvc:         ciSvc,
		PrioritySvc:   prioritySvc,
		CronSecret:    cfg.CronSecret,
		WebhookSecret: cfg.VercelWebhookSecret,
		CIIngestToken: cfg.CIIngestToken,
		Production:    cfg.IsProduction(),
		Logger:        slog.Default(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("panopticron started",
		"listen_addr", cfg.ListenAddr,
		"sync_interval", cfg.SyncInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
