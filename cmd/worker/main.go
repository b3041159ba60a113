package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/riskibarqy/prediction-league/internal/app"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/observability"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/robfig/cron"
)

func main() {
	recalculate := flag.String("recalculate", "", "recalculate one competition leaderboard and exit")
	once := flag.Bool("once", false, "run a single sync pass and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	stopProfiling, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	exitCode := 0
	switch {
	case *recalculate != "":
		exitCode = runRecalculate(ctx, worker, *recalculate, logger)
	case *once:
		exitCode = runOnce(ctx, worker, logger)
	default:
		exitCode = serve(ctx, cfg, worker, logger)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := worker.Close(flushCtx); err != nil {
		logger.Warn("close store failed", "error", err)
	}
	if err := stopProfiling(); err != nil {
		logger.Warn("stop pyroscope failed", "error", err)
	}
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("shutdown uptrace failed", "error", err)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func runRecalculate(ctx context.Context, worker *app.App, competitionID string, logger *logging.Logger) int {
	result, err := worker.Sync.RecalculateCompetition(ctx, competitionID)
	if err != nil {
		logger.Error("recalculate competition failed", "competition_id", competitionID, "error", err)
		return 1
	}
	logger.Info("competition recalculated",
		"competition_id", result.CompetitionID,
		"participants", result.ParticipantCount,
		"participant_writes", result.ParticipantWrites,
		"prediction_writes", result.PredictionWrites,
	)
	return 0
}

func runOnce(ctx context.Context, worker *app.App, logger *logging.Logger) int {
	result, err := worker.Sync.RunSync(ctx)
	if err != nil {
		logger.Error("sync run failed", "error", err)
		return 1
	}
	if result.FailedCount > 0 {
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, worker *app.App, logger *logging.Logger) int {
	var running atomic.Bool
	runSync := func(trigger string) {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("sync run skipped, previous run still active", "trigger", trigger)
			return
		}
		defer running.Store(false)

		started := time.Now()
		result, err := worker.Sync.RunSync(ctx)
		if err != nil {
			logger.Error("sync run failed", "trigger", trigger, "error", err)
			return
		}
		logger.Info("sync run finished",
			"trigger", trigger,
			"run_id", result.RunID,
			"competitions", result.CompetitionCount,
			"failed", result.FailedCount,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}

	scheduler := cron.New()
	if err := scheduler.AddFunc(cfg.SyncSchedule, func() { runSync("cron") }); err != nil {
		logger.Error("invalid SYNC_SCHEDULE", "schedule", cfg.SyncSchedule, "error", err)
		return 1
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("sync scheduler started", "schedule", cfg.SyncSchedule)

	if cfg.SyncOnStart {
		go runSync("startup")
	}

	srv, err := worker.NewHTTPServer(cfg)
	if err != nil {
		logger.Error("build http server", "error", err)
		return 1
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("http server failed", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}
	logger.Info("worker stopped")
	return exitCode
}
