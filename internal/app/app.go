package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/prediction-league/external/cricapi"
	"github.com/riskibarqy/prediction-league/external/sportmonks"
	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/feed"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/notify"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/document"
	"github.com/riskibarqy/prediction-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/prediction-league/internal/observability"
	"github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

// App holds the wired worker: services plus the store they share.
type App struct {
	Sync       *usecase.SyncOrchestratorService
	Duplicates *usecase.DuplicateReportService
	Metrics    *observability.SyncMetrics

	store  docstore.Store
	logger *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var competitions competition.Repository = document.NewCompetitionRepository(store, logger)
	if cfg.CacheEnabled {
		competitions = cache.NewCompetitionRepository(competitions, cfg.CacheTTL)
	}
	matches := document.NewMatchRepository(store, logger)
	participants := document.NewParticipantRepository(store, logger)
	predictions := document.NewPredictionRepository(store, logger)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	metrics := observability.NewSyncMetrics()
	var syncMetrics usecase.SyncMetrics
	if cfg.MetricsEnabled {
		syncMetrics = metrics
	}

	feeds := usecase.NewFeedRouter(newCricketFeed(cfg, logger), newFootballFeed(cfg, logger))
	reconciler := usecase.NewReconcileService(competitions, matches, feeds, nil, syncMetrics, logger.Named("reconcile"))
	leaderboard := usecase.NewLeaderboardService(
		competitions,
		matches,
		participants,
		predictions,
		notifier,
		syncMetrics,
		cfg.BatchLimit,
		logger.Named("leaderboard"),
	)
	syncSvc := usecase.NewSyncOrchestratorService(
		competitions,
		reconciler,
		leaderboard,
		id.NewUUIDGenerator(),
		syncMetrics,
		usecase.SyncOrchestratorConfig{MaxWorkers: cfg.SyncMaxWorkers},
		logger.Named("sync"),
	)

	return &App{
		Sync:       syncSvc,
		Duplicates: usecase.NewDuplicateReportService(competitions, matches, logger.Named("duplicates")),
		Metrics:    metrics,
		store:      store,
		logger:     logger,
	}, nil
}

// NewHTTPServer exposes the job trigger routes of a wired app.
func (a *App) NewHTTPServer(cfg config.Config) (*http.Server, error) {
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = a.Metrics.Handler()
	}

	handler := httpapi.NewHandler(a.Sync, a.Duplicates, a.logger.Named("http"))
	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(handler, metricsHandler, a.logger, cfg.InternalJobToken),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close(ctx)
}

// newCricketFeed returns an untyped nil when disabled so the router sees no provider.
func newCricketFeed(cfg config.Config, logger *logging.Logger) feed.Provider {
	if !cfg.CricAPIEnabled {
		return nil
	}
	return cricapi.NewClient(cricapi.ClientConfig{
		BaseURL:           cfg.CricAPIBaseURL,
		APIKey:            cfg.CricAPIKey,
		Timeout:           cfg.CricAPITimeout,
		MaxRetries:        cfg.CricAPIMaxRetries,
		MaxPages:          cfg.CricAPIMaxPages,
		RequestsPerSecond: cfg.CricAPIRatePerSecond,
		CacheTTL:          cfg.CricAPICacheTTL,
		Logger:            logger.Named(cricapi.ProviderName),
		CircuitBreaker:    cfg.CricAPICircuitBreaker,
	})
}

func newFootballFeed(cfg config.Config, logger *logging.Logger) feed.Provider {
	if !cfg.SportMonksEnabled {
		return nil
	}
	return sportmonks.NewClient(sportmonks.ClientConfig{
		BaseURL:        cfg.SportMonksBaseURL,
		Token:          cfg.SportMonksToken,
		Timeout:        cfg.SportMonksTimeout,
		MaxRetries:     cfg.SportMonksMaxRetries,
		PastWindow:     cfg.SportMonksPastWindow,
		FutureWindow:   cfg.SportMonksFutureWindow,
		Logger:         logger.Named(sportmonks.ProviderName),
		CircuitBreaker: cfg.SportMonksCircuitBreaker,
	})
}

func newNotifier(cfg config.Config, logger *logging.Logger) (usecase.LeaderboardNotifier, error) {
	switch cfg.NotifyDriver {
	case config.NotifyQStash:
		return notify.NewQStashNotifier(notify.QStashConfig{
			BaseURL:        cfg.QStashBaseURL,
			Token:          cfg.QStashToken,
			TargetURL:      cfg.QStashTargetURL,
			Retries:        cfg.QStashRetries,
			ForwardToken:   cfg.InternalJobToken,
			CircuitBreaker: cfg.QStashCircuitBreaker,
		}, logger.Named("qstash")), nil
	case config.NotifyDiscord:
		notifier, err := notify.NewDiscordNotifier(notify.DiscordConfig{
			WebhookID:    cfg.DiscordWebhookID,
			WebhookToken: cfg.DiscordWebhookToken,
			Username:     cfg.DiscordUsername,
		}, logger.Named("discord"))
		if err != nil {
			return nil, fmt.Errorf("build discord notifier: %w", err)
		}
		return notifier, nil
	default:
		return nil, nil
	}
}
