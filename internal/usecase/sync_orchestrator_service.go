package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/platform/id"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/sourcegraph/conc/panics"
)

const (
	syncStatusSuccess = "success"
	syncStatusFailed  = "failed"
	syncStatusSkipped = "skipped"

	defaultSyncMaxWorkers = 4
)

type SyncRunResult struct {
	RunID            string                  `json:"run_id"`
	StartedAt        time.Time               `json:"started_at"`
	DurationMs       int64                   `json:"duration_ms"`
	CompetitionCount int                     `json:"competition_count"`
	TaskCount        int                     `json:"task_count"`
	SuccessCount     int                     `json:"success_count"`
	FailedCount      int                     `json:"failed_count"`
	SkippedCount     int                     `json:"skipped_count"`
	WorkerCount      int                     `json:"worker_count"`
	Tasks            []CompetitionTaskResult `json:"tasks"`
}

type CompetitionTaskResult struct {
	CompetitionID     string `json:"competition_id"`
	LeagueID          string `json:"league_id"`
	Sport             string `json:"sport"`
	Status            string `json:"status"`
	MatchesUpdated    int    `json:"matches_updated"`
	Recalculated      bool   `json:"recalculated"`
	ParticipantWrites int    `json:"participant_writes"`
	PredictionWrites  int    `json:"prediction_writes"`
	FeedUnavailable   bool   `json:"feed_unavailable,omitempty"`
	DurationMs        int64  `json:"duration_ms"`
	Message           string `json:"message,omitempty"`
}

type competitionReconciler interface {
	Reconcile(ctx context.Context, comp competition.Competition) (ReconcileResult, error)
}

type leaderboardRecalculator interface {
	Recalculate(ctx context.Context, comp competition.Competition) (LeaderboardResult, error)
	RecalculateByID(ctx context.Context, competitionID string) (LeaderboardResult, error)
}

type SyncOrchestratorConfig struct {
	MaxWorkers int
}

type SyncOrchestratorService struct {
	competitions competition.Repository
	reconciler   competitionReconciler
	leaderboard  leaderboardRecalculator
	ids          id.Generator
	metrics      SyncMetrics
	cfg          SyncOrchestratorConfig
	logger       *logging.Logger
}

func NewSyncOrchestratorService(
	competitions competition.Repository,
	reconciler competitionReconciler,
	leaderboard leaderboardRecalculator,
	ids id.Generator,
	metrics SyncMetrics,
	cfg SyncOrchestratorConfig,
	logger *logging.Logger,
) *SyncOrchestratorService {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultSyncMaxWorkers
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &SyncOrchestratorService{
		competitions: competitions,
		reconciler:   reconciler,
		leaderboard:  leaderboard,
		ids:          ids,
		metrics:      metrics,
		cfg:          cfg,
		logger:       logger,
	}
}

// RunSync performs one pass over every competition linked to a feed. Each
// competition is reconciled then, when matches changed, recalculated. A
// failing or panicking competition never affects its siblings.
func (s *SyncOrchestratorService) RunSync(ctx context.Context) (SyncRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncOrchestratorService.RunSync")
	defer span.End()

	started := time.Now()
	runID, err := s.ids.NewID()
	if err != nil {
		return SyncRunResult{}, fmt.Errorf("generate sync run id: %w", err)
	}
	logger := s.logger.With("run_id", runID)
	s.metrics.IncSyncRun()

	items, err := s.competitions.List(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "list competitions failed, sync pass skipped", "error", err)
		return SyncRunResult{}, fmt.Errorf("%w: list competitions: %w", ErrDependencyUnavailable, err)
	}

	targets := make([]competition.Competition, 0, len(items))
	for _, item := range items {
		if item.Syncable() {
			targets = append(targets, item)
		}
	}

	workerCount := normalizeSyncWorkerCount(s.cfg.MaxWorkers, len(targets))
	result := SyncRunResult{
		RunID:            runID,
		StartedAt:        started.UTC(),
		CompetitionCount: len(items),
		TaskCount:        len(targets),
		WorkerCount:      workerCount,
		Tasks:            make([]CompetitionTaskResult, 0, len(targets)),
	}
	if len(targets) == 0 {
		result.DurationMs = time.Since(started).Milliseconds()
		return result, nil
	}

	results := make(chan CompetitionTaskResult, len(targets))

	var successCount atomic.Int32
	var failedCount atomic.Int32
	var skippedCount atomic.Int32

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return SyncRunResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var workers sync.WaitGroup
	for _, target := range targets {
		target := target
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			row := s.runCompetitionTask(ctx, logger, target)
			switch row.Status {
			case syncStatusSuccess:
				successCount.Add(1)
			case syncStatusSkipped:
				skippedCount.Add(1)
			default:
				failedCount.Add(1)
			}
			s.metrics.ObserveCompetitionTask(row.Status, time.Duration(row.DurationMs)*time.Millisecond)
			results <- row
		}); err != nil {
			workers.Done()
			return SyncRunResult{}, fmt.Errorf("submit task to worker pool: %w", err)
		}
	}

	workers.Wait()
	close(results)

	for row := range results {
		result.Tasks = append(result.Tasks, row)
	}
	sort.SliceStable(result.Tasks, func(i, j int) bool {
		return result.Tasks[i].CompetitionID < result.Tasks[j].CompetitionID
	})

	result.SuccessCount = int(successCount.Load())
	result.FailedCount = int(failedCount.Load())
	result.SkippedCount = int(skippedCount.Load())
	result.DurationMs = time.Since(started).Milliseconds()

	logger.InfoContext(ctx, "sync pass finished",
		"competitions", result.CompetitionCount,
		"tasks", result.TaskCount,
		"success", result.SuccessCount,
		"failed", result.FailedCount,
		"skipped", result.SkippedCount,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// RecalculateCompetition recomputes one leaderboard without touching the feed.
func (s *SyncOrchestratorService) RecalculateCompetition(ctx context.Context, competitionID string) (LeaderboardResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SyncOrchestratorService.RecalculateCompetition")
	defer span.End()

	return s.leaderboard.RecalculateByID(ctx, competitionID)
}

func (s *SyncOrchestratorService) runCompetitionTask(
	ctx context.Context,
	logger *logging.Logger,
	comp competition.Competition,
) (row CompetitionTaskResult) {
	start := time.Now()
	row = CompetitionTaskResult{
		CompetitionID: comp.ID,
		LeagueID:      comp.LeagueID,
		Sport:         string(comp.ResolvedSport()),
	}

	var catcher panics.Catcher
	catcher.Try(func() {
		row = s.syncCompetition(ctx, logger, comp, row)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		logger.ErrorContext(ctx, "competition sync panicked",
			"competition_id", comp.ID,
			"panic", fmt.Sprint(recovered.Value),
			"stack", string(recovered.Stack),
		)
		row.Status = syncStatusFailed
		row.Message = recovered.AsError().Error()
	}

	row.DurationMs = time.Since(start).Milliseconds()
	return row
}

func (s *SyncOrchestratorService) syncCompetition(
	ctx context.Context,
	logger *logging.Logger,
	comp competition.Competition,
	row CompetitionTaskResult,
) CompetitionTaskResult {
	reconciled, err := s.reconciler.Reconcile(ctx, comp)
	if err != nil {
		logger.ErrorContext(ctx, "reconcile competition failed", "competition_id", comp.ID, "error", err)
		row.Status = syncStatusFailed
		row.Message = err.Error()
		return row
	}
	row.MatchesUpdated = reconciled.UpdatedCount
	row.FeedUnavailable = reconciled.FeedUnavailable

	if reconciled.UpdatedCount == 0 {
		row.Status = syncStatusSkipped
		if reconciled.FeedUnavailable {
			row.Message = "feed unavailable"
		} else {
			row.Message = "no match changes"
		}
		return row
	}

	board, err := s.leaderboard.Recalculate(ctx, comp)
	row.ParticipantWrites = board.ParticipantWrites
	row.PredictionWrites = board.PredictionWrites
	if err != nil {
		logger.ErrorContext(ctx, "recalculate leaderboard failed", "competition_id", comp.ID, "error", err)
		row.Status = syncStatusFailed
		row.Message = err.Error()
		return row
	}
	row.Recalculated = true
	row.Status = syncStatusSuccess
	return row
}

func normalizeSyncWorkerCount(requested, tasks int) int {
	if requested <= 0 {
		requested = defaultSyncMaxWorkers
	}
	if tasks > 0 && requested > tasks {
		return tasks
	}
	if requested < 1 {
		return 1
	}
	return requested
}
