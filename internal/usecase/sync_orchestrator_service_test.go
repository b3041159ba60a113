package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	competitionmock "github.com/riskibarqy/prediction-league/internal/mocks/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/stretchr/testify/mock"
)

type stubReconciler struct {
	mu      sync.Mutex
	calls   []string
	results map[string]ReconcileResult
	errs    map[string]error
	panics  map[string]bool
}

func (s *stubReconciler) Reconcile(_ context.Context, comp competition.Competition) (ReconcileResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, comp.ID)
	s.mu.Unlock()

	if s.panics[comp.ID] {
		panic("boom " + comp.ID)
	}
	if err := s.errs[comp.ID]; err != nil {
		return ReconcileResult{CompetitionID: comp.ID}, err
	}
	return s.results[comp.ID], nil
}

type stubLeaderboard struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *stubLeaderboard) Recalculate(_ context.Context, comp competition.Competition) (LeaderboardResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, comp.ID)
	s.mu.Unlock()
	if s.err != nil {
		return LeaderboardResult{CompetitionID: comp.ID}, s.err
	}
	return LeaderboardResult{CompetitionID: comp.ID, ParticipantWrites: 2, PredictionWrites: 5}, nil
}

func (s *stubLeaderboard) RecalculateByID(_ context.Context, competitionID string) (LeaderboardResult, error) {
	return LeaderboardResult{CompetitionID: competitionID, ParticipantWrites: 1}, nil
}

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "run-1", nil }

func TestSyncOrchestratorService_RunSyncIsolatesCompetitions(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	repo.On("List", mock.Anything).Return([]competition.Competition{
		{ID: "a", LeagueID: "ipl"},
		{ID: "b", LeagueID: "epl"},
		{ID: "c", LeagueID: "cwc"},
		{ID: "d", LeagueID: "bbl"},
		{ID: "manual", LeagueID: " "},
	}, nil).Once()

	reconciler := &stubReconciler{
		results: map[string]ReconcileResult{
			"a": {CompetitionID: "a", UpdatedCount: 3},
			"d": {CompetitionID: "d", FeedUnavailable: true},
		},
		errs:   map[string]error{"b": ErrReconciliation},
		panics: map[string]bool{"c": true},
	}
	leaderboard := &stubLeaderboard{}
	metrics := newRecordingMetrics()

	svc := NewSyncOrchestratorService(repo, reconciler, leaderboard, fixedIDs{}, metrics, SyncOrchestratorConfig{MaxWorkers: 2}, logging.NewNop())
	result, err := svc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}

	if result.RunID != "run-1" || result.CompetitionCount != 5 || result.TaskCount != 4 || result.WorkerCount != 2 {
		t.Fatalf("unexpected summary: %+v", result)
	}
	if result.SuccessCount != 1 || result.FailedCount != 2 || result.SkippedCount != 1 {
		t.Fatalf("unexpected status counts: %+v", result)
	}

	byID := map[string]CompetitionTaskResult{}
	for _, row := range result.Tasks {
		byID[row.CompetitionID] = row
	}
	if row := byID["a"]; !row.Recalculated || row.MatchesUpdated != 3 || row.PredictionWrites != 5 {
		t.Fatalf("unexpected row a: %+v", row)
	}
	if row := byID["c"]; row.Status != syncStatusFailed || row.Message == "" {
		t.Fatalf("expected panic to fail only c, got %+v", row)
	}
	if row := byID["d"]; row.Status != syncStatusSkipped || !row.FeedUnavailable {
		t.Fatalf("unexpected row d: %+v", row)
	}
	if result.Tasks[0].CompetitionID != "a" || result.Tasks[3].CompetitionID != "d" {
		t.Fatalf("expected tasks sorted by competition id, got %+v", result.Tasks)
	}

	if len(leaderboard.calls) != 1 || leaderboard.calls[0] != "a" {
		t.Fatalf("expected recalculation only for changed competition, got %v", leaderboard.calls)
	}
	if metrics.runs != 1 || metrics.tasks[syncStatusFailed] != 2 {
		t.Fatalf("unexpected metrics: runs=%d tasks=%+v", metrics.runs, metrics.tasks)
	}
}

func TestSyncOrchestratorService_ListFailureSkipsPass(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	repo.On("List", mock.Anything).Return(nil, errors.New("store offline")).Once()

	reconciler := &stubReconciler{}
	svc := NewSyncOrchestratorService(repo, reconciler, &stubLeaderboard{}, fixedIDs{}, nil, SyncOrchestratorConfig{}, logging.NewNop())
	_, err := svc.RunSync(context.Background())
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if len(reconciler.calls) != 0 {
		t.Fatalf("expected no reconciliation, got %v", reconciler.calls)
	}
}

func TestSyncOrchestratorService_LeaderboardFailureMarksTaskFailed(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	repo.On("List", mock.Anything).Return([]competition.Competition{{ID: "a", LeagueID: "ipl"}}, nil).Once()

	reconciler := &stubReconciler{results: map[string]ReconcileResult{"a": {UpdatedCount: 1}}}
	leaderboard := &stubLeaderboard{err: ErrAggregation}

	svc := NewSyncOrchestratorService(repo, reconciler, leaderboard, fixedIDs{}, nil, SyncOrchestratorConfig{}, logging.NewNop())
	result, err := svc.RunSync(context.Background())
	if err != nil {
		t.Fatalf("run sync: %v", err)
	}
	if result.FailedCount != 1 || result.Tasks[0].Recalculated {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncOrchestratorService_RecalculateCompetition(t *testing.T) {
	t.Parallel()

	repo := competitionmock.NewRepository(t)
	svc := NewSyncOrchestratorService(repo, &stubReconciler{}, &stubLeaderboard{}, nil, nil, SyncOrchestratorConfig{}, logging.NewNop())
	result, err := svc.RecalculateCompetition(context.Background(), "a")
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if result.CompetitionID != "a" || result.ParticipantWrites != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestNormalizeSyncWorkerCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		requested, tasks, want int
	}{
		{0, 10, defaultSyncMaxWorkers},
		{8, 3, 3},
		{2, 10, 2},
		{5, 0, 5},
	}
	for _, tc := range tests {
		if got := normalizeSyncWorkerCount(tc.requested, tc.tasks); got != tc.want {
			t.Fatalf("normalizeSyncWorkerCount(%d, %d) = %d, want %d", tc.requested, tc.tasks, got, tc.want)
		}
	}
}
