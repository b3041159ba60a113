package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/notification"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/repository/document"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type testRepos struct {
	store        *docstore.MemoryStore
	competitions *document.CompetitionRepository
	matches      *document.MatchRepository
	participants *document.ParticipantRepository
	predictions  *document.PredictionRepository
}

func newTestRepos() testRepos {
	store := docstore.NewMemoryStore()
	logger := logging.NewNop()
	return testRepos{
		store:        store,
		competitions: document.NewCompetitionRepository(store, logger),
		matches:      document.NewMatchRepository(store, logger),
		participants: document.NewParticipantRepository(store, logger),
		predictions:  document.NewPredictionRepository(store, logger),
	}
}

func (r testRepos) seed(t *testing.T, collection, id string, data map[string]any) {
	t.Helper()
	if err := r.store.Seed(collection, id, data); err != nil {
		t.Fatalf("seed %s/%s: %v", collection, id, err)
	}
}

func (r testRepos) doc(t *testing.T, collection, id string) map[string]any {
	t.Helper()
	out, err := r.store.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("get %s/%s: %v", collection, id, err)
	}
	return out.Data
}

type recordingMetrics struct {
	mu             sync.Mutex
	runs           int
	tasks          map[string]int
	matchesUpdated int
	writes         map[string]int
	feedErrors     map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		tasks:      map[string]int{},
		writes:     map[string]int{},
		feedErrors: map[string]int{},
	}
}

func (m *recordingMetrics) IncSyncRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
}

func (m *recordingMetrics) ObserveCompetitionTask(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[status]++
}

func (m *recordingMetrics) AddMatchesUpdated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesUpdated += n
}

func (m *recordingMetrics) AddLeaderboardWrites(kind string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes[kind] += n
}

func (m *recordingMetrics) IncFeedError(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedErrors[provider]++
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.LeaderboardUpdated
}

func (n *recordingNotifier) NotifyLeaderboardUpdated(_ context.Context, event notification.LeaderboardUpdated) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}
