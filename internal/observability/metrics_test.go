package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

var _ usecase.SyncMetrics = (*SyncMetrics)(nil)

func TestSyncMetrics_RecordsCounters(t *testing.T) {
	t.Parallel()

	m := NewSyncMetrics()
	m.IncSyncRun()
	m.ObserveCompetitionTask("success", 2*time.Second)
	m.ObserveCompetitionTask("failed", time.Second)
	m.ObserveCompetitionTask("success", time.Second)
	m.AddMatchesUpdated(3)
	m.AddMatchesUpdated(0)
	m.AddLeaderboardWrites("participants", 4)
	m.IncFeedError("cricapi")

	if got := testutil.ToFloat64(m.syncRuns); got != 1 {
		t.Fatalf("sync runs = %v", got)
	}
	if got := testutil.ToFloat64(m.competitionRuns.WithLabelValues("success")); got != 2 {
		t.Fatalf("success tasks = %v", got)
	}
	if got := testutil.ToFloat64(m.matchesUpdated); got != 3 {
		t.Fatalf("matches updated = %v", got)
	}
	if got := testutil.ToFloat64(m.writes.WithLabelValues("participants")); got != 4 {
		t.Fatalf("participant writes = %v", got)
	}
	if got := testutil.ToFloat64(m.feedErrors.WithLabelValues("cricapi")); got != 1 {
		t.Fatalf("feed errors = %v", got)
	}
}

func TestSyncMetrics_HandlerExposesRegistry(t *testing.T) {
	t.Parallel()

	m := NewSyncMetrics()
	m.IncSyncRun()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "prediction_league_sync_runs_total 1") {
		t.Fatalf("expected sync counter in output:\n%s", body)
	}
}
