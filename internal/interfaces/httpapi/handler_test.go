package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

const testJobToken = "job-secret"

type stubSyncRunner struct {
	mu           sync.Mutex
	runCalls     int
	recalculated []string
	runErr       error
	done         chan struct{}
}

func (s *stubSyncRunner) RunSync(_ context.Context) (usecase.SyncRunResult, error) {
	s.mu.Lock()
	s.runCalls++
	s.mu.Unlock()
	if s.done != nil {
		defer close(s.done)
	}
	if s.runErr != nil {
		return usecase.SyncRunResult{}, s.runErr
	}
	return usecase.SyncRunResult{RunID: "run-1", CompetitionCount: 2, SuccessCount: 2}, nil
}

func (s *stubSyncRunner) RecalculateCompetition(_ context.Context, competitionID string) (usecase.LeaderboardResult, error) {
	s.mu.Lock()
	s.recalculated = append(s.recalculated, competitionID)
	s.mu.Unlock()
	if competitionID == "missing" {
		return usecase.LeaderboardResult{}, fmt.Errorf("%w: competition %s", usecase.ErrNotFound, competitionID)
	}
	return usecase.LeaderboardResult{CompetitionID: competitionID, ParticipantCount: 3}, nil
}

type stubDuplicateReporter struct{}

func (stubDuplicateReporter) Report(_ context.Context, competitionID string) (usecase.DuplicateReport, error) {
	return usecase.DuplicateReport{
		CompetitionID: competitionID,
		MatchCount:    4,
		Groups: []usecase.DuplicateGroup{
			{Team1Name: "India", Team2Name: "Australia", ScheduledTime: "2026-10-14T09:30:00Z", MatchIDs: []string{"m1", "m2"}},
		},
	}, nil
}

func newTestRouter(runner SyncRunner) http.Handler {
	handler := NewHandler(runner, stubDuplicateReporter{}, logging.NewNop())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("prediction_league_sync_runs_total 0\n"))
	})
	return NewRouter(handler, metrics, logging.NewNop(), testJobToken)
}

func doRequest(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set(internalJobTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return body.Data
}

func TestRouter_HealthzAndMetricsAreOpen(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&stubSyncRunner{})

	if rec := doRequest(router, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	rec := doRequest(router, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sync_runs_total") {
		t.Fatalf("metrics status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouter_JobRoutesRequireToken(t *testing.T) {
	t.Parallel()

	runner := &stubSyncRunner{}
	router := newTestRouter(runner)

	if rec := doRequest(router, http.MethodPost, "/v1/internal/jobs/sync", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status %d", rec.Code)
	}
	if rec := doRequest(router, http.MethodPost, "/v1/internal/jobs/sync", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status %d", rec.Code)
	}
	if runner.runCalls != 0 {
		t.Fatalf("sync must not run without a valid token, got %d calls", runner.runCalls)
	}
}

func TestRouter_UnconfiguredTokenIsUnavailable(t *testing.T) {
	t.Parallel()

	router := NewRouter(NewHandler(&stubSyncRunner{}, stubDuplicateReporter{}, nil), nil, logging.NewNop(), "  ")
	rec := doRequest(router, http.MethodPost, "/v1/internal/jobs/sync", "", "anything")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRunSyncJob_Sync(t *testing.T) {
	t.Parallel()

	runner := &stubSyncRunner{}
	rec := doRequest(newTestRouter(runner), http.MethodPost, "/v1/internal/jobs/sync", "", testJobToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	if data["run_id"] != "run-1" {
		t.Fatalf("unexpected data %+v", data)
	}
	if runner.runCalls != 1 {
		t.Fatalf("expected one run, got %d", runner.runCalls)
	}
}

func TestRunSyncJob_Async(t *testing.T) {
	t.Parallel()

	runner := &stubSyncRunner{done: make(chan struct{})}
	rec := doRequest(newTestRouter(runner), http.MethodPost, "/v1/internal/jobs/sync", `{"async":true}`, testJobToken)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["status"] != "accepted" {
		t.Fatalf("unexpected data %+v", data)
	}

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("async sync run did not start")
	}
}

func TestRunSyncJob_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	rec := doRequest(newTestRouter(&stubSyncRunner{}), http.MethodPost, "/v1/internal/jobs/sync", `{"force":true}`, testJobToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRunSyncJob_PropagatesFailure(t *testing.T) {
	t.Parallel()

	runner := &stubSyncRunner{runErr: fmt.Errorf("%w: store down", usecase.ErrDependencyUnavailable)}
	rec := doRequest(newTestRouter(runner), http.MethodPost, "/v1/internal/jobs/sync", "", testJobToken)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRecalculateCompetitionJob(t *testing.T) {
	t.Parallel()

	runner := &stubSyncRunner{}
	router := newTestRouter(runner)

	rec := doRequest(router, http.MethodPost, "/v1/internal/jobs/competitions/comp-7/recalculate", "", testJobToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	if data := decodeData(t, rec); data["competition_id"] != "comp-7" {
		t.Fatalf("unexpected data %+v", data)
	}

	rec = doRequest(router, http.MethodPost, "/v1/internal/jobs/competitions/missing/recalculate", "", testJobToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	long := strings.Repeat("x", 129)
	rec = doRequest(router, http.MethodPost, "/v1/internal/jobs/competitions/"+long+"/recalculate", "", testJobToken)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized id, got %d", rec.Code)
	}
	if len(runner.recalculated) != 2 {
		t.Fatalf("expected two recalculations, got %v", runner.recalculated)
	}
}

func TestGetDuplicateReport(t *testing.T) {
	t.Parallel()

	rec := doRequest(newTestRouter(&stubSyncRunner{}), http.MethodGet, "/v1/internal/competitions/comp-1/duplicates", "", testJobToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	groups, ok := data["groups"].([]any)
	if !ok || len(groups) != 1 {
		t.Fatalf("unexpected groups %+v", data["groups"])
	}
}

func TestRecoverPanic_WritesInternalError(t *testing.T) {
	t.Parallel()

	h := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
