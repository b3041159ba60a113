package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/riskibarqy/prediction-league/internal/config"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

const testSeed = `{
  "competitions": {
    "c1": {"name": "World Cup Predictor", "sport": "cricket", "leagueId": ""}
  },
  "competitions/c1/matches": {
    "m1": {"team1Name": "India", "team2Name": "Australia", "status": "Scheduled", "scheduledTime": "2026-10-20T09:30:00Z"},
    "m2": {"team1Name": "India", "team2Name": "Australia", "status": "Scheduled", "scheduledTime": "2026-10-20T09:30:00Z"}
  }
}`

func memoryConfig(t *testing.T) config.Config {
	t.Helper()

	seedPath := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(seedPath, []byte(testSeed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	return config.Config{
		HTTPAddr:         ":0",
		InternalJobToken: "token",
		StoreDriver:      config.StoreMemory,
		SeedFile:         seedPath,
		CacheEnabled:     true,
		MetricsEnabled:   true,
		SyncMaxWorkers:   2,
		BatchLimit:       450,
	}
}

func TestNew_MemoryStoreWithSeed(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(t), logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() { _ = a.Close(ctx) }()

	report, err := a.Duplicates.Report(ctx, "c1")
	if err != nil {
		t.Fatalf("duplicate report: %v", err)
	}
	if report.MatchCount != 2 || len(report.Groups) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := a.Duplicates.Report(ctx, "missing"); !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNew_RejectsUnknownStore(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StoreDriver = "sqlite"
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for unsupported store driver")
	}
}

func TestNew_MissingSeedFile(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "absent.json")
	if _, err := New(context.Background(), cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing seed file")
	}
}

func TestFeedsAreNilWhenDisabled(t *testing.T) {
	cfg := config.Config{}
	if p := newCricketFeed(cfg, logging.NewNop()); p != nil {
		t.Fatalf("expected nil cricket feed, got %T", p)
	}
	if p := newFootballFeed(cfg, logging.NewNop()); p != nil {
		t.Fatalf("expected nil football feed, got %T", p)
	}

	cfg.CricAPIEnabled = true
	cfg.CricAPIKey = "key"
	if p := newCricketFeed(cfg, logging.NewNop()); p == nil || p.Name() != "cricapi" {
		t.Fatalf("expected cricapi feed, got %v", p)
	}
}

func TestNewNotifier_ByDriver(t *testing.T) {
	n, err := newNotifier(config.Config{NotifyDriver: config.NotifyNone}, logging.NewNop())
	if err != nil || n != nil {
		t.Fatalf("expected no notifier, got %v err=%v", n, err)
	}

	n, err = newNotifier(config.Config{
		NotifyDriver:    config.NotifyQStash,
		QStashBaseURL:   "https://qstash.upstash.io",
		QStashToken:     "t",
		QStashTargetURL: "https://hooks.example.com/leaderboard",
	}, logging.NewNop())
	if err != nil || n == nil {
		t.Fatalf("expected qstash notifier, got %v err=%v", n, err)
	}

	if _, err := newNotifier(config.Config{NotifyDriver: config.NotifyDiscord}, logging.NewNop()); err == nil {
		t.Fatal("expected discord notifier to require webhook credentials")
	}
}

func TestNewHTTPServer_ServesHealthAndMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	a, err := New(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer func() { _ = a.Close(ctx) }()

	srv, err := a.NewHTTPServer(cfg)
	if err != nil {
		t.Fatalf("new http server: %v", err)
	}

	for _, path := range []string{"/healthz", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status %d", path, rec.Code)
		}
	}

	cfg.HTTPAddr = " "
	if _, err := a.NewHTTPServer(cfg); err == nil {
		t.Fatal("expected error for empty addr")
	}
}
