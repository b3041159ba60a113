package docstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	crerr "github.com/cockroachdb/errors"
)

func TestMemoryStore_CommitIsAtomic(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Seed("predictions", "p1", map[string]any{"points": 0}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := NewBatch(store).
		Update("predictions", "p1", map[string]any{"points": 5}).
		Update("predictions", "missing", map[string]any{"points": 3}).
		Commit(context.Background())
	if !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	doc, err := store.Get(context.Background(), "predictions", "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["points"] != float64(0) {
		t.Fatalf("expected unchanged points after failed batch, got %v", doc.Data["points"])
	}
	if stats := store.Stats(); stats.Commits != 0 || stats.Writes != 0 {
		t.Fatalf("expected no recorded writes, got %+v", stats)
	}
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if err := store.Seed("matches", "m1", map[string]any{"status": "live", "team1Id": "a"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := NewBatch(store).
		Update("matches", "m1", map[string]any{"status": "completed"}).
		Set("matches", "m2", map[string]any{"status": "scheduled"}).
		Commit(context.Background())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	doc, err := store.Get(context.Background(), "matches", "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["status"] != "completed" || doc.Data["team1Id"] != "a" {
		t.Fatalf("unexpected merged document: %+v", doc.Data)
	}

	all, err := store.GetAll(context.Background(), "matches")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "m1" || all[1].ID != "m2" {
		t.Fatalf("expected sorted m1,m2, got %+v", all)
	}
	if stats := store.Stats(); stats.Commits != 1 || stats.Writes != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMemoryStore_QueryMatchesNormalizedValues(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_ = store.Seed("predictions", "p1", map[string]any{"competitionId": "c1", "points": 3})
	_ = store.Seed("predictions", "p2", map[string]any{"competitionId": "c2", "points": 3})
	_ = store.Seed("predictions", "p3", map[string]any{"competitionId": "c1", "points": 0})

	byCompetition, err := store.Query(context.Background(), "predictions", "competitionId", "c1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byCompetition) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(byCompetition))
	}

	byPoints, err := store.Query(context.Background(), "predictions", "points", 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byPoints) != 2 {
		t.Fatalf("expected int query to match decoded numbers, got %d", len(byPoints))
	}
}

func TestMemoryStore_ReadsReturnCopies(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	_ = store.Seed("competitions", "c1", map[string]any{"name": "IPL"})

	doc, _ := store.Get(context.Background(), "competitions", "c1")
	doc.Data["name"] = "mutated"

	again, _ := store.Get(context.Background(), "competitions", "c1")
	if again.Data["name"] != "IPL" {
		t.Fatalf("expected stored document to be isolated from callers, got %v", again.Data["name"])
	}
}

func TestBatch_RejectsInvalidOps(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	err := NewBatch(store).Update("matches", " ", map[string]any{"status": "live"}).Commit(context.Background())
	if !crerr.Is(err, ErrInvalidBatch) {
		t.Fatalf("expected ErrInvalidBatch, got %v", err)
	}

	if err := NewBatch(store).Commit(context.Background()); err != nil {
		t.Fatalf("empty batch should be a no-op, got %v", err)
	}
	if stats := store.Stats(); stats.Commits != 0 {
		t.Fatalf("expected no commits, got %+v", stats)
	}
}

func TestMemoryStore_LoadSeedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.json")
	body := `{"competitions":{"c1":{"name":"IPL","leagueId":"ipl-2026"}},"competitions/c1/teams":{"t1":{"name":"Chennai"}}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	store := NewMemoryStore()
	if err := store.LoadSeedFile(path); err != nil {
		t.Fatalf("load seed: %v", err)
	}

	teams, err := store.GetAll(context.Background(), Path("competitions", "c1", "teams"))
	if err != nil {
		t.Fatalf("get teams: %v", err)
	}
	if len(teams) != 1 || teams[0].Data["name"] != "Chennai" {
		t.Fatalf("unexpected teams: %+v", teams)
	}
}

func TestDocument_Decode(t *testing.T) {
	t.Parallel()

	doc := Document{ID: "c1", Data: map[string]any{"name": "IPL", "rules": map[string]any{"correctWinner": 4}}}
	var target struct {
		Name  string `json:"name"`
		Rules struct {
			CorrectWinner int `json:"correctWinner"`
		} `json:"rules"`
	}
	if err := doc.Decode(&target); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if target.Name != "IPL" || target.Rules.CorrectWinner != 4 {
		t.Fatalf("unexpected decode result: %+v", target)
	}
}
