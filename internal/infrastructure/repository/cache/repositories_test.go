package cache

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
)

type countingCompetitionRepo struct {
	listCalls  int
	getCalls   int
	teamsCalls int
}

func (r *countingCompetitionRepo) List(context.Context) ([]competition.Competition, error) {
	r.listCalls++
	return []competition.Competition{{ID: "c1", LeagueID: "ipl"}}, nil
}

func (r *countingCompetitionRepo) GetByID(_ context.Context, id string) (competition.Competition, bool, error) {
	r.getCalls++
	if id != "c1" {
		return competition.Competition{}, false, nil
	}
	return competition.Competition{ID: "c1"}, true, nil
}

func (r *countingCompetitionRepo) ListTeams(context.Context, string) ([]competition.Team, error) {
	r.teamsCalls++
	return []competition.Team{{ID: "t1", Name: "Chennai"}}, nil
}

func TestCompetitionRepository_CachesLoads(t *testing.T) {
	t.Parallel()

	next := &countingCompetitionRepo{}
	repo := NewCompetitionRepository(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := repo.List(ctx)
		if err != nil || len(items) != 1 {
			t.Fatalf("list: items=%v err=%v", items, err)
		}
		items[0].ID = "mutated"

		if _, exists, err := repo.GetByID(ctx, "missing"); err != nil || exists {
			t.Fatalf("get missing: exists=%v err=%v", exists, err)
		}
		if _, err := repo.ListTeams(ctx, "c1"); err != nil {
			t.Fatalf("list teams: %v", err)
		}
	}

	if next.listCalls != 1 || next.getCalls != 1 || next.teamsCalls != 1 {
		t.Fatalf("expected one load per key, got list=%d get=%d teams=%d", next.listCalls, next.getCalls, next.teamsCalls)
	}

	items, _ := repo.List(ctx)
	if items[0].ID != "c1" {
		t.Fatalf("expected cached slice to be isolated from callers, got %q", items[0].ID)
	}
}
