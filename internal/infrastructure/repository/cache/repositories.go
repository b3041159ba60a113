package cache

import (
	"context"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	basecache "github.com/riskibarqy/prediction-league/internal/platform/cache"
)

// CompetitionRepository caches competition metadata and team lists, which
// change far less often than the sync schedule runs.
type CompetitionRepository struct {
	next  competition.Repository
	list  *basecache.Store[[]competition.Competition]
	byID  *basecache.Store[cachedCompetitionByID]
	teams *basecache.Store[[]competition.Team]
}

type cachedCompetitionByID struct {
	value  competition.Competition
	exists bool
}

// NewCompetitionRepository wraps next. A non-positive ttl keeps entries for the
// process lifetime.
func NewCompetitionRepository(next competition.Repository, ttl time.Duration) *CompetitionRepository {
	return &CompetitionRepository{
		next:  next,
		list:  basecache.NewStore[[]competition.Competition](ttl),
		byID:  basecache.NewStore[cachedCompetitionByID](ttl),
		teams: basecache.NewStore[[]competition.Team](ttl),
	}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	items, err := r.list.GetOrLoad(ctx, "competition:list", func(ctx context.Context) ([]competition.Competition, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]competition.Competition(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]competition.Competition(nil), items...), nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, competitionID string) (competition.Competition, bool, error) {
	key := "competition:id:" + competitionID
	cached, err := r.byID.GetOrLoad(ctx, key, func(ctx context.Context) (cachedCompetitionByID, error) {
		item, exists, err := r.next.GetByID(ctx, competitionID)
		if err != nil {
			return cachedCompetitionByID{}, err
		}
		return cachedCompetitionByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return competition.Competition{}, false, err
	}
	return cached.value, cached.exists, nil
}

func (r *CompetitionRepository) ListTeams(ctx context.Context, competitionID string) ([]competition.Team, error) {
	key := "competition:teams:" + competitionID
	items, err := r.teams.GetOrLoad(ctx, key, func(ctx context.Context) ([]competition.Team, error) {
		items, err := r.next.ListTeams(ctx, competitionID)
		if err != nil {
			return nil, err
		}
		return append([]competition.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]competition.Team(nil), items...), nil
}
