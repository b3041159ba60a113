package document

import (
	"context"
	"fmt"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type MatchRepository struct {
	store  docstore.Store
	logger *logging.Logger
}

func NewMatchRepository(store docstore.Store, logger *logging.Logger) *MatchRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchRepository{store: store, logger: logger}
}

func (r *MatchRepository) ListByCompetition(ctx context.Context, competitionID string, sport match.Sport) ([]match.Match, error) {
	collection := matchesCollection(competitionID)
	docs, err := r.store.GetAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list matches competition=%s: %w", competitionID, err)
	}

	rows, ids := decodeAll[matchDocument](docs, r.logger, collection)
	out := make([]match.Match, 0, len(rows))
	for i, row := range rows {
		out = append(out, row.toDomain(ids[i], competitionID, sport))
	}
	return out, nil
}

func (r *MatchRepository) ApplyUpdates(ctx context.Context, competitionID string, updates []match.Update) error {
	collection := matchesCollection(competitionID)
	batch := docstore.NewBatch(r.store)
	for _, update := range updates {
		if update.Empty() {
			continue
		}
		fields := map[string]any{}
		if update.Status != nil {
			fields["status"] = *update.Status
		}
		if update.ActualScore != nil {
			fields["actualScore"] = actualScoreFields(update.ActualScore)
		}
		batch.Update(collection, update.MatchID, fields)
	}

	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("apply %d match updates competition=%s: %w", batch.Len(), competitionID, err)
	}
	return nil
}
