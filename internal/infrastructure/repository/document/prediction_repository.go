package document

import (
	"context"
	"fmt"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type PredictionRepository struct {
	store  docstore.Store
	logger *logging.Logger
}

func NewPredictionRepository(store docstore.Store, logger *logging.Logger) *PredictionRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionRepository{store: store, logger: logger}
}

func (r *PredictionRepository) ListByCompetition(ctx context.Context, competitionID string, sport match.Sport) ([]prediction.Prediction, error) {
	docs, err := r.store.Query(ctx, predictionsCollection, "competitionId", competitionID)
	if err != nil {
		return nil, fmt.Errorf("query predictions competition=%s: %w", competitionID, err)
	}

	rows, ids := decodeAll[predictionDocument](docs, r.logger, predictionsCollection)
	out := make([]prediction.Prediction, 0, len(rows))
	for i, row := range rows {
		item := row.toDomain(ids[i], sport)
		if item.CompetitionID == "" {
			item.CompetitionID = competitionID
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *PredictionRepository) WriteResults(ctx context.Context, results []prediction.Result) error {
	batch := docstore.NewBatch(r.store)
	for _, result := range results {
		batch.Update(predictionsCollection, result.PredictionID, resultFields(result))
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("write %d prediction results: %w", batch.Len(), err)
	}
	return nil
}
