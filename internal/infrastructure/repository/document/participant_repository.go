package document

import (
	"context"
	"fmt"

	"github.com/riskibarqy/prediction-league/internal/domain/participant"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type ParticipantRepository struct {
	store  docstore.Store
	logger *logging.Logger
}

func NewParticipantRepository(store docstore.Store, logger *logging.Logger) *ParticipantRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &ParticipantRepository{store: store, logger: logger}
}

func (r *ParticipantRepository) ListByCompetition(ctx context.Context, competitionID string) ([]participant.Participant, error) {
	collection := participantsCollection(competitionID)
	docs, err := r.store.GetAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list participants competition=%s: %w", competitionID, err)
	}

	rows, ids := decodeAll[participantDocument](docs, r.logger, collection)
	out := make([]participant.Participant, 0, len(rows))
	for i, row := range rows {
		out = append(out, row.toDomain(ids[i]))
	}
	return out, nil
}

func (r *ParticipantRepository) WriteStandings(ctx context.Context, competitionID string, updates []participant.StandingUpdate) error {
	collection := participantsCollection(competitionID)
	batch := docstore.NewBatch(r.store)
	for _, update := range updates {
		batch.Update(collection, update.ParticipantID, standingFields(update.Standing))
	}
	if err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("write %d standings competition=%s: %w", batch.Len(), competitionID, err)
	}
	return nil
}
