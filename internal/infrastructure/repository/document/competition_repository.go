package document

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type CompetitionRepository struct {
	store  docstore.Store
	logger *logging.Logger
}

func NewCompetitionRepository(store docstore.Store, logger *logging.Logger) *CompetitionRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &CompetitionRepository{store: store, logger: logger}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	docs, err := r.store.GetAll(ctx, competitionsCollection)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}

	rows, ids := decodeAll[competitionDocument](docs, r.logger, competitionsCollection)
	out := make([]competition.Competition, 0, len(rows))
	for i, row := range rows {
		out = append(out, row.toDomain(ids[i]))
	}
	return out, nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, competitionID string) (competition.Competition, bool, error) {
	doc, err := r.store.Get(ctx, competitionsCollection, competitionID)
	if err != nil {
		if crerr.Is(err, docstore.ErrNotFound) {
			return competition.Competition{}, false, nil
		}
		return competition.Competition{}, false, fmt.Errorf("get competition %s: %w", competitionID, err)
	}

	var row competitionDocument
	if err := decodeOne(doc, &row); err != nil {
		return competition.Competition{}, false, fmt.Errorf("decode competition %s: %w", competitionID, err)
	}
	return row.toDomain(doc.ID), true, nil
}

func (r *CompetitionRepository) ListTeams(ctx context.Context, competitionID string) ([]competition.Team, error) {
	collection := teamsCollection(competitionID)
	docs, err := r.store.GetAll(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list teams competition=%s: %w", competitionID, err)
	}

	rows, ids := decodeAll[teamDocument](docs, r.logger, collection)
	out := make([]competition.Team, 0, len(rows))
	for i, row := range rows {
		out = append(out, competition.Team{
			ID:        ids[i],
			Name:      row.Name,
			ShortName: row.ShortName,
		})
	}
	return out, nil
}
