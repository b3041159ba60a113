package prediction

import (
	"context"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

type Repository interface {
	ListByCompetition(ctx context.Context, competitionID string, sport match.Sport) ([]Prediction, error)
	// WriteResults commits one chunk atomically and marks every row scored.
	WriteResults(ctx context.Context, results []Result) error
}
