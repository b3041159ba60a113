package match

import "context"

// Repository reads the matches of one competition and applies reconciliation deltas.
type Repository interface {
	ListByCompetition(ctx context.Context, competitionID string, sport Sport) ([]Match, error)
	// ApplyUpdates commits every update as one atomic batch.
	ApplyUpdates(ctx context.Context, competitionID string, updates []Update) error
}
