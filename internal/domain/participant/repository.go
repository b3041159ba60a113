package participant

import "context"

type Repository interface {
	ListByCompetition(ctx context.Context, competitionID string) ([]Participant, error)
	// WriteStandings commits one chunk atomically.
	WriteStandings(ctx context.Context, competitionID string, updates []StandingUpdate) error
}
