package feed

import (
	"context"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

// Display statuses rendered by providers. The reconciler normalizes them.
const (
	StatusCompleted = "Completed"
	StatusLive      = "Live"
	StatusScheduled = "Scheduled"
)

// RemoteMatch is one fixture as reported by an external feed.
type RemoteMatch struct {
	ExternalID string
	Team1      string
	Team2      string
	Status     string
	// Result is the free-text outcome, e.g. "Chennai won by 10 runs".
	Result string
	// Score carries the raw scoreline only. Winner and margin are derived later.
	Score *match.ActualScore
}

// Provider fetches the current remote matches for one league key.
type Provider interface {
	Name() string
	FetchMatches(ctx context.Context, leagueID string) ([]RemoteMatch, error)
}
