package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/prediction-league/internal/domain/notification"
)

// SyncMetrics receives counters from sync passes. Implementations must be
// safe for concurrent use.
type SyncMetrics interface {
	IncSyncRun()
	ObserveCompetitionTask(status string, duration time.Duration)
	AddMatchesUpdated(n int)
	AddLeaderboardWrites(kind string, n int)
	IncFeedError(provider string)
}

type noopSyncMetrics struct{}

func (noopSyncMetrics) IncSyncRun()                                  {}
func (noopSyncMetrics) ObserveCompetitionTask(string, time.Duration) {}
func (noopSyncMetrics) AddMatchesUpdated(int)                        {}
func (noopSyncMetrics) AddLeaderboardWrites(string, int)             {}
func (noopSyncMetrics) IncFeedError(string)                          {}

// LeaderboardNotifier delivers leaderboard change events. Delivery failures
// are logged by the caller and never fail a recalculation.
type LeaderboardNotifier interface {
	NotifyLeaderboardUpdated(ctx context.Context, event notification.LeaderboardUpdated) error
}

type noopLeaderboardNotifier struct{}

func (noopLeaderboardNotifier) NotifyLeaderboardUpdated(context.Context, notification.LeaderboardUpdated) error {
	return nil
}
