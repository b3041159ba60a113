package usecase

import (
	"github.com/riskibarqy/prediction-league/internal/domain/feed"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

// FeedRouter selects the feed provider for a competition's sport.
type FeedRouter struct {
	cricket  feed.Provider
	football feed.Provider
}

// NewFeedRouter accepts nil providers; those sports then have no remote feed.
func NewFeedRouter(cricket, football feed.Provider) *FeedRouter {
	return &FeedRouter{cricket: cricket, football: football}
}

func (r *FeedRouter) ProviderFor(sport match.Sport) (feed.Provider, bool) {
	if r == nil {
		return nil, false
	}
	provider := r.football
	if sport.IsCricket() {
		provider = r.cricket
	}
	return provider, provider != nil
}
