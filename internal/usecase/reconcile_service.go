package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/feed"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/normalize"
	"github.com/riskibarqy/prediction-league/internal/domain/outcome"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type ReconcileResult struct {
	CompetitionID   string           `json:"competition_id"`
	Provider        string           `json:"provider,omitempty"`
	RemoteCount     int              `json:"remote_count"`
	StoredCount     int              `json:"stored_count"`
	FrozenCount     int              `json:"frozen_count"`
	UpdatedCount    int              `json:"updated_count"`
	FeedUnavailable bool             `json:"feed_unavailable,omitempty"`
	Unmatched       []UnmatchedMatch `json:"unmatched,omitempty"`
}

// UnmatchedMatch is a stored match with no remote candidate, plus the closest
// remote team names for operators fixing team naming.
type UnmatchedMatch struct {
	MatchID     string   `json:"match_id"`
	Team1Name   string   `json:"team1_name"`
	Team2Name   string   `json:"team2_name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

const maxUnmatchedSuggestions = 3

type ReconcileService struct {
	competitions competition.Repository
	matches      match.Repository
	feeds        *FeedRouter
	parser       outcome.ResultParser
	metrics      SyncMetrics
	logger       *logging.Logger
}

func NewReconcileService(
	competitions competition.Repository,
	matches match.Repository,
	feeds *FeedRouter,
	parser outcome.ResultParser,
	metrics SyncMetrics,
	logger *logging.Logger,
) *ReconcileService {
	if parser == nil {
		parser = outcome.NewCricketResultParser()
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ReconcileService{
		competitions: competitions,
		matches:      matches,
		feeds:        feeds,
		parser:       parser,
		metrics:      metrics,
		logger:       logger,
	}
}

// Reconcile fetches the competition's feed and commits every changed match in
// one batch. Feed failures yield a no-op result, never an error.
func (s *ReconcileService) Reconcile(ctx context.Context, comp competition.Competition) (ReconcileResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReconcileService.Reconcile")
	defer span.End()

	result := ReconcileResult{CompetitionID: comp.ID}
	sport := comp.ResolvedSport()

	remote, provider, err := s.fetchRemote(ctx, comp, sport)
	result.Provider = provider
	if err != nil {
		s.metrics.IncFeedError(provider)
		s.logger.WarnContext(ctx, "feed unavailable, skip reconciliation",
			"competition_id", comp.ID,
			"league_id", comp.LeagueID,
			"provider", provider,
			"error", err,
		)
		result.FeedUnavailable = true
		return result, nil
	}
	result.RemoteCount = len(remote)
	if len(remote) == 0 {
		return result, nil
	}

	var teams competition.TeamIndex
	if sport.IsCricket() {
		items, err := s.competitions.ListTeams(ctx, comp.ID)
		if err != nil {
			return result, fmt.Errorf("%w: list teams competition=%s: %w", ErrReconciliation, comp.ID, err)
		}
		teams = competition.NewTeamIndex(items)
	}

	stored, err := s.matches.ListByCompetition(ctx, comp.ID, sport)
	if err != nil {
		return result, fmt.Errorf("%w: list matches competition=%s: %w", ErrReconciliation, comp.ID, err)
	}
	result.StoredCount = len(stored)

	candidates := newRemoteIndex(remote)
	updates := make([]match.Update, 0)
	for _, item := range stored {
		if item.Frozen() {
			result.FrozenCount++
			continue
		}

		candidate, ok := candidates.find(item)
		if !ok {
			result.Unmatched = append(result.Unmatched, candidates.unmatched(item))
			continue
		}

		update := deriveMatchUpdate(item, candidate, sport, teams, s.parser)
		if update.Empty() {
			continue
		}
		updates = append(updates, update)
	}

	if len(result.Unmatched) > 0 {
		s.logger.DebugContext(ctx, "stored matches without feed candidate",
			"competition_id", comp.ID,
			"count", len(result.Unmatched),
		)
	}
	if len(updates) == 0 {
		return result, nil
	}

	if err := s.matches.ApplyUpdates(ctx, comp.ID, updates); err != nil {
		return result, fmt.Errorf("%w: commit %d match updates competition=%s: %w", ErrReconciliation, len(updates), comp.ID, err)
	}
	result.UpdatedCount = len(updates)
	s.metrics.AddMatchesUpdated(len(updates))

	s.logger.InfoContext(ctx, "matches reconciled",
		"competition_id", comp.ID,
		"provider", provider,
		"updated", len(updates),
		"frozen", result.FrozenCount,
	)
	return result, nil
}

func (s *ReconcileService) fetchRemote(ctx context.Context, comp competition.Competition, sport match.Sport) ([]feed.RemoteMatch, string, error) {
	provider, ok := s.feeds.ProviderFor(sport)
	if !ok {
		return nil, "", nil
	}
	items, err := provider.FetchMatches(ctx, comp.LeagueID)
	if err != nil {
		return nil, provider.Name(), fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	return items, provider.Name(), nil
}

type remoteCandidate struct {
	team1 string
	team2 string
	match feed.RemoteMatch
}

type remoteIndex struct {
	items []remoteCandidate
	names []string
}

func newRemoteIndex(remote []feed.RemoteMatch) remoteIndex {
	idx := remoteIndex{items: make([]remoteCandidate, 0, len(remote))}
	seen := make(map[string]struct{}, len(remote)*2)
	for _, item := range remote {
		candidate := remoteCandidate{
			team1: normalize.Name(item.Team1),
			team2: normalize.Name(item.Team2),
			match: item,
		}
		idx.items = append(idx.items, candidate)
		for _, name := range []string{candidate.team1, candidate.team2} {
			if _, ok := seen[name]; ok || name == "" {
				continue
			}
			seen[name] = struct{}{}
			idx.names = append(idx.names, name)
		}
	}
	return idx
}

// find returns the first remote match whose names contain the stored names in
// either pairing. Stored matches with blank names never match.
func (idx remoteIndex) find(stored match.Match) (feed.RemoteMatch, bool) {
	t1 := normalize.Name(stored.Team1Name)
	t2 := normalize.Name(stored.Team2Name)
	if t1 == "" || t2 == "" {
		return feed.RemoteMatch{}, false
	}
	for _, item := range idx.items {
		direct := strings.Contains(item.team1, t1) && strings.Contains(item.team2, t2)
		swapped := strings.Contains(item.team1, t2) && strings.Contains(item.team2, t1)
		if direct || swapped {
			return item.match, true
		}
	}
	return feed.RemoteMatch{}, false
}

func (idx remoteIndex) unmatched(stored match.Match) UnmatchedMatch {
	out := UnmatchedMatch{
		MatchID:   stored.ID,
		Team1Name: stored.Team1Name,
		Team2Name: stored.Team2Name,
	}

	var ranks fuzzy.Ranks
	for _, name := range []string{stored.Team1Name, stored.Team2Name} {
		source := normalize.Name(name)
		if source == "" {
			continue
		}
		ranks = append(ranks, fuzzy.RankFind(source, idx.names)...)
	}
	sort.Sort(ranks)

	seen := make(map[string]struct{}, len(ranks))
	for _, rank := range ranks {
		if len(out.Suggestions) == maxUnmatchedSuggestions {
			break
		}
		if _, ok := seen[rank.Target]; ok {
			continue
		}
		seen[rank.Target] = struct{}{}
		out.Suggestions = append(out.Suggestions, rank.Target)
	}
	return out
}

// deriveMatchUpdate computes the delta between a stored match and its remote
// candidate. Fields equal to the stored values are left out.
func deriveMatchUpdate(
	stored match.Match,
	remote feed.RemoteMatch,
	sport match.Sport,
	teams competition.TeamIndex,
	parser outcome.ResultParser,
) match.Update {
	update := match.Update{MatchID: stored.ID}

	status := normalize.Status(remote.Status)
	if stored.Status != status {
		update.Status = &status
	}

	var derived *match.ActualScore
	switch {
	case remote.Score == nil:
	case sport.IsCricket() && remote.Score.Cricket != nil:
		derived = deriveCricketScore(stored, remote, status, teams, parser)
	case !sport.IsCricket() && remote.Score.Football != nil:
		derived = deriveFootballScore(stored, *remote.Score.Football, status)
	}
	if derived != nil && !derived.Equal(stored.ActualScore) {
		update.ActualScore = derived
	}
	return update
}

func deriveCricketScore(
	stored match.Match,
	remote feed.RemoteMatch,
	status string,
	teams competition.TeamIndex,
	parser outcome.ResultParser,
) *match.ActualScore {
	score := *remote.Score.Cricket
	parsed := parser.ParseCricket(remote.Result, teams)

	winner := parsed.WinnerID
	if winner == "" && status == match.StatusCompleted {
		t1 := score.T1Runs.Int()
		t2 := score.T2Runs.Int()
		switch {
		case t1 > t2:
			winner = stored.Team1ID
		case t2 > t1:
			winner = stored.Team2ID
		}
	}
	if parsed.Tied {
		winner = match.WinnerTied
	}
	if parsed.NoResult {
		winner = match.WinnerNoResult
	}

	score.WinnerID = winner
	score.MarginType = parsed.MarginType
	score.MarginValue = match.Text(parsed.MarginValue)
	return &match.ActualScore{Cricket: &score}
}

func deriveFootballScore(stored match.Match, remote match.FootballScore, status string) *match.ActualScore {
	score := remote
	score.WinnerID = ""
	score.MarginType = ""
	if status == match.StatusCompleted {
		t1 := score.Team1.Int()
		t2 := score.Team2.Int()
		switch {
		case t1 > t2:
			score.WinnerID = stored.Team1ID
		case t2 > t1:
			score.WinnerID = stored.Team2ID
		default:
			score.WinnerID = match.WinnerTied
			score.MarginType = match.MarginTie
		}
	}
	return &match.ActualScore{Football: &score}
}
