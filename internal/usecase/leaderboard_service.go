package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/notification"
	"github.com/riskibarqy/prediction-league/internal/domain/participant"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/domain/scoring"
	"github.com/riskibarqy/prediction-league/internal/platform/batch"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type LeaderboardResult struct {
	CompetitionID     string `json:"competition_id"`
	ParticipantCount  int    `json:"participant_count"`
	PredictionCount   int    `json:"prediction_count"`
	ScoredCount       int    `json:"scored_count"`
	ParticipantWrites int    `json:"participant_writes"`
	PredictionWrites  int    `json:"prediction_writes"`
	Chunks            int    `json:"chunks"`
}

const (
	leaderboardWriteParticipants = "participants"
	leaderboardWritePredictions  = "predictions"

	notifiedLeaders = 3
)

type LeaderboardService struct {
	competitions competition.Repository
	matches      match.Repository
	participants participant.Repository
	predictions  prediction.Repository
	notifier     LeaderboardNotifier
	metrics      SyncMetrics
	batchLimit   int
	logger       *logging.Logger
}

func NewLeaderboardService(
	competitions competition.Repository,
	matches match.Repository,
	participants participant.Repository,
	predictions prediction.Repository,
	notifier LeaderboardNotifier,
	metrics SyncMetrics,
	batchLimit int,
	logger *logging.Logger,
) *LeaderboardService {
	if notifier == nil {
		notifier = noopLeaderboardNotifier{}
	}
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &LeaderboardService{
		competitions: competitions,
		matches:      matches,
		participants: participants,
		predictions:  predictions,
		notifier:     notifier,
		metrics:      metrics,
		batchLimit:   batch.Limit(batchLimit),
		logger:       logger,
	}
}

// RecalculateByID loads the competition first. Unknown ids return ErrNotFound.
func (s *LeaderboardService) RecalculateByID(ctx context.Context, competitionID string) (LeaderboardResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.RecalculateByID")
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return LeaderboardResult{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	comp, exists, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return LeaderboardResult{}, fmt.Errorf("%w: get competition %s: %w", ErrAggregation, competitionID, err)
	}
	if !exists {
		return LeaderboardResult{}, fmt.Errorf("%w: competition=%s", ErrNotFound, competitionID)
	}
	return s.Recalculate(ctx, comp)
}

// Recalculate rescores every eligible prediction and rewrites the standings
// that changed. Chunks commit independently: a failure leaves earlier chunks
// in place, and the next run converges from source data.
func (s *LeaderboardService) Recalculate(ctx context.Context, comp competition.Competition) (LeaderboardResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LeaderboardService.Recalculate")
	defer span.End()

	result := LeaderboardResult{CompetitionID: comp.ID}
	sport := comp.ResolvedSport()

	matches, err := s.matches.ListByCompetition(ctx, comp.ID, sport)
	if err != nil {
		return result, fmt.Errorf("%w: list matches competition=%s: %w", ErrAggregation, comp.ID, err)
	}
	participants, err := s.participants.ListByCompetition(ctx, comp.ID)
	if err != nil {
		return result, fmt.Errorf("%w: list participants competition=%s: %w", ErrAggregation, comp.ID, err)
	}
	predictions, err := s.predictions.ListByCompetition(ctx, comp.ID, sport)
	if err != nil {
		return result, fmt.Errorf("%w: list predictions competition=%s: %w", ErrAggregation, comp.ID, err)
	}

	acc := newLeaderboardAccumulator(participants)
	results := acc.score(matches, predictions, sport, comp.Rules)
	acc.rank()

	standingUpdates := acc.changedStandings()
	result.ParticipantCount = len(acc.entries)
	result.PredictionCount = acc.owned
	result.ScoredCount = acc.scored

	for _, chunk := range batch.Chunks(standingUpdates, s.batchLimit) {
		if err := s.participants.WriteStandings(ctx, comp.ID, chunk); err != nil {
			s.recordWrites(result)
			return result, fmt.Errorf("%w: write standings competition=%s: %w", ErrAggregation, comp.ID, err)
		}
		result.ParticipantWrites += len(chunk)
		result.Chunks++
	}
	for _, chunk := range batch.Chunks(results, s.batchLimit) {
		if err := s.predictions.WriteResults(ctx, chunk); err != nil {
			s.recordWrites(result)
			return result, fmt.Errorf("%w: write prediction results competition=%s: %w", ErrAggregation, comp.ID, err)
		}
		result.PredictionWrites += len(chunk)
		result.Chunks++
	}
	s.recordWrites(result)

	s.logger.InfoContext(ctx, "leaderboard recalculated",
		"competition_id", comp.ID,
		"participants", result.ParticipantCount,
		"predictions", result.PredictionCount,
		"scored", result.ScoredCount,
		"participant_writes", result.ParticipantWrites,
		"prediction_writes", result.PredictionWrites,
	)

	if result.ParticipantWrites > 0 {
		event := notification.LeaderboardUpdated{
			CompetitionID:      comp.ID,
			CompetitionName:    comp.Name,
			ParticipantsWrites: result.ParticipantWrites,
			PredictionsScored:  result.ScoredCount,
			Leaders:            acc.leaders(notifiedLeaders),
		}
		if err := s.notifier.NotifyLeaderboardUpdated(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "leaderboard notification failed", "competition_id", comp.ID, "error", err)
		}
	}

	return result, nil
}

func (s *LeaderboardService) recordWrites(result LeaderboardResult) {
	s.metrics.AddLeaderboardWrites(leaderboardWriteParticipants, result.ParticipantWrites)
	s.metrics.AddLeaderboardWrites(leaderboardWritePredictions, result.PredictionWrites)
}

type standingEntry struct {
	participant participant.Participant
	next        participant.Standing
}

// leaderboardAccumulator is built per recalculation and never shared.
type leaderboardAccumulator struct {
	entries []*standingEntry
	byKey   map[string]*standingEntry
	owned   int
	scored  int
}

func newLeaderboardAccumulator(participants []participant.Participant) *leaderboardAccumulator {
	acc := &leaderboardAccumulator{
		entries: make([]*standingEntry, 0, len(participants)),
		byKey:   make(map[string]*standingEntry, len(participants)),
	}
	for _, item := range participants {
		key := item.Key()
		if _, exists := acc.byKey[key]; exists {
			continue
		}
		entry := &standingEntry{participant: item}
		acc.entries = append(acc.entries, entry)
		acc.byKey[key] = entry
	}
	return acc
}

// score counts every owned prediction, scores the eligible ones and returns
// the results whose stored fields would change.
func (a *leaderboardAccumulator) score(
	matches []match.Match,
	predictions []prediction.Prediction,
	sport match.Sport,
	rules competition.Rules,
) []prediction.Result {
	byID := make(map[string]match.Match, len(matches))
	for _, item := range matches {
		byID[item.ID] = item
	}

	out := make([]prediction.Result, 0)
	for _, item := range predictions {
		entry, ok := a.byKey[item.UserID]
		if !ok {
			continue
		}
		a.owned++
		entry.next.TotalPredictions++

		m, ok := byID[item.MatchID]
		if !ok || !scoring.Eligible(m) {
			continue
		}

		scored := scoring.Score(m, item, sport, rules)
		a.scored++
		entry.next.TotalPoints += scored.Points
		if scored.IsPerfectScore {
			entry.next.PerfectScores++
		}
		if scored.IsCorrectOutcome {
			entry.next.CorrectOutcomes++
		}

		res := prediction.Result{
			PredictionID:      item.ID,
			Points:            scored.Points,
			WasPerfectScore:   scored.IsPerfectScore,
			WasCorrectOutcome: scored.IsCorrectOutcome,
		}
		if item.Differs(res) {
			out = append(out, res)
		}
	}
	return out
}

// rank applies competition ranking: equal points share a rank and the next
// group resumes at its position. Equal points are ordered by participant key.
func (a *leaderboardAccumulator) rank() {
	sort.SliceStable(a.entries, func(i, j int) bool {
		left, right := a.entries[i], a.entries[j]
		if left.next.TotalPoints != right.next.TotalPoints {
			return left.next.TotalPoints > right.next.TotalPoints
		}
		return left.participant.Key() < right.participant.Key()
	})
	for i, entry := range a.entries {
		if i > 0 && entry.next.TotalPoints == a.entries[i-1].next.TotalPoints {
			entry.next.Rank = a.entries[i-1].next.Rank
			continue
		}
		entry.next.Rank = i + 1
	}
}

func (a *leaderboardAccumulator) changedStandings() []participant.StandingUpdate {
	out := make([]participant.StandingUpdate, 0)
	for _, entry := range a.entries {
		if entry.participant.Standing == entry.next {
			continue
		}
		out = append(out, participant.StandingUpdate{
			ParticipantID: entry.participant.ID,
			Standing:      entry.next,
		})
	}
	return out
}

func (a *leaderboardAccumulator) leaders(limit int) []notification.Leader {
	out := make([]notification.Leader, 0, limit)
	for _, entry := range a.entries {
		if len(out) == limit {
			break
		}
		out = append(out, notification.Leader{
			UserID:      entry.participant.Key(),
			Rank:        entry.next.Rank,
			TotalPoints: entry.next.TotalPoints,
		})
	}
	return out
}
