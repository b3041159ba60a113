package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/normalize"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

type DuplicateReport struct {
	CompetitionID string           `json:"competition_id"`
	MatchCount    int              `json:"match_count"`
	Groups        []DuplicateGroup `json:"groups"`
}

// DuplicateGroup is a set of stored matches with the same unordered team pair
// and scheduled time.
type DuplicateGroup struct {
	Team1Name     string   `json:"team1_name"`
	Team2Name     string   `json:"team2_name"`
	ScheduledTime string   `json:"scheduled_time"`
	MatchIDs      []string `json:"match_ids"`
}

type DuplicateReportService struct {
	competitions competition.Repository
	matches      match.Repository
	logger       *logging.Logger
}

func NewDuplicateReportService(competitions competition.Repository, matches match.Repository, logger *logging.Logger) *DuplicateReportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &DuplicateReportService{competitions: competitions, matches: matches, logger: logger}
}

func (s *DuplicateReportService) Report(ctx context.Context, competitionID string) (DuplicateReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DuplicateReportService.Report")
	defer span.End()

	competitionID = strings.TrimSpace(competitionID)
	if competitionID == "" {
		return DuplicateReport{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}

	comp, exists, err := s.competitions.GetByID(ctx, competitionID)
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("get competition %s: %w", competitionID, err)
	}
	if !exists {
		return DuplicateReport{}, fmt.Errorf("%w: competition=%s", ErrNotFound, competitionID)
	}

	items, err := s.matches.ListByCompetition(ctx, comp.ID, comp.ResolvedSport())
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("list matches competition=%s: %w", comp.ID, err)
	}

	report := DuplicateReport{CompetitionID: comp.ID, MatchCount: len(items)}
	groups := make(map[string]*DuplicateGroup)
	keys := make([]string, 0)
	for _, item := range items {
		key := duplicateKey(item)
		group, ok := groups[key]
		if !ok {
			group = &DuplicateGroup{
				Team1Name:     item.Team1Name,
				Team2Name:     item.Team2Name,
				ScheduledTime: item.ScheduledTime,
			}
			groups[key] = group
			keys = append(keys, key)
		}
		group.MatchIDs = append(group.MatchIDs, item.ID)
	}

	sort.Strings(keys)
	for _, key := range keys {
		group := groups[key]
		if len(group.MatchIDs) < 2 {
			continue
		}
		sort.Strings(group.MatchIDs)
		report.Groups = append(report.Groups, *group)
	}

	s.logger.InfoContext(ctx, "duplicate report built",
		"competition_id", comp.ID,
		"matches", report.MatchCount,
		"duplicate_groups", len(report.Groups),
	)
	return report, nil
}

func duplicateKey(m match.Match) string {
	pair := []string{normalize.Name(m.Team1Name), normalize.Name(m.Team2Name)}
	sort.Strings(pair)
	return pair[0] + "|" + pair[1] + "|" + strings.TrimSpace(m.ScheduledTime)
}
