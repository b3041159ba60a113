package competition

import (
	"sort"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/normalize"
)

const (
	DefaultCorrectWinnerPoints = 3
	DefaultCorrectScorePoints  = 2
)

// Competition is a tournament with its own matches, participants and rules.
type Competition struct {
	ID       string
	Name     string
	Sport    string
	LeagueID string
	Rules    Rules
}

// Rules are the points awarded per prediction. Zero values fall back to defaults.
type Rules struct {
	CorrectWinner int
	CorrectScore  int
}

func (r Rules) OutcomePoints() int {
	if r.CorrectWinner <= 0 {
		return DefaultCorrectWinnerPoints
	}
	return r.CorrectWinner
}

func (r Rules) ScorePoints() int {
	if r.CorrectScore <= 0 {
		return DefaultCorrectScorePoints
	}
	return r.CorrectScore
}

// ResolvedSport classifies the competition. League keys of known cricket
// tournaments count as cricket even when the sport text is blank.
func (c Competition) ResolvedSport() match.Sport {
	league := strings.ToLower(c.LeagueID)
	if strings.Contains(strings.ToLower(c.Sport), "cricket") ||
		strings.Contains(league, "cwc") ||
		strings.Contains(league, "ipl") {
		return match.SportCricket
	}
	return match.SportFootball
}

// Syncable reports whether the competition is linked to a feed.
func (c Competition) Syncable() bool {
	return strings.TrimSpace(c.LeagueID) != ""
}

type Team struct {
	ID        string
	Name      string
	ShortName string
}

// TeamAlias is one normalized name pointing at a team id.
type TeamAlias struct {
	Name   string
	TeamID string
}

// TeamIndex maps normalized team names and short names to team ids.
type TeamIndex struct {
	byName map[string]string
}

func NewTeamIndex(teams []Team) TeamIndex {
	idx := TeamIndex{byName: make(map[string]string, len(teams)*2)}
	for _, item := range teams {
		if item.ID == "" {
			continue
		}
		idx.add(item.Name, item.ID)
		idx.add(item.ShortName, item.ID)
	}
	return idx
}

func (i *TeamIndex) add(name, teamID string) {
	key := normalize.Name(name)
	if key == "" {
		return
	}
	if _, exists := i.byName[key]; exists {
		return
	}
	i.byName[key] = teamID
}

func (i TeamIndex) Len() int {
	return len(i.byName)
}

func (i TeamIndex) Lookup(name string) (string, bool) {
	teamID, ok := i.byName[normalize.Name(name)]
	return teamID, ok
}

// Aliases returns the index entries ordered by longest name first, then name.
func (i TeamIndex) Aliases() []TeamAlias {
	out := make([]TeamAlias, 0, len(i.byName))
	for name, teamID := range i.byName {
		out = append(out, TeamAlias{Name: name, TeamID: teamID})
	}
	sort.Slice(out, func(a, b int) bool {
		if len(out[a].Name) != len(out[b].Name) {
			return len(out[a].Name) > len(out[b].Name)
		}
		return out[a].Name < out[b].Name
	})
	return out
}
