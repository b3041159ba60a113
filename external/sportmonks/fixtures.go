package sportmonks

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/feed"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

type fixturesEnvelope struct {
	Data       []fixtureItem `json:"data"`
	Pagination pagination    `json:"pagination"`
}

type pagination struct {
	Count       int  `json:"count"`
	PerPage     int  `json:"per_page"`
	CurrentPage int  `json:"current_page"`
	HasMore     bool `json:"has_more"`
}

type fixtureItem struct {
	ID           int64                `json:"id"`
	LeagueID     int64                `json:"league_id"`
	StartingAt   string               `json:"starting_at"`
	StateID      int64                `json:"state_id"`
	ResultInfo   string               `json:"result_info"`
	Participants []fixtureParticipant `json:"participants"`
	Scores       []fixtureScoreItem   `json:"scores"`
	State        *fixtureState        `json:"state"`
}

type fixtureState struct {
	ID            int64  `json:"id"`
	State         string `json:"state"`
	DeveloperName string `json:"developer_name"`
}

type fixtureParticipant struct {
	ID        int64                  `json:"id"`
	Name      string                 `json:"name"`
	ShortCode string                 `json:"short_code"`
	Meta      fixtureParticipantMeta `json:"meta"`
}

type fixtureParticipantMeta struct {
	Location string `json:"location"`
}

type fixtureScoreItem struct {
	ParticipantID int64          `json:"participant_id"`
	Description   string         `json:"description"`
	Score         map[string]any `json:"score"`
}

func (f fixtureScoreItem) goals() (float64, bool) {
	for _, key := range []string{"goals", "score", "value", "total"} {
		raw, ok := f.Score[key]
		if !ok || raw == nil {
			continue
		}
		var value match.Scalar
		switch typed := raw.(type) {
		case float64:
			value = match.Number(typed)
		case int64:
			value = match.Int(int(typed))
		case string:
			value = match.Text(typed)
		}
		if value.IsNumeric() && value.Float() >= 0 {
			return value.Float(), true
		}
	}
	return 0, false
}

// mapRemoteMatch renders the home side as team1 and the away side as team2.
func mapRemoteMatch(item fixtureItem) (feed.RemoteMatch, bool) {
	home, away := resolveFixtureParticipants(item.Participants)
	if home.Name == "" || away.Name == "" {
		return feed.RemoteMatch{}, false
	}

	stateID := item.StateID
	if stateID == 0 && item.State != nil {
		stateID = item.State.ID
	}
	status := mapFixtureStatus(stateID, item.ResultInfo)

	remote := feed.RemoteMatch{
		ExternalID: strconv.FormatInt(item.ID, 10),
		Team1:      strings.TrimSpace(home.Name),
		Team2:      strings.TrimSpace(away.Name),
		Status:     status,
		Result:     strings.TrimSpace(item.ResultInfo),
	}
	if status == feed.StatusScheduled {
		return remote, true
	}

	homeGoals, homeOK, awayGoals, awayOK := resolveFixtureScores(item.Scores, home.ID, away.ID)
	if homeOK || awayOK {
		score := &match.FootballScore{}
		if homeOK {
			score.Team1 = match.Number(homeGoals)
		}
		if awayOK {
			score.Team2 = match.Number(awayGoals)
		}
		remote.Score = &match.ActualScore{Football: score}
	}
	return remote, true
}

func resolveFixtureParticipants(participants []fixtureParticipant) (home, away fixtureParticipant) {
	for _, item := range participants {
		switch strings.ToLower(strings.TrimSpace(item.Meta.Location)) {
		case "home":
			home = item
		case "away":
			away = item
		}
	}
	return home, away
}

// resolveFixtureScores keeps the most authoritative score description per side.
func resolveFixtureScores(scores []fixtureScoreItem, homeID, awayID int64) (home float64, homeOK bool, away float64, awayOK bool) {
	bestHome, bestAway := 0, 0
	for _, item := range scores {
		value, ok := item.goals()
		if !ok {
			continue
		}
		weight := scoreDescriptionWeight(item.Description)
		switch {
		case homeID > 0 && item.ParticipantID == homeID && weight > bestHome:
			home, homeOK, bestHome = value, true, weight
		case awayID > 0 && item.ParticipantID == awayID && weight > bestAway:
			away, awayOK, bestAway = value, true, weight
		}
	}
	return home, homeOK, away, awayOK
}

func scoreDescriptionWeight(raw string) int {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "current":
		return 6
	case strings.Contains(value, "normal_time"), strings.Contains(value, "90"):
		return 5
	case strings.Contains(value, "extra_time"):
		return 4
	case strings.Contains(value, "penalt"):
		return 3
	case value == "1st_half", value == "2nd_half":
		return 2
	default:
		return 1
	}
}

// mapFixtureStatus collapses SportMonks states into the feed display statuses.
// Postponed and cancelled fixtures stay scheduled.
func mapFixtureStatus(stateID int64, resultInfo string) string {
	switch stateID {
	case 2, 3, 4, 6, 7, 8, 9:
		return feed.StatusLive
	case 5, 13, 14:
		return feed.StatusCompleted
	case 1, 10, 11, 12:
		return feed.StatusScheduled
	}

	info := strings.ToLower(strings.TrimSpace(resultInfo))
	switch {
	case strings.Contains(info, "postpon"), strings.Contains(info, "cancel"), strings.Contains(info, "abandon"):
		return feed.StatusScheduled
	case strings.Contains(info, "live"), strings.Contains(info, "in play"), strings.Contains(info, "half"):
		return feed.StatusLive
	case strings.Contains(info, "won"), strings.Contains(info, "draw"), strings.Contains(info, "finish"),
		strings.Contains(info, "full time"), strings.Contains(info, "aet"), strings.Contains(info, "pen"):
		return feed.StatusCompleted
	default:
		return feed.StatusScheduled
	}
}
