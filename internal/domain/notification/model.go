package notification

import (
	"fmt"
	"strings"
)

// Leader is one top-ranked participant in a leaderboard update.
type Leader struct {
	UserID      string `json:"user_id"`
	Rank        int    `json:"rank"`
	TotalPoints int    `json:"total_points"`
}

// LeaderboardUpdated is emitted after a recalculation changed stored standings.
type LeaderboardUpdated struct {
	CompetitionID      string   `json:"competition_id"`
	CompetitionName    string   `json:"competition_name"`
	ParticipantsWrites int      `json:"participant_writes"`
	PredictionsScored  int      `json:"predictions_scored"`
	Leaders            []Leader `json:"leaders"`
}

// Message is the rendered push payload delivered to clients.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

const maxLeadersInBody = 3

func Render(event LeaderboardUpdated) Message {
	name := strings.TrimSpace(event.CompetitionName)
	if name == "" {
		name = event.CompetitionID
	}

	msg := Message{Title: fmt.Sprintf("%s leaderboard updated", name)}
	if len(event.Leaders) == 0 {
		msg.Body = fmt.Sprintf("%d predictions scored.", event.PredictionsScored)
		return msg
	}

	parts := make([]string, 0, maxLeadersInBody)
	for i, leader := range event.Leaders {
		if i == maxLeadersInBody {
			break
		}
		parts = append(parts, fmt.Sprintf("#%d %s (%d pts)", leader.Rank, leader.UserID, leader.TotalPoints))
	}
	msg.Body = strings.Join(parts, ", ")
	return msg
}
