package participant

// Participant is a user's entry in a competition leaderboard.
type Participant struct {
	ID     string
	UserID string
	Standing
}

// Standing holds the aggregated totals and the leaderboard rank.
type Standing struct {
	TotalPoints      int
	PerfectScores    int
	CorrectOutcomes  int
	TotalPredictions int
	Rank             int
}

// Key identifies the participant for prediction ownership. Older rows carry
// no userId and are keyed by document id.
func (p Participant) Key() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.ID
}

// StandingUpdate replaces the standing of one participant document.
type StandingUpdate struct {
	ParticipantID string
	Standing      Standing
}
