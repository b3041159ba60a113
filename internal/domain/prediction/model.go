package prediction

import "github.com/riskibarqy/prediction-league/internal/domain/match"

// Prediction is one user's pick for one match, plus the derived scoring fields.
type Prediction struct {
	ID            string
	UserID        string
	MatchID       string
	CompetitionID string
	Pick          Pick

	Points            int
	WasPerfectScore   bool
	WasCorrectOutcome bool
	IsScored          bool
}

// Pick holds exactly one sport variant.
type Pick struct {
	Cricket  *CricketPick
	Football *FootballPick
}

type CricketPick struct {
	WinnerID string
	// Runs accepts "N", "N+" or "A-B".
	Runs    match.Scalar
	Wickets match.Scalar
}

type FootballPick struct {
	Team1 match.Scalar
	Team2 match.Scalar
	IsTie bool
}

// Result is the derived scoring state written back to a prediction.
type Result struct {
	PredictionID      string
	Points            int
	WasPerfectScore   bool
	WasCorrectOutcome bool
}

// Differs reports whether writing r would change the stored prediction.
func (p Prediction) Differs(r Result) bool {
	return !p.IsScored ||
		p.Points != r.Points ||
		p.WasPerfectScore != r.WasPerfectScore ||
		p.WasCorrectOutcome != r.WasCorrectOutcome
}
