package document

import (
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/participant"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
	"github.com/riskibarqy/prediction-league/internal/infrastructure/docstore"
)

const (
	competitionsCollection = "competitions"
	predictionsCollection  = "predictions"
)

func teamsCollection(competitionID string) string {
	return docstore.Path(competitionsCollection, competitionID, "teams")
}

func matchesCollection(competitionID string) string {
	return docstore.Path(competitionsCollection, competitionID, "matches")
}

func participantsCollection(competitionID string) string {
	return docstore.Path(competitionsCollection, competitionID, "participants")
}

var documentValidator = validator.New(validator.WithRequiredStructEnabled())

type competitionDocument struct {
	Name     string        `json:"name"`
	Sport    string        `json:"sport"`
	LeagueID string        `json:"leagueId"`
	Rules    rulesDocument `json:"rules"`
}

type rulesDocument struct {
	CorrectWinner match.Scalar `json:"correctWinner"`
	CorrectScore  match.Scalar `json:"correctScore"`
}

func (d competitionDocument) toDomain(id string) competition.Competition {
	return competition.Competition{
		ID:       id,
		Name:     d.Name,
		Sport:    d.Sport,
		LeagueID: d.LeagueID,
		Rules: competition.Rules{
			CorrectWinner: d.Rules.CorrectWinner.Int(),
			CorrectScore:  d.Rules.CorrectScore.Int(),
		},
	}
}

type teamDocument struct {
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type matchDocument struct {
	Team1ID       string               `json:"team1Id"`
	Team2ID       string               `json:"team2Id"`
	Team1Name     string               `json:"team1Name" validate:"required_without=Team1ID"`
	Team2Name     string               `json:"team2Name" validate:"required_without=Team2ID"`
	Status        string               `json:"status"`
	ScheduledTime match.Scalar         `json:"scheduledTime"`
	ActualScore   *actualScoreDocument `json:"actualScore"`
}

// actualScoreDocument is the union of both sport layouts plus the freeze flags.
type actualScoreDocument struct {
	T1Runs         match.Scalar `json:"t1Runs"`
	T2Runs         match.Scalar `json:"t2Runs"`
	T1Wickets      match.Scalar `json:"t1Wickets"`
	T2Wickets      match.Scalar `json:"t2Wickets"`
	T1Overs        match.Scalar `json:"t1Overs"`
	T2Overs        match.Scalar `json:"t2Overs"`
	Team1          match.Scalar `json:"team1"`
	Team2          match.Scalar `json:"team2"`
	WinnerID       match.Scalar `json:"winnerId"`
	MarginType     string       `json:"marginType"`
	MarginValue    match.Scalar `json:"marginValue"`
	BattingFirstID string       `json:"battingFirstId"`
	Verified       bool         `json:"verified"`
	ManuallyScored bool         `json:"manuallyScored"`
}

func (d matchDocument) toDomain(id, competitionID string, sport match.Sport) match.Match {
	out := match.Match{
		ID:            id,
		CompetitionID: competitionID,
		Team1ID:       d.Team1ID,
		Team2ID:       d.Team2ID,
		Team1Name:     d.Team1Name,
		Team2Name:     d.Team2Name,
		Status:        d.Status,
		ScheduledTime: d.ScheduledTime.String(),
	}
	if d.ActualScore == nil {
		return out
	}

	score := d.ActualScore
	out.Verified = score.Verified
	out.ManuallyScored = score.ManuallyScored
	if sport.IsCricket() {
		out.ActualScore = &match.ActualScore{Cricket: &match.CricketScore{
			T1Runs:         score.T1Runs,
			T2Runs:         score.T2Runs,
			T1Wickets:      score.T1Wickets,
			T2Wickets:      score.T2Wickets,
			T1Overs:        score.T1Overs,
			T2Overs:        score.T2Overs,
			WinnerID:       score.WinnerID.String(),
			MarginType:     score.MarginType,
			MarginValue:    score.MarginValue,
			BattingFirstID: score.BattingFirstID,
		}}
		return out
	}
	out.ActualScore = &match.ActualScore{Football: &match.FootballScore{
		Team1:      score.Team1,
		Team2:      score.Team2,
		WinnerID:   score.WinnerID.String(),
		MarginType: score.MarginType,
	}}
	return out
}

// actualScoreFields renders a score in the stored layout. Absent scalars are omitted.
func actualScoreFields(score *match.ActualScore) map[string]any {
	out := map[string]any{}
	put := func(key string, value match.Scalar) {
		if value.IsSet() {
			out[key] = value.Value()
		}
	}

	switch {
	case score == nil:
		return nil
	case score.Cricket != nil:
		c := score.Cricket
		put("t1Runs", c.T1Runs)
		put("t2Runs", c.T2Runs)
		put("t1Wickets", c.T1Wickets)
		put("t2Wickets", c.T2Wickets)
		put("t1Overs", c.T1Overs)
		put("t2Overs", c.T2Overs)
		out["winnerId"] = nullableString(c.WinnerID)
		out["marginType"] = c.MarginType
		out["marginValue"] = c.MarginValue.String()
		if c.BattingFirstID != "" {
			out["battingFirstId"] = c.BattingFirstID
		}
	case score.Football != nil:
		f := score.Football
		put("team1", f.Team1)
		put("team2", f.Team2)
		out["winnerId"] = nullableString(f.WinnerID)
		if f.MarginType != "" {
			out["marginType"] = f.MarginType
		}
	}
	return out
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

type participantDocument struct {
	UserID           string       `json:"userId"`
	TotalPoints      match.Scalar `json:"totalPoints"`
	PerfectScores    match.Scalar `json:"perfectScores"`
	CorrectOutcomes  match.Scalar `json:"correctOutcomes"`
	TotalPredictions match.Scalar `json:"totalPredictions"`
	Rank             match.Scalar `json:"rank"`
}

func (d participantDocument) toDomain(id string) participant.Participant {
	return participant.Participant{
		ID:     id,
		UserID: d.UserID,
		Standing: participant.Standing{
			TotalPoints:      d.TotalPoints.Int(),
			PerfectScores:    d.PerfectScores.Int(),
			CorrectOutcomes:  d.CorrectOutcomes.Int(),
			TotalPredictions: d.TotalPredictions.Int(),
			Rank:             d.Rank.Int(),
		},
	}
}

func standingFields(s participant.Standing) map[string]any {
	return map[string]any{
		"totalPoints":      s.TotalPoints,
		"perfectScores":    s.PerfectScores,
		"correctOutcomes":  s.CorrectOutcomes,
		"totalPredictions": s.TotalPredictions,
		"rank":             s.Rank,
	}
}

type predictionDocument struct {
	UserID            string       `json:"userId" validate:"required"`
	MatchID           string       `json:"matchId" validate:"required"`
	CompetitionID     string       `json:"competitionId"`
	Prediction        pickDocument `json:"prediction"`
	Points            match.Scalar `json:"points"`
	WasPerfectScore   bool         `json:"wasPerfectScore"`
	WasCorrectOutcome bool         `json:"wasCorrectOutcome"`
	IsScored          bool         `json:"isScored"`
}

type pickDocument struct {
	WinnerID match.Scalar `json:"winnerId"`
	Runs     match.Scalar `json:"runs"`
	Wickets  match.Scalar `json:"wickets"`
	Team1    match.Scalar `json:"team1"`
	Team2    match.Scalar `json:"team2"`
	IsTie    bool         `json:"isTie"`
}

func (d predictionDocument) toDomain(id string, sport match.Sport) prediction.Prediction {
	out := prediction.Prediction{
		ID:                id,
		UserID:            d.UserID,
		MatchID:           d.MatchID,
		CompetitionID:     d.CompetitionID,
		Points:            d.Points.Int(),
		WasPerfectScore:   d.WasPerfectScore,
		WasCorrectOutcome: d.WasCorrectOutcome,
		IsScored:          d.IsScored,
	}
	if sport.IsCricket() {
		out.Pick.Cricket = &prediction.CricketPick{
			WinnerID: d.Prediction.WinnerID.String(),
			Runs:     d.Prediction.Runs,
			Wickets:  d.Prediction.Wickets,
		}
		return out
	}
	out.Pick.Football = &prediction.FootballPick{
		Team1: d.Prediction.Team1,
		Team2: d.Prediction.Team2,
		IsTie: d.Prediction.IsTie,
	}
	return out
}

func resultFields(r prediction.Result) map[string]any {
	return map[string]any{
		"points":            r.Points,
		"wasPerfectScore":   r.WasPerfectScore,
		"wasCorrectOutcome": r.WasCorrectOutcome,
		"isScored":          true,
	}
}
