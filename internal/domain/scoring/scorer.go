// Package scoring evaluates one prediction against one finished match.
// Score is pure: identical inputs always produce identical results.
package scoring

import (
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/normalize"
	"github.com/riskibarqy/prediction-league/internal/domain/prediction"
)

type Result struct {
	Points           int
	IsPerfectScore   bool
	IsCorrectOutcome bool
}

// Eligible reports whether a match outcome is final enough to score against.
func Eligible(m match.Match) bool {
	if m.ActualScore == nil {
		return false
	}
	return normalize.IsFinishedStatus(m.Status) || m.Frozen()
}

func Score(m match.Match, p prediction.Prediction, sport match.Sport, rules competition.Rules) Result {
	if m.ActualScore == nil {
		return Result{}
	}
	if sport.IsCricket() {
		if m.ActualScore.Cricket == nil || p.Pick.Cricket == nil {
			return Result{}
		}
		return scoreCricket(m, *m.ActualScore.Cricket, *p.Pick.Cricket, rules)
	}
	if m.ActualScore.Football == nil || p.Pick.Football == nil {
		return Result{}
	}
	return scoreFootball(*m.ActualScore.Football, *p.Pick.Football, rules)
}

func scoreCricket(m match.Match, actual match.CricketScore, pick prediction.CricketPick, rules competition.Rules) Result {
	var out Result

	winner := resolveCricketWinner(m, actual)
	if winner != "" && winner == pick.WinnerID {
		out.Points = rules.OutcomePoints()
		out.IsCorrectOutcome = true
	}

	marginType := strings.ToLower(strings.TrimSpace(actual.MarginType))
	marginValue := actual.MarginValue.String()
	if marginType == "" && marginValue != "" && actual.BattingFirstID != "" {
		if actual.BattingFirstID == winner {
			marginType = match.MarginRuns
		} else {
			marginType = match.MarginWickets
		}
	}

	marginOK := false
	switch marginType {
	case match.MarginRuns:
		if runs := pick.Runs.String(); runs != "" {
			marginOK = normalize.MarginSatisfied(marginValue, runs, match.MarginRuns)
		}
	case match.MarginWickets:
		if wickets := pick.Wickets.String(); wickets != "" {
			marginOK = normalize.MarginSatisfied(marginValue, wickets, match.MarginWickets)
		}
	}

	if winner == match.WinnerTied && pick.WinnerID == match.WinnerTied {
		marginOK = true
		if !out.IsCorrectOutcome {
			out.Points = rules.OutcomePoints()
			out.IsCorrectOutcome = true
		}
	}

	if marginOK && out.IsCorrectOutcome {
		out.Points += rules.ScorePoints()
		out.IsPerfectScore = true
	}
	return out
}

// resolveCricketWinner prefers the stored winner and falls back to runs.
// Equal non-zero runs are a tie; 0-0 or absent runs give no winner.
func resolveCricketWinner(m match.Match, actual match.CricketScore) string {
	if actual.WinnerID != "" {
		return actual.WinnerID
	}
	if !actual.T1Runs.IsSet() {
		return ""
	}
	t1, t2 := actual.T1Runs.Int(), actual.T2Runs.Int()
	switch {
	case t1 > t2:
		return m.Team1ID
	case t2 > t1:
		return m.Team2ID
	case t1 != 0:
		return match.WinnerTied
	default:
		return ""
	}
}

type side int

const (
	sideUnknown side = iota
	sideTeam1
	sideTeam2
)

// scoreline is a pair of goals. It is present only when both sides are set.
type scoreline struct {
	team1, team2 match.Scalar
}

func (s scoreline) present() bool {
	return s.team1.IsSet() && s.team2.IsSet()
}

func (s scoreline) numeric() bool {
	return s.team1.IsNumeric() && s.team2.IsNumeric()
}

func (s scoreline) malformed() bool {
	return s.team1.IsMalformed() || s.team2.IsMalformed()
}

func (s scoreline) level() bool {
	return s.present() && s.numeric() && s.team1.Int() == s.team2.Int()
}

// winner compares goals with absent values read as 0. Malformed values and
// level scorelines have no winner.
func (s scoreline) winner() side {
	if s.malformed() {
		return sideUnknown
	}
	switch t1, t2 := s.team1.Int(), s.team2.Int(); {
	case t1 > t2:
		return sideTeam1
	case t2 > t1:
		return sideTeam2
	default:
		return sideUnknown
	}
}

func (s scoreline) exactly(other scoreline) bool {
	return s.present() && other.present() && s.numeric() && other.numeric() &&
		s.team1.Int() == other.team1.Int() && s.team2.Int() == other.team2.Int()
}

func scoreFootball(actual match.FootballScore, pick prediction.FootballPick, rules competition.Rules) Result {
	actualLine := scoreline{team1: actual.Team1, team2: actual.Team2}
	pickLine := scoreline{team1: pick.Team1, team2: pick.Team2}

	actualTie := actual.MarginType == match.MarginTie || actualLine.level()
	pickTie := pick.IsTie || pickLine.level()

	var out Result
	switch {
	case actualTie && pickTie:
		out.Points = rules.OutcomePoints()
		out.IsCorrectOutcome = true
		if actualLine.exactly(pickLine) {
			out.Points += rules.ScorePoints()
			out.IsPerfectScore = true
		}
	case !actualTie && !pickTie:
		actualWinner := actualLine.winner()
		if actualWinner == sideUnknown || actualWinner != pickLine.winner() {
			return Result{}
		}
		out.Points = rules.OutcomePoints()
		out.IsCorrectOutcome = true
		if actualLine.exactly(pickLine) {
			out.Points += rules.ScorePoints()
			out.IsPerfectScore = true
		}
	}
	return out
}
