package match

import "strings"

const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusCompleted = "completed"
)

// Sport selects the score and prediction variants of a competition.
type Sport string

const (
	SportCricket  Sport = "cricket"
	SportFootball Sport = "football"
)

func (s Sport) IsCricket() bool { return s == SportCricket }

const (
	WinnerTied     = "tied"
	WinnerNoResult = "no_result"

	MarginRuns    = "runs"
	MarginWickets = "wickets"
	MarginTie     = "tie"
)

// Match is one stored fixture of a competition.
type Match struct {
	ID            string
	CompetitionID string
	Team1ID       string
	Team2ID       string
	Team1Name     string
	Team2Name     string
	Status        string
	ScheduledTime string
	ActualScore   *ActualScore

	// Verified and ManuallyScored freeze the match against automatic updates.
	Verified       bool
	ManuallyScored bool
}

// Frozen reports whether automatic reconciliation must leave the match alone.
func (m Match) Frozen() bool {
	return m.Verified || m.ManuallyScored
}

// ActualScore holds exactly one sport variant.
type ActualScore struct {
	Cricket  *CricketScore
	Football *FootballScore
}

func (a *ActualScore) WinnerID() string {
	switch {
	case a == nil:
		return ""
	case a.Cricket != nil:
		return a.Cricket.WinnerID
	case a.Football != nil:
		return a.Football.WinnerID
	default:
		return ""
	}
}

func (a *ActualScore) Equal(other *ActualScore) bool {
	if a == nil || other == nil {
		return a == nil && other == nil
	}
	switch {
	case a.Cricket != nil && other.Cricket != nil:
		return a.Cricket.Equal(*other.Cricket)
	case a.Football != nil && other.Football != nil:
		return a.Football.Equal(*other.Football)
	default:
		return a.Cricket == nil && other.Cricket == nil && a.Football == nil && other.Football == nil
	}
}

type CricketScore struct {
	T1Runs         Scalar
	T2Runs         Scalar
	T1Wickets      Scalar
	T2Wickets      Scalar
	T1Overs        Scalar
	T2Overs        Scalar
	WinnerID       string
	MarginType     string
	MarginValue    Scalar
	BattingFirstID string
}

func (c CricketScore) Equal(o CricketScore) bool {
	return c.T1Runs.Equal(o.T1Runs) &&
		c.T2Runs.Equal(o.T2Runs) &&
		c.T1Wickets.Equal(o.T1Wickets) &&
		c.T2Wickets.Equal(o.T2Wickets) &&
		c.T1Overs.Equal(o.T1Overs) &&
		c.T2Overs.Equal(o.T2Overs) &&
		c.WinnerID == o.WinnerID &&
		strings.EqualFold(c.MarginType, o.MarginType) &&
		c.MarginValue.Equal(o.MarginValue) &&
		c.BattingFirstID == o.BattingFirstID
}

type FootballScore struct {
	Team1      Scalar
	Team2      Scalar
	WinnerID   string
	MarginType string
}

func (f FootballScore) Equal(o FootballScore) bool {
	return f.Team1.Equal(o.Team1) &&
		f.Team2.Equal(o.Team2) &&
		f.WinnerID == o.WinnerID &&
		f.MarginType == o.MarginType
}

// Update is a reconciliation delta for one match. Nil fields are left alone.
type Update struct {
	MatchID     string
	Status      *string
	ActualScore *ActualScore
}

func (u Update) Empty() bool {
	return u.Status == nil && u.ActualScore == nil
}
