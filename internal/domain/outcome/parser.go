// Package outcome reads winner and margin details out of free-text results
// such as "India won by 5 wickets" or "Match tied".
package outcome

import (
	"regexp"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/domain/normalize"
)

// CricketResult is what the result text says. Empty fields mean the text is silent.
type CricketResult struct {
	WinnerID    string
	Tied        bool
	NoResult    bool
	MarginType  string
	MarginValue string
}

// ResultParser turns a feed result string into a CricketResult.
type ResultParser interface {
	ParseCricket(result string, teams competition.TeamIndex) CricketResult
}

var firstInteger = regexp.MustCompile(`\d+`)

// CricketResultParser understands the phrasing used by CricAPI.
type CricketResultParser struct{}

func NewCricketResultParser() CricketResultParser {
	return CricketResultParser{}
}

func (CricketResultParser) ParseCricket(result string, teams competition.TeamIndex) CricketResult {
	lowered := strings.ToLower(result)
	out := CricketResult{
		Tied:     strings.Contains(lowered, "tied"),
		NoResult: strings.Contains(lowered, "no result"),
	}

	if strings.Contains(lowered, "won") || strings.Contains(lowered, "beat") {
		out.WinnerID = textualWinner(normalize.Name(result), teams)
	}

	out.MarginType, out.MarginValue = parseMargin(lowered)
	return out
}

// textualWinner picks the team whose name appears earliest in the text.
// Aliases come longest first, so "indiawomen" wins over "india" at the same position.
func textualWinner(text string, teams competition.TeamIndex) string {
	if text == "" {
		return ""
	}
	best := -1
	winner := ""
	for _, alias := range teams.Aliases() {
		pos := strings.Index(text, alias.Name)
		if pos < 0 {
			continue
		}
		if best < 0 || pos < best {
			best = pos
			winner = alias.TeamID
		}
	}
	return winner
}

func parseMargin(lowered string) (string, string) {
	_, after, found := strings.Cut(lowered, "won by")
	if !found {
		return "", ""
	}
	after = strings.TrimSpace(after)
	value := firstInteger.FindString(after)

	switch {
	case strings.Contains(after, "run"):
		return match.MarginRuns, value
	case strings.Contains(after, "wicket"):
		return match.MarginWickets, value
	default:
		return "", value
	}
}
