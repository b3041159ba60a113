package competition

import (
	"testing"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

func TestCompetition_ResolvedSport(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		comp Competition
		want match.Sport
	}{
		{name: "sport text", comp: Competition{Sport: "Cricket"}, want: match.SportCricket},
		{name: "cwc league key", comp: Competition{LeagueID: "icc-cwc-2027"}, want: match.SportCricket},
		{name: "ipl league key", comp: Competition{LeagueID: "IPL2026"}, want: match.SportCricket},
		{name: "football default", comp: Competition{Sport: "Football", LeagueID: "8"}, want: match.SportFootball},
		{name: "blank sport", comp: Competition{}, want: match.SportFootball},
	}
	for _, tc := range cases {
		if got := tc.comp.ResolvedSport(); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestRules_Defaults(t *testing.T) {
	t.Parallel()

	if got := (Rules{}).OutcomePoints(); got != 3 {
		t.Fatalf("default outcome points=%d, want 3", got)
	}
	if got := (Rules{}).ScorePoints(); got != 2 {
		t.Fatalf("default score points=%d, want 2", got)
	}
	rules := Rules{CorrectWinner: 5, CorrectScore: 1}
	if rules.OutcomePoints() != 5 || rules.ScorePoints() != 1 {
		t.Fatalf("configured rules not honored: %+v", rules)
	}
}

func TestTeamIndex_NamesAndShortNames(t *testing.T) {
	t.Parallel()

	idx := NewTeamIndex([]Team{
		{ID: "ind", Name: "India", ShortName: "IND"},
		{ID: "sa", Name: "South Africa", ShortName: "SA"},
		{ID: "", Name: "Ghost"},
	})

	if idx.Len() != 4 {
		t.Fatalf("expected 4 aliases, got %d", idx.Len())
	}
	if id, ok := idx.Lookup("south-africa"); !ok || id != "sa" {
		t.Fatalf("lookup south africa: %q %v", id, ok)
	}
	if _, ok := idx.Lookup("Ghost"); ok {
		t.Fatalf("teams without id must not be indexed")
	}

	aliases := idx.Aliases()
	if aliases[0].Name != "southafrica" {
		t.Fatalf("expected longest alias first, got %+v", aliases)
	}
}
