package outcome

import (
	"testing"

	"github.com/riskibarqy/prediction-league/internal/domain/competition"
)

func testTeams() competition.TeamIndex {
	return competition.NewTeamIndex([]competition.Team{
		{ID: "ind", Name: "India", ShortName: "IND"},
		{ID: "aus", Name: "Australia", ShortName: "AUS"},
		{ID: "sa", Name: "South Africa", ShortName: "SA"},
	})
}

func TestCricketResultParser_ParseCricket(t *testing.T) {
	t.Parallel()

	parser := NewCricketResultParser()
	cases := []struct {
		name   string
		result string
		want   CricketResult
	}{
		{
			name:   "wickets win",
			result: "India won by 5 wkts... India won by 5 wickets",
			want:   CricketResult{WinnerID: "ind", MarginType: "wickets", MarginValue: "5"},
		},
		{
			name:   "runs win with multi word name",
			result: "South Africa won by 37 runs",
			want:   CricketResult{WinnerID: "sa", MarginType: "runs", MarginValue: "37"},
		},
		{
			name:   "beat phrasing without margin",
			result: "Australia beat India",
			want:   CricketResult{WinnerID: "aus"},
		},
		{
			name:   "name without win token",
			result: "India need 20 runs in 12 balls",
			want:   CricketResult{},
		},
		{
			name:   "tied",
			result: "Match tied",
			want:   CricketResult{Tied: true},
		},
		{
			name:   "tied then super over",
			result: "Match tied (India won the Super Over)",
			want:   CricketResult{WinnerID: "ind", Tied: true},
		},
		{
			name:   "no result",
			result: "No result due to rain",
			want:   CricketResult{NoResult: true},
		},
		{
			name:   "empty",
			result: "",
			want:   CricketResult{},
		},
	}

	for _, tc := range cases {
		got := parser.ParseCricket(tc.result, testTeams())
		if got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestCricketResultParser_EmptyIndex(t *testing.T) {
	t.Parallel()

	got := NewCricketResultParser().ParseCricket("India won by 10 runs", competition.NewTeamIndex(nil))
	if got.WinnerID != "" {
		t.Fatalf("expected no winner without teams, got %q", got.WinnerID)
	}
	if got.MarginType != "runs" || got.MarginValue != "10" {
		t.Fatalf("margin should still parse: %+v", got)
	}
}
