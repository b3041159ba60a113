package normalize

import "testing"

func TestName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                           "",
		"India":                      "india",
		"India National Cricket Team": "indianationalcricketteam",
		"Royal Challengers Bengaluru": "royalchallengersbengaluru",
		"S.A. (W) 2":                 "saw2",
	}
	for in, want := range cases {
		if got := Name(in); got != want {
			t.Fatalf("Name(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "Completed", want: "completed"},
		{raw: "Match Ended", want: "completed"},
		{raw: "FINISHED", want: "completed"},
		{raw: "Live", want: "live"},
		{raw: "innings running", want: "live"},
		{raw: "match started", want: "live"},
		{raw: "live, finished", want: "completed"},
		{raw: "", want: "scheduled"},
		{raw: "Starts at 14:00", want: "scheduled"},
	}
	for _, tc := range cases {
		if got := Status(tc.raw); got != tc.want {
			t.Fatalf("Status(%q)=%q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIsFinishedStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"completed", "Complete", "ended", "FT", "finished", "final"} {
		if !IsFinishedStatus(status) {
			t.Fatalf("expected %q to be finished", status)
		}
	}
	for _, status := range []string{"", "live", "scheduled", "finals pending"} {
		if IsFinishedStatus(status) {
			t.Fatalf("expected %q to be unfinished", status)
		}
	}
}

func TestMarginSatisfied(t *testing.T) {
	t.Parallel()

	cases := []struct {
		actual, predicted, marginType string
		want                          bool
	}{
		{actual: "250", predicted: "240+", marginType: "runs", want: true},
		{actual: "150", predicted: "100-200", marginType: "runs", want: true},
		{actual: "3", predicted: "4", marginType: "wickets", want: false},
		{actual: "4", predicted: "4", marginType: "wickets", want: true},
		{actual: "230", predicted: "240+", marginType: "runs", want: false},
		{actual: "201", predicted: "100-200", marginType: "runs", want: false},
		{actual: "100", predicted: "100-200", marginType: "runs", want: true},
		{actual: "35", predicted: "35", marginType: "runs", want: true},
		{actual: "35", predicted: "36", marginType: "runs", want: false},
		{actual: "", predicted: "10+", marginType: "runs", want: false},
		{actual: "abc", predicted: "10+", marginType: "runs", want: false},
		{actual: "20", predicted: "x+", marginType: "runs", want: false},
	}
	for _, tc := range cases {
		if got := MarginSatisfied(tc.actual, tc.predicted, tc.marginType); got != tc.want {
			t.Fatalf("MarginSatisfied(%q, %q, %q)=%v, want %v", tc.actual, tc.predicted, tc.marginType, got, tc.want)
		}
	}
}
