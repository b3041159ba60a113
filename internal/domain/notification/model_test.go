package notification

import "testing"

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event LeaderboardUpdated
		want  Message
	}{
		{
			name:  "falls back to id and scored count",
			event: LeaderboardUpdated{CompetitionID: "c1", PredictionsScored: 4},
			want:  Message{Title: "c1 leaderboard updated", Body: "4 predictions scored."},
		},
		{
			name: "lists at most three leaders",
			event: LeaderboardUpdated{
				CompetitionID:   "c1",
				CompetitionName: "IPL 2026",
				Leaders: []Leader{
					{UserID: "u1", Rank: 1, TotalPoints: 10},
					{UserID: "u2", Rank: 1, TotalPoints: 10},
					{UserID: "u3", Rank: 3, TotalPoints: 7},
					{UserID: "u4", Rank: 4, TotalPoints: 2},
				},
			},
			want: Message{
				Title: "IPL 2026 leaderboard updated",
				Body:  "#1 u1 (10 pts), #1 u2 (10 pts), #3 u3 (7 pts)",
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Render(tc.event); got != tc.want {
				t.Fatalf("unexpected message: got %+v want %+v", got, tc.want)
			}
		})
	}
}
