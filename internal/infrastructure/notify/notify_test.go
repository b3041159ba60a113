package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/prediction-league/internal/domain/notification"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
)

func sampleEvent() notification.LeaderboardUpdated {
	return notification.LeaderboardUpdated{
		CompetitionID:      "c1",
		CompetitionName:    "IPL 2026",
		ParticipantsWrites: 2,
		PredictionsScored:  7,
		Leaders: []notification.Leader{
			{UserID: "u1", Rank: 1, TotalPoints: 30},
			{UserID: "u2", Rank: 2, TotalPoints: 20},
		},
	}
}

func TestQStashNotifier_PublishesRenderedEvent(t *testing.T) {
	t.Parallel()

	var (
		gotPath    string
		gotHeaders http.Header
		gotBody    map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeaders = r.Header.Clone()
		raw, _ := io.ReadAll(r.Body)
		_ = sonic.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := NewQStashNotifier(QStashConfig{
		BaseURL:      server.URL,
		Token:        "qs-token",
		TargetURL:    "https://hooks.example.com/leaderboard",
		Retries:      2,
		ForwardToken: "job-token",
	}, logging.NewNop())

	if err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotPath != "/v2/publish/https://hooks.example.com/leaderboard" {
		t.Fatalf("unexpected publish path %q", gotPath)
	}
	if gotHeaders.Get("Authorization") != "Bearer qs-token" || gotHeaders.Get("Upstash-Retries") != "2" {
		t.Fatalf("unexpected headers: %v", gotHeaders)
	}
	if gotHeaders.Get("Upstash-Forward-X-Internal-Job-Token") != "job-token" {
		t.Fatalf("expected forwarded job token, got %v", gotHeaders)
	}
	if gotHeaders.Get("Upstash-Deduplication-Id") == "" {
		t.Fatalf("expected deduplication id")
	}
	if gotBody["title"] != "IPL 2026 leaderboard updated" || gotBody["competition_id"] != "c1" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}

func TestQStashNotifier_DeduplicationIDIsStable(t *testing.T) {
	t.Parallel()

	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("Upstash-Deduplication-Id"))
	}))
	defer server.Close()

	notifier := NewQStashNotifier(QStashConfig{BaseURL: server.URL, TargetURL: "https://hooks.example.com/x"}, logging.NewNop())
	changed := sampleEvent()
	changed.Leaders[0].TotalPoints = 31
	for _, event := range []notification.LeaderboardUpdated{sampleEvent(), sampleEvent(), changed} {
		if err := notifier.NotifyLeaderboardUpdated(context.Background(), event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	if len(ids) != 3 || ids[0] != ids[1] || ids[1] == ids[2] {
		t.Fatalf("unexpected deduplication ids: %v", ids)
	}
}

func TestQStashNotifier_TransientFailuresOpenCircuit(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	notifier := NewQStashNotifier(QStashConfig{
		BaseURL:   server.URL,
		TargetURL: "https://hooks.example.com/x",
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Hour,
		},
	}, logging.NewNop())

	if err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected 503 to fail")
	}
	err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent())
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
}

func TestQStashNotifier_InvalidTarget(t *testing.T) {
	t.Parallel()

	notifier := NewQStashNotifier(QStashConfig{BaseURL: "https://qstash.upstash.io", TargetURL: "ftp://nope"}, logging.NewNop())
	err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent())
	if err == nil || !strings.Contains(err.Error(), "NOTIFY_QSTASH_TARGET_URL") {
		t.Fatalf("expected target validation error, got %v", err)
	}
}

func TestBuildQStashCurlPreview_MasksSecrets(t *testing.T) {
	t.Parallel()

	preview := buildQStashCurlPreview("https://q/v2/publish/https://t", 3, "dedup", `{"a":"it's"}`, true)
	if !strings.HasPrefix(preview, "curl -X POST 'https://q/v2/publish/https://t'") {
		t.Fatalf("unexpected preview: %s", preview)
	}
	for _, want := range []string{"Bearer ***", "Upstash-Retries: 3", "Upstash-Forward-X-Internal-Job-Token: ***", `'"'"'`} {
		if !strings.Contains(preview, want) {
			t.Fatalf("expected %q in preview %s", want, preview)
		}
	}
}

type stubWebhook struct {
	webhookID string
	token     string
	params    *discordgo.WebhookParams
	err       error
}

func (s *stubWebhook) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.webhookID = webhookID
	s.token = token
	s.params = data
	if s.err != nil {
		return nil, s.err
	}
	return &discordgo.Message{ID: "m1"}, nil
}

func TestDiscordNotifier_SendsEmbed(t *testing.T) {
	t.Parallel()

	session := &stubWebhook{}
	notifier, err := NewDiscordNotifierWithSession(session, DiscordConfig{WebhookID: "123", WebhookToken: "abc", Username: "Scores"}, logging.NewNop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	notifier.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }

	if err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if session.webhookID != "123" || session.token != "abc" || session.params.Username != "Scores" {
		t.Fatalf("unexpected webhook call: %+v", session)
	}
	embed := session.params.Embeds[0]
	if embed.Title != "IPL 2026 leaderboard updated" || embed.Description != "#1 u1 (30 pts), #2 u2 (20 pts)" {
		t.Fatalf("unexpected embed: %+v", embed)
	}
	if embed.Timestamp != "2026-04-01T10:00:00Z" || embed.Fields[1].Value != "7" {
		t.Fatalf("unexpected embed fields: %+v", embed)
	}
}

func TestDiscordNotifier_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewDiscordNotifierWithSession(&stubWebhook{}, DiscordConfig{WebhookID: "123"}, logging.NewNop()); err == nil {
		t.Fatalf("expected missing token to fail")
	}

	session := &stubWebhook{err: errors.New("rate limited")}
	notifier, err := NewDiscordNotifierWithSession(session, DiscordConfig{WebhookID: "1", WebhookToken: "t"}, logging.NewNop())
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.NotifyLeaderboardUpdated(context.Background(), sampleEvent()); err == nil || !strings.Contains(err.Error(), "c1") {
		t.Fatalf("expected wrapped webhook error, got %v", err)
	}
}
