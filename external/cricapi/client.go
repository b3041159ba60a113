package cricapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/prediction-league/internal/domain/feed"
	"github.com/riskibarqy/prediction-league/internal/domain/match"
	"github.com/riskibarqy/prediction-league/internal/platform/cache"
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	ProviderName = resilience.BreakerCricAPI

	defaultBaseURL  = "https://api.cricapi.com/v1"
	currentMatches  = "/currentMatches"
	defaultMaxPages = 4
	defaultCacheTTL = time.Minute
	resultCacheKey  = "current_matches"
)

var apiKeyParamRegex = regexp.MustCompile(`apikey=[^&\s"']+`)
var errCricAPITransient = crerr.New("cricapi transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	// MaxPages bounds offset paging of currentMatches.
	MaxPages int
	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
	// CacheTTL keeps one fetched pass for concurrent competitions. Negative disables it.
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads live and recent cricket matches from CricAPI.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	maxPages       int
	limiter        *rate.Limiter
	results        *cache.Store[[]feed.RemoteMatch]
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         singleflight.Group
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	var results *cache.Store[[]feed.RemoteMatch]
	switch {
	case cfg.CacheTTL == 0:
		results = cache.NewStore[[]feed.RemoteMatch](defaultCacheTTL)
	case cfg.CacheTTL > 0:
		results = cache.NewStore[[]feed.RemoteMatch](cfg.CacheTTL)
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(ProviderName, cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(ProviderName, breakerCfg)
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		logger.Warn("feed circuit breaker state changed", "provider", name, "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     max(cfg.MaxRetries, 0),
		maxPages:       maxPages,
		limiter:        limiter,
		results:        results,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string { return ProviderName }

// FetchMatches returns every current match. The endpoint is not scoped by
// league, so leagueID only labels logs and one pass is shared across callers.
func (c *Client) FetchMatches(ctx context.Context, leagueID string) ([]feed.RemoteMatch, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: cricapi key is not configured", usecase.ErrFeedUnavailable)
	}

	var (
		items []feed.RemoteMatch
		err   error
	)
	if c.results != nil {
		items, err = c.results.GetOrLoad(ctx, resultCacheKey, c.fetchAllPages)
	} else {
		items, err = c.fetchAllPages(ctx)
	}
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "cricapi matches fetched", "league_id", leagueID, "count", len(items))
	out := make([]feed.RemoteMatch, len(items))
	copy(out, items)
	return out, nil
}

func (c *Client) fetchAllPages(ctx context.Context) ([]feed.RemoteMatch, error) {
	out := make([]feed.RemoteMatch, 0, 32)
	offset := 0
	for page := 0; page < c.maxPages; page++ {
		var envelope matchesEnvelope
		query := map[string]string{"offset": strconv.Itoa(offset)}
		if err := c.doJSON(ctx, currentMatches, query, &envelope); err != nil {
			return nil, fmt.Errorf("fetch current matches offset=%d: %w", offset, err)
		}
		if !strings.EqualFold(strings.TrimSpace(envelope.Status), "success") {
			return nil, crerr.Newf("cricapi status=%q reason=%q", envelope.Status, sanitizeSensitiveText(envelope.Reason, c.apiKey))
		}

		for _, item := range envelope.Data {
			if remote, ok := mapRemoteMatch(item); ok {
				out = append(out, remote)
			}
		}

		offset += len(envelope.Data)
		if len(envelope.Data) == 0 || offset >= envelope.Info.TotalRows {
			break
		}
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "cricapi circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: cricket feed is temporarily unavailable", usecase.ErrFeedUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("apikey", c.apiKey)
	fullURL := c.baseURL + path + "?" + values.Encode()

	out, err, _ := c.flight.Do(path+"?"+values.Encode(), func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errCricAPITransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return crerr.Newf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return crerr.Wrap(err, "decode cricapi payload")
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, crerr.Wrap(err, "wait for rate limiter")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = crerr.Mark(crerr.Newf("send request: %s", sanitizeSensitiveText(err.Error(), c.apiKey)), errCricAPITransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errCricAPITransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw, c.apiKey)), errCricAPITransient)
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw, c.apiKey))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 500 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = crerr.New("provider request failed")
	}
	c.logger.WarnContext(ctx, "cricapi request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func mapRemoteMatch(item matchItem) (feed.RemoteMatch, bool) {
	team1, team2 := item.teamName(0), item.teamName(1)
	if team1 == "" || team2 == "" {
		return feed.RemoteMatch{}, false
	}

	status := feed.StatusLive
	switch {
	case item.MatchEnded:
		status = feed.StatusCompleted
	case !item.MatchStarted:
		status = feed.StatusScheduled
	}

	remote := feed.RemoteMatch{
		ExternalID: strings.TrimSpace(item.ID),
		Team1:      team1,
		Team2:      team2,
		Status:     status,
		Result:     strings.TrimSpace(item.Status),
	}
	if len(item.Score) > 0 {
		score := &match.CricketScore{}
		score.T1Runs, score.T1Wickets, score.T1Overs = item.Score[0].scalars()
		if len(item.Score) > 1 {
			score.T2Runs, score.T2Wickets, score.T2Overs = item.Score[1].scalars()
		}
		remote.Score = &match.ActualScore{Cricket: score}
	}
	return remote, true
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apikey=REDACTED")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return apiKeyParamRegex.ReplaceAllString(rawURL, "apikey=REDACTED")
	}
	query := parsed.Query()
	if query.Has("apikey") {
		query.Set("apikey", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte, key string) string {
	text := sanitizeSensitiveText(string(body), key)
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

type matchesEnvelope struct {
	Status string      `json:"status"`
	Reason string      `json:"reason"`
	Data   []matchItem `json:"data"`
	Info   pageInfo    `json:"info"`
}

type pageInfo struct {
	HitsToday int `json:"hitsToday"`
	HitsLimit int `json:"hitsLimit"`
	TotalRows int `json:"totalRows"`
	Offset    int `json:"offset"`
}

type matchItem struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	MatchType    string      `json:"matchType"`
	Status       string      `json:"status"`
	DateTimeGMT  string      `json:"dateTimeGMT"`
	Teams        []string    `json:"teams"`
	TeamInfo     []teamInfo  `json:"teamInfo"`
	Score        []inningRow `json:"score"`
	SeriesID     string      `json:"series_id"`
	MatchStarted bool        `json:"matchStarted"`
	MatchEnded   bool        `json:"matchEnded"`
}

// teamName prefers teamInfo and falls back to the plain teams list.
func (m matchItem) teamName(index int) string {
	if index < len(m.TeamInfo) {
		if name := strings.TrimSpace(m.TeamInfo[index].Name); name != "" {
			return name
		}
	}
	if index < len(m.Teams) {
		return strings.TrimSpace(m.Teams[index])
	}
	return ""
}

type teamInfo struct {
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
}

type inningRow struct {
	Runs    *float64 `json:"r"`
	Wickets *float64 `json:"w"`
	Overs   *float64 `json:"o"`
	Inning  string   `json:"inning"`
}

func (r inningRow) scalars() (runs, wickets, overs match.Scalar) {
	return optionalNumber(r.Runs), optionalNumber(r.Wickets), optionalNumber(r.Overs)
}

func optionalNumber(value *float64) match.Scalar {
	if value == nil {
		return match.Scalar{}
	}
	return match.Number(*value)
}
