package sportmonks

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
	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/platform/resilience"
	"github.com/riskibarqy/prediction-league/internal/usecase"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	ProviderName = resilience.BreakerSportMonks

	defaultBaseURL        = "https://api.sportmonks.com/v3/football"
	defaultIncludeFixture = "participants;scores;state"
	defaultPastWindow     = 3 * 24 * time.Hour
	defaultFutureWindow   = 7 * 24 * time.Hour
	defaultMaxPages       = 10
	dateLayout            = "2006-01-02"
)

var apiTokenParamRegex = regexp.MustCompile(`api_token=[^&\s"']+`)
var errSportMonksTransient = crerr.New("sportmonks transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	// PastWindow and FutureWindow bound the fixture date range around now.
	PastWindow        time.Duration
	FutureWindow      time.Duration
	MaxPages          int
	RequestsPerSecond float64
	Logger            *logging.Logger
	CircuitBreaker    resilience.CircuitBreakerConfig
}

// Client reads football fixtures of one league around the current date.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	pastWindow     time.Duration
	futureWindow   time.Duration
	maxPages       int
	limiter        *rate.Limiter
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         singleflight.Group
	now            func() time.Time
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
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(ProviderName, cfg.CircuitBreaker)
	breaker := resilience.NewCircuitBreaker(ProviderName, breakerCfg)
	breaker.OnStateChange(func(name string, from, to resilience.CircuitState) {
		logger.Warn("feed circuit breaker state changed", "provider", name, "from", from, "to", to)
	})

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     max(cfg.MaxRetries, 0),
		pastWindow:     positiveOr(cfg.PastWindow, defaultPastWindow),
		futureWindow:   positiveOr(cfg.FutureWindow, defaultFutureWindow),
		maxPages:       max(cfg.MaxPages, 0),
		limiter:        limiter,
		logger:         logger,
		breaker:        breaker,
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string { return ProviderName }

// FetchMatches lists the league's fixtures between now-PastWindow and
// now+FutureWindow. leagueID is the SportMonks league id.
func (c *Client) FetchMatches(ctx context.Context, leagueID string) ([]feed.RemoteMatch, error) {
	leagueID = strings.TrimSpace(leagueID)
	if _, err := strconv.ParseInt(leagueID, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: sportmonks league id %q must be numeric", usecase.ErrInvalidInput, leagueID)
	}
	if c.token == "" {
		return nil, fmt.Errorf("%w: sportmonks token is not configured", usecase.ErrFeedUnavailable)
	}

	now := c.now().UTC()
	start := now.Add(-c.pastWindow).Format(dateLayout)
	end := now.Add(c.futureWindow).Format(dateLayout)
	path := fmt.Sprintf("/fixtures/between/%s/%s", start, end)

	maxPages := c.maxPages
	if maxPages == 0 {
		maxPages = defaultMaxPages
	}

	out := make([]feed.RemoteMatch, 0, 32)
	for page := 1; page <= maxPages; page++ {
		query := map[string]string{
			"include":  defaultIncludeFixture,
			"filters":  "fixtureLeagues:" + leagueID,
			"per_page": "50",
			"page":     strconv.Itoa(page),
		}

		var envelope fixturesEnvelope
		if err := c.doJSON(ctx, path, query, &envelope); err != nil {
			return nil, fmt.Errorf("fetch fixtures league_id=%s page=%d: %w", leagueID, page, err)
		}
		for _, item := range envelope.Data {
			if remote, ok := mapRemoteMatch(item); ok {
				out = append(out, remote)
			}
		}
		if !envelope.Pagination.HasMore {
			break
		}
	}

	c.logger.DebugContext(ctx, "sportmonks fixtures fetched", "league_id", leagueID, "from", start, "to", end, "count", len(out))
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "sportmonks circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: football feed is temporarily unavailable", usecase.ErrFeedUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("api_token", c.token)
	fullURL := c.baseURL + path + "?" + values.Encode()

	out, err, _ := c.flight.Do(path+"?"+values.Encode(), func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errSportMonksTransient) {
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
		return crerr.Wrap(err, "decode provider payload")
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
			lastErr = crerr.Mark(crerr.Newf("send request: %s", sanitizeSensitiveText(err.Error(), c.token)), errSportMonksTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errSportMonksTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw)), errSportMonksTransient)
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
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
	c.logger.WarnContext(ctx, "sportmonks request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return apiTokenParamRegex.ReplaceAllString(value, "api_token=REDACTED")
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func redactAPIURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return apiTokenParamRegex.ReplaceAllString(rawURL, "api_token=REDACTED")
	}
	query := parsed.Query()
	if query.Has("api_token") {
		query.Set("api_token", "REDACTED")
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func abbreviateBody(body []byte) string {
	text := apiTokenParamRegex.ReplaceAllString(strings.TrimSpace(string(body)), "api_token=REDACTED")
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func positiveOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
