// Package trends fetches currently trending search queries from SerpApi's
// Google Trends "trending now" engine.
package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/FranksOps/searchcredit/internal/fingerprint"
	"github.com/FranksOps/searchcredit/internal/metrics"
	"github.com/FranksOps/searchcredit/pkg/httpclient"
	"github.com/FranksOps/searchcredit/pkg/retry"
	"github.com/FranksOps/searchcredit/pkg/useragent"
)

var (
	// ErrTrendSource wraps every failure to obtain trending terms.
	ErrTrendSource = errors.New("trend source failed")
	// ErrMissingAPIKey is returned when no SerpApi key is configured.
	ErrMissingAPIKey = errors.New("serpapi key is required (set SERPAPI_KEY)")
)

const (
	DefaultEndpoint = "https://serpapi.com/search.json"
	engineName      = "google_trends_trending_now"
	// MaxLimit is the most terms a single fetch returns.
	MaxLimit = 100
)

// Config holds the client settings. Zero values get defaults.
type Config struct {
	APIKey   string
	Endpoint string
	Geo      string
	Timeout  time.Duration
	Retry    retry.Policy
	// Fingerprint selects the TLS ClientHello. Empty means edge.
	Fingerprint fingerprint.Profile
	// InsecureSkipVerify is for tests against httptest TLS servers.
	InsecureSkipVerify bool
	Proxy              func(*http.Request) (*url.URL, error)
	UserAgents         *useragent.Pool
	// RequestsPerSecond throttles outgoing calls (0 = 1 rps).
	RequestsPerSecond float64
	Logger            *slog.Logger
}

// Client talks to SerpApi.
type Client struct {
	cfg     Config
	http    *httpclient.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// response is the subset of the SerpApi payload we read.
type response struct {
	Error            string `json:"error"`
	TrendingSearches []struct {
		Query string `json:"query"`
	} `json:"trending_searches"`
}

// New builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Geo == "" {
		cfg.Geo = "US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileEdge
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil)
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              cfg.Proxy,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("trends: transport: %w", err)
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 3,
		Transport:    transport,
		UserAgent:    cfg.UserAgents.ForPlatform(runtime.GOOS),
	})
	if err != nil {
		return nil, fmt.Errorf("trends: http client: %w", err)
	}

	return &Client{
		cfg:     cfg,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  cfg.Logger,
	}, nil
}

func (c *Client) query() url.Values {
	return url.Values{
		"engine":   {engineName},
		"geo":      {c.cfg.Geo},
		"no_cache": {"true"},
		"api_key":  {c.cfg.APIKey},
	}
}

// call performs one request. API-level errors and client errors other than
// 429 are marked permanent.
func (c *Client) call(ctx context.Context) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp response
	err := c.http.GetJSON(ctx, c.cfg.Endpoint, c.query(), &resp)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			if msg := apiErrorFromBody(se.Body); msg != "" {
				return nil, retry.Permanent(fmt.Errorf("serpapi error: %s", msg))
			}
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	if resp.Error != "" {
		return nil, retry.Permanent(fmt.Errorf("serpapi error: %s", resp.Error))
	}
	return &resp, nil
}

// apiErrorFromBody pulls "error" out of a JSON error body, if any.
func apiErrorFromBody(body string) string {
	var r response
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return ""
	}
	return r.Error
}

// FetchTrending returns up to limit trending queries in rank order. limit is
// clamped to MaxLimit; limit <= 0 returns no terms without calling the API.
// Every error wraps ErrTrendSource.
func (c *Client) FetchTrending(ctx context.Context, limit int) ([]string, error) {
	if c.cfg.APIKey == "" {
		metrics.RecordTrendingFetch("error")
		return nil, fmt.Errorf("%w: %w", ErrTrendSource, ErrMissingAPIKey)
	}
	if limit <= 0 {
		return []string{}, nil
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	policy := c.cfg.Retry
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.logger.Warn("trending fetch failed, retrying",
			"attempt", attempt, "max_attempts", policy.MaxAttempts, "delay", wait, "err", err)
	}

	var resp *response
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		c.logger.Debug("fetching trending searches", "attempt", attempt, "geo", c.cfg.Geo)
		r, err := c.call(ctx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		metrics.RecordTrendingFetch("error")
		return nil, fmt.Errorf("%w: %w", ErrTrendSource, err)
	}

	out := make([]string, 0, limit)
	for _, item := range resp.TrendingSearches {
		if len(out) == limit {
			break
		}
		if q := strings.TrimSpace(item.Query); q != "" {
			out = append(out, q)
		}
	}

	if len(out) == 0 {
		metrics.RecordTrendingFetch("empty")
		c.logger.Warn("no trending searches in response")
	} else {
		metrics.RecordTrendingFetch("ok")
		c.logger.Info("fetched trending searches", "count", len(out))
	}
	return out, nil
}

// Validate makes a single un-retried request and reports whether the key is
// accepted.
func (c *Client) Validate(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, err := c.call(ctx); err != nil {
		return fmt.Errorf("trends: validate api key: %w", err)
	}
	return nil
}
