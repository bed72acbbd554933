package trends

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FranksOps/searchcredit/internal/fingerprint"
	"github.com/FranksOps/searchcredit/pkg/retry"
)

func testClient(t *testing.T, endpoint, key string) *Client {
	t.Helper()
	c, err := New(Config{
		APIKey:            key,
		Endpoint:          endpoint,
		Retry:             retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2},
		RequestsPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func trendingBody(queries ...string) []byte {
	type item struct {
		Query string `json:"query"`
	}
	var payload struct {
		TrendingSearches []item `json:"trending_searches"`
	}
	for _, q := range queries {
		payload.TrendingSearches = append(payload.TrendingSearches, item{Query: q})
	}
	b, _ := json.Marshal(payload)
	return b
}

func TestFetchTrending(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_trends_trending_now" || q.Get("geo") != "US" ||
			q.Get("no_cache") != "true" || q.Get("api_key") != "k" {
			http.Error(w, `{"error":"bad params"}`, http.StatusBadRequest)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "missing UA", http.StatusBadRequest)
			return
		}
		w.Write(trendingBody("alpha", " ", "beta", "gamma"))
	}))
	defer ts.Close()

	c := testClient(t, ts.URL, "k")
	got, err := c.FetchTrending(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("expected [alpha beta], got %v", got)
	}
}

func TestFetchTrending_ClampsLimit(t *testing.T) {
	var queries []string
	for i := 0; i < 150; i++ {
		queries = append(queries, fmt.Sprintf("q%d", i))
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(trendingBody(queries...))
	}))
	defer ts.Close()

	got, err := testClient(t, ts.URL, "k").FetchTrending(context.Background(), 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != MaxLimit {
		t.Errorf("expected %d terms, got %d", MaxLimit, len(got))
	}
}

func TestFetchTrending_Empty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trending_searches":[]}`))
	}))
	defer ts.Close()

	got, err := testClient(t, ts.URL, "k").FetchTrending(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected empty list to be a success, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no terms, got %v", got)
	}
}

func TestFetchTrending_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write(trendingBody("alpha"))
	}))
	defer ts.Close()

	got, err := testClient(t, ts.URL, "k").FetchTrending(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 || len(got) != 1 {
		t.Errorf("expected success on third call, got %d calls and %v", calls.Load(), got)
	}
}

func TestFetchTrending_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := testClient(t, ts.URL, "k").FetchTrending(context.Background(), 10)
	if !errors.Is(err, ErrTrendSource) {
		t.Fatalf("expected ErrTrendSource, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestFetchTrending_APIErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"error":"Invalid API key."}`))
	}))
	defer ts.Close()

	_, err := testClient(t, ts.URL, "k").FetchTrending(context.Background(), 10)
	if !errors.Is(err, ErrTrendSource) {
		t.Fatalf("expected ErrTrendSource, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries for an API error, got %d calls", calls.Load())
	}
}

func TestFetchTrending_MissingKey(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:1", "")
	_, err := c.FetchTrending(context.Background(), 10)
	if !errors.Is(err, ErrTrendSource) || !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrTrendSource wrapping ErrMissingAPIKey, got %v", err)
	}
}

func TestFetchTrending_ZeroLimit(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:1", "k")
	got, err := c.FetchTrending(context.Background(), 0)
	if err != nil || len(got) != 0 {
		t.Errorf("expected no terms and no call, got %v, %v", got, err)
	}
}

func TestValidate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid API key."}`))
			return
		}
		w.Write(trendingBody("alpha"))
	}))
	defer ts.Close()

	if err := testClient(t, ts.URL, "good").Validate(context.Background()); err != nil {
		t.Errorf("expected valid key, got %v", err)
	}
	err := testClient(t, ts.URL, "bad").Validate(context.Background())
	if err == nil {
		t.Fatal("expected invalid key to fail")
	}
	if want := "Invalid API key."; !strings.Contains(err.Error(), want) {
		t.Errorf("expected %q in %v", want, err)
	}
	if err := testClient(t, ts.URL, "").Validate(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFetchTrending_TLSFingerprint(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(trendingBody("secure"))
	}))
	defer ts.Close()

	c, err := New(Config{
		APIKey:             "k",
		Endpoint:           ts.URL,
		Fingerprint:        fingerprint.ProfileChrome,
		InsecureSkipVerify: true,
		RequestsPerSecond:  1000,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.FetchTrending(context.Background(), 1)
	if err != nil || len(got) != 1 || got[0] != "secure" {
		t.Errorf("expected [secure], got %v, %v", got, err)
	}
}

func TestNew_UnknownFingerprint(t *testing.T) {
	if _, err := New(Config{Fingerprint: "mosaic"}); err == nil {
		t.Fatal("expected error for unknown fingerprint profile")
	}
}
