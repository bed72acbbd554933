package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchcredit_search_attempts_total",
			Help: "Total number of search attempts by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "searchcredit_search_duration_seconds",
			Help:    "Duration of a single search attempt in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 15, 30},
		},
	)

	PacingDelay = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "searchcredit_pacing_delay_seconds",
			Help:    "Inter-search pause in seconds",
			Buckets: []float64{0.5, 1, 2, 3, 4, 5, 7.5, 10},
		},
	)

	ChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchcredit_challenges_total",
			Help: "Bot challenges detected on results pages",
		},
		[]string{"source"},
	)

	TrendingFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchcredit_trending_fetch_total",
			Help: "Trending term fetches by status",
		},
		[]string{"status"},
	)

	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searchcredit_batch_runs_total",
			Help: "Batch runs by final status",
		},
		[]string{"status"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RecordAttempt counts one search attempt and observes its duration.
func RecordAttempt(succeeded bool, d time.Duration) {
	outcome := OutcomeFailure
	if succeeded {
		outcome = OutcomeSuccess
	}
	SearchAttemptsTotal.WithLabelValues(outcome).Inc()
	SearchDuration.Observe(d.Seconds())
}

// RecordPacing observes one inter-search pause.
func RecordPacing(d time.Duration) {
	PacingDelay.Observe(d.Seconds())
}

// RecordChallenge counts a detected bot challenge.
func RecordChallenge(source string) {
	ChallengesTotal.WithLabelValues(source).Inc()
}

// RecordTrendingFetch counts a trending fetch: "ok", "empty" or "error".
func RecordTrendingFetch(status string) {
	TrendingFetchTotal.WithLabelValues(status).Inc()
}

// RecordBatch counts a finished batch: "done", "partial" or "aborted".
func RecordBatch(status string) {
	BatchRunsTotal.WithLabelValues(status).Inc()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on port (0 picks a free one) and exposes /metrics.
func Start(port int, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics: listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	logger.Info("metrics server listening", "addr", ln.Addr().String())
	return &Server{srv: srv, ln: ln}, nil
}

// Addr returns the address the server is bound to.
func (s *Server) Addr() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
