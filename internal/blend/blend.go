// Package blend mixes trending and synthesized search terms into a single
// shuffled batch.
package blend

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// TrendSource supplies live trending queries.
type TrendSource interface {
	FetchTrending(ctx context.Context, limit int) ([]string, error)
}

// Generator supplies synthesized queries.
type Generator interface {
	GenerateMany(count int) []string
}

// Config sets how many terms come from each source and the overall cap.
type Config struct {
	TrendingCount    int
	SynthesizedCount int
	// Limit truncates the shuffled batch (0 = no cap).
	Limit int
}

// DefaultConfig is ten trending plus ninety synthesized terms.
var DefaultConfig = Config{TrendingCount: 10, SynthesizedCount: 90}

// Stats describes what went into a blended batch.
type Stats struct {
	Trending    int
	Synthesized int
	Total       int
	// TrendErr is the swallowed trend source error, if any.
	TrendErr error
}

// Blender combines a TrendSource and a Generator.
type Blender struct {
	cfg    Config
	source TrendSource
	gen    Generator
	rng    *rand.Rand
	logger *slog.Logger
}

// Option configures a Blender.
type Option func(*Blender)

// WithRand sets the shuffle source.
func WithRand(r *rand.Rand) Option {
	return func(b *Blender) {
		if r != nil {
			b.rng = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Blender) {
		if l != nil {
			b.logger = l
		}
	}
}

// New builds a Blender. source may be nil, meaning no trending terms.
func New(cfg Config, source TrendSource, gen Generator, opts ...Option) *Blender {
	if cfg.TrendingCount < 0 {
		cfg.TrendingCount = 0
	}
	if cfg.SynthesizedCount < 0 {
		cfg.SynthesizedCount = 0
	}
	b := &Blender{
		cfg:    cfg,
		source: source,
		gen:    gen,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Blend fetches trending terms, synthesizes the rest and returns them
// shuffled and capped. A failing trend source degrades to zero trending terms.
func (b *Blender) Blend(ctx context.Context) ([]string, Stats) {
	var stats Stats
	var trending []string
	if b.source != nil && b.cfg.TrendingCount > 0 {
		got, err := b.source.FetchTrending(ctx, b.cfg.TrendingCount)
		if err != nil {
			b.logger.Error("failed to get trending searches, continuing without them", "err", err)
			stats.TrendErr = err
		} else {
			trending = got
			b.logger.Info("retrieved trending searches", "count", len(trending))
		}
	}

	out := b.Mix(trending, b.cfg.SynthesizedCount)
	stats.Trending = len(trending)
	stats.Synthesized = len(out) - len(trending)
	out = Truncate(out, b.cfg.Limit)
	stats.Total = len(out)

	b.logger.Info("created mixed search list",
		"trending", stats.Trending, "synthesized", stats.Synthesized, "total", stats.Total)
	return out, stats
}

// Mix appends synthesizedCount generated terms to trending and shuffles the
// result uniformly. It does not apply Limit. trending is not modified.
func (b *Blender) Mix(trending []string, synthesizedCount int) []string {
	var synthesized []string
	if synthesizedCount > 0 && b.gen != nil {
		synthesized = b.gen.GenerateMany(synthesizedCount)
	}

	out := make([]string, 0, len(trending)+len(synthesized))
	out = append(out, trending...)
	out = append(out, synthesized...)
	b.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Truncate caps terms at limit (limit <= 0 leaves them untouched).
func Truncate(terms []string, limit int) []string {
	if limit > 0 && len(terms) > limit {
		return terms[:limit]
	}
	return terms
}
