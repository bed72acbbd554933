// Package batch drives a list of search terms through one browser session,
// pacing between attempts and recording an outcome per term.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/searchcredit/internal/bypass"
	"github.com/FranksOps/searchcredit/internal/metrics"
	"github.com/FranksOps/searchcredit/internal/serp"
)

// Config tunes the driver. Zero values get defaults.
type Config struct {
	Engine         serp.Engine
	LocatorTimeout time.Duration
	ResultsTimeout time.Duration
	// Detectors inspect the page when results time out. nil uses
	// bypass.DefaultDetectors; an empty non-nil slice disables detection.
	Detectors []bypass.Detector
}

// Driver runs batches. A Driver may run several batches, one at a time.
type Driver struct {
	cfg      Config
	sessions SessionFactory
	pacer    Pacer
	recorder Recorder
	progress Progress
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// WithProgress sets the progress printer.
func WithProgress(p Progress) Option {
	return func(d *Driver) { d.progress = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRunID overrides run ID generation.
func WithRunID(f func() string) Option {
	return func(d *Driver) {
		if f != nil {
			d.newID = f
		}
	}
}

// NewDriver builds a Driver.
func NewDriver(cfg Config, sessions SessionFactory, pacer Pacer, opts ...Option) *Driver {
	if cfg.Engine.Name == "" {
		cfg.Engine = serp.Bing()
	}
	if cfg.LocatorTimeout <= 0 {
		cfg.LocatorTimeout = 5 * time.Second
	}
	if cfg.ResultsTimeout <= 0 {
		cfg.ResultsTimeout = 10 * time.Second
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}

	d := &Driver{
		cfg:      cfg,
		sessions: sessions,
		pacer:    pacer,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run attempts every term in order and returns what was accumulated.
//
// A session that cannot be acquired yields an empty result and an error
// wrapping ErrSessionStart. A session lost mid-run, or ctx being cancelled,
// stops the loop; the partial result is returned with the cause. Per-term
// failures are recorded as outcomes and never stop the loop.
func (d *Driver) Run(ctx context.Context, terms []string) (*BatchResult, error) {
	res := &BatchResult{RunID: d.newID(), StartedAt: d.now()}
	if len(terms) == 0 {
		res.FinishedAt = d.now()
		metrics.RecordBatch("done")
		return res, nil
	}

	log := d.logger.With("run_id", res.RunID)

	sess, err := d.sessions.Acquire(ctx)
	if err != nil {
		res.FinishedAt = d.now()
		metrics.RecordBatch("aborted")
		log.Error("could not start browser session", "err", err)
		return res, fmt.Errorf("%w: %w", ErrSessionStart, err)
	}
	defer func() {
		if err := sess.Release(); err != nil {
			log.Warn("failed to release browser session", "err", err)
		}
	}()

	log.Info("starting batch", "terms", len(terms), "engine", d.cfg.Engine.Name)

	var runErr error
	for i, term := range terms {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		o, fatal := d.attempt(ctx, sess, term)
		if fatal != nil && ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		res.add(o)
		metrics.RecordAttempt(o.Succeeded, o.Duration)
		if d.recorder != nil {
			d.recorder.Record(ctx, res.RunID, o)
		}
		if d.progress != nil {
			d.progress.Attempted(i+1, len(terms), o)
		}

		if fatal != nil {
			runErr = fatal
			break
		}

		if i < len(terms)-1 {
			delay, err := d.pacer.Wait(ctx)
			if err != nil {
				runErr = err
				break
			}
			metrics.RecordPacing(delay)
			log.Debug("paused between searches", "delay", delay)
		}
	}
	res.FinishedAt = d.now()

	log.Info("batch finished",
		"attempted", res.Total(), "successful", res.SuccessfulCount, "failed", res.FailedCount)

	if runErr != nil {
		metrics.RecordBatch("partial")
		return res, fmt.Errorf("batch stopped after %d of %d terms: %w", res.Total(), len(terms), runErr)
	}
	metrics.RecordBatch("done")
	return res, nil
}

// attempt searches one term and converts every failure, panics included,
// into a failed outcome. fatal is non-nil when the run cannot continue.
func (d *Driver) attempt(ctx context.Context, sess Session, term string) (o SearchOutcome, fatal error) {
	start := d.now()
	o.Term = term

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("search attempt panicked", "term", term, "panic", r)
			o.Succeeded = false
			o.Message = fmt.Sprintf("unexpected error: %v", r)
			fatal = nil
		}
		o.Timestamp = d.now()
		o.Duration = o.Timestamp.Sub(start)
	}()

	if err := d.search(ctx, sess, term); err != nil {
		o.Message = err.Error()
		d.logger.Warn("search failed", "term", term, "err", err)
		if errors.Is(err, ErrSessionLost) || ctx.Err() != nil {
			return o, err
		}
		return o, nil
	}

	o.Succeeded = true
	o.Message = SuccessMessage
	return o, nil
}

func (d *Driver) search(ctx context.Context, sess Session, term string) error {
	engine := d.cfg.Engine

	at, err := sess.IsAt(ctx, engine)
	if err != nil {
		return err
	}
	if !at {
		if err := sess.Navigate(ctx, engine.HomeURL); err != nil {
			return fmt.Errorf("navigate to %s: %w", engine.HomeURL, err)
		}
	}

	input, err := sess.FindInput(ctx, engine.InputLocators, d.cfg.LocatorTimeout)
	if err != nil {
		return err
	}
	if err := input.Clear(ctx); err != nil {
		return fmt.Errorf("clear input: %w", err)
	}
	if err := input.Type(ctx, term); err != nil {
		return fmt.Errorf("type term: %w", err)
	}
	if err := input.Submit(ctx); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	ok, err := sess.WaitFor(ctx, engine.ResultsIndicator, d.cfg.ResultsTimeout)
	if err != nil {
		return fmt.Errorf("wait for results: %w", err)
	}
	if !ok {
		if src := d.detectChallenge(ctx, sess); src != "" {
			return fmt.Errorf("%w within %s: %s challenge detected", ErrResultsTimeout, d.cfg.ResultsTimeout, src)
		}
		return fmt.Errorf("%w within %s", ErrResultsTimeout, d.cfg.ResultsTimeout)
	}
	return nil
}

// detectChallenge returns the challenge source on the current page, or "".
// Failures here only cost the enrichment.
func (d *Driver) detectChallenge(ctx context.Context, sess Session) string {
	ps, ok := sess.(PageSource)
	if !ok || len(d.cfg.Detectors) == 0 {
		return ""
	}
	pageURL, html, err := ps.PageHTML(ctx)
	if err != nil {
		d.logger.Debug("could not capture page for challenge detection", "err", err)
		return ""
	}
	det, err := bypass.Analyze(bypass.Page{URL: pageURL, HTML: html}, d.cfg.Detectors)
	if err != nil {
		d.logger.Debug("challenge detection failed", "err", err)
		return ""
	}
	if !det.Detected {
		return ""
	}
	metrics.RecordChallenge(det.Source)
	d.logger.Warn("bot challenge detected", "source", det.Source, "url", pageURL)
	return det.Source
}
