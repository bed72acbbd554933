// Package pipeline runs one complete search batch: check the API key, check
// the browser, build the term list, drive the searches and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/blend"
	"github.com/FranksOps/searchcredit/internal/serp"
)

var (
	// ErrAPIKey means the trend source rejected the configured key.
	ErrAPIKey = errors.New("api key check failed")
	// ErrBrowser means the browser self-test failed.
	ErrBrowser = errors.New("browser check failed")
	// ErrNoTerms means no search terms could be produced.
	ErrNoTerms = errors.New("no search terms available")
)

// KeyValidator checks trend source credentials.
type KeyValidator interface {
	Validate(ctx context.Context) error
}

// BrowserProber opens a throwaway session and checks the engine is usable.
type BrowserProber interface {
	Probe(ctx context.Context, engine serp.Engine, timeout time.Duration) error
}

// BatchRunner drives the searches.
type BatchRunner interface {
	Run(ctx context.Context, terms []string) (*batch.BatchResult, error)
}

// RunRecorder persists the time of the last completed run.
type RunRecorder interface {
	Touch() (time.Time, error)
}

// Stage identifies a pipeline step in Events.
type Stage string

const (
	StageValidate Stage = "validate"
	StageProbe    Stage = "probe"
	StageTerms    Stage = "terms"
	StageSearch   Stage = "search"
	StageRecord   Stage = "record"
)

// Event reports a stage starting (Done false) or finishing.
type Event struct {
	Stage  Stage
	Done   bool
	Err    error
	Detail string
}

// Config shapes a run.
type Config struct {
	TrendingCount    int
	SynthesizedCount int
	Limit            int
	// TrendingOnly fills the whole list from the trend source.
	TrendingOnly bool
	Engine       serp.Engine
	ProbeTimeout time.Duration
	SkipProbe    bool
}

// Pipeline wires the run's collaborators. Validator, Prober and State may be
// nil to skip their stage.
type Pipeline struct {
	Config    Config
	Validator KeyValidator
	Trends    blend.TrendSource
	Generator blend.Generator
	Prober    BrowserProber
	Driver    BatchRunner
	State     RunRecorder
	Logger    *slog.Logger
	Rand      *rand.Rand
	// Events, when set, observes stage transitions.
	Events func(Event)
}

// Report is everything a run produced.
type Report struct {
	Terms   []string
	Blend   blend.Stats
	Result  *batch.BatchResult
	LastRun time.Time
}

// Succeeded reports whether the run should exit zero.
func (r *Report) Succeeded() bool {
	return r != nil && r.Result != nil && r.Result.SuccessfulCount > 0
}

func (p *Pipeline) emit(e Event) {
	if p.Events != nil {
		p.Events(e)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Run executes the stages in order. The last-run time is recorded only when
// the batch ran to completion.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.Driver == nil {
		return nil, fmt.Errorf("pipeline: driver is nil")
	}
	cfg := p.Config
	if cfg.Engine.Name == "" {
		cfg.Engine = serp.Bing()
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	log := p.logger()
	rep := &Report{}

	if p.Validator != nil {
		p.emit(Event{Stage: StageValidate})
		if err := p.Validator.Validate(ctx); err != nil {
			p.emit(Event{Stage: StageValidate, Done: true, Err: err})
			return rep, fmt.Errorf("%w: %w", ErrAPIKey, err)
		}
		p.emit(Event{Stage: StageValidate, Done: true})
	}

	if p.Prober != nil && !cfg.SkipProbe {
		p.emit(Event{Stage: StageProbe})
		if err := p.Prober.Probe(ctx, cfg.Engine, cfg.ProbeTimeout); err != nil {
			p.emit(Event{Stage: StageProbe, Done: true, Err: err})
			return rep, fmt.Errorf("%w: %w", ErrBrowser, err)
		}
		p.emit(Event{Stage: StageProbe, Done: true})
	}

	bcfg := blend.Config{
		TrendingCount:    cfg.TrendingCount,
		SynthesizedCount: cfg.SynthesizedCount,
		Limit:            cfg.Limit,
	}
	if cfg.TrendingOnly {
		bcfg.TrendingCount, bcfg.SynthesizedCount = cfg.Limit, 0
	}
	detail := fmt.Sprintf("%d trending + %d synthesized", bcfg.TrendingCount, bcfg.SynthesizedCount)
	p.emit(Event{Stage: StageTerms, Detail: detail})

	opts := []blend.Option{blend.WithLogger(log)}
	if p.Rand != nil {
		opts = append(opts, blend.WithRand(p.Rand))
	}
	rep.Terms, rep.Blend = blend.New(bcfg, p.Trends, p.Generator, opts...).Blend(ctx)
	if len(rep.Terms) == 0 {
		err := ErrNoTerms
		if rep.Blend.TrendErr != nil {
			err = fmt.Errorf("%w: %w", ErrNoTerms, rep.Blend.TrendErr)
		}
		p.emit(Event{Stage: StageTerms, Done: true, Err: err})
		return rep, err
	}
	p.emit(Event{Stage: StageTerms, Done: true, Detail: fmt.Sprintf("%d terms", len(rep.Terms))})

	p.emit(Event{Stage: StageSearch, Detail: fmt.Sprintf("%d terms", len(rep.Terms))})
	res, err := p.Driver.Run(ctx, rep.Terms)
	rep.Result = res
	p.emit(Event{Stage: StageSearch, Done: true, Err: err})
	if err != nil {
		return rep, fmt.Errorf("pipeline: %w", err)
	}

	if p.State != nil {
		p.emit(Event{Stage: StageRecord})
		t, err := p.State.Touch()
		if err != nil {
			// the batch itself completed
			log.Warn("could not record last run time", "err", err)
		}
		rep.LastRun = t
		p.emit(Event{Stage: StageRecord, Done: true, Err: err})
	}

	return rep, nil
}
