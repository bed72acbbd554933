package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/serp"
)

// Launcher starts browser sessions. It implements batch.SessionFactory.
type Launcher struct {
	cfg    Config
	logger *slog.Logger
}

var _ batch.SessionFactory = (*Launcher)(nil)

// NewLauncher creates a Launcher.
func NewLauncher(cfg Config, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{cfg: cfg.withDefaults(), logger: logger}
}

// Acquire launches the browser and opens a tab. The browser outlives ctx;
// only Release closes it. ctx bounds the startup.
func (l *Launcher) Acquire(ctx context.Context) (batch.Session, error) {
	return l.acquire(ctx)
}

func (l *Launcher) acquire(ctx context.Context) (*Session, error) {
	base := context.WithoutCancel(ctx)
	allocCtx, allocCancel := chromedp.NewExecAllocator(base, l.cfg.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...any) {
			l.logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	stop := context.AfterFunc(ctx, tabCancel)
	err := chromedp.Run(tabCtx)
	stop()
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	l.logger.Info("browser session started",
		"profile", l.cfg.ProfileDir, "headless", l.cfg.Headless, "proxy", l.cfg.ProxyServer != "")
	return &Session{
		ctx:         tabCtx,
		cancelTab:   tabCancel,
		cancelAlloc: allocCancel,
		cfg:         l.cfg,
		logger:      l.logger,
	}, nil
}

// Session is one browser tab.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	cfg         Config
	logger      *slog.Logger

	once       sync.Once
	releaseErr error
}

var (
	_ batch.Session    = (*Session)(nil)
	_ batch.PageSource = (*Session)(nil)
)

// scope derives an action context from the tab that also ends with ctx.
func (s *Session) scope(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var opCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(s.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// classify maps a failed action onto the batch taxonomy. A dead tab means
// the session is gone; a cancelled caller gets its own ctx error.
func (s *Session) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.ctx.Err() != nil || errors.Is(err, chromedp.ErrInvalidContext) {
		return fmt.Errorf("%w: %w", batch.ErrSessionLost, err)
	}
	return err
}

func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, done := s.scope(ctx, timeout)
	defer done()
	return s.classify(ctx, chromedp.Run(opCtx, actions...))
}

// Location returns the current page URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// IsAt reports whether the tab is already on engine's site.
func (s *Session) IsAt(ctx context.Context, engine serp.Engine) (bool, error) {
	loc, err := s.Location(ctx)
	if err != nil {
		return false, err
	}
	return engine.OnSite(loc), nil
}

// Navigate loads url and waits SettleDelay for scripts to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.cfg.PageLoadTimeout, chromedp.Navigate(url)); err != nil {
		return err
	}
	if s.cfg.SettleDelay <= 0 {
		return nil
	}
	t := time.NewTimer(s.cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FindInput tries each locator for up to timeout and returns the first one
// that becomes visible.
func (s *Session) FindInput(ctx context.Context, locators []serp.Locator, timeout time.Duration) (batch.Input, error) {
	tried := make([]string, 0, len(locators))
	for _, loc := range locators {
		sel := loc.CSS()
		err := s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
		if err == nil {
			return &input{s: s, sel: sel}, nil
		}
		if ctx.Err() != nil || errors.Is(err, batch.ErrSessionLost) {
			return nil, err
		}
		s.logger.Debug("input locator did not match", "locator", loc.String())
		tried = append(tried, loc.String())
	}
	return nil, fmt.Errorf("%w (tried %s)", batch.ErrInputNotFound, strings.Join(tried, ", "))
}

// WaitFor reports whether loc became visible within timeout.
func (s *Session) WaitFor(ctx context.Context, loc serp.Locator, timeout time.Duration) (bool, error) {
	err := s.run(ctx, timeout, chromedp.WaitVisible(loc.CSS(), chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, err
	}
}

// PageHTML returns the current URL and rendered markup.
func (s *Session) PageHTML(ctx context.Context) (string, string, error) {
	var loc, html string
	err := s.run(ctx, s.cfg.PageLoadTimeout,
		chromedp.Location(&loc),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", "", err
	}
	return loc, html, nil
}

// Release closes the browser. Safe to call more than once.
func (s *Session) Release() error {
	s.once.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.releaseErr = fmt.Errorf("browser: close: %w", err)
		}
		s.cancelTab()
		s.cancelAlloc()
		s.logger.Debug("browser session released")
	})
	return s.releaseErr
}

type input struct {
	s   *Session
	sel string
}

func (i *input) Clear(ctx context.Context) error {
	return i.s.run(ctx, i.s.cfg.PageLoadTimeout, chromedp.Clear(i.sel, chromedp.ByQuery))
}

func (i *input) Type(ctx context.Context, text string) error {
	return i.s.run(ctx, i.s.cfg.PageLoadTimeout, chromedp.SendKeys(i.sel, text, chromedp.ByQuery))
}

func (i *input) Submit(ctx context.Context) error {
	return i.s.run(ctx, i.s.cfg.PageLoadTimeout, chromedp.SendKeys(i.sel, kb.Enter, chromedp.ByQuery))
}

// Probe opens a session, loads engine's home page and waits for its query
// input. It is the browser half of the self-test.
func (l *Launcher) Probe(ctx context.Context, engine serp.Engine, timeout time.Duration) error {
	sess, err := l.acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", batch.ErrSessionStart, err)
	}
	defer sess.Release()

	if err := sess.Navigate(ctx, engine.HomeURL); err != nil {
		return fmt.Errorf("browser: probe navigate: %w", err)
	}
	if _, err := sess.FindInput(ctx, engine.InputLocators, timeout); err != nil {
		return fmt.Errorf("browser: probe: %w", err)
	}
	l.logger.Info("browser probe passed", "engine", engine.Name)
	return nil
}
