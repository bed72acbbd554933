package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"time"

	"github.com/FranksOps/searchcredit/internal/browser"
	"github.com/FranksOps/searchcredit/internal/fingerprint"
	"github.com/FranksOps/searchcredit/internal/profiles"
	"github.com/FranksOps/searchcredit/internal/serp"
	"github.com/FranksOps/searchcredit/internal/trends"
	"github.com/FranksOps/searchcredit/pkg/proxy"
	"github.com/FranksOps/searchcredit/pkg/retry"
	"github.com/FranksOps/searchcredit/pkg/useragent"
)

// proxies loads the configured proxy pool. A nil pool means direct
// connections.
func (a *app) proxies() (*proxy.Pool, error) {
	if a.cfg.Browser.ProxyFile == "" {
		return nil, nil
	}
	pool := proxy.NewPool(proxy.Config{})
	if err := pool.LoadFile(a.cfg.Browser.ProxyFile); err != nil {
		return nil, err
	}
	return pool, nil
}

func (a *app) trendsClient(pool *proxy.Pool) (*trends.Client, error) {
	fp, err := fingerprint.ParseProfile(a.cfg.Trends.Fingerprint)
	if err != nil {
		return nil, err
	}
	var proxyFunc func(*http.Request) (*url.URL, error)
	if pool != nil {
		proxyFunc = pool.ProxyFunc()
	}
	tc := a.cfg.Trends
	return trends.New(trends.Config{
		APIKey:   a.cfg.SerpAPIKey,
		Endpoint: tc.Endpoint,
		Geo:      tc.Geo,
		Timeout:  tc.Timeout,
		Retry: retry.Policy{
			MaxAttempts:  tc.RetryAttempts,
			InitialDelay: tc.RetryDelay,
			Multiplier:   tc.RetryMultiplier,
		},
		Fingerprint:       fp,
		Proxy:             proxyFunc,
		RequestsPerSecond: tc.RequestsPerSecond,
		Logger:            a.logger.With("component", "trends"),
	})
}

func (a *app) engine() (serp.Engine, error) {
	return serp.Lookup(a.cfg.Browser.Engine)
}

// profile resolves the browser profile from --profile, then the saved
// preference, then discovery.
func (a *app) profile() (profiles.Profile, error) {
	home, _ := os.UserHomeDir()
	roots := profiles.SearchRoots(runtime.GOOS, os.Getenv, home)

	if choice := a.cfg.Browser.Profile; choice != "" {
		return profiles.Select(profiles.Discover(roots, a.logger), roots, choice)
	}
	if p, ok, err := profiles.LoadPreference(a.cfg.State.ProfileFile); err != nil {
		a.logger.Warn("could not load saved profile", "err", err)
	} else if ok {
		return p, nil
	}
	return profiles.Select(profiles.Discover(roots, a.logger), roots, "")
}

func (a *app) launcher(pool *proxy.Pool) (*browser.Launcher, profiles.Profile, error) {
	p, err := a.profile()
	if err != nil {
		return nil, p, err
	}
	if err := profiles.CheckAccess(p); err != nil {
		a.logger.Warn("profile may not be usable", "profile", p.DisplayName(), "err", err)
	}

	bc := browser.Config{
		ExecPath:        a.cfg.Browser.ExecPath,
		UserDataDir:     p.UserDataDir,
		ProfileDir:      p.Dir,
		Headless:        a.cfg.Browser.Headless,
		PageLoadTimeout: a.cfg.Browser.PageLoadTimeout,
		SettleDelay:     time.Second,
	}
	switch a.cfg.Browser.UserAgent {
	case "":
	case "auto":
		bc.UserAgent = useragent.NewPool(nil).ForPlatform(runtime.GOOS)
	default:
		bc.UserAgent = a.cfg.Browser.UserAgent
	}
	if pool != nil {
		if u := pool.Next(); u != nil {
			server, err := proxy.ServerFlag(u)
			if err != nil {
				return nil, p, fmt.Errorf("browser proxy: %w", err)
			}
			bc.ProxyServer = server
		}
	}
	return browser.NewLauncher(bc, a.logger.With("component", "browser")), p, nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

const defaultStopTimeout = 10 * time.Second

// stopAfter bounds a cleanup step that must run after ctx may be cancelled.
func stopAfter(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}
