// Package browser provides chromedp-backed sessions for the batch driver.
package browser

import (
	"time"

	"github.com/chromedp/chromedp"
)

// Config describes how the browser is launched.
type Config struct {
	// ExecPath points at the browser binary. Empty lets chromedp search for
	// a Chromium-family browser.
	ExecPath string
	// UserDataDir and ProfileDir select an existing profile so searches are
	// credited to its signed-in account.
	UserDataDir string
	ProfileDir  string
	Headless    bool
	UserAgent   string
	// ProxyServer is passed verbatim to --proxy-server.
	ProxyServer     string
	PageLoadTimeout time.Duration
	// SettleDelay is waited after each navigation.
	SettleDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageLoadTimeout <= 0 {
		c.PageLoadTimeout = 30 * time.Second
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	return c
}

// flags lists the command-line switches layered over chromedp's defaults.
func (c Config) flags() map[string]any {
	f := map[string]any{
		"headless":                 c.Headless,
		"no-sandbox":               true,
		"disable-dev-shm-usage":    true,
		"disable-blink-features":   "AutomationControlled",
		"enable-automation":        false,
		"start-maximized":          true,
		"disable-popup-blocking":   true,
		"no-first-run":             true,
		"no-default-browser-check": true,
	}
	if c.ProfileDir != "" {
		f["profile-directory"] = c.ProfileDir
	}
	if c.ProxyServer != "" {
		f["proxy-server"] = c.ProxyServer
	}
	return f
}

func (c Config) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for name, value := range c.flags() {
		opts = append(opts, chromedp.Flag(name, value))
	}
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	if c.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(c.UserDataDir))
	}
	if c.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.UserAgent))
	}
	if !c.Headless {
		opts = append(opts, chromedp.WindowSize(1920, 1080))
	}
	return opts
}
