package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/serp"
)

func TestConfig_Flags(t *testing.T) {
	cfg := Config{
		UserDataDir: "/tmp/edge",
		ProfileDir:  "Profile 1",
		ProxyServer: "socks5://10.0.0.1:1080",
	}
	f := cfg.flags()

	want := map[string]any{
		"headless":               false,
		"no-sandbox":             true,
		"disable-dev-shm-usage":  true,
		"disable-blink-features": "AutomationControlled",
		"enable-automation":      false,
		"start-maximized":        true,
		"profile-directory":      "Profile 1",
		"proxy-server":           "socks5://10.0.0.1:1080",
	}
	for k, v := range want {
		if f[k] != v {
			t.Errorf("flag %s = %v, want %v", k, f[k], v)
		}
	}
}

func TestConfig_FlagsOmitEmpty(t *testing.T) {
	f := Config{Headless: true}.flags()
	if _, ok := f["profile-directory"]; ok {
		t.Errorf("expected no profile-directory without a profile")
	}
	if _, ok := f["proxy-server"]; ok {
		t.Errorf("expected no proxy-server without a proxy")
	}
	if f["headless"] != true {
		t.Errorf("expected headless flag")
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{SettleDelay: -time.Second}.withDefaults()
	if c.PageLoadTimeout != 30*time.Second {
		t.Errorf("expected 30s page load timeout, got %v", c.PageLoadTimeout)
	}
	if c.SettleDelay != 0 {
		t.Errorf("expected negative settle delay to clamp to 0, got %v", c.SettleDelay)
	}
	if n := len(Config{ExecPath: "/usr/bin/msedge", UserAgent: "ua"}.allocatorOptions()); n == 0 {
		t.Errorf("expected allocator options")
	}
}

const searchPage = `<!doctype html>
<html><body>
<form action="/search" method="get">
  <input id="sb_form_q" name="q" type="search">
</form>
</body></html>`

const resultsPage = `<!doctype html>
<html><body><ol id="b_results"><li>result</li></ol></body></html>`

// requireBrowser skips unless a Chromium-family browser is available for
// end-to-end tests.
func requireBrowser(t *testing.T) {
	t.Helper()
	if os.Getenv("SEARCHCREDIT_TEST_BROWSER") == "" {
		t.Skip("SEARCHCREDIT_TEST_BROWSER not set")
	}
}

func localEngine(ts *httptest.Server) serp.Engine {
	e := serp.Bing()
	e.Name = "local"
	e.HomeURL = ts.URL
	e.Host = "127.0.0.1"
	return e
}

func TestSession_EndToEnd(t *testing.T) {
	requireBrowser(t)

	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			gotQuery = r.URL.Query().Get("q")
			w.Write([]byte(resultsPage))
			return
		}
		w.Write([]byte(searchPage))
	}))
	defer ts.Close()

	l := NewLauncher(Config{Headless: true, ExecPath: os.Getenv("SEARCHCREDIT_TEST_BROWSER")}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer sess.Release()

	engine := localEngine(ts)
	if at, _ := sess.IsAt(ctx, engine); at {
		t.Fatalf("expected blank tab not to be on the engine")
	}
	if err := sess.Navigate(ctx, engine.HomeURL); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	in, err := sess.FindInput(ctx, engine.InputLocators, 5*time.Second)
	if err != nil {
		t.Fatalf("FindInput: %v", err)
	}
	if err := in.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := in.Type(ctx, "weather today"); err != nil {
		t.Fatalf("Type: %v", err)
	}
	if err := in.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ok, err := sess.WaitFor(ctx, engine.ResultsIndicator, 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("WaitFor: %v, %v", ok, err)
	}
	if gotQuery != "weather today" {
		t.Errorf("expected submitted query, got %q", gotQuery)
	}

	if err := sess.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if err := sess.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestSession_InputNotFound(t *testing.T) {
	requireBrowser(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no form here</body></html>`))
	}))
	defer ts.Close()

	l := NewLauncher(Config{Headless: true, ExecPath: os.Getenv("SEARCHCREDIT_TEST_BROWSER")}, nil)
	err := l.Probe(context.Background(), localEngine(ts), 500*time.Millisecond)
	if !errors.Is(err, batch.ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
}
