package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/searchcredit/internal/report"
	"github.com/FranksOps/searchcredit/internal/storage"
	"github.com/FranksOps/searchcredit/internal/storage/jsonbackend"
)

// isolate runs the command from an empty directory with no API key.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("SERPAPI_KEY", "")
	t.Setenv("SEARCHCREDIT_SERPAPI_KEY", "")
	return dir
}

func run(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestStatus_FirstRun(t *testing.T) {
	isolate(t)
	code, out, _ := run(t, "", "status")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out, "Last execution: Never (first run)") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestStatus_AfterRun(t *testing.T) {
	dir := isolate(t)
	last := time.Now().Add(-2 * time.Hour).Format(time.RFC3339Nano)
	if err := os.WriteFile(filepath.Join(dir, "last_run.txt"), []byte(last), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := run(t, "", "status")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out, "Wait 11.0 more hours") {
		t.Errorf("expected wait message:\n%s", out)
	}
}

func TestRoot_PromptDeclined(t *testing.T) {
	isolate(t)
	code, out, _ := run(t, "n\n")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out, "Run search batch now?") || !strings.Contains(out, "Search batch cancelled.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_MissingKey(t *testing.T) {
	isolate(t)
	code, out, _ := run(t, "", "run", "--yes", "--storage", "none")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(out, "SerpApi key not configured") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRun_InvalidLimit(t *testing.T) {
	isolate(t)
	code, _, errOut := run(t, "", "run", "--yes", "--limit", "0")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "run.limit") {
		t.Errorf("expected validation error, got %q", errOut)
	}
}

func TestRun_Declined(t *testing.T) {
	isolate(t)
	t.Setenv("SERPAPI_KEY", "test-key")
	code, out, _ := run(t, "no\n", "run", "--storage", "none")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.Contains(out, "Search batch cancelled.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestHistory_JSON(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "history.jsonl")

	b, err := jsonbackend.New(path)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for _, r := range []*storage.SearchRecord{
		{ID: "1", RunID: "a", Term: "weather", Succeeded: true, Message: "searched successfully", CreatedAt: now.Add(-time.Hour)},
		{ID: "2", RunID: "a", Term: "flights", Succeeded: false, Message: "search input not found", CreatedAt: now.Add(-time.Minute)},
		{ID: "3", RunID: "old", Term: "news", Succeeded: false, Message: "search input not found", CreatedAt: now.Add(-72 * time.Hour)},
	} {
		if err := b.Save(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	b.Close()

	code, out, errOut := run(t, "", "history", "--storage", "json", "--dsn", path, "--since", "24h", "--failed", "-o", "json")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	var s report.Summary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("invalid json output %q: %v", out, err)
	}
	if s.Total != 1 || s.Failed != 1 || s.Failures[0].Term != "flights" {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestHistory_Disabled(t *testing.T) {
	isolate(t)
	code, _, errOut := run(t, "", "history", "--storage", "none")
	if code != 1 || !strings.Contains(errOut, "history is disabled") {
		t.Fatalf("expected disabled error, got %d %q", code, errOut)
	}
}

func TestProfiles_Select(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("profile roots are platform specific")
	}
	dir := isolate(t)
	home := filepath.Join(dir, "home")
	t.Setenv("HOME", home)

	profDir := filepath.Join(home, ".config", "microsoft-edge", "Profile 1")
	if err := os.MkdirAll(profDir, 0o755); err != nil {
		t.Fatal(err)
	}
	prefs := `{"profile":{"name":"Work"}}`
	if err := os.WriteFile(filepath.Join(profDir, "Preferences"), []byte(prefs), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := run(t, "", "profiles", "--select", "1")
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, errOut)
	}
	if !strings.Contains(out, "1. Work") || !strings.Contains(out, "Saved profile preference: Work") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "selected_edge_profile.json")); err != nil {
		t.Errorf("expected preference file: %v", err)
	}
}
