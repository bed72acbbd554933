package profiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mkProfile(t *testing.T, root, dir, prefs string) {
	t.Helper()
	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if prefs != "" {
		if err := os.WriteFile(filepath.Join(path, "Preferences"), []byte(prefs), 0o644); err != nil {
			t.Fatalf("write prefs: %v", err)
		}
	}
}

func TestSearchRoots(t *testing.T) {
	env := func(k string) string {
		if k == "LOCALAPPDATA" {
			return `C:\Users\me\AppData\Local`
		}
		return ""
	}
	if got := SearchRoots("windows", env, ""); len(got) != 1 || !strings.HasSuffix(got[0], filepath.Join("Microsoft", "Edge", "User Data")) {
		t.Errorf("unexpected windows roots %v", got)
	}
	if got := SearchRoots("windows", func(string) string { return "" }, ""); len(got) != 0 {
		t.Errorf("expected no windows roots without LOCALAPPDATA, got %v", got)
	}
	if got := SearchRoots("darwin", env, "/Users/me"); got[0] != filepath.Join("/Users/me", "Library", "Application Support", "Microsoft Edge") {
		t.Errorf("unexpected darwin roots %v", got)
	}
	if got := SearchRoots("linux", env, "/home/me"); got[0] != filepath.Join("/home/me", ".config", "microsoft-edge") {
		t.Errorf("unexpected linux roots %v", got)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "Default", `{"profile":{"name":"  Personal "}}`)
	mkProfile(t, root, "Profile 1", `{"profile":{"name":""},"account_info":[{"full_name":"Ada Lovelace"}]}`)
	mkProfile(t, root, "Profile 2", `{"profile":{"email":"work@example.com"}}`)
	mkProfile(t, root, "Profile 3", `not json`)
	mkProfile(t, root, "Crashpad", "")

	got := Discover([]string{root, filepath.Join(root, "missing")}, nil)
	names := map[string]string{}
	for _, p := range got {
		names[p.Dir] = p.Name
		if p.UserDataDir != root {
			t.Errorf("expected user data dir %s, got %s", root, p.UserDataDir)
		}
	}

	want := map[string]string{
		"Default":   "Personal",
		"Profile 1": "Ada Lovelace",
		"Profile 2": "work@example.com",
		"Profile 3": "Profile 3",
	}
	if len(names) != len(want) {
		t.Fatalf("expected %d profiles, got %v", len(want), names)
	}
	for dir, name := range want {
		if names[dir] != name {
			t.Errorf("profile %s: name %q, want %q", dir, names[dir], name)
		}
	}
}

func TestDiscover_Fallback(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nothing")
	got := Discover([]string{root}, nil)
	if len(got) != 1 || !got[0].Fallback || got[0].Dir != DefaultDir || got[0].UserDataDir != root {
		t.Fatalf("expected fallback profile, got %+v", got)
	}
}

func TestSelect(t *testing.T) {
	list := []Profile{
		{Name: "Personal", Dir: "Default", UserDataDir: "/u"},
		{Name: "Work", Dir: "Profile 1", UserDataDir: "/u"},
	}
	roots := []string{"/u"}

	tests := []struct {
		choice  string
		wantDir string
		wantErr bool
		fallbk  bool
	}{
		{"", "Default", false, false},
		{"0", "Default", false, true},
		{"2", "Profile 1", false, false},
		{"work", "Profile 1", false, false},
		{"profile 1", "Profile 1", false, false},
		{filepath.Join("/u", "Profile 1"), "Profile 1", false, false},
		{"3", "", true, false},
		{"nobody", "", true, false},
	}
	for _, tt := range tests {
		got, err := Select(list, roots, tt.choice)
		if (err != nil) != tt.wantErr {
			t.Errorf("Select(%q) err = %v, wantErr %v", tt.choice, err, tt.wantErr)
			continue
		}
		if err == nil && (got.Dir != tt.wantDir || got.Fallback != tt.fallbk) {
			t.Errorf("Select(%q) = %+v", tt.choice, got)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (Profile{Name: "Profile 2"}).DisplayName(); got != "Edge Profile 2" {
		t.Errorf("unexpected display name %q", got)
	}
	if got := (Profile{Name: "Work"}).DisplayName(); got != "Work" {
		t.Errorf("unexpected display name %q", got)
	}
}

func TestCheckAccess(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "Default", `{}`)
	p := Profile{Name: "Default", Dir: "Default", UserDataDir: root}

	err := CheckAccess(p)
	if err == nil || !strings.Contains(err.Error(), "Cookies") || !strings.Contains(err.Error(), "Web Data") {
		t.Fatalf("expected missing files error, got %v", err)
	}

	for _, f := range []string{"Cookies", "Web Data"} {
		os.WriteFile(filepath.Join(root, "Default", f), nil, 0o644)
	}
	if err := CheckAccess(p); err != nil {
		t.Errorf("expected accessible profile, got %v", err)
	}
	if err := CheckAccess(Profile{Dir: "nope", UserDataDir: root}); err == nil {
		t.Error("expected error for missing directory")
	}
	if err := CheckAccess(Fallback(nil)); err != nil {
		t.Errorf("expected fallback to pass, got %v", err)
	}
}

func TestPreferenceRoundTrip(t *testing.T) {
	root := t.TempDir()
	mkProfile(t, root, "Profile 1", "")
	file := filepath.Join(t.TempDir(), "profile.json")

	if _, ok, err := LoadPreference(file); ok || err != nil {
		t.Fatalf("expected no saved preference, got %v %v", ok, err)
	}

	want := Profile{Name: "Work", Dir: "Profile 1", UserDataDir: root}
	if err := SavePreference(file, want); err != nil {
		t.Fatalf("SavePreference: %v", err)
	}
	got, ok, err := LoadPreference(file)
	if err != nil || !ok || got != want {
		t.Fatalf("LoadPreference = %+v %v %v", got, ok, err)
	}

	os.RemoveAll(filepath.Join(root, "Profile 1"))
	if _, ok, _ := LoadPreference(file); ok {
		t.Error("expected stale preference to be ignored")
	}
}
