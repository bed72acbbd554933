// Package profiles finds Microsoft Edge user profiles on the local machine.
package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultDir is the profile directory Edge creates first.
const DefaultDir = "Default"

// Profile is one Edge profile.
type Profile struct {
	// Name is the friendly name from Preferences, or Dir when unknown.
	Name string `json:"name"`
	// Dir is the directory name passed as --profile-directory.
	Dir string `json:"dir"`
	// UserDataDir is the parent passed as --user-data-dir. Empty means the
	// browser's own default.
	UserDataDir string `json:"user_data_dir"`
	// Fallback marks the synthetic entry used when nothing was discovered.
	Fallback bool `json:"fallback"`
}

// Path is the profile's full directory path.
func (p Profile) Path() string {
	if p.UserDataDir == "" {
		return p.Dir
	}
	return filepath.Join(p.UserDataDir, p.Dir)
}

// DisplayName renders "Profile 2" as "Edge Profile 2".
func (p Profile) DisplayName() string {
	if strings.HasPrefix(p.Name, "Profile") {
		return "Edge Profile " + strings.TrimSpace(strings.TrimPrefix(p.Name, "Profile"))
	}
	return p.Name
}

// SearchRoots returns the Edge user-data directories for goos.
func SearchRoots(goos string, getenv func(string) string, home string) []string {
	switch goos {
	case "windows":
		if local := getenv("LOCALAPPDATA"); local != "" {
			return []string{filepath.Join(local, "Microsoft", "Edge", "User Data")}
		}
		return nil
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Microsoft Edge")}
	default:
		return []string{
			filepath.Join(home, ".config", "microsoft-edge"),
			filepath.Join(home, ".config", "microsoft-edge-beta"),
		}
	}
}

// Fallback is the entry returned when discovery finds nothing: the browser's
// own Default profile under the first root.
func Fallback(roots []string) Profile {
	p := Profile{Name: "Default Profile", Dir: DefaultDir, Fallback: true}
	if len(roots) > 0 {
		p.UserDataDir = roots[0]
	}
	return p
}

// Discover lists profiles under roots: "Profile*" directories plus
// "Default" and "Default Profile". It never returns an empty list.
func Discover(roots []string, logger *slog.Logger) []Profile {
	if logger == nil {
		logger = slog.Default()
	}

	var out []Profile
	for _, root := range roots {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			continue
		}
		logger.Debug("found edge directory", "path", root)

		dirs, _ := filepath.Glob(filepath.Join(root, "Profile*"))
		sort.Strings(dirs)
		dirs = append(dirs, filepath.Join(root, DefaultDir), filepath.Join(root, "Default Profile"))

		for _, dir := range dirs {
			info, err := os.Stat(dir)
			if err != nil || !info.IsDir() {
				continue
			}
			base := filepath.Base(dir)
			name, err := friendlyName(filepath.Join(dir, "Preferences"))
			if err != nil {
				logger.Warn("could not read profile preferences", "profile", base, "err", err)
			}
			if name == "" {
				name = base
			}
			out = append(out, Profile{Name: name, Dir: base, UserDataDir: root})
		}
	}

	if len(out) == 0 {
		logger.Warn("no edge profiles detected, using default profile")
		out = append(out, Fallback(roots))
	}
	return out
}

type preferences struct {
	Profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"profile"`
	AccountInfo []struct {
		FullName string `json:"full_name"`
	} `json:"account_info"`
}

// friendlyName reads the first non-blank of profile.name,
// account_info[0].full_name and profile.email. A missing file is not an error.
func friendlyName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var prefs preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return "", fmt.Errorf("parse preferences: %w", err)
	}
	candidates := []string{prefs.Profile.Name}
	if len(prefs.AccountInfo) > 0 {
		candidates = append(candidates, prefs.AccountInfo[0].FullName)
	}
	candidates = append(candidates, prefs.Profile.Email)
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c, nil
		}
	}
	return "", nil
}

// Select picks a profile by choice: "" takes the first, "0" the fallback,
// "N" the Nth (1-based), anything else matches Name, Dir or Path.
func Select(list []Profile, roots []string, choice string) (Profile, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		if len(list) == 0 {
			return Fallback(roots), nil
		}
		return list[0], nil
	}
	if n, err := strconv.Atoi(choice); err == nil {
		switch {
		case n == 0:
			return Fallback(roots), nil
		case n >= 1 && n <= len(list):
			return list[n-1], nil
		default:
			return Profile{}, fmt.Errorf("profiles: choice %d out of range 0-%d", n, len(list))
		}
	}
	for _, p := range list {
		if strings.EqualFold(p.Name, choice) || strings.EqualFold(p.Dir, choice) || p.Path() == choice {
			return p, nil
		}
	}
	if info, err := os.Stat(choice); err == nil && info.IsDir() {
		return Profile{Name: filepath.Base(choice), Dir: filepath.Base(choice), UserDataDir: filepath.Dir(choice)}, nil
	}
	return Profile{}, fmt.Errorf("profiles: no profile matches %q", choice)
}

var essentialFiles = []string{"Preferences", "Cookies", "Web Data"}

// CheckAccess verifies the profile directory exists and looks initialised.
func CheckAccess(p Profile) error {
	if p.Fallback {
		return nil
	}
	path := p.Path()
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return fmt.Errorf("profiles: directory not found: %s", path)
	}
	var missing []string
	for _, f := range essentialFiles {
		if _, err := os.Stat(filepath.Join(path, f)); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("profiles: %s is missing %s", p.Dir, strings.Join(missing, ", "))
	}
	return nil
}

// SavePreference remembers p in file for later runs.
func SavePreference(file string, p Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profiles: encode preference: %w", err)
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("profiles: save preference: %w", err)
	}
	return nil
}

// LoadPreference returns the saved profile, or ok=false when none is saved
// or the saved directory has disappeared.
func LoadPreference(file string) (p Profile, ok bool, err error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("profiles: read preference: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, false, fmt.Errorf("profiles: parse preference: %w", err)
	}
	if !p.Fallback {
		if _, err := os.Stat(p.Path()); err != nil {
			return Profile{}, false, nil
		}
	}
	return p, true, nil
}
