// Package state persists the last-run timestamp between runs and derives the
// elapsed-time view shown by the status command.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultCadence is the minimum gap between runs.
const DefaultCadence = 13 * time.Hour

// Store reads and writes a single timestamp file.
type Store struct {
	Path string
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// LastRun returns the recorded timestamp. ok is false when nothing has been
// recorded yet.
func (s *Store) LastRun() (t time.Time, ok bool, err error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("state: read %s: %w", s.Path, err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err = parseTimestamp(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("state: parse %q: %w", raw, err)
	}
	return t, true, nil
}

// older files carry a naive local timestamp without a zone
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, raw, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Touch records the current time. The file is replaced atomically.
func (s *Store) Touch() (time.Time, error) {
	now := s.now()
	if err := s.write(now); err != nil {
		return time.Time{}, err
	}
	return now, nil
}

func (s *Store) write(t time.Time) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".last_run-*")
	if err != nil {
		return fmt.Errorf("state: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(t.Format(time.RFC3339Nano)); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}

// FormatAgo renders an elapsed duration the way the status view shows it.
func FormatAgo(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	secs := int((d % (24 * time.Hour)) / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	case secs > 3600:
		hours := secs / 3600
		minutes := (secs % 3600) / 60
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm ago", hours, minutes)
		}
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	case secs > 60:
		minutes := secs / 60
		return fmt.Sprintf("%d %s ago", minutes, plural(minutes, "minute"))
	default:
		return "Just now"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// Status is the derived view of the last run against the cadence.
type Status struct {
	Now        time.Time
	LastRun    time.Time
	HasRun     bool
	Ago        string
	HoursSince float64
	Cadence    time.Duration
	Ready      bool
	// Remaining is zero when Ready.
	Remaining time.Duration
}

// NewStatus computes the status view. A zero cadence means DefaultCadence.
func NewStatus(now, last time.Time, hasRun bool, cadence time.Duration) Status {
	if cadence <= 0 {
		cadence = DefaultCadence
	}
	st := Status{Now: now, Cadence: cadence, HasRun: hasRun, Ready: true, Ago: "Never"}
	if !hasRun {
		return st
	}

	elapsed := now.Sub(last)
	st.LastRun = last
	st.Ago = FormatAgo(elapsed)
	st.HoursSince = elapsed.Hours()
	if elapsed < cadence {
		st.Ready = false
		st.Remaining = cadence - elapsed
	}
	return st
}

// Status reads the store and computes the view at the store's current time.
func (s *Store) Status(cadence time.Duration) (Status, error) {
	last, ok, err := s.LastRun()
	if err != nil {
		return Status{}, err
	}
	return NewStatus(s.now(), last, ok, cadence), nil
}
