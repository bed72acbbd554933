package batch

import (
	"context"
	"time"

	"github.com/FranksOps/searchcredit/internal/serp"
)

// Input is a located query box.
type Input interface {
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Submit(ctx context.Context) error
}

// Session is a live browser the driver owns for one run.
type Session interface {
	// IsAt reports whether the current page already belongs to engine.
	IsAt(ctx context.Context, engine serp.Engine) (bool, error)
	Navigate(ctx context.Context, url string) error
	// FindInput tries locators in order, each for up to timeout, and returns
	// the first match. Exhaustion yields an error wrapping ErrInputNotFound.
	FindInput(ctx context.Context, locators []serp.Locator, timeout time.Duration) (Input, error)
	// WaitFor reports whether loc appeared within timeout.
	WaitFor(ctx context.Context, loc serp.Locator, timeout time.Duration) (bool, error)
	// Release closes the session. It is idempotent.
	Release() error
}

// PageSource is implemented by sessions that can expose the rendered page
// for challenge detection.
type PageSource interface {
	PageHTML(ctx context.Context) (url, html string, err error)
}

// SessionFactory acquires sessions.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
}

// Pacer pauses between terms.
type Pacer interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// Recorder receives one record per attempt. Implementations must not block
// the run and must swallow their own errors.
type Recorder interface {
	Record(ctx context.Context, runID string, o SearchOutcome)
}

// Progress renders a line per attempt. index is 1-based.
type Progress interface {
	Attempted(index, total int, o SearchOutcome)
}
