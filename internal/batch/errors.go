package batch

import "errors"

var (
	// ErrSessionStart means no browser session could be acquired. The run
	// records no outcomes.
	ErrSessionStart = errors.New("browser session could not be started")
	// ErrSessionLost means the session died mid-run. The remaining terms are
	// not attempted.
	ErrSessionLost = errors.New("browser session lost")
	// ErrInputNotFound means none of the input locators matched in time.
	ErrInputNotFound = errors.New("search input not found")
	// ErrResultsTimeout means the results indicator never appeared.
	ErrResultsTimeout = errors.New("results did not appear")
)
