package batch

import "time"

// SuccessMessage is the detail recorded for a successful search.
const SuccessMessage = "searched successfully"

// SearchOutcome is the result of attempting one term.
type SearchOutcome struct {
	Term      string        `json:"term"`
	Succeeded bool          `json:"succeeded"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// BatchResult accumulates outcomes in attempt order.
// SuccessfulCount+FailedCount always equals len(Outcomes).
type BatchResult struct {
	RunID           string          `json:"run_id"`
	Outcomes        []SearchOutcome `json:"outcomes"`
	SuccessfulCount int             `json:"successful_count"`
	FailedCount     int             `json:"failed_count"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
}

func (r *BatchResult) add(o SearchOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Succeeded {
		r.SuccessfulCount++
	} else {
		r.FailedCount++
	}
}

// Total is the number of attempted terms.
func (r *BatchResult) Total() int {
	return len(r.Outcomes)
}

// SuccessRate is the percentage of attempts that succeeded, 0 when empty.
func (r *BatchResult) SuccessRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.SuccessfulCount) / float64(len(r.Outcomes)) * 100
}

// Failed returns the failed outcomes in order.
func (r *BatchResult) Failed() []SearchOutcome {
	var out []SearchOutcome
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			out = append(out, o)
		}
	}
	return out
}

// Elapsed is the wall time of the run.
func (r *BatchResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
