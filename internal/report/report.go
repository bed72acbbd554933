// Package report renders run summaries and the status view.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/state"
	"github.com/FranksOps/searchcredit/internal/storage"
)

// Failure is one failed search in a summary.
type Failure struct {
	Term      string    `json:"term"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary aggregates search attempts from one or more runs.
type Summary struct {
	Runs            int            `json:"runs"`
	Total           int            `json:"total"`
	Successful      int            `json:"successful"`
	Failed          int            `json:"failed"`
	SuccessRate     float64        `json:"success_rate"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Duration        time.Duration  `json:"duration"`
	AverageSearch   time.Duration  `json:"average_search"`
	Failures        []Failure      `json:"failures"`
	FailuresByCause map[string]int `json:"failures_by_cause"`
}

type entry struct {
	runID     string
	term      string
	succeeded bool
	message   string
	at        time.Time
	took      time.Duration
}

func summarize(entries []entry) Summary {
	s := Summary{FailuresByCause: make(map[string]int)}
	if len(entries) == 0 {
		return s
	}

	runs := make(map[string]struct{})
	var totalTook time.Duration
	s.StartTime = entries[0].at
	s.EndTime = entries[0].at

	for _, e := range entries {
		s.Total++
		runs[e.runID] = struct{}{}
		totalTook += e.took
		if e.succeeded {
			s.Successful++
		} else {
			s.Failed++
			s.Failures = append(s.Failures, Failure{Term: e.term, Message: e.message, Timestamp: e.at})
			s.FailuresByCause[Cause(e.message)]++
		}
		if e.at.Before(s.StartTime) {
			s.StartTime = e.at
		}
		if e.at.After(s.EndTime) {
			s.EndTime = e.at
		}
	}

	slices.SortFunc(s.Failures, func(a, b Failure) int { return a.Timestamp.Compare(b.Timestamp) })
	s.Runs = len(runs)
	s.SuccessRate = float64(s.Successful) / float64(s.Total) * 100
	s.AverageSearch = totalTook / time.Duration(s.Total)
	s.Duration = s.EndTime.Sub(s.StartTime)
	return s
}

// FromBatch summarizes a single run.
func FromBatch(res *batch.BatchResult) Summary {
	entries := make([]entry, 0, len(res.Outcomes))
	for _, o := range res.Outcomes {
		entries = append(entries, entry{
			runID: res.RunID, term: o.Term, succeeded: o.Succeeded,
			message: o.Message, at: o.Timestamp, took: o.Duration,
		})
	}
	s := summarize(entries)
	if !res.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
		s.StartTime, s.EndTime = res.StartedAt, res.FinishedAt
		s.Duration = res.Elapsed()
	}
	return s
}

// FromRecords summarizes stored history.
func FromRecords(records []*storage.SearchRecord) Summary {
	entries := make([]entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, entry{
			runID: r.RunID, term: r.Term, succeeded: r.Succeeded,
			message: r.Message, at: r.CreatedAt, took: r.Duration,
		})
	}
	return summarize(entries)
}

// Cause reduces a failure message to its leading clause so similar failures
// group together.
func Cause(message string) string {
	cause, _, _ := strings.Cut(message, ":")
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return "unknown"
	}
	return cause
}

// Format selects an output renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Write renders summary in the given format.
func Write(w io.Writer, format Format, summary Summary) error {
	switch format {
	case FormatText, "":
		return WriteText(w, summary)
	case FormatJSON:
		return WriteJSON(w, summary)
	case FormatHTML:
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

var funcs = map[string]any{
	"rate": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
	"ts":   func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
}

const textTmpl = `Search Batch Summary
--------------------
{{- if .Total}}
Time:          {{ts .StartTime}} - {{ts .EndTime}} ({{.Duration}})
{{- end}}
Runs:          {{.Runs}}
Searches:      {{.Total}}
Successful:    {{.Successful}}
Failed:        {{.Failed}}
Success rate:  {{rate .SuccessRate}}
Avg search:    {{.AverageSearch}}
{{- if .Failed}}

Failures by cause:
{{- range $cause, $count := .FailuresByCause}}
  {{$cause}}: {{$count}}
{{- end}}

Failed searches:
{{- range .Failures}}
  {{ts .Timestamp}}  {{printf "%q" .Term}}  {{.Message}}
{{- end}}
{{- end}}
`

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	t, err := texttemplate.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Search History Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Search History Report</h1>
  {{- if .Total}}
  <p><strong>Time:</strong> {{ts .StartTime}} to {{ts .EndTime}} ({{.Duration}})</p>
  {{- end}}

  <div class="stat-card">
    <div>Searches</div>
    <div class="stat-val">{{.Total}}</div>
  </div>
  <div class="stat-card">
    <div>Successful</div>
    <div class="stat-val">{{.Successful}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Success Rate</div>
    <div class="stat-val">{{rate .SuccessRate}}</div>
  </div>

  <h3>Failures By Cause</h3>
  <table>
    <tr><th>Cause</th><th>Count</th></tr>
    {{- range $cause, $count := .FailuresByCause}}
    <tr><td>{{$cause}}</td><td>{{$count}}</td></tr>
    {{- else}}
    <tr><td colspan="2">None</td></tr>
    {{- end}}
  </table>

  <h3>Failed Searches</h3>
  <table>
    <tr><th>Time</th><th>Term</th><th>Message</th></tr>
    {{- range .Failures}}
    <tr><td>{{ts .Timestamp}}</td><td>{{.Term}}</td><td>{{.Message}}</td></tr>
    {{- else}}
    <tr><td colspan="3">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

// WriteHTML writes a basic HTML report to the provided writer. Terms and
// messages are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	t, err := template.New("htmlReport").Funcs(funcs).Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}
	return nil
}

const statusTmpl = `==================================================
Bing Search Automation Status
==================================================
Current time: {{ts .Now}}
{{- if .HasRun}}
Last execution: {{ts .LastRun}} ({{.Ago}})
Hours since last run: {{printf "%.1f" .HoursSince}}
{{- if .Ready}}
✓ Ready for next execution ({{hours .Cadence}}+ hours elapsed)
{{- else}}
⏰ Wait {{printf "%.1f" .Remaining.Hours}} more hours before next execution
{{- end}}
{{- else}}
Last execution: Never (first run)
{{- end}}
==================================================
`

// WriteStatus renders the status view.
func WriteStatus(w io.Writer, st state.Status) error {
	fm := map[string]any{
		"ts":    funcs["ts"],
		"hours": func(d time.Duration) string { return fmt.Sprintf("%g", d.Hours()) },
	}
	t, err := texttemplate.New("status").Funcs(fm).Parse(statusTmpl)
	if err != nil {
		return fmt.Errorf("report: parse status template: %w", err)
	}
	if err := t.Execute(w, st); err != nil {
		return fmt.Errorf("report: render status: %w", err)
	}
	return nil
}
