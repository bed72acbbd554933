package telemetry

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/FranksOps/searchcredit/internal/batch"
)

var _ batch.Progress = (*Progress)(nil)

// Progress prints one line per attempt: "[  3/100] ✓ term".
type Progress struct {
	mu   sync.Mutex
	w    io.Writer
	ok   *color.Color
	fail *color.Color
	// Verbose appends the failure message to failed lines.
	Verbose bool
}

// NewProgress writes progress lines to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		w:    w,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
	}
}

func (p *Progress) Attempted(index, total int, o batch.SearchOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mark := p.ok.Sprint("✓")
	if !o.Succeeded {
		mark = p.fail.Sprint("✗")
	}
	if !o.Succeeded && p.Verbose {
		fmt.Fprintf(p.w, "[%3d/%d] %s %s (%s)\n", index, total, mark, o.Term, o.Message)
		return
	}
	fmt.Fprintf(p.w, "[%3d/%d] %s %s\n", index, total, mark, o.Term)
}
