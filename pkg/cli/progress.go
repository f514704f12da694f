package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	barWidth = 30

	// renderInterval throttles redraws; the first and last frame always render.
	renderInterval = 100 * time.Millisecond
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress redraws a one-line bar on a writer, normally stderr, so it
// never mixes with sanitized text on stdout.
type SimpleProgress struct {
	mu       sync.Mutex
	w        io.Writer
	unit     string
	now      func() time.Time
	total    int64
	current  int64
	started  time.Time
	rendered time.Time
	frames   int
}

// NewProgressReporter writes to w, or os.Stderr when w is nil. unit names
// what is counted ("lines" renders "lines/s"); the default is "items".
func NewProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if unit == "" {
		unit = "items"
	}
	return &SimpleProgress{w: w, unit: unit, now: time.Now}
}

// Start resets the bar for total items and draws the first frame.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = max(total, 0)
	p.current = 0
	p.started = p.now()
	p.draw()
}

// Update moves the bar. Values are clamped to [0, total].
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(max(current, 0), p.total)
	if p.now().Sub(p.rendered) >= renderInterval {
		p.draw()
	}
}

// Finish draws the completed bar and ends the line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.draw()
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

// Error ends the bar line and prints err.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\n✗ %v\n", err)
}

func (p *SimpleProgress) draw() {
	if p.total == 0 {
		return
	}
	now := p.now()
	p.rendered = now
	p.frames++

	ratio := float64(p.current) / float64(p.total)
	filled := int(ratio * barWidth)

	var rate float64
	if elapsed := now.Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.w, "\r[%s%s] %3.0f%% %d/%d %.1f %s/s",
		strings.Repeat("#", filled), strings.Repeat(".", barWidth-filled),
		ratio*100, p.current, p.total, rate, p.unit)
}
