package persist

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// FormatProgress renders one progress line for processed of total items after
// elapsed time. The remaining time is extrapolated from the average rate so far.
func FormatProgress(processed, total int, elapsed time.Duration) string {
	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) / float64(total) * 100.0
	}

	remaining := 0.0
	if processed > 0 && total > processed {
		estimated := elapsed.Seconds() * float64(total) / float64(processed)
		remaining = estimated - elapsed.Seconds()
	}

	return fmt.Sprintf("%d/%d (%.2f%% complete, estimated time remaining: %.2f seconds)",
		processed, total, percentage, remaining)
}

// ProgressTracker tracks and reports progress of a generation run.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	current        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// total: total number of items to process
// reportInterval: report progress every N items
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Increment increases the current progress by the specified amount.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current += delta
	if p.total > 0 && p.current > p.total {
		p.current = p.total
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish reports the final position if it has not been reported yet.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.current != p.lastReported || p.current == 0 {
		p.report()
		p.lastReported = p.current
	}
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	if p.writer == nil {
		return
	}
	fmt.Fprintln(p.writer, FormatProgress(p.current, p.total, time.Since(p.startTime)))
}
