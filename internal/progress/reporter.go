package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Reporter provides progress feedback while chunks are embedded and indexed.
// Implementations are safe for concurrent use; ingestion batches may report
// from several workers.
type Reporter interface {
	Start(total int)
	Update(current int, message string)
	Finish()
}

// NewReporter returns a CIReporter if the CI environment variable is set,
// or a TerminalReporter otherwise. Output goes to w.
func NewReporter(w io.Writer) Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return &CIReporter{w: w}
	}
	return &TerminalReporter{w: w}
}

// TerminalReporter displays a progress bar in the terminal.
type TerminalReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func (r *TerminalReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("Embedding chunks"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Update(current int, message string) {
	if r.bar != nil {
		if message != "" {
			r.bar.Describe(message)
		}
		_ = r.bar.Set(current)
	}
}

func (r *TerminalReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

// CIReporter prints line-by-line progress suitable for CI logs.
type CIReporter struct {
	w     io.Writer
	mu    sync.Mutex
	total int
}

func (r *CIReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = total
	fmt.Fprintf(r.w, "Embedding %d chunks\n", total)
}

func (r *CIReporter) Update(current int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message == "" {
		fmt.Fprintf(r.w, "[%d/%d]\n", current, r.total)
		return
	}
	fmt.Fprintf(r.w, "[%d/%d] %s\n", current, r.total, message)
}

func (r *CIReporter) Finish() {
	fmt.Fprintln(r.w, "Indexing complete")
}

// Tracker adapts a Reporter to done/total callbacks. The reporter is
// started lazily on the first report, so nothing is drawn when ingestion
// is skipped.
type Tracker struct {
	mu      sync.Mutex
	r       Reporter
	started bool
	last    int
}

// NewTracker returns a Tracker driving r.
func NewTracker(r Reporter) *Tracker {
	return &Tracker{r: r}
}

// Report records that done of total units are indexed. Out-of-order
// reports from concurrent batches never move the bar backwards.
func (t *Tracker) Report(done, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		t.r.Start(total)
		t.started = true
	}
	if done <= t.last {
		return
	}
	t.last = done
	t.r.Update(done, "")
}

// Finish completes the reporter if it was started.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		t.r.Finish()
	}
}
