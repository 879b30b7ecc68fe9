// Package progress implements the decorative console indicators used while
// loading and saving reviews: a percentage bar and a spinner.
//
// Core pipeline code never touches a terminal; it depends only on the Sink
// interface and receives a concrete Bar (or nothing) from the CLI layer.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Sink receives record-level progress increments from the pipeline.
type Sink interface {
	// Add reports that n more records were processed.
	Add(n int)
}

// Nop is a Sink that discards all progress.
type Nop struct{}

// Add implements Sink.
func (Nop) Add(int) {}

// Bar renders a textual progress bar rewritten in place with '\r'.
//
//	Processing reviews: |████████----------| 42.0% Complete
//
// Add is safe for concurrent use; the bar is re-rendered on every call and a
// trailing newline is printed once the total is reached.
type Bar struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
	width   int
	fill    string
	empty   string
	prefix  string
	suffix  string
}

// NewBar returns a Bar for total records writing to w. A non-positive total
// renders as immediately complete.
func NewBar(w io.Writer, total int, prefix string) *Bar {
	return &Bar{
		w:      w,
		total:  total,
		width:  40,
		fill:   "█",
		empty:  "-",
		prefix: prefix,
		suffix: "Complete",
	}
}

// Add implements Sink.
func (b *Bar) Add(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current += n
	if b.current > b.total {
		b.current = b.total
	}
	b.render()
}

func (b *Bar) render() {
	total := b.total
	if total <= 0 {
		total = 1
	}
	percent := 100 * float64(b.current) / float64(total)
	filled := b.width * b.current / total
	bar := strings.Repeat(b.fill, filled) + strings.Repeat(b.empty, b.width-filled)
	fmt.Fprintf(b.w, "\r%s |%s| %.1f%% %s", b.prefix, bar, percent, b.suffix)
	if b.current >= b.total {
		fmt.Fprintln(b.w)
	}
}

// Spinner renders a |/-\ animation next to a label until stopped.
type Spinner struct {
	w     io.Writer
	label string

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner returns an unstarted spinner writing to w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label}
}

// Start begins the animation in a background goroutine. Starting a running
// spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	go func(stop, stopped chan struct{}) {
		defer close(stopped)
		frames := `|/-\`
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				fmt.Fprintf(s.w, "\r%s %c", s.label, frames[i%len(frames)])
				i++
			}
		}
	}(s.stop, s.stopped)
}

// Stop halts the animation, waits for the goroutine to exit, and replaces the
// spinner line with a completion message.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
	s.stop, s.stopped = nil, nil
	fmt.Fprintf(s.w, "\rCompleted %s\n", s.label)
}
