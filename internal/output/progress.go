package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar displays a progress bar with a counter and description.
// Example: [=========>          ]  45% 450/1000 Checking cards
//
// Lines printed with Println appear above the bar. All methods are safe
// for concurrent use.
type ProgressBar struct {
	total       int
	current     int
	description string
	width       int
	mu          sync.Mutex
	writer      io.Writer
	tty         bool
	emitted     bool // non-TTY: the completed line was written
}

// NewProgress creates a new progress bar writing to stdout.
func NewProgress(total int, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		width:       40,
		writer:      stdout,
		tty:         stdoutIsTerminal(),
	}
}

// SetWidth sets the width of the progress bar in characters.
func (p *ProgressBar) SetWidth(width int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.width = width
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
	p.tty = writerIsTTY(w)
}

// Increment advances the progress by 1 and redraws the bar.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	p.render()
}

// Current returns the number of completed steps.
func (p *ProgressBar) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Println prints a line above the bar. On a terminal the bar is cleared
// first and redrawn below the line.
func (p *ProgressBar) Println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tty {
		fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", p.width+len(p.description)+24))
	}
	fmt.Fprintln(p.writer, line)
	if p.tty {
		p.render()
	}
}

// Finish completes the progress bar and moves to a new line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total

	if p.tty {
		p.render()
		fmt.Fprintln(p.writer)
	} else if !p.emitted {
		p.render()
	}
}

// render draws the progress bar (must be called with lock held).
func (p *ProgressBar) render() {
	percentage := 100
	filled := p.width
	if p.total > 0 {
		percentage = (p.current * 100) / p.total
		filled = (p.current * p.width) / p.total
	}

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	line := fmt.Sprintf("%s %3d%% %d/%d %s", bar.String(), percentage, p.current, p.total, p.description)
	if p.tty {
		fmt.Fprintf(p.writer, "\r%s", line)
		return
	}
	// Non-TTY: only emit output on completion to avoid a line per card.
	if p.current == p.total && !p.emitted {
		fmt.Fprintln(p.writer, line)
		p.emitted = true
	}
}
