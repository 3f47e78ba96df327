package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)

// Console writes whole lines to out, one writer at a time. It is safe for
// use by concurrent transfers.
type Console struct {
	mu   sync.Mutex
	out  io.Writer
	bars bool
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// SetProgressBars switches transfer progress between an animated bar and
// percentage lines. Bars only make sense when a single transfer runs.
func (c *Console) SetProgressBars(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars = enabled
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

// Statusf prints a plain status line.
func (c *Console) Statusf(format string, args ...any) {
	c.println(fmt.Sprintf(format, args...))
}

// Successf prints a highlighted success line.
func (c *Console) Successf(format string, args ...any) {
	c.println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

// Failuref prints a highlighted failure line.
func (c *Console) Failuref(format string, args ...any) {
	c.println(errorStyle.Render("✗ " + fmt.Sprintf(format, args...)))
}

// Progress returns a writer tracking the bytes of one transfer.
func (c *Console) Progress(name string, total int64) io.WriteCloser {
	c.mu.Lock()
	bars := c.bars
	c.mu.Unlock()

	if bars {
		return c.newBar(name, total)
	}
	return &milestoneWriter{
		console: c,
		name:    name,
		total:   total,
		next:    milestoneStep,
		start:   time.Now(),
	}
}

// lockedWriter lets a progress bar share the console lock with status lines.
type lockedWriter struct {
	c *Console
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.out.Write(p)
}

type barWriter struct {
	bar *progressbar.ProgressBar
	out lockedWriter
}

func (c *Console) newBar(name string, total int64) *barWriter {
	if total <= 0 {
		total = -1
	}
	out := lockedWriter{c: c}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(name),
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(false),
	)
	return &barWriter{bar: bar, out: out}
}

func (b *barWriter) Write(p []byte) (int, error) {
	return b.bar.Write(p)
}

func (b *barWriter) Close() error {
	if err := b.bar.Finish(); err != nil {
		return err
	}
	_, err := b.out.Write([]byte("\n"))
	return err
}

const milestoneStep = 10

// milestoneWriter prints a line each time another 10% of a transfer has
// arrived. Unknown totals only get a summary line on Close.
type milestoneWriter struct {
	console *Console
	name    string
	total   int64
	written int64
	next    int64
	start   time.Time
}

func (m *milestoneWriter) Write(p []byte) (int, error) {
	m.written += int64(len(p))
	if m.total <= 0 {
		return len(p), nil
	}

	pct := m.written * 100 / m.total
	if pct < m.next {
		return len(p), nil
	}
	for m.next <= pct {
		m.next += milestoneStep
	}
	m.console.Statusf("%s: %d%% (%s of %s, %s)", m.name, min(pct, 100),
		humanize.Bytes(uint64(m.written)), humanize.Bytes(uint64(m.total)), m.rate())
	return len(p), nil
}

func (m *milestoneWriter) rate() string {
	elapsed := time.Since(m.start).Seconds()
	if elapsed <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(float64(m.written)/elapsed)) + "/s"
}

func (m *milestoneWriter) Close() error {
	if m.total <= 0 {
		m.console.Statusf("%s: %s downloaded", m.name, humanize.Bytes(uint64(m.written)))
	}
	return nil
}
