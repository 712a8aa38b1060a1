// Package display renders the console front-end: a startup banner and
// colour-coded status lines for prompts, outcomes and alerts.
package display

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	// BannerStyle is muted slate, used for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	// Spoken prompts: soft sky blue.
	spokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	// Safe outcomes: soft mint.
	safeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	// Threats and errors: soft coral, bold.
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5")).
			Bold(true)
)

// Console writes styled lines. Safe for concurrent use.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewConsole creates a console writing to out (os.Stdout when nil).
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, now: time.Now}
}

// Spoken shows a prompt and whether the throttle accepted it.
func (c *Console) Spoken(text string, accepted bool) {
	if accepted {
		c.line(spokenStyle, "♪ "+text)
		return
	}
	c.line(hintStyle, "♪ (held back) "+text)
}

// Safe prints a cleared outcome.
func (c *Console) Safe(format string, a ...any) { c.line(safeStyle, fmt.Sprintf(format, a...)) }

// Info prints a plain status line.
func (c *Console) Info(format string, a ...any) { c.line(infoStyle, fmt.Sprintf(format, a...)) }

// Hint prints secondary, dimmed text.
func (c *Console) Hint(format string, a ...any) { c.line(hintStyle, fmt.Sprintf(format, a...)) }

// Alert prints a threat or error.
func (c *Console) Alert(format string, a ...any) { c.line(alertStyle, fmt.Sprintf(format, a...)) }

// Println writes raw text without a timestamp.
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, a...)
}

func (c *Console) line(style lipgloss.Style, text string) {
	ts := timeStyle.Render(c.now().Format("15:04:05"))
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s %s\n", ts, style.Render(text))
}
