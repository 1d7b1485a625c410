package internal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	botLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	greetingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))
)

// FormatEntry renders a transcript entry as a single labelled block
func FormatEntry(e Entry) string {
	var label string
	if e.Kind == EntryUser {
		label = userLabelStyle.Render("you ›")
	} else {
		label = botLabelStyle.Render("bot ›")
	}

	text := e.Text
	switch {
	case e.Pending:
		text = pendingStyle.Render(text)
	case e.Kind == EntryBot && text == OfflineMessage:
		text = errorStyle.Render(text)
	}
	return label + " " + text
}

// FormatGreeting renders the welcome line for a signed-in user
func FormatGreeting(id *Identity) string {
	line := "Welcome, " + greetingStyle.Render(id.Greeting)
	if id.Role != "" {
		line += pendingStyle.Render(" (" + id.Role + ")")
	}
	return line
}

// TerminalRenderer prints transcript changes as they happen. The newest line
// is always the last one on screen. A resolved placeholder that is still the
// last block printed is redrawn in place on a terminal; otherwise the resolved
// entry is printed again below.
type TerminalRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	tty       bool
	lastID    string
	lastLines int
}

// NewTerminalRenderer creates a renderer writing to out
func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out, tty: IsTerminal(out)}
}

// EntryAppended implements TranscriptObserver
func (r *TerminalRenderer) EntryAppended(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.print(e)
}

// EntryUpdated implements TranscriptObserver
func (r *TerminalRenderer) EntryUpdated(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty && e.ID == r.lastID && r.lastLines > 0 {
		// the cursor may sit after partially typed input, so start from
		// column 0 of a cleared line before moving up
		fmt.Fprint(r.out, "\r\x1b[2K"+strings.Repeat("\x1b[1A\x1b[2K", r.lastLines))
	}
	r.print(e)
}

// Println writes a line that is not part of the transcript, such as a REPL
// notice, without breaking in-place redraws
func (r *TerminalRenderer) Println(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, line)
	r.detach()
}

// Write prints p unchanged, serialised with transcript output. It ends any
// in-place redraw of the last entry.
func (r *TerminalRenderer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detach()
	return r.out.Write(p)
}

// IsTerminal reports whether the renderer draws on a terminal
func (r *TerminalRenderer) IsTerminal() bool {
	return r.tty
}

// Detach forgets the last printed block so the next update is printed below
// it. Call it after anything else has written to the terminal, such as echoed
// input.
func (r *TerminalRenderer) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detach()
}

func (r *TerminalRenderer) detach() {
	r.lastID = ""
	r.lastLines = 0
}

func (r *TerminalRenderer) print(e Entry) {
	block := FormatEntry(e)
	fmt.Fprintln(r.out, block)
	r.lastID = e.ID
	r.lastLines = r.screenLines(block)
}

// screenLines counts how many terminal rows block occupies, taking soft
// wrapping at the terminal width into account
func (r *TerminalRenderer) screenLines(block string) int {
	width := 0
	if f, ok := r.out.(*os.File); ok && r.tty {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	rows := 0
	for _, line := range strings.Split(block, "\n") {
		w := lipgloss.Width(line)
		if width <= 0 || w <= width {
			rows++
			continue
		}
		rows += (w + width - 1) / width
	}
	return rows
}
