package internal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Dialog is the blocking confirm/alert surface used by the controller
type Dialog interface {
	Confirm(message string) bool
	Alert(message string)
}

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// TerminalDialog asks and reports on a line-oriented terminal. The reader is
// shared with the chat REPL so answers are taken from the same input stream.
type TerminalDialog struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

// NewTerminalDialog creates a dialog reading answers from in
func NewTerminalDialog(in *bufio.Reader, out io.Writer) *TerminalDialog {
	return &TerminalDialog{in: in, out: out}
}

// AssumeYes makes Confirm answer yes without reading input
func (d *TerminalDialog) AssumeYes(yes bool) *TerminalDialog {
	d.assumeYes = yes
	return d
}

// Confirm prints message and returns true only for "y" or "yes". EOF or a
// read error counts as no.
func (d *TerminalDialog) Confirm(message string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.assumeYes {
		fmt.Fprintf(d.out, "%s [y/N]: y\n", promptStyle.Render(message))
		return true
	}

	fmt.Fprintf(d.out, "%s [y/N]: ", promptStyle.Render(message))
	input, err := d.in.ReadString('\n')
	if err != nil && input == "" {
		fmt.Fprintln(d.out)
		return false
	}

	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

// Alert prints message in a box
func (d *TerminalDialog) Alert(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out, alertStyle.Render(message))
}
