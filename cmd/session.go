package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/iksnae/campusmind/internal"
	"github.com/spf13/cobra"
)

// errLoginHint is returned when the chat surface is opened without a stored
// identity and no interactive login is possible
var errLoginHint = fmt.Errorf("%w: run 'campusmind login' first", internal.ErrLoginRequired)

// chatSession bundles everything a chat surface command needs
type chatSession struct {
	cfg        *internal.Config
	store      *internal.Storage
	client     *internal.Client
	identity   *internal.Identity
	renderer   *internal.TerminalRenderer
	dialog     *replDialog
	controller *internal.Controller
	in         *bufio.Reader

	// out is the renderer once the session is open, so notices and prompts
	// never interleave with transcript lines
	out io.Writer
}

// replDialog lets a refresh running in the background borrow the REPL's
// input for its confirmation. The REPL stops reading while a lease is held;
// the lease ends once the question is answered or the refresh returns
// without asking.
type replDialog struct {
	*internal.TerminalDialog

	mu    sync.Mutex
	lease *inputLease
}

type inputLease struct {
	once sync.Once
	free chan struct{}
}

func (l *inputLease) release() {
	l.once.Do(func() { close(l.free) })
}

// borrow hands the input to the next Confirm call
func (d *replDialog) borrow() *inputLease {
	l := &inputLease{free: make(chan struct{})}
	d.mu.Lock()
	d.lease = l
	d.mu.Unlock()
	return l
}

// Confirm asks on the shared input and then gives it back to the REPL
func (d *replDialog) Confirm(message string) bool {
	ok := d.TerminalDialog.Confirm(message)
	d.mu.Lock()
	l := d.lease
	d.lease = nil
	d.mu.Unlock()
	if l != nil {
		l.release()
	}
	return ok
}

// openSession loads the configuration, opens local storage and resolves the
// signed-in identity. When no identity is stored and stdin is a terminal, the
// login flow runs first; otherwise errLoginHint is returned.
func openSession(cmd *cobra.Command) (*chatSession, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	store, err := internal.OpenStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	s := &chatSession{
		cfg:   cfg,
		store: store,
		in:    bufio.NewReader(cmd.InOrStdin()),
		out:   cmd.OutOrStdout(),
	}

	identity, err := internal.Initialize(store)
	if errors.Is(err, internal.ErrLoginRequired) {
		if !internal.IsTerminal(cmd.InOrStdin()) {
			store.Close()
			return nil, errLoginHint
		}
		internal.PrintInfo(s.out, "You are not signed in.")
		if err := s.login(cmd, ""); err != nil {
			store.Close()
			return nil, err
		}
		identity, err = internal.Initialize(store)
	}
	if err != nil {
		store.Close()
		return nil, err
	}
	s.identity = identity

	client, err := newClient(cfg, internal.WithRole(identity.Role))
	if err != nil {
		store.Close()
		return nil, err
	}
	s.client = client

	s.renderer = internal.NewTerminalRenderer(s.out)
	s.out = s.renderer
	s.dialog = &replDialog{TerminalDialog: internal.NewTerminalDialog(s.in, s.out)}
	trigger := internal.NewTrigger(func(st internal.TriggerState) {
		internal.LogDebug("Refresh trigger: %q (enabled=%v)", st.Label, st.Enabled)
	})
	spinner := internal.NewSpinner(cmd.ErrOrStderr())

	s.controller, err = internal.NewController(
		client,
		internal.NewTranscript(s.renderer),
		trigger,
		s.dialog,
		internal.WithBusyIndicator(spinner.Run),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// Close releases local storage
func (s *chatSession) Close() error {
	return s.store.Close()
}

// snapshot captures the transcript for export
func (s *chatSession) snapshot() *internal.Snapshot {
	return s.controller.Transcript().Snapshot(s.identity.Username, s.cfg.Server)
}

// newClient creates an HTTP client for the configured server
func newClient(cfg *internal.Config, opts ...internal.ClientOption) (*internal.Client, error) {
	if cfg.Timeout > 0 {
		opts = append(opts, internal.WithTimeout(cfg.Timeout))
	}
	return internal.NewClient(cfg.Server, opts...)
}

// login runs the interactive login flow on the session's input
func (s *chatSession) login(cmd *cobra.Command, username string) error {
	_, err := performLogin(cmd, s.in, s.store, s.cfg, username)
	return err
}
