package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// User-visible strings of the chat surface
const (
	PlaceholderText     = "Typing..."
	OfflineMessage      = "Error: System is offline. Please check terminal."
	RefreshPrompt       = "Update AI knowledge with new PDFs in 'documents' folder?"
	RefreshErrorMessage = "Error updating knowledge base."
)

// ChatAPI is the remote side of the chat surface
type ChatAPI interface {
	Chat(ctx context.Context, query string) (string, error)
	RefreshData(ctx context.Context) (string, error)
}

// BusyFunc runs fn while showing label as a busy indicator
type BusyFunc func(ctx context.Context, label string, fn func() error) error

// Controller drives the chat surface: it relays messages to the backend,
// keeps the transcript up to date and runs knowledge refreshes.
//
// Sends may overlap freely; every send owns its placeholder. At most one
// refresh runs at a time, and the slot is claimed before the confirmation
// prompt so two quick confirmations cannot both go through.
type Controller struct {
	api        ChatAPI
	transcript *Transcript
	trigger    *Trigger
	dialog     Dialog
	busy       BusyFunc
	newID      func(prefix string) string

	refreshing atomic.Bool
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithBusyIndicator sets how the refresh busy state is shown
func WithBusyIndicator(b BusyFunc) ControllerOption {
	return func(c *Controller) {
		c.busy = b
	}
}

// WithIDGenerator overrides how transcript entry IDs are generated
func WithIDGenerator(gen func(prefix string) string) ControllerOption {
	return func(c *Controller) {
		c.newID = gen
	}
}

// NewController wires a controller to its collaborators
func NewController(api ChatAPI, transcript *Transcript, trigger *Trigger, dialog Dialog, opts ...ControllerOption) (*Controller, error) {
	if api == nil {
		return nil, errors.New("controller: chat API must not be nil")
	}
	if transcript == nil {
		return nil, errors.New("controller: transcript must not be nil")
	}
	if trigger == nil {
		return nil, errors.New("controller: trigger must not be nil")
	}
	if dialog == nil {
		return nil, errors.New("controller: dialog must not be nil")
	}

	c := &Controller{
		api:        api,
		transcript: transcript,
		trigger:    trigger,
		dialog:     dialog,
		busy: func(_ context.Context, _ string, fn func() error) error {
			return fn()
		},
		newID: newEntryID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newEntryID returns prefix-<uuid v7>. V7 IDs are time ordered, so two sends
// in the same millisecond still get distinct placeholders.
func newEntryID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		return prefix + "-" + uuid.NewString()
	}
	return prefix + "-" + id.String()
}

// Transcript returns the transcript the controller writes to
func (c *Controller) Transcript() *Transcript {
	return c.transcript
}

// Trigger returns the refresh trigger
func (c *Controller) Trigger() *Trigger {
	return c.trigger
}

// SendMessage relays input to the chat endpoint. Blank input is ignored and
// reported with ok=false. Otherwise the user entry and a placeholder are
// appended, and the placeholder is replaced by the reply or OfflineMessage.
// The resolved placeholder is returned.
func (c *Controller) SendMessage(ctx context.Context, input string) (reply Entry, ok bool) {
	query := strings.TrimSpace(input)
	if query == "" {
		return Entry{}, false
	}

	c.transcript.Append(Entry{ID: c.newID("user"), Kind: EntryUser, Text: query})
	placeholder := c.transcript.Append(Entry{
		ID:      c.newID("bot"),
		Kind:    EntryBot,
		Text:    PlaceholderText,
		Pending: true,
	})

	text, err := c.api.Chat(ctx, query)
	if err != nil {
		LogWarn("Chat request failed: %v", err)
		text = OfflineMessage
	}

	reply, err = c.transcript.Replace(placeholder.ID, text)
	if err != nil {
		// only possible if the transcript was swapped underneath us
		LogError("Failed to resolve placeholder %s: %v", placeholder.ID, err)
	}
	return reply, true
}

// RefreshKnowledge asks for confirmation and then triggers a knowledge base
// refresh. A declined prompt returns nil without touching the trigger. The
// returned error is the underlying failure; the user has already been shown
// RefreshErrorMessage by then.
func (c *Controller) RefreshKnowledge(ctx context.Context) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}
	defer c.refreshing.Store(false)

	if !c.dialog.Confirm(RefreshPrompt) {
		LogDebug("Knowledge refresh declined")
		return nil
	}

	c.trigger.Disable()
	defer c.trigger.Restore()

	var message string
	err := c.busy(ctx, TriggerBusyLabel, func() error {
		var callErr error
		message, callErr = c.api.RefreshData(ctx)
		return callErr
	})
	if err != nil {
		LogWarn("Knowledge refresh failed: %v", err)
		c.dialog.Alert(RefreshErrorMessage)
		return fmt.Errorf("refresh knowledge base: %w", err)
	}

	c.dialog.Alert(message)
	return nil
}

// Refreshing reports whether a refresh is currently in flight
func (c *Controller) Refreshing() bool {
	return c.refreshing.Load()
}
