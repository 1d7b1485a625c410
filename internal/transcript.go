package internal

import (
	"sync"
	"time"
)

// EntryKind distinguishes who authored a transcript entry
type EntryKind string

const (
	EntryUser EntryKind = "user"
	EntryBot  EntryKind = "bot"
)

// Entry is a single line of the visible chat transcript
type Entry struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      EntryKind `json:"kind" yaml:"kind"`
	Text      string    `json:"text" yaml:"text"`
	Pending   bool      `json:"pending,omitempty" yaml:"pending,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// TranscriptObserver is notified after every transcript mutation
type TranscriptObserver interface {
	EntryAppended(e Entry)
	EntryUpdated(e Entry)
}

// Transcript is the ordered, in-memory list of chat entries. It is safe for
// concurrent use; each placeholder is addressed only by its own ID.
type Transcript struct {
	mu        sync.Mutex
	entries   []Entry
	index     map[string]int
	observers []TranscriptObserver
	now       func() time.Time
}

// NewTranscript creates an empty transcript
func NewTranscript(observers ...TranscriptObserver) *Transcript {
	return &Transcript{
		index:     make(map[string]int),
		observers: observers,
		now:       time.Now,
	}
}

// Append adds e at the end of the transcript
func (t *Transcript) Append(e Entry) Entry {
	t.mu.Lock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = t.now()
	}
	t.entries = append(t.entries, e)
	if e.ID != "" {
		t.index[e.ID] = len(t.entries) - 1
	}
	observers := t.observers
	t.mu.Unlock()

	for _, o := range observers {
		o.EntryAppended(e)
	}
	return e
}

// Replace sets the text of the entry with the given ID and clears its
// pending flag
func (t *Transcript) Replace(id, text string) (Entry, error) {
	t.mu.Lock()
	i, ok := t.index[id]
	if !ok {
		t.mu.Unlock()
		return Entry{}, ErrEntryNotFound
	}
	t.entries[i].Text = text
	t.entries[i].Pending = false
	t.entries[i].UpdatedAt = t.now()
	e := t.entries[i]
	observers := t.observers
	t.mu.Unlock()

	for _, o := range observers {
		o.EntryUpdated(e)
	}
	return e, nil
}

// Get returns the entry with the given ID
func (t *Transcript) Get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns a snapshot of all entries in display order
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Pending returns the number of unresolved placeholders
func (t *Transcript) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, e := range t.entries {
		if e.Pending {
			n++
		}
	}
	return n
}

// Snapshot is an exportable copy of a transcript
type Snapshot struct {
	Username   string    `json:"username,omitempty" yaml:"username,omitempty"`
	Server     string    `json:"server,omitempty" yaml:"server,omitempty"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Entries    []Entry   `json:"entries" yaml:"entries"`
}

// Snapshot captures the current entries for export
func (t *Transcript) Snapshot(username, server string) *Snapshot {
	return &Snapshot{
		Username:   username,
		Server:     server,
		ExportedAt: t.now(),
		Entries:    t.Entries(),
	}
}
