package internal

import (
	"time"
)

// CreateTestSnapshot creates a transcript snapshot with one exchange
func CreateTestSnapshot(username string) *Snapshot {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return &Snapshot{
		Username:   username,
		Server:     "http://127.0.0.1:8000",
		ExportedAt: at.Add(time.Minute),
		Entries: []Entry{
			{ID: "user-1", Kind: EntryUser, Text: "When is the library open?", CreatedAt: at},
			{ID: "bot-1", Kind: EntryBot, Text: "The library is open 8am to 8pm.", CreatedAt: at, UpdatedAt: at.Add(2 * time.Second)},
		},
	}
}

// CreateTestSnapshotWithEntries creates a snapshot with custom entries
func CreateTestSnapshotWithEntries(username string, entries []Entry) *Snapshot {
	return &Snapshot{
		Username:   username,
		ExportedAt: time.Date(2025, 3, 14, 9, 31, 0, 0, time.UTC),
		Entries:    entries,
	}
}
