package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/campusmind/internal"
)

// JSONLExporter exports transcripts in JSONL format (one entry per line)
type JSONLExporter struct{}

type jsonlEntry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Pending   bool   `json:"pending,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(snapshot *internal.Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, entry := range snapshot.Entries {
		line := jsonlEntry{
			ID:      entry.ID,
			Role:    roleOf(entry),
			Content: entry.Text,
			Pending: entry.Pending,
		}
		if !entry.CreatedAt.IsZero() {
			line.Timestamp = entry.CreatedAt.Format(time.RFC3339)
		}

		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}

	return nil
}

// roleOf maps entry kinds to chat-completion role names
func roleOf(entry internal.Entry) string {
	if entry.Kind == internal.EntryUser {
		return "user"
	}
	return "assistant"
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
