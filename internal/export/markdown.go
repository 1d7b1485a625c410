package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/campusmind/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(snapshot *internal.Snapshot, w io.Writer) error {
	title := "Chat transcript"
	if snapshot.Username != "" {
		title += " with " + internal.Capitalize(snapshot.Username)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	if snapshot.Server != "" {
		_, _ = fmt.Fprintf(w, "**Server:** %s  \n", snapshot.Server)
	}
	_, _ = fmt.Fprintf(w, "**Exported:** %s  \n", snapshot.ExportedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "**Entries:** %d\n\n", len(snapshot.Entries))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, entry := range snapshot.Entries {
		who := "You"
		if entry.Kind == internal.EntryBot {
			who = "CampusMind"
		}
		stamp := ""
		if !entry.CreatedAt.IsZero() {
			stamp = fmt.Sprintf(" (%s)", entry.CreatedAt.Format("15:04:05"))
		}

		text := escapeMarkdown(entry.Text)
		if entry.Pending {
			text = "_" + text + "_"
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", who, stamp, text)

		if i < len(snapshot.Entries)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	inCodeBlock := false

	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			continue
		}
		line = strings.ReplaceAll(line, "**", "\\*\\*")
		line = strings.ReplaceAll(line, "__", "\\_\\_")
		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
