package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iksnae/campusmind/internal"
)

// Exporter defines the interface for all transcript export formats
type Exporter interface {
	Export(snapshot *internal.Snapshot, w io.Writer) error
	Extension() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: jsonl, md, yaml, json)", format)
	}
}

// FormatFromPath derives the export format from a file extension, falling
// back to Markdown
func FormatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "jsonl", "json", "yaml", "yml", "md", "markdown":
		return ext
	default:
		return "md"
	}
}

// WriteFile exports snapshot to path. An empty format is derived from the
// path's extension.
func WriteFile(path, format string, snapshot *internal.Snapshot) error {
	if format == "" {
		format = FormatFromPath(path)
	}
	exporter, err := NewExporter(format)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := exporter.Export(snapshot, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to export transcript as %s: %w", format, err)
	}
	return f.Close()
}
