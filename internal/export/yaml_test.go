package export

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/iksnae/campusmind/internal"
)

func TestYAMLExporter_Export(t *testing.T) {
	exporter := &YAMLExporter{}
	var buf bytes.Buffer
	if err := exporter.Export(internal.CreateTestSnapshot("alice"), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"username: alice", "kind: user", "kind: bot", "entries:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Export() output missing %q\n%s", want, output)
		}
	}

	var decoded internal.Snapshot
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Export() produced invalid YAML: %v", err)
	}
	if len(decoded.Entries) != 2 || decoded.Entries[0].Text != "When is the library open?" {
		t.Errorf("decoded entries = %+v", decoded.Entries)
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	if got := (&YAMLExporter{}).Extension(); got != "yaml" {
		t.Errorf("Extension() = %v, want yaml", got)
	}
}
