package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
)

// StoragePath returns a fresh storage file location inside a temp directory
func StoragePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "campusmind", "storage.db")
}

// DecodeJSONBody decodes a request body into a generic map
func DecodeJSONBody(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		t.Errorf("Failed to decode JSON body: %v", err)
	}
	return body
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
