package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iksnae/campusmind/internal"
	"github.com/iksnae/campusmind/testutil"
)

func TestChat_RequiresLogin(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)

	_, err := executeCommand(t, "hello\n", "chat", "--server", srv.URL, "--storage", testutil.StoragePath(t))
	require.Error(t, err)
	require.True(t, errors.Is(err, internal.ErrLoginRequired))
	require.Contains(t, err.Error(), "campusmind login")
	require.Empty(t, srv.Queries(), "no request may be sent without an identity")
}

func TestChat_SingleMessage(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "student")

	out, err := executeCommand(t, "", "chat", "--server", srv.URL, "--storage", storage, "-m", "  library hours?  ")
	require.NoError(t, err)
	require.Contains(t, out, "you › library hours?")
	require.Contains(t, out, "bot › echo: library hours?")
	require.Equal(t, []string{"library hours?"}, srv.Queries())
	require.Equal(t, []string{"student"}, srv.Roles())
}

func TestChat_SingleMessageBlank(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")

	_, err := executeCommand(t, "", "chat", "--server", srv.URL, "--storage", storage, "-m", "   ")
	require.Error(t, err)
	require.Empty(t, srv.Queries())
}

func TestChat_ServerOffline(t *testing.T) {
	isolate(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")

	out, err := executeCommand(t, "", "chat", "--server", "http://127.0.0.1:1", "--timeout", "500ms", "--storage", storage, "-m", "hello")
	require.Error(t, err)
	require.Contains(t, out, internal.OfflineMessage)
}

func TestChat_ServerErrorShowsOfflineMessage(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	srv.Reply = func(query string) (int, interface{}) {
		return http.StatusOK, map[string]string{"answer": "wrong field"}
	}
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")

	out, err := executeCommand(t, "", "chat", "--server", srv.URL, "--storage", storage, "-m", "hello")
	require.Error(t, err)
	require.Contains(t, out, internal.OfflineMessage)
	require.NotContains(t, out, "wrong field")
}

func TestChat_REPL(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "student")
	savePath := filepath.Join(t.TempDir(), "chat.json")

	stdin := "first\n\n   \nsecond\n/help\n/bogus\n/quit\nnever sent\n"
	out, err := executeCommand(t, stdin, "chat", "--server", srv.URL, "--storage", storage, "--max-pending", "1", "--save", savePath)
	require.NoError(t, err)

	require.Contains(t, out, "Welcome, Alice")
	require.Contains(t, out, "/refresh")
	require.Contains(t, out, "Unknown command /bogus")
	require.Contains(t, out, "Transcript saved to "+savePath)
	require.Equal(t, []string{"first", "second"}, srv.Queries())

	data, err := os.ReadFile(savePath)
	require.NoError(t, err)
	var snap internal.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	require.Equal(t, "alice", snap.Username)
	require.Len(t, snap.Entries, 4)
	for _, e := range snap.Entries {
		require.False(t, e.Pending, "all answers must have arrived before exit")
	}
	require.Equal(t, "echo: first", snap.Entries[1].Text)
	require.Equal(t, "echo: second", snap.Entries[3].Text)
}

func TestChat_REPLWaitsForPendingOnEOF(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")
	savePath := filepath.Join(t.TempDir(), "chat.jsonl")

	_, err := executeCommand(t, "one\ntwo\nthree", "chat", "--server", srv.URL, "--storage", storage, "--save", savePath)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"one", "two", "three"}, srv.Queries())

	data, err := os.ReadFile(savePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	require.NotContains(t, string(data), internal.PlaceholderText)
}

func TestChat_REPLRefresh(t *testing.T) {
	tests := []struct {
		name        string
		answer      string
		wantCalls   int
		wantMessage bool
	}{
		{name: "confirmed", answer: "y", wantCalls: 1, wantMessage: true},
		{name: "declined", answer: "n", wantCalls: 0},
		{name: "no answer", answer: "", wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			srv := testutil.NewChatServer(t)
			storage := testutil.StoragePath(t)
			seedIdentity(t, storage, "alice", "")

			out, err := executeCommand(t, "/refresh\n"+tt.answer+"\n", "chat", "--server", srv.URL, "--storage", storage)
			require.NoError(t, err)
			require.Contains(t, out, internal.RefreshPrompt)
			require.Equal(t, tt.wantCalls, srv.RefreshCount())
			if tt.wantMessage {
				require.Contains(t, out, "Knowledge base updated")
			} else {
				require.NotContains(t, out, "Knowledge base updated")
			}
			require.Empty(t, srv.Queries(), "the confirmation answer must not be sent as a chat message")
		})
	}
}

func TestChat_REPLRefreshRunsInBackground(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")

	// the refresh only completes once a chat message has been answered, so
	// the REPL must keep reading while it runs
	unblocked := make(chan struct{})
	var once sync.Once
	srv.Reply = func(query string) (int, interface{}) {
		once.Do(func() { close(unblocked) })
		return http.StatusOK, map[string]string{"response": "echo: " + query}
	}
	srv.RefreshReply = func() (int, interface{}) {
		select {
		case <-unblocked:
		case <-time.After(5 * time.Second):
			return http.StatusInternalServerError, map[string]string{"detail": "never unblocked"}
		}
		return http.StatusOK, map[string]string{"message": "Knowledge base updated"}
	}

	out, err := executeCommand(t, "/refresh\ny\n/refresh\nwhile we wait\n", "chat", "--server", srv.URL, "--storage", storage)
	require.NoError(t, err)
	require.Contains(t, out, "A refresh is already running.")
	require.Contains(t, out, "Knowledge base updated")
	require.Contains(t, out, "echo: while we wait")
	require.Equal(t, 1, srv.RefreshCount())
	require.Equal(t, []string{"while we wait"}, srv.Queries())
}

func TestChat_REPLSave(t *testing.T) {
	isolate(t)
	srv := testutil.NewChatServer(t)
	storage := testutil.StoragePath(t)
	seedIdentity(t, storage, "alice", "")
	savePath := filepath.Join(t.TempDir(), "notes.md")

	out, err := executeCommand(t, "/save\n/save "+savePath+"\n", "chat", "--server", srv.URL, "--storage", storage)
	require.NoError(t, err)
	require.Contains(t, out, "Usage: /save <file>")

	data, err := os.ReadFile(savePath)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Chat transcript with Alice")
}

func TestChat_InvalidFormat(t *testing.T) {
	isolate(t)
	_, err := executeCommand(t, "", "chat", "--format", "pdf", "--storage", testutil.StoragePath(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported format")
}
