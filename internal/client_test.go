package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iksnae/campusmind/testutil"
)

func newTestClient(t *testing.T, url string, opts ...ClientOption) *Client {
	t.Helper()
	c, err := NewClient(url, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_EmptyURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "base URL")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:8000/")
	require.Equal(t, "http://127.0.0.1:8000", c.BaseURL())
	require.Equal(t, "http://127.0.0.1:8000/documents/pyqs/a.pdf", c.DocumentURL("documents/pyqs/a.pdf"))
	require.Equal(t, "http://127.0.0.1:8000/documents/b.pdf", c.DocumentURL("/documents/b.pdf"))
}

// ---------------------------------------------------------------------------
// Client.Chat
// ---------------------------------------------------------------------------

func TestClient_Chat_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"query":"hello"}`, string(reqBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"hi","sources":["ignored"]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).Chat(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "hi", resp)
}

func TestClient_Chat_SendsRole(t *testing.T) {
	srv := testutil.NewChatServer(t)

	_, err := newTestClient(t, srv.URL, WithRole("staff")).Chat(context.Background(), "exam dates")
	require.NoError(t, err)
	_, err = newTestClient(t, srv.URL).Chat(context.Background(), "library hours")
	require.NoError(t, err)

	require.Equal(t, []string{"exam dates", "library hours"}, srv.Queries())
	require.Equal(t, []string{"staff", ""}, srv.Roles())
}

func TestClient_Chat_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "server error", status: 500, body: `{"detail":"boom"}`, want: "500"},
		{name: "not json", status: 200, body: `<html>oops</html>`, want: "not valid JSON"},
		{name: "missing field", status: 200, body: `{"answer":"hi"}`, want: "response"},
		{name: "non-string field", status: 200, body: `{"response":42}`, want: "response"},
		{name: "null field", status: 200, body: `{"response":null}`, want: "response"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).Chat(context.Background(), "hello")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)

			var remoteErr *RemoteError
			require.ErrorAs(t, err, &remoteErr)
			require.Equal(t, EndpointChat, remoteErr.Endpoint)
		})
	}
}

func TestClient_Chat_MissingFieldIsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Chat(context.Background(), "hello")
	require.True(t, errors.Is(err, ErrMissingField))
}

func TestClient_Chat_NetworkError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", WithTimeout(200*time.Millisecond))

	_, err := c.Chat(context.Background(), "hello")
	require.Error(t, err)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Zero(t, remoteErr.StatusCode)
}

func TestClient_Chat_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, WithTimeout(50*time.Millisecond)).Chat(context.Background(), "hello")
	require.Error(t, err)
}

func TestClient_WithHTTPClient_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"secure hi"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL, WithHTTPClient(srv.Client())).Chat(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "secure hi", resp)
}

func TestClient_WithHTTPClient_KeepsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	defer srv.Close()

	orders := map[string][]ClientOption{
		"timeout first": {WithTimeout(100 * time.Millisecond), WithHTTPClient(&http.Client{})},
		"client first":  {WithHTTPClient(&http.Client{}), WithTimeout(100 * time.Millisecond)},
	}
	for name, opts := range orders {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			_, err := newTestClient(t, srv.URL, opts...).Chat(context.Background(), "hello")
			require.Error(t, err)
			require.Less(t, time.Since(start), 900*time.Millisecond)
		})
	}
}

func TestClient_Chat_NoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(503)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Chat(context.Background(), "hello")
	require.Error(t, err)
	require.Equal(t, 1, calls, "failed chat requests must not be retried")
}

// ---------------------------------------------------------------------------
// Client.RefreshData
// ---------------------------------------------------------------------------

func TestClient_RefreshData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh_data", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		reqBody, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Empty(t, reqBody)
		_, _ = w.Write([]byte(`{"message":"Indexed 3 documents"}`))
	}))
	defer srv.Close()

	msg, err := newTestClient(t, srv.URL).RefreshData(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Indexed 3 documents", msg)
}

func TestClient_RefreshData_MissingMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).RefreshData(context.Background())
	require.ErrorIs(t, err, ErrMissingField)
}

// ---------------------------------------------------------------------------
// Client.Login
// ---------------------------------------------------------------------------

func TestClient_Login(t *testing.T) {
	srv := testutil.NewChatServer(t)
	c := newTestClient(t, srv.URL)

	res, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", res.Username)
	require.Equal(t, "student", res.Role)

	_, err = c.Login(context.Background(), "alice", "wrong")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
	require.Equal(t, "Invalid Credentials!", remoteErr.Detail)
}

func TestClient_Login_PendingApproval(t *testing.T) {
	srv := testutil.NewChatServer(t)
	srv.LoginReply = func(username, password string) (int, interface{}) {
		return http.StatusForbidden, map[string]string{"detail": "Approval Pending by Admin!"}
	}

	_, err := newTestClient(t, srv.URL).Login(context.Background(), "prof", "secret")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Approval Pending by Admin!")
}

// ---------------------------------------------------------------------------
// Client.SearchPYQs / Ping
// ---------------------------------------------------------------------------

func TestClient_SearchPYQs(t *testing.T) {
	srv := testutil.NewChatServer(t)
	srv.PYQs = []map[string]interface{}{
		{"name": "Data Structures", "code": "CS201", "year": 2024, "path": "documents/pyqs/cs201.pdf"},
	}

	results, err := newTestClient(t, srv.URL).SearchPYQs(context.Background(), "CS2")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, PYQ{Name: "Data Structures", Code: "CS201", Year: 2024, Path: "documents/pyqs/cs201.pdf"}, results[0])
}

func TestClient_SearchPYQs_QueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/student/search_pyqs", r.URL.Path)
		require.Equal(t, "data structures", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	results, err := newTestClient(t, srv.URL).SearchPYQs(context.Background(), "data structures")
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestClient_Ping(t *testing.T) {
	srv := testutil.NewChatServer(t)

	status, err := newTestClient(t, srv.URL).Ping(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	_, err = newTestClient(t, "http://127.0.0.1:1", WithTimeout(200*time.Millisecond)).Ping(context.Background())
	require.Error(t, err)
}

func TestErrorDetail(t *testing.T) {
	require.Equal(t, "nope", errorDetail([]byte(`{"detail":"nope"}`)))
	require.Equal(t, `[{"loc":["body"]}]`, errorDetail([]byte(`{"detail":[{"loc":["body"]}]}`)))
	require.Equal(t, "", errorDetail([]byte(`{"error":"x"}`)))
	require.Equal(t, "", errorDetail([]byte(`not json`)))
}
