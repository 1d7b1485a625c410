package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
)

// ChatServer is a scripted stand-in for the campus chat backend
type ChatServer struct {
	*httptest.Server

	mu        sync.Mutex
	queries   []string
	roles     []string
	refreshes int
	accounts  map[string]*Account
	nextID    int
	uploads   []Upload

	// Reply builds the /chat response for a query; defaults to echoing it
	Reply func(query string) (int, interface{})
	// RefreshReply builds the /refresh_data response
	RefreshReply func() (int, interface{})
	// LoginReply builds the /login response
	LoginReply func(username, password string) (int, interface{})
	// PYQs is returned by /student/search_pyqs
	PYQs []map[string]interface{}
}

// Account is a user registered through the fake backend
type Account struct {
	ID       int
	Username string
	Role     string
	School   string
	Approved bool
}

// Upload is a multipart upload received on an admin endpoint
type Upload struct {
	Endpoint string
	Fields   map[string]string
	Filename string
	Content  []byte
}

// NewChatServer starts a ChatServer that is closed when the test ends
func NewChatServer(t *testing.T) *ChatServer {
	t.Helper()
	cs := &ChatServer{accounts: map[string]*Account{}}
	cs.Reply = func(query string) (int, interface{}) {
		return http.StatusOK, map[string]string{"response": "echo: " + query}
	}
	cs.RefreshReply = func() (int, interface{}) {
		return http.StatusOK, map[string]string{"message": "Knowledge base updated"}
	}
	// registered accounts keep their role; unapproved staff are refused
	cs.LoginReply = func(username, password string) (int, interface{}) {
		if password != "secret" {
			return http.StatusUnauthorized, map[string]string{"detail": "Invalid Credentials!"}
		}
		role := "student"
		cs.mu.Lock()
		a, ok := cs.accounts[username]
		cs.mu.Unlock()
		if ok {
			if a.Role != "admin" && !a.Approved {
				return http.StatusForbidden, map[string]string{"detail": "Approval Pending by Admin!"}
			}
			role = a.Role
		}
		return http.StatusOK, map[string]string{"username": username, "role": role}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		body := DecodeJSONBody(t, r.Body)
		query, _ := body["query"].(string)
		role, _ := body["role"].(string)
		cs.mu.Lock()
		cs.queries = append(cs.queries, query)
		cs.roles = append(cs.roles, role)
		reply := cs.Reply
		cs.mu.Unlock()
		status, payload := reply(query)
		WriteJSON(w, status, payload)
	})
	mux.HandleFunc("/refresh_data", func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		cs.refreshes++
		reply := cs.RefreshReply
		cs.mu.Unlock()
		status, payload := reply()
		WriteJSON(w, status, payload)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		body := DecodeJSONBody(t, r.Body)
		username, _ := body["username"].(string)
		password, _ := body["password"].(string)
		status, payload := cs.LoginReply(username, password)
		WriteJSON(w, status, payload)
	})
	mux.HandleFunc("/student/search_pyqs", func(w http.ResponseWriter, r *http.Request) {
		results := cs.PYQs
		if results == nil {
			results = []map[string]interface{}{}
		}
		WriteJSON(w, http.StatusOK, results)
	})
	register := func(role string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			body := DecodeJSONBody(t, r.Body)
			username, _ := body["username"].(string)
			school, _ := body["school"].(string)
			if role == "staff" && school == "" {
				school = "SOET"
			}
			cs.mu.Lock()
			defer cs.mu.Unlock()
			if _, exists := cs.accounts[username]; exists {
				WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username exists!"})
				return
			}
			cs.nextID++
			cs.accounts[username] = &Account{ID: cs.nextID, Username: username, Role: role, School: school, Approved: role != "staff"}
			WriteJSON(w, http.StatusOK, map[string]string{"message": "Success"})
		}
	}
	mux.HandleFunc("/register_student", register("student"))
	mux.HandleFunc("/register_staff", register("staff"))
	mux.HandleFunc("/admin/analytics", func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		students, staff := 0, 0
		for _, a := range cs.accounts {
			switch {
			case a.Role == "student":
				students++
			case a.Role == "staff" && a.Approved:
				staff++
			}
		}
		cs.mu.Unlock()
		WriteJSON(w, http.StatusOK, map[string]int{"total_students": students, "total_staff": staff})
	})
	mux.HandleFunc("/admin/pending_staff", func(w http.ResponseWriter, r *http.Request) {
		pending := []map[string]interface{}{}
		for _, a := range cs.Accounts() {
			if a.Role == "staff" && !a.Approved {
				pending = append(pending, map[string]interface{}{"id": a.ID, "username": a.Username, "school": a.School})
			}
		}
		WriteJSON(w, http.StatusOK, pending)
	})
	mux.HandleFunc("/admin/approve_user", func(w http.ResponseWriter, r *http.Request) {
		body := DecodeJSONBody(t, r.Body)
		id, _ := body["user_id"].(float64)
		cs.mu.Lock()
		for _, a := range cs.accounts {
			if a.ID == int(id) {
				a.Approved = true
			}
		}
		cs.mu.Unlock()
		WriteJSON(w, http.StatusOK, map[string]string{"status": "User Approved"})
	})
	upload := func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "file is required"})
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)

		fields := map[string]string{}
		for key, values := range r.MultipartForm.Value {
			fields[key] = values[0]
		}
		cs.mu.Lock()
		cs.uploads = append(cs.uploads, Upload{Endpoint: r.URL.Path, Fields: fields, Filename: header.Filename, Content: content})
		cs.mu.Unlock()
		WriteJSON(w, http.StatusOK, map[string]string{"status": "Success"})
	}
	mux.HandleFunc("/admin/upload_pyq", upload)
	mux.HandleFunc("/admin/upload_doc", upload)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	})

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Server.Close)
	return cs
}

// Queries returns the chat queries received so far
func (cs *ChatServer) Queries() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.queries...)
}

// Roles returns the role field of each chat request ("" when absent)
func (cs *ChatServer) Roles() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string(nil), cs.roles...)
}

// RefreshCount returns how many refresh requests were received
func (cs *ChatServer) RefreshCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.refreshes
}

// AddAccount registers an account directly, as if it had signed up earlier
func (cs *ChatServer) AddAccount(username, role, school string, approved bool) *Account {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.nextID++
	a := &Account{ID: cs.nextID, Username: username, Role: role, School: school, Approved: approved}
	cs.accounts[username] = a
	return a
}

// Accounts returns a copy of the registered accounts ordered by ID
func (cs *ChatServer) Accounts() []Account {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]Account, 0, len(cs.accounts))
	for _, a := range cs.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Uploads returns the admin uploads received so far
func (cs *ChatServer) Uploads() []Upload {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]Upload(nil), cs.uploads...)
}
