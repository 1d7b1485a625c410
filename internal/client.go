package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// Endpoints exposed by the campus backend
const (
	EndpointChat       = "/chat"
	EndpointRefresh    = "/refresh_data"
	EndpointLogin      = "/login"
	EndpointSearchPYQs = "/student/search_pyqs"
)

// chatRequest is the body of a chat call. Role is only sent when known, so
// anonymous clients send exactly {"query": ...}.
type chatRequest struct {
	Query string `json:"query"`
	Role  string `json:"role,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is the identity returned by a successful login
type LoginResult struct {
	Username string
	Role     string
}

// PYQ is a past question paper entry returned by the search endpoint
type PYQ struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Year int    `json:"year"`
	Path string `json:"path"`
}

// Client talks to the campus chat backend
type Client struct {
	baseURL string
	role    string
	timeout time.Duration
	hc      *http.Client
	http    *resty.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRole attaches the caller's role to chat requests
func WithRole(role string) ClientOption {
	return func(c *Client) {
		c.role = strings.TrimSpace(role)
	}
}

// WithHTTPClient sends requests through hc, e.g. one trusting a private CA.
// A timeout set with WithTimeout still applies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// NewClient creates a Client for the backend at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base URL must not be empty")
	}

	c := &Client{baseURL: baseURL}
	for _, opt := range opts {
		opt(c)
	}

	if c.hc != nil {
		c.http = resty.NewWithClient(c.hc)
	} else {
		c.http = resty.New()
	}
	c.http.SetBaseURL(baseURL)
	if c.timeout > 0 {
		c.http.SetTimeout(c.timeout)
	}
	// failures surface to the user unchanged; nothing is retried
	c.http.SetRetryCount(0)
	return c, nil
}

// BaseURL returns the server address the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends query to the chat endpoint and returns the textual response
func (c *Client) Chat(ctx context.Context, query string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{Query: query, Role: c.role}).
		Post(EndpointChat)
	body, err := c.checkResponse(EndpointChat, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(EndpointChat, body, "response")
}

// RefreshData asks the backend to rebuild its knowledge base and returns the
// status message it reports
func (c *Client) RefreshData(ctx context.Context) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(EndpointRefresh)
	body, err := c.checkResponse(EndpointRefresh, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(EndpointRefresh, body, "message")
}

// Login verifies credentials and returns the stored identity
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(loginRequest{Username: username, Password: password}).
		Post(EndpointLogin)
	body, err := c.checkResponse(EndpointLogin, resp, err)
	if err != nil {
		return nil, err
	}

	name, err := stringField(EndpointLogin, body, "username")
	if err != nil {
		return nil, err
	}
	// older backends do not report a role
	role := gjson.GetBytes(body, "role").String()
	return &LoginResult{Username: name, Role: role}, nil
}

// SearchPYQs looks up past question papers by subject name or code
func (c *Client) SearchPYQs(ctx context.Context, query string) ([]PYQ, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		Get(EndpointSearchPYQs)
	body, err := c.checkResponse(EndpointSearchPYQs, resp, err)
	if err != nil {
		return nil, err
	}

	var results []PYQ
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, &RemoteError{Endpoint: EndpointSearchPYQs, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return results, nil
}

// DocumentURL returns the download address for a server-relative document path
func (c *Client) DocumentURL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Ping checks that something answers HTTP at the base URL. Any status code
// counts as reachable.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return 0, &RemoteError{Endpoint: "/", Err: err}
	}
	return resp.StatusCode(), nil
}

func (c *Client) checkResponse(endpoint string, resp *resty.Response, err error) ([]byte, error) {
	if err != nil {
		LogDebug("%s failed: %v", endpoint, err)
		return nil, &RemoteError{Endpoint: endpoint, Err: err}
	}
	LogDebug("%s -> %d (%s)", endpoint, resp.StatusCode(), resp.Time())

	body := resp.Body()
	if !resp.IsSuccess() {
		return nil, &RemoteError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode(),
			Detail:     errorDetail(body),
			Err:        errors.New("unexpected status"),
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: errors.New("response is not valid JSON")}
	}
	return body, nil
}

// stringField extracts a top-level string field from a JSON body
func stringField(endpoint string, body []byte, field string) (string, error) {
	result := gjson.GetBytes(body, field)
	if !result.Exists() || result.Type != gjson.String {
		return "", &RemoteError{Endpoint: endpoint, Err: fmt.Errorf("%w: %q", ErrMissingField, field)}
	}
	return result.String(), nil
}

// errorDetail pulls the "detail" message out of an error body when present
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	switch {
	case !detail.Exists():
		return ""
	case detail.Type == gjson.String:
		return detail.String()
	default:
		return detail.Raw
	}
}
