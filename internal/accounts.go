package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Account and administration endpoints
const (
	EndpointRegisterStudent = "/register_student"
	EndpointRegisterStaff   = "/register_staff"
	EndpointAnalytics       = "/admin/analytics"
	EndpointPendingStaff    = "/admin/pending_staff"
	EndpointApproveUser     = "/admin/approve_user"
	EndpointUploadPYQ       = "/admin/upload_pyq"
	EndpointUploadDoc       = "/admin/upload_doc"
)

// RoleAdmin is the role allowed to use the administration endpoints
const RoleAdmin = "admin"

// DefaultSchool is assumed for staff registrations that name none
const DefaultSchool = "SOET"

// Registration describes a new account. Staff accounts belong to a school and
// cannot sign in until an admin approves them.
type Registration struct {
	Username string
	Password string
	Staff    bool
	School   string
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	School   string `json:"school,omitempty"`
}

// Analytics is the account summary shown to admins
type Analytics struct {
	Students int
	Staff    int
}

// PendingUser is a staff account waiting for approval
type PendingUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	School   string `json:"school"`
}

// PYQUpload describes a past question paper to add to the archive
type PYQUpload struct {
	SubjectName string
	SubjectCode string
	Year        int
	Course      string
	File        string
}

// Register creates a student or staff account and returns the server's message
func (c *Client) Register(ctx context.Context, r Registration) (string, error) {
	username := strings.TrimSpace(r.Username)
	if username == "" {
		return "", errors.New("username must not be empty")
	}
	if r.Password == "" {
		return "", errors.New("password must not be empty")
	}

	endpoint := EndpointRegisterStudent
	req := registerRequest{Username: username, Password: r.Password}
	if r.Staff {
		endpoint = EndpointRegisterStaff
		req.School = strings.TrimSpace(r.School)
		if req.School == "" {
			req.School = DefaultSchool
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(endpoint)
	body, err := c.checkResponse(endpoint, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(endpoint, body, "message")
}

// Analytics returns the number of students and approved staff
func (c *Client) Analytics(ctx context.Context) (*Analytics, error) {
	resp, err := c.http.R().SetContext(ctx).Get(EndpointAnalytics)
	body, err := c.checkResponse(EndpointAnalytics, resp, err)
	if err != nil {
		return nil, err
	}

	students, err := intField(EndpointAnalytics, body, "total_students")
	if err != nil {
		return nil, err
	}
	staff, err := intField(EndpointAnalytics, body, "total_staff")
	if err != nil {
		return nil, err
	}
	return &Analytics{Students: students, Staff: staff}, nil
}

// PendingStaff lists staff accounts waiting for approval
func (c *Client) PendingStaff(ctx context.Context) ([]PendingUser, error) {
	resp, err := c.http.R().SetContext(ctx).Get(EndpointPendingStaff)
	body, err := c.checkResponse(EndpointPendingStaff, resp, err)
	if err != nil {
		return nil, err
	}

	var users []PendingUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, &RemoteError{Endpoint: EndpointPendingStaff, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return users, nil
}

// ApproveUser lets the account with id sign in
func (c *Client) ApproveUser(ctx context.Context, id int) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]int{"user_id": id}).
		Post(EndpointApproveUser)
	body, err := c.checkResponse(EndpointApproveUser, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(EndpointApproveUser, body, "status")
}

// UploadPYQ sends a question paper and its catalogue entry to the server,
// which adds it to the archive and the knowledge base
func (c *Client) UploadPYQ(ctx context.Context, u PYQUpload) (string, error) {
	if err := checkUploadFile(u.File); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"subject_name": u.SubjectName,
			"subject_code": u.SubjectCode,
			"year":         strconv.Itoa(u.Year),
			"course":       u.Course,
		}).
		SetFile("file", u.File).
		Post(EndpointUploadPYQ)
	body, err := c.checkResponse(EndpointUploadPYQ, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(EndpointUploadPYQ, body, "status")
}

// UploadDocument sends a general document filed under docType
func (c *Client) UploadDocument(ctx context.Context, docType, file string) (string, error) {
	if strings.TrimSpace(docType) == "" {
		return "", errors.New("document type must not be empty")
	}
	if err := checkUploadFile(file); err != nil {
		return "", err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"doc_type": docType}).
		SetFile("file", file).
		Post(EndpointUploadDoc)
	body, err := c.checkResponse(EndpointUploadDoc, resp, err)
	if err != nil {
		return "", err
	}
	return stringField(EndpointUploadDoc, body, "status")
}

func checkUploadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot upload %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot upload %s: is a directory", path)
	}
	return nil
}

// intField extracts a top-level number field from a JSON body
func intField(endpoint string, body []byte, field string) (int, error) {
	result := gjson.GetBytes(body, field)
	if !result.Exists() || result.Type != gjson.Number {
		return 0, &RemoteError{Endpoint: endpoint, Err: fmt.Errorf("%w: %q", ErrMissingField, field)}
	}
	return int(result.Int()), nil
}
