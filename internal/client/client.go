package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abduss/bugtrack/internal/bug"
)

const defaultTimeout = 10 * time.Second

// Client talks to the bug tracker HTTP API. The bearer token is an explicit dependency
// set with WithToken; a Client never reads credentials from shared state.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the API rooted at baseURL, e.g. http://localhost:5000/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BugDraft is the body of a new bug report. Empty optional fields take server defaults.
type BugDraft struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Status           string           `json:"status,omitempty"`
	Priority         string           `json:"priority,omitempty"`
	ReportedBy       string           `json:"reportedBy"`
	AssignedTo       string           `json:"assignedTo,omitempty"`
	StepsToReproduce []string         `json:"stepsToReproduce,omitempty"`
	Environment      *bug.Environment `json:"environment,omitempty"`
}

// Session is the result of a successful login or registration.
type Session struct {
	Token string      `json:"token"`
	User  SessionUser `json:"user"`
}

// SessionUser is the account a Session belongs to.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

// ListBugs fetches one page of bugs. The filter is normalized before it is sent.
func (c *Client) ListBugs(ctx context.Context, filter bug.FilterInput) (bug.Page, error) {
	var page bug.Page
	path := "/bugs?" + bug.Build(filter).Values().Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return bug.Page{}, err
	}
	if page.Bugs == nil {
		page.Bugs = []bug.Bug{}
	}
	return page, nil
}

// GetBug fetches a single bug.
func (c *Client) GetBug(ctx context.Context, id string) (bug.Bug, error) {
	var out dataEnvelope[bug.Bug]
	err := c.do(ctx, http.MethodGet, "/bugs/"+url.PathEscape(id), nil, &out)
	return out.Data, err
}

// CreateBug reports a new bug.
func (c *Client) CreateBug(ctx context.Context, draft BugDraft) (bug.Bug, error) {
	var out dataEnvelope[bug.Bug]
	err := c.do(ctx, http.MethodPost, "/bugs", draft, &out)
	return out.Data, err
}

// UpdateStatus changes the status of a bug.
func (c *Client) UpdateStatus(ctx context.Context, id, status string) (bug.Bug, error) {
	var out dataEnvelope[bug.Bug]
	err := c.do(ctx, http.MethodPatch, "/bugs/"+url.PathEscape(id)+"/status", map[string]string{"status": status}, &out)
	return out.Data, err
}

// UpdatePriority changes the priority of a bug.
func (c *Client) UpdatePriority(ctx context.Context, id, priority string) (bug.Bug, error) {
	var out dataEnvelope[bug.Bug]
	err := c.do(ctx, http.MethodPatch, "/bugs/"+url.PathEscape(id)+"/priority", map[string]string{"priority": priority}, &out)
	return out.Data, err
}

// DeleteBug removes a bug.
func (c *Client) DeleteBug(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bugs/"+url.PathEscape(id), nil, nil)
}

// Stats fetches the collection-wide summary.
func (c *Client) Stats(ctx context.Context) (bug.Summary, error) {
	var out dataEnvelope[bug.Summary]
	err := c.do(ctx, http.MethodGet, "/bugs/stats/summary", nil, &out)
	return out.Data, err
}

// Login exchanges credentials for a Session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out)
	return out, err
}

// Register creates an account and returns its Session.
func (c *Client) Register(ctx context.Context, name, email, password string) (Session, error) {
	var out Session
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// Health reports whether the API answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure errorBody
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return statusError(resp.StatusCode, failure)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
