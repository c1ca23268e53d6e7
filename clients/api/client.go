// Package api is the HTTP client of the dayplan gateway. It implements
// planner.TaskStore so a planner session can sync against a remote
// gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dohr-michael/dayplan/internal/auth"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client talks to a dayplan gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the gateway address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

var _ planner.TaskStore = (*Client)(nil)

// do sends body as JSON and decodes the answer into out. Connection
// failures and non-2xx statuses are transport failures; an undecodable
// body is a malformed response.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", planner.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", planner.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", planner.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", planner.ErrMalformedResponse, method, path, err)
	}
	return nil
}

// StatusError is a non-2xx gateway answer.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned %d", e.Code)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.Code, e.Message)
}

// Unwrap classifies every status error as a transport failure, and 401
// additionally as unauthorized.
func (e *StatusError) Unwrap() []error {
	if e.Code == http.StatusUnauthorized {
		return []error{planner.ErrTransport, auth.ErrUnauthorized}
	}
	return []error{planner.ErrTransport}
}

func errorMessage(data []byte) string {
	var a planner.Ack
	if json.Unmarshal(data, &a) == nil && a.Message != "" {
		return a.Message
	}
	return strings.TrimSpace(string(data))
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, name, email, password string) (*planner.Ack, error) {
	var ack planner.Ack
	err := c.do(ctx, http.MethodPost, "/api/signup", "", map[string]string{
		"name": name, "email": email, "password": password,
	}, &ack)
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Session is the result of a successful login.
type Session struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp struct {
		Success bool `json:"success"`
		Session
	}
	err := c.do(ctx, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		return nil, fmt.Errorf("%w: login returned no token", planner.ErrMalformedResponse)
	}
	return &resp.Session, nil
}

// Logout revokes the session token.
func (c *Client) Logout(ctx context.Context, id planner.Identity) error {
	return c.do(ctx, http.MethodPost, "/api/logout", id.Token, nil, nil)
}

// ListTasks returns the raw list answer; planner.DecodeTasks validates it.
func (c *Client) ListTasks(ctx context.Context, id planner.Identity) (*planner.ListResponse, error) {
	var resp planner.ListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", id.Token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ack(ctx context.Context, method, path string, id planner.Identity, body any) (*planner.Ack, error) {
	var ack planner.Ack
	if err := c.do(ctx, method, path, id.Token, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

func (c *Client) CreateTask(ctx context.Context, id planner.Identity, d tasks.Draft) (*planner.Ack, error) {
	return c.ack(ctx, http.MethodPost, "/api/add-task", id, d)
}

func (c *Client) EditTask(ctx context.Context, id planner.Identity, t tasks.Task) (*planner.Ack, error) {
	body := struct {
		tasks.Draft
		Done bool `json:"done"`
	}{Draft: tasks.DraftOf(t), Done: bool(t.Done)}
	return c.ack(ctx, http.MethodPut, "/api/edit-task/"+url.PathEscape(t.ID), id, body)
}

func (c *Client) MarkDone(ctx context.Context, id planner.Identity, taskID string) (*planner.Ack, error) {
	return c.ack(ctx, http.MethodPut, "/api/mark-done/"+url.PathEscape(taskID), id, map[string]bool{"done": true})
}

func (c *Client) UpdateSchedule(ctx context.Context, id planner.Identity, taskID, date, clock string) (*planner.Ack, error) {
	return c.ack(ctx, http.MethodPut, "/api/update-task/"+url.PathEscape(taskID), id, map[string]string{
		"date": date, "time": clock,
	})
}

func (c *Client) DeleteTask(ctx context.Context, id planner.Identity, taskID string) (*planner.Ack, error) {
	return c.ack(ctx, http.MethodDelete, "/api/delete-task/"+url.PathEscape(taskID), id, nil)
}

// SendMessage forwards a chat message to the gateway assistant.
func (c *Client) SendMessage(ctx context.Context, id planner.Identity, message string) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		Reply   string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/send-message", id.Token, map[string]string{"message": message}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("%w: assistant returned success=false", planner.ErrMalformedResponse)
	}
	return resp.Reply, nil
}

// Activity returns the most recent task events of the user.
func (c *Client) Activity(ctx context.Context, id planner.Identity, limit int) ([]events.Event, error) {
	var out []events.Event
	path := "/api/activity?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, id.Token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health reports whether the gateway answers its health check.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/health", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
