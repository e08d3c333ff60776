// Package client implements the editing side of the calendar service:
// a cookie-authenticated REST client, a session context replacing
// ambient browser storage, and the debounced autosave edit session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/daysofyou/internal/db"
)

var (
	ErrNotFound        = errors.New("calendar not found")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrConflict        = errors.New("request conflicts with calendar state")
	ErrInvalidPayload  = errors.New("invalid request payload")
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the calendar API. The zero value is not usable;
// construct it with New so the cookie jar holding the session exists.
type Client struct {
	baseURL string
	http    httpDoer
}

// New creates a Client for the given server base URL.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second, Jar: jar},
	}, nil
}

// SetHTTPClient swaps the transport, mainly for tests.
func (c *Client) SetHTTPClient(doer httpDoer) {
	if doer != nil {
		c.http = doer
	}
}

// CalendarPayload is the document shape sent on create and update.
type CalendarPayload struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Days        db.DayList `json:"days,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// PublishResult carries the published calendar plus the absolute link
// the server built for it.
type PublishResult struct {
	Calendar db.Calendar `json:"calendar"`
	ShareURL string      `json:"shareUrl"`
}

// SharedCalendar is the read-only projection a recipient sees.
type SharedCalendar struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedBy   string     `json:"createdBy"`
	Type        string     `json:"type"`
	Days        db.DayList `json:"days"`
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
}

// Register creates an account and establishes the session cookie.
func (c *Client) Register(ctx context.Context, username, password string) (*db.User, error) {
	var out struct {
		User db.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login authenticates and establishes the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) (*db.User, error) {
	var out struct {
		User db.User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout drops the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ListCalendars returns the caller's calendars, most recently updated first.
func (c *Client) ListCalendars(ctx context.Context) ([]db.Calendar, error) {
	var out []db.Calendar
	if err := c.do(ctx, http.MethodGet, "/api/calendars", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCalendar fetches one owned calendar.
func (c *Client) GetCalendar(ctx context.Context, id string) (*db.Calendar, error) {
	var out db.Calendar
	if err := c.do(ctx, http.MethodGet, "/api/calendars/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCalendar creates a calendar; omitted days are defaulted server-side.
func (c *Client) CreateCalendar(ctx context.Context, payload CalendarPayload) (*db.Calendar, error) {
	var out db.Calendar
	if err := c.do(ctx, http.MethodPost, "/api/calendars", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCalendar replaces the whole document and returns the stored version.
func (c *Client) UpdateCalendar(ctx context.Context, id string, calendar db.Calendar) (*db.Calendar, error) {
	var out db.Calendar
	if err := c.do(ctx, http.MethodPut, "/api/calendars/"+id, calendar, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCalendar removes a draft calendar.
func (c *Client) DeleteCalendar(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/calendars/"+id, nil, nil)
}

// Publish exposes the calendar through its share link. With regenerate
// the token is rotated even if one already exists.
func (c *Client) Publish(ctx context.Context, id string, regenerate bool) (*PublishResult, error) {
	var out PublishResult
	err := c.do(ctx, http.MethodPost, "/api/calendars/"+id+"/share/publish", map[string]bool{
		"regenerate": regenerate,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Unpublish revokes the share link and returns the calendar to draft.
func (c *Client) Unpublish(ctx context.Context, id string) (*db.Calendar, error) {
	var out db.Calendar
	if err := c.do(ctx, http.MethodPost, "/api/calendars/"+id+"/share/unpublish", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Regenerate rotates the share token of a published calendar.
func (c *Client) Regenerate(ctx context.Context, id string) (*PublishResult, error) {
	var out PublishResult
	if err := c.do(ctx, http.MethodPost, "/api/calendars/"+id+"/share/regenerate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Shared fetches the public projection behind a share token. No session
// is required.
func (c *Client) Shared(ctx context.Context, token string) (*SharedCalendar, error) {
	var out SharedCalendar
	if err := c.do(ctx, http.MethodGet, "/api/share/"+token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	message := ""
	var decoded struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil {
		message = decoded.Error
	}

	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base = ErrUnauthenticated
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusConflict:
		base = ErrConflict
	case http.StatusBadRequest:
		base = ErrInvalidPayload
	default:
		return fmt.Errorf("calendar request failed with status %d: %s", resp.StatusCode, message)
	}
	if message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, message)
}
