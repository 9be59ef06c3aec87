package projects

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goEMS/session"
	"github.com/MrEthical07/goEMS/token"
	"golang.org/x/sync/errgroup"
)

// ErrUnauthorized is returned when the backend answers 401.
var ErrUnauthorized = errors.New("backend rejected credentials")

// APIError is a non-2xx backend answer other than 401.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// ID accepts both JSON strings and numbers.
type ID = session.ID

// Team is one entry of GET /teams.
type Team struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Manager is one entry of GET /users/managers.
type Manager struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	EmployeeID ID     `json:"employeeId,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Project is the backend's answer to POST /projects.
type Project struct {
	ID          ID      `json:"id"`
	ProjectName string  `json:"project_name"`
	Description string  `json:"description"`
	TeamID      ID      `json:"team_id"`
	ManagerID   ID      `json:"manager_id"`
	Status      string  `json:"status"`
	Deadline    *string `json:"deadline"`
}

// TokenSource returns the current bearer token, or "" when none is held.
type TokenSource func(ctx context.Context) (string, error)

// Config configures a [Client].
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Inspector  *token.Inspector
	Now        func() time.Time
}

// Client talks to the EMS REST backend.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	inspector *token.Inspector
	now       func() time.Time
}

// NewClient creates a [Client].
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      hc,
		tokens:    cfg.Tokens,
		inspector: cfg.Inspector,
		now:       now,
	}
}

// Teams lists teams for the form's team picker.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var teams []Team
	if err := c.do(ctx, http.MethodGet, "/teams", nil, &teams); err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []Team{}
	}
	return teams, nil
}

// Managers lists users eligible to manage a project.
func (c *Client) Managers(ctx context.Context) ([]Manager, error) {
	var managers []Manager
	if err := c.do(ctx, http.MethodGet, "/users/managers", nil, &managers); err != nil {
		return nil, err
	}
	if managers == nil {
		managers = []Manager{}
	}
	return managers, nil
}

// FormOptions loads teams and managers concurrently. Either failure fails both.
func (c *Client) FormOptions(ctx context.Context) ([]Team, []Manager, error) {
	var (
		teams    []Team
		managers []Manager
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = c.Teams(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		managers, err = c.Managers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return teams, managers, nil
}

// Create validates form and posts it to /projects.
func (c *Client) Create(ctx context.Context, form Form) (*Project, error) {
	req, err := form.Request()
	if err != nil {
		return nil, err
	}
	var project Project
	if err := c.do(ctx, http.MethodPost, "/projects", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	raw, err := c.tokens(ctx)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	if c.inspector != nil {
		if _, err := c.inspector.Inspect(raw, c.now()); err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", token.Bearer(raw))
	return nil
}

func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(data))
}
