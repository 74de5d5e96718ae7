package arxidemosdk

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
)

// Client is a minimal Arxitest demo HTTP API client bound to one session.
type Client struct {
	BaseURL    string
	BasePath   string
	SessionID  string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults. Call StartSession before any
// session-scoped method.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Notification is a transient toast.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity collections (partial).
type Store struct {
	Teams []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"teams"`
	Projects []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Source string `json:"source"`
	} `json:"projects"`
	Executions []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Status    string `json:"status"`
		TestCases int    `json:"test_cases"`
		Passed    int    `json:"passed"`
		Failed    int    `json:"failed"`
	} `json:"executions"`
}

// State is the session state (partial).
type State struct {
	Step          string         `json:"step"`
	Complete      bool           `json:"complete"`
	Tab           string         `json:"tab"`
	Modal         string         `json:"modal"`
	Importing     bool           `json:"importing"`
	Drafting      bool           `json:"drafting"`
	Search        string         `json:"search"`
	Store         Store          `json:"store"`
	Notifications []Notification `json:"notifications"`
}

// Result is the outcome of a command sent to the session.
type Result struct {
	Applied bool  `json:"applied"`
	State   State `json:"state"`
}

type Overlay struct {
	Visible bool `json:"visible"`
	Overlay *struct {
		Step        string   `json:"step"`
		Target      string   `json:"target"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Position    int      `json:"position"`
		Total       int      `json:"total"`
		Permitted   []string `json:"permitted"`
	} `json:"overlay,omitempty"`
}

type Report struct {
	ID          string `json:"id"`
	ExecutionID string `json:"execution_id"`
	Results     []struct {
		Name     string `json:"name"`
		Status   string `json:"status"`
		Duration string `json:"duration"`
		Error    string `json:"error,omitempty"`
	} `json:"results"`
	Summary struct {
		Total    int    `json:"total"`
		Passed   int    `json:"passed"`
		Failed   int    `json:"failed"`
		Skipped  int    `json:"skipped"`
		Duration string `json:"duration"`
	} `json:"summary"`
}

// ContactOutcome is what a visitor is shown after a demo request.
type ContactOutcome struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartSession creates a session and binds the client to it.
func (c *Client) StartSession(ctx context.Context) (State, error) {
	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
		State     State  `json:"state"`
	}
	if err := c.do(ctx, http.MethodPost, c.apiPath("sessions"), nil, &resp); err != nil {
		return State{}, err
	}
	c.SessionID = resp.SessionID
	c.Token = resp.Token
	return resp.State, nil
}

// EndSession tears the session down on the server.
func (c *Client) EndSession(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.sessionPath(""), nil, nil)
}

func (c *Client) State(ctx context.Context) (State, error) {
	var st State
	err := c.do(ctx, http.MethodGet, c.sessionPath(""), nil, &st)
	return st, err
}

// Click fires a control ("teams-tab") or card ("project-card-3").
func (c *Client) Click(ctx context.Context, action string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("actions"), map[string]any{"action": action}, &res)
	return res, err
}

// Allowed asks whether action is currently permitted.
func (c *Client) Allowed(ctx context.Context, action string) (bool, error) {
	var resp struct {
		Allowed bool `json:"allowed"`
	}
	err := c.do(ctx, http.MethodGet, c.sessionPath("gate")+"?action="+url.QueryEscape(action), nil, &resp)
	return resp.Allowed, err
}

func (c *Client) Overlay(ctx context.Context) (Overlay, error) {
	var ov Overlay
	err := c.do(ctx, http.MethodGet, c.sessionPath("overlay"), nil, &ov)
	return ov, err
}

// OpenModal opens a creation form; an empty name closes the open one.
func (c *Client) OpenModal(ctx context.Context, name string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodPut, c.sessionPath("modal"), map[string]any{"modal": name}, &res)
	return res, err
}

func (c *Client) Search(ctx context.Context, query string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodPut, c.sessionPath("search"), map[string]any{"query": query}, &res)
	return res, err
}

func (c *Client) CreateTeam(ctx context.Context, name string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("teams"), map[string]any{"name": name}, &res)
	return res, err
}

// CreateProject submits the project form. The project exists once the
// import delay has passed.
func (c *Client) CreateProject(ctx context.Context, name, source string) (Result, error) {
	body := map[string]any{"name": name}
	if source != "" {
		body["source"] = source
	}
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("projects"), body, &res)
	return res, err
}

func (c *Client) CreateStory(ctx context.Context, title, description, priority string) (Result, error) {
	body := map[string]any{"title": title}
	if description != "" {
		body["description"] = description
	}
	if priority != "" {
		body["priority"] = priority
	}
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("stories"), body, &res)
	return res, err
}

func (c *Client) CreateTestCase(ctx context.Context, name, framework, storyID string) (Result, error) {
	body := map[string]any{"name": name}
	if framework != "" {
		body["framework"] = framework
	}
	if storyID != "" {
		body["story_id"] = storyID
	}
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("test-cases"), body, &res)
	return res, err
}

// RequestDraft asks the assistant to prefill the open story or testcase form.
func (c *Client) RequestDraft(ctx context.Context, kind string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodPost, c.sessionPath("drafts/"+url.PathEscape(kind)), map[string]any{}, &res)
	return res, err
}

func (c *Client) Remove(ctx context.Context, kind, id string) (Result, error) {
	var res Result
	err := c.do(ctx, http.MethodDelete, c.sessionPath("entities/"+url.PathEscape(kind)+"/"+url.PathEscape(id)), nil, &res)
	return res, err
}

func (c *Client) Report(ctx context.Context, executionID string) (Report, error) {
	var r Report
	err := c.do(ctx, http.MethodGet, c.sessionPath("executions/"+url.PathEscape(executionID)+"/report"), nil, &r)
	return r, err
}

// RequestDemo sends a demo request. It needs no session.
func (c *Client) RequestDemo(ctx context.Context, email string) (ContactOutcome, error) {
	var out ContactOutcome
	err := c.do(ctx, http.MethodPost, c.apiPath("contact"), map[string]any{"email": email}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	endpointURL := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpointURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) apiPath(p string) string {
	return strings.Trim(c.BasePath, "/") + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) sessionPath(p string) string {
	s := c.apiPath("sessions/" + url.PathEscape(c.SessionID))
	if p == "" {
		return s
	}
	return s + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
