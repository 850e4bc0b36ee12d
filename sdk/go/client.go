package stafflinesdk

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

// Client is a minimal Staffline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	ActorID     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

type Technology struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Programmer skills are technology names or inline objects.
type Programmer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Skills []any  `json:"skills"`
}

type Project struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	RequiredSkills []any  `json:"required_skills"`
	Status         string `json:"status"`
	Capacity       string `json:"capacity"`
}

// Allocation hours are decimal strings such as "10.50".
type Allocation struct {
	ID        int64  `json:"id"`
	Project   int64  `json:"project"`
	Developer int64  `json:"developer"`
	Hours     string `json:"hours"`
}

type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   int64          `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type SweepResult struct {
	Count  int      `json:"count"`
	Now    string   `json:"now"`
	Errors []string `json:"errors"`
}

// APIError wraps non-2xx responses. Code carries the error envelope code
// (capacity_exceeded, skill_mismatch, ...) when the body has one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Filter builds list query parameters: Filter{"name__icontains": "dev"}.
type Filter map[string]string

func (c *Client) CreateTechnology(ctx context.Context, name string) (Technology, error) {
	var resp Technology
	err := c.do(ctx, http.MethodPost, "technologies", map[string]any{"name": name}, &resp)
	return resp, err
}

func (c *Client) ListTechnologies(ctx context.Context, f Filter) ([]Technology, error) {
	var resp []Technology
	err := c.do(ctx, http.MethodGet, withFilter("technologies", f), nil, &resp)
	return resp, err
}

func (c *Client) DeleteTechnology(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("technologies/%d", id), nil, nil)
}

func (c *Client) CreateProgrammer(ctx context.Context, name string, skills ...any) (Programmer, error) {
	body := map[string]any{"name": name}
	if len(skills) > 0 {
		body["skills"] = skills
	}
	var resp Programmer
	err := c.do(ctx, http.MethodPost, "programmers", body, &resp)
	return resp, err
}

func (c *Client) GetProgrammer(ctx context.Context, id int64) (Programmer, error) {
	var resp Programmer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("programmers/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) ListProgrammers(ctx context.Context, f Filter) ([]Programmer, error) {
	var resp []Programmer
	err := c.do(ctx, http.MethodGet, withFilter("programmers", f), nil, &resp)
	return resp, err
}

// AssignProgrammerSkills appends skills; nothing changes when any is unknown.
func (c *Client) AssignProgrammerSkills(ctx context.Context, id int64, skills ...any) (Programmer, error) {
	var resp Programmer
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("programmers/%d/skills", id), map[string]any{"skills": skills}, &resp)
	return resp, err
}

func (c *Client) CreateProject(ctx context.Context, name, startDate, endDate string, requiredSkills ...any) (Project, error) {
	body := map[string]any{
		"name":       name,
		"start_date": startDate,
		"end_date":   endDate,
	}
	if len(requiredSkills) > 0 {
		body["required_skills"] = requiredSkills
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) ListProjects(ctx context.Context, f Filter) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, withFilter("projects", f), nil, &resp)
	return resp, err
}

// SetProjectStatus changes status. force is required to leave DONE.
func (c *Client) SetProjectStatus(ctx context.Context, id int64, status string, force bool) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("projects/%d", id), map[string]any{"status": status, "force": force}, &resp)
	return resp, err
}

func (c *Client) CreateAllocation(ctx context.Context, projectID, developerID int64, hours string) (Allocation, error) {
	body := map[string]any{"project": projectID, "developer": developerID, "hours": hours}
	var resp Allocation
	err := c.do(ctx, http.MethodPost, "allocations", body, &resp)
	return resp, err
}

func (c *Client) UpdateAllocationHours(ctx context.Context, id int64, hours string) (Allocation, error) {
	var resp Allocation
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("allocations/%d", id), map[string]any{"hours": hours}, &resp)
	return resp, err
}

func (c *Client) ListAllocations(ctx context.Context, f Filter) ([]Allocation, error) {
	var resp []Allocation
	err := c.do(ctx, http.MethodGet, withFilter("allocations", f), nil, &resp)
	return resp, err
}

func (c *Client) DeleteAllocation(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("allocations/%d", id), nil, nil)
}

// Sweep runs one lifecycle pass on the server.
func (c *Client) Sweep(ctx context.Context) (SweepResult, error) {
	var resp SweepResult
	err := c.do(ctx, http.MethodPost, "lifecycle/sweep", nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, entityKind string, limit int) ([]Event, error) {
	q := url.Values{}
	if entityKind != "" {
		q.Set("entity_kind", entityKind)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func withFilter(endpoint string, f Filter) string {
	if len(f) == 0 {
		return endpoint
	}
	q := url.Values{}
	for k, v := range f {
		q.Set(k, v)
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
