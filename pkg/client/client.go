package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a Go SDK for the code-validator API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new code-validator client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Stage is a practice task as served to learners
type Stage struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StarterCode string `json:"starterCode"`
	Hint        string `json:"hint,omitempty"`
	Difficulty  string `json:"difficulty"`
	Points      int    `json:"points"`
	IsActive    bool   `json:"isActive"`
}

// SubmitRequest is a learner's attempt at a stage
type SubmitRequest struct {
	StageID   int    `json:"stageId"`
	UserCode  string `json:"userCode"`
	SessionID string `json:"sessionId,omitempty"`
}

// LintingDetails is the diagnostic breakdown of a submission
type LintingDetails struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
	MaxScore int      `json:"maxScore"`
}

// SubmitResponse is the verdict for a submission
type SubmitResponse struct {
	IsCorrect      bool           `json:"isCorrect"`
	StageID        int            `json:"stageId"`
	Points         int            `json:"points"`
	Difficulty     string         `json:"difficulty"`
	Hint           string         `json:"hint,omitempty"`
	Feedback       string         `json:"feedback"`
	LintingDetails LintingDetails `json:"lintingDetails"`
}

// ValidationOptions selects the checks of an ad-hoc validation
type ValidationOptions struct {
	CheckSyntax       bool     `json:"checkSyntax"`
	CheckStyle        bool     `json:"checkStyle"`
	CheckLogic        bool     `json:"checkLogic"`
	RequiredPatterns  []string `json:"requiredPatterns,omitempty"`
	ForbiddenPatterns []string `json:"forbiddenPatterns,omitempty"`
}

// ValidateRequest is an ad-hoc validation. Nil Options runs every check
// without patterns; zero MaxScore uses the server default.
type ValidateRequest struct {
	Code     string             `json:"code"`
	Options  *ValidationOptions `json:"options,omitempty"`
	MaxScore int                `json:"maxScore,omitempty"`
}

// LintingResult is the outcome of an ad-hoc validation
type LintingResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Score    int      `json:"score"`
	Feedback string   `json:"feedback"`
}

// Event is a logged learner action
type Event struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"sessionId"`
	EventType string                 `json:"eventType"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"createdAt"`
}

// ListOptions pages event listings
type ListOptions struct {
	Limit  int
	Offset int
}

// APIError is an error envelope returned by the server
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ListStages retrieves every active stage
func (c *Client) ListStages(ctx context.Context) ([]*Stage, error) {
	data, err := call[struct {
		Stages []*Stage `json:"stages"`
		Total  int      `json:"total"`
	}](ctx, c, http.MethodGet, "/api/v1/stages", nil)
	if err != nil {
		return nil, err
	}
	return data.Stages, nil
}

// GetStage retrieves a stage by ID
func (c *Client) GetStage(ctx context.Context, id int) (*Stage, error) {
	return call[*Stage](ctx, c, http.MethodGet, "/api/v1/stages/"+strconv.Itoa(id), nil)
}

// Submit judges a submission
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	return call[*SubmitResponse](ctx, c, http.MethodPost, "/api/v1/submissions", req)
}

// Validate runs an ad-hoc validation
func (c *Client) Validate(ctx context.Context, req ValidateRequest) (*LintingResult, error) {
	return call[*LintingResult](ctx, c, http.MethodPost, "/api/v1/validate", req)
}

// ListEvents retrieves a session's events, newest first
func (c *Client) ListEvents(ctx context.Context, sessionID string, opts ListOptions) ([]*Event, error) {
	query := url.Values{}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/events"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	data, err := call[struct {
		Events []*Event `json:"events"`
		Total  int      `json:"total"`
	}](ctx, c, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return data.Events, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// call sends payload (when non-nil) as JSON and unwraps the response envelope
func call[T any](ctx context.Context, c *Client, method, path string, payload interface{}) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(resp, &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: http.StatusOK, Code: "unknown", Message: "request was not successful"}
		if result.Error != nil {
			apiErr.Code, apiErr.Message = result.Error.Code, result.Error.Message
		}
		return zero, apiErr
	}

	return result.Data, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Code: "http_error", Message: strings.TrimSpace(string(body))}

	var result envelope[json.RawMessage]
	if err := json.Unmarshal(body, &result); err == nil && result.Error != nil {
		apiErr.Code, apiErr.Message = result.Error.Code, result.Error.Message
	}
	return apiErr
}
