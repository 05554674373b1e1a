package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/code-validator/internal/api"
	"github.com/terra-clan/code-validator/internal/catalog"
	"github.com/terra-clan/code-validator/internal/config"
	"github.com/terra-clan/code-validator/internal/models"
	"github.com/terra-clan/code-validator/internal/submission"
	"github.com/terra-clan/code-validator/internal/validator"
)

const testKey = "sk_test_0123456789"

// memoryStore keeps events in memory and knows a single API client
type memoryStore struct {
	mu     sync.Mutex
	events map[string][]*models.Event
}

func (m *memoryStore) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	if apiKey != testKey {
		return nil, nil
	}
	return &models.ApiClient{Name: "sdk", ApiKey: apiKey, IsActive: true, Permissions: []string{"*"}}, nil
}

func (m *memoryStore) UpdateClientLastUsed(context.Context, string) error { return nil }

func (m *memoryStore) LogEvent(_ context.Context, sessionID, eventType string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[sessionID] = append([]*models.Event{{
		ID:        eventType + "-" + time.Now().Format(time.RFC3339Nano),
		SessionID: sessionID,
		EventType: eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}}, m.events[sessionID]...)
	return nil
}

func (m *memoryStore) ListEvents(_ context.Context, sessionID string, limit, offset int) ([]*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := m.events[sessionID]
	if offset > len(events) {
		return []*models.Event{}, nil
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *catalog.Loader) {
	t.Helper()

	stages := catalog.NewLoader()
	require.NoError(t, stages.LoadFromDir(filepath.Join("..", "..", "stages")))

	store := &memoryStore{events: make(map[string][]*models.Event)}
	svc := submission.NewService(stages, validator.New(validator.NewNativeAnalyzer()),
		submission.WithEventLogger(store))

	srv := httptest.NewServer(api.NewServer(config.ServerConfig{}, svc, nil, store).Router())
	t.Cleanup(srv.Close)
	return srv, stages
}

func TestClientStages(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL+"/", testKey)
	ctx := context.Background()

	stages, err := c.ListStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 20)
	assert.Equal(t, 1, stages[0].ID)

	stage, err := c.GetStage(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stage.ID)
	assert.NotEmpty(t, stage.StarterCode)

	_, err = c.GetStage(ctx, 404)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "stage_not_found", apiErr.Code)
}

func TestClientSubmitAndEvents(t *testing.T) {
	srv, stages := newTestServer(t)
	c := NewClient(srv.URL, testKey, WithTimeout(5*time.Second))
	ctx := context.Background()

	resp, err := c.Submit(ctx, SubmitRequest{StageID: 1, UserCode: "# comment", SessionID: "s-1"})
	require.NoError(t, err)
	assert.False(t, resp.IsCorrect)
	assert.Equal(t, 45, resp.LintingDetails.Score)
	assert.Equal(t, 125, resp.LintingDetails.MaxScore)

	resp, err = c.Submit(ctx, SubmitRequest{StageID: 1, UserCode: stages.Get(1).Solution, SessionID: "s-1"})
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, "easy", resp.Difficulty)

	events, err := c.ListEvents(ctx, "s-1", ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventCodeSubmission, events[0].EventType)
	assert.Equal(t, true, events[0].Payload["isCorrect"])
	assert.Equal(t, false, events[1].Payload["isCorrect"])

	events, err = c.ListEvents(ctx, "s-1", ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, false, events[0].Payload["isCorrect"])
}

func TestClientSubmitValidationError(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, testKey)

	_, err := c.Submit(context.Background(), SubmitRequest{StageID: 1})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	assert.False(t, IsNotFound(err))
}

func TestClientValidate(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, testKey)

	result, err := c.Validate(context.Background(), ValidateRequest{
		Code:     "for i in range(3)\n    print(i)\n",
		Options:  &ValidationOptions{CheckSyntax: true},
		MaxScore: 50,
	})
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Missing colon")
	assert.Equal(t, 30, result.Score)
}

func TestClientUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL, "sk_wrong_key")

	_, err := c.ListStages(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
}

func TestClientHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	require.NoError(t, NewClient(srv.URL, "").Health(context.Background()))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer down.Close()

	err := NewClient(down.URL, "").Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "http_error", apiErr.Code)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestWithHTTPClient(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c := NewClient("http://example.invalid", "", WithHTTPClient(hc))
	assert.Same(t, hc, c.httpClient)
}
