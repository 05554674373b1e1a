package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/code-validator/internal/catalog"
	"github.com/terra-clan/code-validator/internal/config"
	"github.com/terra-clan/code-validator/internal/health"
	"github.com/terra-clan/code-validator/internal/models"
	"github.com/terra-clan/code-validator/internal/submission"
	"github.com/terra-clan/code-validator/internal/validator"
)

const (
	adminKey    = "sk_admin_0123456789"
	readOnlyKey = "sk_reader_0123456789"
	inactiveKey = "sk_inactive_0123456789"
)

type fakeStore struct {
	mu        sync.Mutex
	clients   map[string]*models.ApiClient
	lookupErr error

	events      []*models.Event
	eventsErr   error
	lastSession string
	lastLimit   int
	lastOffset  int

	loggedEvents []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients: map[string]*models.ApiClient{
			adminKey:    {ID: 1, Name: "admin", ApiKey: adminKey, IsActive: true, Permissions: []string{"*"}},
			readOnlyKey: {ID: 2, Name: "reader", ApiKey: readOnlyKey, IsActive: true, Permissions: []string{"stages:*"}},
			inactiveKey: {ID: 3, Name: "retired", ApiKey: inactiveKey, IsActive: false, Permissions: []string{"*"}},
		},
	}
}

func (f *fakeStore) GetClientByApiKey(_ context.Context, apiKey string) (*models.ApiClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.clients[apiKey], nil
}

func (f *fakeStore) UpdateClientLastUsed(_ context.Context, _ string) error {
	return nil
}

func (f *fakeStore) ListEvents(_ context.Context, sessionID string, limit, offset int) ([]*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSession, f.lastLimit, f.lastOffset = sessionID, limit, offset
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeStore) LogEvent(_ context.Context, sessionID, eventType string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedEvents = append(f.loggedEvents, sessionID+"/"+eventType)
	return nil
}

type testEnv struct {
	server *Server
	store  *fakeStore
	stages *catalog.Loader
	checks *health.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stages := catalog.NewLoader()
	require.NoError(t, stages.LoadFromDir(filepath.Join("..", "..", "stages")))
	stages.Add(&models.Stage{
		ID:         99,
		Title:      "Retired",
		Difficulty: models.DifficultyEasy,
		Points:     100,
		IsActive:   false,
	})

	store := newFakeStore()
	svc := submission.NewService(stages, validator.New(validator.NewNativeAnalyzer()),
		submission.WithEventLogger(store))
	checks := health.NewRegistry()

	return &testEnv{
		server: NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, svc, checks, store),
		store:  store,
		stages: stages,
		checks: checks,
	}
}

func (e *testEnv) do(t *testing.T, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rec)
	assert.True(t, body.Success)

	var data map[string]string
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, "healthy", data["status"])
	assert.NotEmpty(t, data["time"])
}

func TestReady(t *testing.T) {
	env := newTestEnv(t)
	env.checks.Register("postgres", health.NewCheckFunc("postgres", func(context.Context) error { return nil }))
	env.checks.RegisterOptional("redis", health.NewCheckFunc("redis", func(context.Context) error {
		return errors.New("connection refused")
	}))

	rec := env.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "ready", data.Status)
	assert.Equal(t, "ok", data.Checks["postgres"])
	assert.Equal(t, "connection refused", data.Checks["redis"])
}

func TestReadyRequiredCheckFails(t *testing.T) {
	env := newTestEnv(t)
	env.checks.Register("postgres", health.NewCheckFunc("postgres", func(context.Context) error {
		return errors.New("down")
	}))

	rec := env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeEnvelope(t, rec)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "not_ready", body.Error.Code)
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantErr  string
	}{
		{
			name:     "missing key",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantErr:  "missing_api_key",
		},
		{
			name:     "unknown key",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer sk_unknown_key") },
			wantCode: http.StatusUnauthorized,
			wantErr:  "invalid_api_key",
		},
		{
			name:     "inactive client",
			setup:    func(r *http.Request) { r.Header.Set("X-API-Key", inactiveKey) },
			wantCode: http.StatusUnauthorized,
			wantErr:  "client_inactive",
		},
		{
			name:     "bearer token",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+adminKey) },
			wantCode: http.StatusOK,
		},
		{
			name:     "raw authorization header",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", adminKey) },
			wantCode: http.StatusOK,
		},
		{
			name:     "x-api-key header",
			setup:    func(r *http.Request) { r.Header.Set("X-API-Key", readOnlyKey) },
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/stages", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			env.server.Router().ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				body := decodeEnvelope(t, rec)
				require.NotNil(t, body.Error)
				assert.Equal(t, tt.wantErr, body.Error.Code)
			}
		})
	}
}

func TestAuthenticationLookupError(t *testing.T) {
	env := newTestEnv(t)
	env.store.lookupErr = errors.New("db down")

	rec := env.do(t, http.MethodGet, "/api/v1/stages", adminKey, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPermissionDenied(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/submissions", readOnlyKey, models.SubmitRequest{
		StageID:  1,
		UserCode: "pass",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	body := decodeEnvelope(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "permission_denied", body.Error.Code)
	assert.Contains(t, body.Error.Message, "submissions:write")
}

func TestExtractAPIKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, extractAPIKey(req))

	req.Header.Set("X-API-Key", " sk_header ")
	assert.Equal(t, "sk_header", extractAPIKey(req))

	req.Header.Set("Authorization", "Bearer sk_bearer")
	assert.Equal(t, "sk_bearer", extractAPIKey(req))
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "***", maskKey("short"))
	assert.Equal(t, "sk_admin...", maskKey(adminKey))
}

func TestClientContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, ClientFromContext(ctx))
	assert.Empty(t, clientName(ctx))

	client := &models.ApiClient{Name: "portal"}
	ctx = ContextWithClient(ctx, client)
	assert.Same(t, client, ClientFromContext(ctx))
	assert.Equal(t, "portal", clientName(ctx))
}
