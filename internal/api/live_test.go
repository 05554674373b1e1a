package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialLive(t *testing.T, srv *httptest.Server, path, apiKey string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	header := http.Header{}
	if apiKey != "" {
		header.Set("X-API-Key", apiKey)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readLive(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestLiveLint(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	conn, _, err := dialLive(t, srv, "/api/v1/stages/1/live", adminKey)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, LiveTypeConnected, readLive(t, conn).Type)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: LiveTypeCode, Data: "# comment"}))
	msg := readLive(t, conn)
	require.Equal(t, LiveTypeResult, msg.Type)
	require.NotNil(t, msg.Result)
	assert.False(t, msg.Result.IsValid)
	assert.Equal(t, 45, msg.Result.Score)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: LiveTypeCode, Data: env.stages.Get(1).Solution}))
	msg = readLive(t, conn)
	require.Equal(t, LiveTypeResult, msg.Type)
	assert.True(t, msg.Result.IsValid)
	assert.Equal(t, 125, msg.Result.Score)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: LiveTypePing}))
	assert.Equal(t, LiveTypePong, readLive(t, conn).Type)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: "resize"}))
	msg = readLive(t, conn)
	assert.Equal(t, LiveTypeError, msg.Type)
	assert.Contains(t, msg.Data, "unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, LiveTypeError, readLive(t, conn).Type)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	assert.Empty(t, env.store.loggedEvents)
}

func TestLiveLintRejectsBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.server.Router())
	defer srv.Close()

	tests := []struct {
		name     string
		path     string
		apiKey   string
		wantCode int
	}{
		{"unauthenticated", "/api/v1/stages/1/live", "", http.StatusUnauthorized},
		{"missing permission", "/api/v1/stages/1/live", readOnlyKey, http.StatusForbidden},
		{"bad stage id", "/api/v1/stages/x/live", adminKey, http.StatusBadRequest},
		{"unknown stage", "/api/v1/stages/404/live", adminKey, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialLive(t, srv, tt.path, tt.apiKey)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}
