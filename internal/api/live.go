package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/code-validator/internal/submission"
	"github.com/terra-clan/code-validator/internal/validator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Live lint message types
const (
	LiveTypeConnected = "connected"
	LiveTypeCode      = "code"
	LiveTypeResult    = "result"
	LiveTypeError     = "error"
	LiveTypePing      = "ping"
	LiveTypePong      = "pong"
)

// LiveMessage is one frame of the live lint websocket
type LiveMessage struct {
	Type   string                   `json:"type"`
	Data   string                   `json:"data,omitempty"`
	Result *validator.LintingResult `json:"result,omitempty"`
}

// handleLiveLint lints every "code" frame against the stage and answers with
// a "result" frame. Nothing is logged to the event store.
func (s *Server) handleLiveLint(w http.ResponseWriter, r *http.Request) {
	stageID, ok := stageIDParam(w, r)
	if !ok {
		return
	}

	if _, err := s.submissions.Stage(r.Context(), stageID); err != nil {
		s.respondSubmissionError(w, err, stageID)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	slog.Info("live lint connected", "stage_id", stageID, "client", clientName(ctx))

	if err := s.sendLiveMessage(conn, LiveMessage{Type: LiveTypeConnected, Data: "live lint ready"}); err != nil {
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg LiveMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			if s.sendLiveError(conn, "invalid message format") != nil {
				break
			}
			continue
		}

		var reply LiveMessage
		switch msg.Type {
		case LiveTypeCode:
			result, _, err := s.submissions.Lint(ctx, stageID, msg.Data)
			if err != nil {
				if errors.Is(err, submission.ErrStageNotFound) {
					reply = LiveMessage{Type: LiveTypeError, Data: "stage not found"}
				} else {
					slog.Error("live lint failed", "error", err, "stage_id", stageID)
					reply = LiveMessage{Type: LiveTypeError, Data: "validation failed"}
				}
				break
			}
			reply = LiveMessage{Type: LiveTypeResult, Result: result}
		case LiveTypePing:
			reply = LiveMessage{Type: LiveTypePong}
		default:
			reply = LiveMessage{Type: LiveTypeError, Data: "unknown message type: " + msg.Type}
		}

		if err := s.sendLiveMessage(conn, reply); err != nil {
			break
		}
	}

	slog.Info("live lint disconnected", "stage_id", stageID)
}

func (s *Server) sendLiveMessage(conn *websocket.Conn, msg LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendLiveError(conn *websocket.Conn, message string) error {
	return s.sendLiveMessage(conn, LiveMessage{Type: LiveTypeError, Data: message})
}
