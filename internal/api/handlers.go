package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/code-validator/internal/models"
	"github.com/terra-clan/code-validator/internal/submission"
	"github.com/terra-clan/code-validator/internal/validator"
)

// DefaultMaxScore is used by ad-hoc validations that do not set maxScore
const DefaultMaxScore = 100

// maxBodyBytes limits request bodies carrying code
const maxBodyBytes = 1 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.checks.Ready(r.Context())
	if !report.Ready {
		slog.Warn("readiness check failed", "checks", report.Checks)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": report.Checks,
	})
}

// Stage handlers

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.submissions.Stages(r.Context())
	if err != nil {
		slog.Error("failed to list stages", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list stages")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stages": stages,
		"total":  len(stages),
	})
}

func (s *Server) handleGetStage(w http.ResponseWriter, r *http.Request) {
	id, ok := stageIDParam(w, r)
	if !ok {
		return
	}

	stage, err := s.submissions.Stage(r.Context(), id)
	if err != nil {
		s.respondSubmissionError(w, err, id)
		return
	}

	respondJSON(w, http.StatusOK, stage)
}

// Submission handlers

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.submissions.Submit(r.Context(), req)
	if err != nil {
		s.respondSubmissionError(w, err, req.StageID)
		return
	}

	slog.Debug("submission handled",
		"client", clientName(r.Context()),
		"stage_id", resp.StageID,
		"is_correct", resp.IsCorrect,
	)
	respondJSON(w, http.StatusOK, resp)
}

// validateRequest is an ad-hoc validation outside the stage catalog
type validateRequest struct {
	Code     string                       `json:"code"`
	Options  *validator.ValidationOptions `json:"options,omitempty"`
	MaxScore int                          `json:"maxScore,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "code is required")
		return
	}
	if req.MaxScore < 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "maxScore must not be negative")
		return
	}

	opts := validator.OptionsForStage(0)
	if req.Options != nil {
		opts = *req.Options
	}
	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = DefaultMaxScore
	}

	result := s.submissions.Validator().Validate(r.Context(), req.Code, opts, maxScore)
	respondJSON(w, http.StatusOK, result)
}

// Event handlers

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
		return
	}

	limit, offset := 0, 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	events, err := s.store.ListEvents(r.Context(), sessionID, limit, offset)
	if err != nil {
		slog.Error("failed to list events", "error", err, "session_id", sessionID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

// stageIDParam parses the {id} URL parameter, writing a 400 when malformed
func stageIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "stage id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) respondSubmissionError(w http.ResponseWriter, err error, stageID int) {
	switch {
	case errors.Is(err, submission.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, submission.ErrStageNotFound):
		respondError(w, http.StatusNotFound, "stage_not_found", "stage not found")
	default:
		slog.Error("submission request failed", "error", err, "stage_id", stageID)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
