package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/code-validator/internal/models"
	"github.com/terra-clan/code-validator/internal/validator"
)

var (
	// ErrStageNotFound is returned for unknown or inactive stages
	ErrStageNotFound = errors.New("stage not found")

	// ErrInvalidRequest is returned when a submission lacks required fields
	ErrInvalidRequest = errors.New("invalid request")
)

const (
	// MaxLoggedCodeLength caps the code snippet stored with an event, in runes
	MaxLoggedCodeLength = 500

	// AnonymousSessionID is used for events of submissions without a session
	AnonymousSessionID = "anonymous"

	eventTimeout = 3 * time.Second
)

// StageStore provides stage metadata
type StageStore interface {
	GetStage(ctx context.Context, id int) (*models.Stage, error)
	ListStages(ctx context.Context) ([]*models.Stage, error)
}

// EventLogger accepts session activity events
type EventLogger interface {
	LogEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) error
}

// ResultCache stores linting results for repeated submissions
type ResultCache interface {
	Get(ctx context.Context, stageID, points int, code string) (*validator.LintingResult, bool, error)
	Set(ctx context.Context, stageID, points int, code string, result *validator.LintingResult) error
}

// Option configures a Service
type Option func(*Service)

// WithEventLogger records one event per submission
func WithEventLogger(events EventLogger) Option {
	return func(s *Service) {
		s.events = events
	}
}

// WithResultCache caches linting results
func WithResultCache(cache ResultCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// Service judges submissions: it resolves the stage, validates the code,
// decides correctness and records the attempt.
type Service struct {
	stages    StageStore
	validator *validator.Validator
	events    EventLogger
	cache     ResultCache
}

// NewService creates a submission service
func NewService(stages StageStore, v *validator.Validator, opts ...Option) *Service {
	if v == nil {
		v = validator.New(nil)
	}
	s := &Service{
		stages:    stages,
		validator: v,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validator returns the validator in use
func (s *Service) Validator() *validator.Validator {
	return s.validator
}

// Stage returns an active stage or ErrStageNotFound
func (s *Service) Stage(ctx context.Context, id int) (*models.Stage, error) {
	stage, err := s.stages.GetStage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	if stage == nil || !stage.IsActive {
		return nil, fmt.Errorf("%w: %d", ErrStageNotFound, id)
	}
	return stage, nil
}

// Stages returns every active stage
func (s *Service) Stages(ctx context.Context) ([]*models.Stage, error) {
	all, err := s.stages.ListStages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}

	active := make([]*models.Stage, 0, len(all))
	for _, stage := range all {
		if stage.IsActive {
			active = append(active, stage)
		}
	}
	return active, nil
}

// Lint validates code against an active stage, using the cache when
// configured.
func (s *Service) Lint(ctx context.Context, stageID int, code string) (*validator.LintingResult, *models.Stage, error) {
	stage, err := s.Stage(ctx, stageID)
	if err != nil {
		return nil, nil, err
	}
	return s.lint(ctx, stage, code), stage, nil
}

func (s *Service) lint(ctx context.Context, stage *models.Stage, code string) *validator.LintingResult {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, stage.ID, stage.Points, code)
		if err != nil {
			slog.Warn("failed to read result cache", "error", err, "stage_id", stage.ID)
		} else if ok {
			slog.Debug("result cache hit", "stage_id", stage.ID)
			return cached
		}
	}

	result := s.validator.ValidateStage(ctx, stage.ID, code, stage.Points)

	if s.cache != nil {
		if err := s.cache.Set(ctx, stage.ID, stage.Points, code, result); err != nil {
			slog.Warn("failed to write result cache", "error", err, "stage_id", stage.ID)
		}
	}
	return result
}

// Submit judges a submission. Requests without a stage ID or code fail with
// ErrInvalidRequest; unknown or inactive stages with ErrStageNotFound.
func (s *Service) Submit(ctx context.Context, req models.SubmitRequest) (*models.SubmitResponse, error) {
	if req.StageID <= 0 {
		return nil, fmt.Errorf("%w: stageId is required", ErrInvalidRequest)
	}
	if req.UserCode == "" {
		return nil, fmt.Errorf("%w: userCode is required", ErrInvalidRequest)
	}

	stage, err := s.Stage(ctx, req.StageID)
	if err != nil {
		return nil, err
	}

	result := s.lint(ctx, stage, req.UserCode)
	isCorrect := result.IsValid || validator.Normalize(req.UserCode) == validator.Normalize(stage.Solution)

	slog.Info("submission judged",
		"stage_id", stage.ID,
		"session_id", req.SessionID,
		"is_correct", isCorrect,
		"score", result.Score,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
	)

	s.logSubmission(ctx, req, stage, result, isCorrect)

	return &models.SubmitResponse{
		IsCorrect:  isCorrect,
		StageID:    stage.ID,
		Points:     stage.Points,
		Difficulty: stage.Difficulty,
		Hint:       stage.Hint,
		Feedback:   result.Feedback,
		LintingDetails: models.LintingDetails{
			Errors:   result.Errors,
			Warnings: result.Warnings,
			Score:    result.Score,
			MaxScore: stage.Points,
		},
	}, nil
}

// logSubmission records the attempt. Failures are logged and swallowed.
func (s *Service) logSubmission(ctx context.Context, req models.SubmitRequest, stage *models.Stage, result *validator.LintingResult, isCorrect bool) {
	if s.events == nil {
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = AnonymousSessionID
	}

	payload := map[string]any{
		"stageId":   stage.ID,
		"isCorrect": isCorrect,
		"code":      Truncate(req.UserCode, MaxLoggedCodeLength),
		"errors":    result.Errors,
		"warnings":  result.Warnings,
		"score":     result.Score,
		"maxScore":  stage.Points,
	}

	// the request may already be finishing; the log write gets its own deadline
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()

	if err := s.events.LogEvent(logCtx, sessionID, models.EventCodeSubmission, payload); err != nil {
		slog.Warn("failed to log submission event",
			"error", err,
			"session_id", sessionID,
			"stage_id", stage.ID,
		)
	}
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
