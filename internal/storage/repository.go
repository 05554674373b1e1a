package storage

import (
	"context"

	"github.com/terra-clan/code-validator/internal/models"
)

// Repository defines the interface for validator persistence
type Repository interface {
	// Stages
	UpsertStage(ctx context.Context, stage *models.Stage) error
	GetStage(ctx context.Context, id int) (*models.Stage, error)
	ListStages(ctx context.Context) ([]*models.Stage, error)

	// Events
	LogEvent(ctx context.Context, sessionID, eventType string, payload map[string]any) error
	ListEvents(ctx context.Context, sessionID string, limit, offset int) ([]*models.Event, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
