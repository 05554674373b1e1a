package models

import (
	"time"
)

// EventCodeSubmission is logged once per submission attempt
const EventCodeSubmission = "code_submission"

// Event is an append-only activity record of a learner session
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	EventType string         `json:"eventType"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}
