package models

import (
	"time"

	"github.com/google/uuid"
)

// PersonaRun is the persisted audit record of one pipeline stage execution
// for one ticker.
type PersonaRun struct {
	ID           uuid.UUID              `json:"id"`
	Persona      string                 `json:"persona"`
	Ticker       string                 `json:"ticker"`
	Status       PersonaRunStatus       `json:"status"`
	OutputData   map[string]interface{} `json:"output_data,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	DurationMs   int                    `json:"duration_ms"`
	StartedAt    time.Time              `json:"started_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
}

type PersonaRunStatus string

const (
	PersonaRunStatusRunning   PersonaRunStatus = "running"
	PersonaRunStatusCompleted PersonaRunStatus = "completed"
	PersonaRunStatusFailed    PersonaRunStatus = "failed"
)

func NewPersonaRun(persona, ticker string) *PersonaRun {
	return &PersonaRun{
		ID:        uuid.New(),
		Persona:   persona,
		Ticker:    ticker,
		Status:    PersonaRunStatusRunning,
		StartedAt: time.Now(),
	}
}

func (r *PersonaRun) Complete(output map[string]interface{}) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = PersonaRunStatusCompleted
	r.OutputData = output
	r.DurationMs = int(now.Sub(r.StartedAt).Milliseconds())
}

func (r *PersonaRun) Fail(err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Status = PersonaRunStatusFailed
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.DurationMs = int(now.Sub(r.StartedAt).Milliseconds())
}
