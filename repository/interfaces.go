package repository

import (
	"context"

	"hedge-machine/models"

	"github.com/google/uuid"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error

	// Persona runs
	RecordPersonaRun(ctx context.Context, run *models.PersonaRun) error
	GetPersonaRun(ctx context.Context, id uuid.UUID) (*models.PersonaRun, error)
	GetPersonaRuns(ctx context.Context, persona string, limit int) ([]models.PersonaRun, error)
	GetRecentRunsForTicker(ctx context.Context, ticker string, limit int) ([]models.PersonaRun, error)

	// Decisions
	RecordDecision(ctx context.Context, decision *models.Decision) error
	GetDecision(ctx context.Context, id uuid.UUID) (*models.Decision, error)
	GetDecisions(ctx context.Context, limit int) ([]models.Decision, error)
	GetDecisionsByTicker(ctx context.Context, ticker string, limit int) ([]models.Decision, error)
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
