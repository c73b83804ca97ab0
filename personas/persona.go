// Package personas implements the deterministic investor-persona scorers.
// Each persona fetches its own fundamentals slice, scores it through a set
// of bounded sub-analyses, and classifies the total into a three-way signal.
package personas

import (
	"context"

	"hedge-machine/models"
	"hedge-machine/services"
)

// Scorer is one investor persona. Score is deterministic for fixed provider
// data; narrative generation happens downstream and never changes the
// signal or the numbers.
type Scorer interface {
	// Key is the stable identifier used in the analyst signals map.
	Key() string
	// Name is the display name.
	Name() string
	// Score fetches the persona's data slice as of endDate and produces a
	// scored record. Missing data reduces sub-scores toward zero; it is not
	// an error.
	Score(ctx context.Context, ticker, endDate string) (*models.SignalRecord, error)
}

// FactProvider supplies the fundamentals, trades, and news personas score
// against.
type FactProvider = services.FinDataServiceInterface
