// Package statestore holds the shared run state behind a small get/set
// surface. The whole state is the unit of read and write; concurrent
// writers follow last-writer-wins, and read-modify-write cycles go through
// Serialized.
package statestore

import (
	"context"
	"errors"

	"hedge-machine/models"
)

// ErrStateAbsent is returned by Get when no state has ever been stored.
// Absence is a distinct condition, not an empty state.
var ErrStateAbsent = errors.New("no state stored")

// Store is the shared state surface. Set replaces the whole state and must
// not acknowledge before the write is durable.
type Store interface {
	Get(ctx context.Context) (*models.AgentState, error)
	Set(ctx context.Context, state *models.AgentState) error
}
