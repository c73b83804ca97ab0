package statestore

import (
	"context"
	"sync"

	"hedge-machine/models"
)

// Serialized wraps a Store so that read-modify-write cycles from this
// process never interleave. The store itself only promises last-writer-wins
// on whole-state Sets; anyone updating part of the state must hold the
// update lock for the full get-modify-set cycle.
type Serialized struct {
	mu    sync.Mutex
	store Store
}

// NewSerialized wraps the given store.
func NewSerialized(store Store) *Serialized {
	return &Serialized{store: store}
}

// Get returns the current state.
func (s *Serialized) Get(ctx context.Context) (*models.AgentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(ctx)
}

// Set replaces the whole state.
func (s *Serialized) Set(ctx context.Context, state *models.AgentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(ctx, state)
}

// Update runs fn against the current state and writes the result back as one
// serialized cycle. fn sees the freshest state and its mutations are stored
// before any other Update from this process can read.
func (s *Serialized) Update(ctx context.Context, fn func(state *models.AgentState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Get(ctx)
	if err != nil {
		return err
	}

	if err := fn(state); err != nil {
		return err
	}

	return s.store.Set(ctx, state)
}

// Compile-time interface verification
var _ Store = (*Serialized)(nil)
