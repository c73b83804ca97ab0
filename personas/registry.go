package personas

import (
	"fmt"
	"sort"

	"hedge-machine/config"
)

// Constructor builds a persona from its dependencies.
type Constructor func(provider FactProvider, cfg *config.Config) Scorer

// registry is the closed set of available personas. Adding a persona means
// adding a constructor here; unknown keys are rejected at run setup, never
// mid-run.
var registry = map[string]Constructor{
	"bill_ackman": func(p FactProvider, c *config.Config) Scorer {
		return NewAckman(p, c)
	},
	"michael_burry": func(p FactProvider, c *config.Config) Scorer {
		return NewBurry(p, c)
	},
}

// Keys returns the available persona keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for key := range registry {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Build constructs the personas for the given keys, preserving order. Every
// key must exist in the registry.
func Build(keys []string, provider FactProvider, cfg *config.Config) ([]Scorer, error) {
	scorers := make([]Scorer, 0, len(keys))
	for _, key := range keys {
		ctor, ok := registry[key]
		if !ok {
			return nil, fmt.Errorf("unknown persona %q (available: %v)", key, Keys())
		}
		scorers = append(scorers, ctor(provider, cfg))
	}
	return scorers, nil
}

// BuildAll constructs every registered persona in sorted key order.
func BuildAll(provider FactProvider, cfg *config.Config) []Scorer {
	scorers, _ := Build(Keys(), provider, cfg)
	return scorers
}
