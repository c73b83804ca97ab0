package personas

import (
	"testing"

	"hedge-machine/config"
)

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(keys))
	}
	if keys[0] != "bill_ackman" || keys[1] != "michael_burry" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestBuild_PreservesOrder(t *testing.T) {
	cfg := config.NewTestConfig()
	provider := &mockProvider{}

	scorers, err := Build([]string{"michael_burry", "bill_ackman"}, provider, cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(scorers) != 2 {
		t.Fatalf("expected 2 scorers, got %d", len(scorers))
	}
	if scorers[0].Key() != "michael_burry" {
		t.Errorf("first scorer = %s, want michael_burry", scorers[0].Key())
	}
	if scorers[1].Key() != "bill_ackman" {
		t.Errorf("second scorer = %s, want bill_ackman", scorers[1].Key())
	}
}

func TestBuild_UnknownPersona(t *testing.T) {
	cfg := config.NewTestConfig()

	_, err := Build([]string{"warren_buffett"}, &mockProvider{}, cfg)
	if err == nil {
		t.Fatal("expected error for unknown persona key")
	}
}

func TestBuildAll(t *testing.T) {
	scorers := BuildAll(&mockProvider{}, config.NewTestConfig())
	if len(scorers) != 2 {
		t.Fatalf("expected 2 scorers, got %d", len(scorers))
	}
	for _, s := range scorers {
		if s.Name() == "" {
			t.Errorf("scorer %s has empty name", s.Key())
		}
	}
}
