package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMessage_WithUpstreamAnalysis(t *testing.T) {
	msg := RenderMessage(defaultMessageTemplate, "AAPL", "2025-01-31", `{"signal":"bullish"}`)

	if !strings.Contains(msg, "AAPL") {
		t.Error("expected ticker substitution")
	}
	if !strings.Contains(msg, "2025-01-31") {
		t.Error("expected end date substitution")
	}
	if !strings.Contains(msg, `{"signal":"bullish"}`) {
		t.Error("expected analysis data substitution")
	}
	if strings.Contains(msg, "{$") {
		t.Errorf("unsubstituted placeholder left in message: %q", msg)
	}
}

func TestRenderMessage_WithoutUpstreamAnalysis(t *testing.T) {
	msg := RenderMessage(defaultMessageTemplate, "AAPL", "2025-01-31", "")

	if strings.Contains(msg, "{$analysis_data}") {
		t.Errorf("placeholder should be dropped when no upstream output exists: %q", msg)
	}
	// The lead-in line referencing the previous analyst goes with it
	if strings.Contains(msg, "previous analyst") {
		t.Errorf("dangling lead-in left in message: %q", msg)
	}
	if !strings.Contains(msg, "Analyze AAPL as of 2025-01-31.") {
		t.Errorf("core prompt missing: %q", msg)
	}
}

func TestLoadStages_Defaults(t *testing.T) {
	stages, err := LoadStages("")
	if err != nil {
		t.Fatalf("LoadStages() error = %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 default stages, got %d", len(stages))
	}
	if stages[0].Key != "bill_ackman" || stages[1].Key != "michael_burry" {
		t.Errorf("unexpected default chain: %s, %s", stages[0].Key, stages[1].Key)
	}
}

func TestLoadStages_FileSortedByOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.json")
	payload := `[
		{"node_name": "michael_burry", "instructions": "b", "message_template": "m", "order": 2},
		{"node_name": "bill_ackman", "instructions": "a", "message_template": "m", "order": 1}
	]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	stages, err := LoadStages(path)
	if err != nil {
		t.Fatalf("LoadStages() error = %v", err)
	}
	if stages[0].Key != "bill_ackman" {
		t.Errorf("first stage = %s, want bill_ackman (lowest order)", stages[0].Key)
	}
}

func TestLoadStages_Invalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`[]`), 0o644)
	if _, err := LoadStages(empty); err == nil {
		t.Error("expected error for empty stage list")
	}

	unnamed := filepath.Join(dir, "unnamed.json")
	os.WriteFile(unnamed, []byte(`[{"order": 1}]`), 0o644)
	if _, err := LoadStages(unnamed); err == nil {
		t.Error("expected error for stage without node_name")
	}

	if _, err := LoadStages(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSelectStages(t *testing.T) {
	stages := DefaultStages()

	all, err := SelectStages(stages, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("empty selection should keep the whole chain, got %d stages, err %v", len(all), err)
	}

	// Selection keeps chain order regardless of request order
	subset, err := SelectStages(stages, []string{"michael_burry", "bill_ackman"})
	if err != nil {
		t.Fatalf("SelectStages() error = %v", err)
	}
	if subset[0].Key != "bill_ackman" {
		t.Errorf("first selected = %s, want bill_ackman (chain order wins)", subset[0].Key)
	}

	one, err := SelectStages(stages, []string{"michael_burry"})
	if err != nil || len(one) != 1 || one[0].Key != "michael_burry" {
		t.Errorf("single selection failed: %v, err %v", one, err)
	}

	if _, err := SelectStages(stages, []string{"warren_buffett"}); err == nil {
		t.Error("expected error for unknown persona")
	}
}
