// Package pipeline wires the persona scorers, the risk calculator, and the
// terminal portfolio stage into one run over a shared state store.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Stage describes one persona position in the per-ticker sequence: which
// scorer runs, what the narration model is told, and where in the chain it
// sits.
type Stage struct {
	// Key matches a persona in the registry and names the analyst signals
	// entry.
	Key string `json:"node_name"`
	// Instructions is the narration system prompt.
	Instructions string `json:"instructions"`
	// MessageTemplate is the narration user prompt. It may reference
	// {$ticker}, {$end_date}, and {$analysis_data}.
	MessageTemplate string `json:"message_template"`
	// Order fixes the stage's position in the chain.
	Order int `json:"order"`
}

const defaultMessageTemplate = "Analyze {$ticker} as of {$end_date}.\n\n" +
	"Here is the analysis from the previous analyst, consider it but form your own view: {$analysis_data}"

// defaultStages is the built-in chain: Ackman first, then Burry reading
// Ackman's output.
var defaultStages = []Stage{
	{
		Key: "bill_ackman",
		Instructions: "You are Bill Ackman. You look for high-quality businesses with " +
			"durable growth, disciplined balance sheets, and a margin of safety, and " +
			"you are willing to agitate for change when management underperforms. " +
			"Explain the scored analysis you are given in your own voice. Respond " +
			"with a JSON object containing signal, confidence, and reasoning.",
		MessageTemplate: defaultMessageTemplate,
		Order:           1,
	},
	{
		Key: "michael_burry",
		Instructions: "You are Michael Burry. You hunt for deep value the market " +
			"hates: high free cash flow yields, cheap EV/EBIT, balance sheets that " +
			"survive stress, and insiders buying while headlines are negative. " +
			"Explain the scored analysis you are given in your own voice. Respond " +
			"with a JSON object containing signal, confidence, and reasoning.",
		MessageTemplate: defaultMessageTemplate,
		Order:           2,
	},
}

// DefaultStages returns the built-in stage chain.
func DefaultStages() []Stage {
	stages := make([]Stage, len(defaultStages))
	copy(stages, defaultStages)
	return stages
}

// LoadStages reads a stage chain from a JSON file, falling back to the
// defaults when path is empty. Stages are returned sorted by Order.
func LoadStages(path string) ([]Stage, error) {
	if path == "" {
		return DefaultStages(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage config: %w", err)
	}

	var stages []Stage
	if err := json.Unmarshal(data, &stages); err != nil {
		return nil, fmt.Errorf("failed to parse stage config: %w", err)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("stage config %s defines no stages", path)
	}

	for i, stage := range stages {
		if stage.Key == "" {
			return nil, fmt.Errorf("stage %d has no node_name", i)
		}
	}

	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
	return stages, nil
}

// SelectStages filters the chain down to the requested persona keys while
// keeping chain order.
func SelectStages(stages []Stage, keys []string) ([]Stage, error) {
	if len(keys) == 0 {
		return stages, nil
	}

	wanted := make(map[string]bool, len(keys))
	for _, key := range keys {
		wanted[key] = true
	}

	selected := make([]Stage, 0, len(keys))
	for _, stage := range stages {
		if wanted[stage.Key] {
			selected = append(selected, stage)
			delete(wanted, stage.Key)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for key := range wanted {
			missing = append(missing, key)
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("unknown personas requested: %s", strings.Join(missing, ", "))
	}

	return selected, nil
}

// RenderMessage substitutes the run values into a stage's message template.
// The analysis-data placeholder is replaced only when upstream output
// exists; otherwise the placeholder line is dropped so the model is not
// shown a dangling variable.
func RenderMessage(template, ticker, endDate, analysisData string) string {
	msg := strings.ReplaceAll(template, "{$ticker}", ticker)
	msg = strings.ReplaceAll(msg, "{$end_date}", endDate)

	if analysisData != "" {
		return strings.ReplaceAll(msg, "{$analysis_data}", analysisData)
	}

	// Drop any line that still references the placeholder.
	lines := strings.Split(msg, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(line, "{$analysis_data}") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
