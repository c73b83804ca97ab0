package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"hedge-machine/config"
	"hedge-machine/models"
	"hedge-machine/risk"
)

func stateWithSignals(t *testing.T, ticker string, records map[string]*models.SignalRecord, assessment *models.RiskAssessment) *models.AgentState {
	t.Helper()
	portfolio := models.NewPortfolio([]string{ticker}, decimal.NewFromInt(100000), decimal.Zero)
	state := models.NewAgentState([]string{ticker}, "2024-10-31", "2025-01-31", portfolio, false)
	for persona, record := range records {
		state.MergeSignal(persona, ticker, record)
	}
	if assessment != nil {
		state.MergeSignal(risk.Key, ticker, &models.SignalRecord{Risk: assessment})
	}
	return state
}

func TestSynthesize_BullishConsensusBuys(t *testing.T) {
	state := stateWithSignals(t, "AAPL",
		map[string]*models.SignalRecord{
			"bill_ackman":   {Signal: models.SignalBullish, Score: 14, MaxScore: 16},
			"michael_burry": {Signal: models.SignalBullish, Score: 10, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(20000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	decisions := manager.Decide(context.Background(), state)

	d := decisions["AAPL"]
	if d.Action != models.DecisionActionBuy {
		t.Errorf("action = %s, want buy", d.Action)
	}
	// 20000 limit at price 50
	if d.Quantity != 400 {
		t.Errorf("quantity = %d, want 400", d.Quantity)
	}
	if d.Confidence <= 0 {
		t.Errorf("confidence = %v, want positive", d.Confidence)
	}
	if !strings.Contains(d.Reasoning, "bill_ackman 14/16") {
		t.Errorf("reasoning should cite the contributing signals, got %q", d.Reasoning)
	}
}

func TestSynthesize_BearishConsensusShorts(t *testing.T) {
	state := stateWithSignals(t, "HOPE",
		map[string]*models.SignalRecord{
			"bill_ackman":   {Signal: models.SignalBearish, Score: 2, MaxScore: 16},
			"michael_burry": {Signal: models.SignalBearish, Score: 1, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(10000),
			CurrentPrice:           decimal.NewFromInt(10),
		})

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["HOPE"]

	if d.Action != models.DecisionActionShort {
		t.Errorf("action = %s, want short", d.Action)
	}
	if d.Quantity != 1000 {
		t.Errorf("quantity = %d, want 1000", d.Quantity)
	}
}

func TestSynthesize_MixedSignalsHold(t *testing.T) {
	// 14/16 and 1/12 average to roughly 0.48, inside the neutral band
	state := stateWithSignals(t, "MIXD",
		map[string]*models.SignalRecord{
			"bill_ackman":   {Signal: models.SignalBullish, Score: 14, MaxScore: 16},
			"michael_burry": {Signal: models.SignalBearish, Score: 1, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(20000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["MIXD"]

	if d.Action != models.DecisionActionHold {
		t.Errorf("action = %s, want hold", d.Action)
	}
	if d.Quantity != 0 {
		t.Errorf("quantity = %d, want 0", d.Quantity)
	}
}

func TestSynthesize_FailedSignalsExcluded(t *testing.T) {
	// One persona failed (nil sentinel), the other is strongly bullish;
	// the average must not be dragged down by the failure
	state := stateWithSignals(t, "AAPL",
		map[string]*models.SignalRecord{
			"bill_ackman":   nil,
			"michael_burry": {Signal: models.SignalBullish, Score: 12, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(5000),
			CurrentPrice:           decimal.NewFromInt(100),
		})

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["AAPL"]

	if d.Action != models.DecisionActionBuy {
		t.Errorf("action = %s, want buy", d.Action)
	}
	if d.Quantity != 50 {
		t.Errorf("quantity = %d, want 50", d.Quantity)
	}
}

func TestSynthesize_NoSignalsHoldsFlat(t *testing.T) {
	state := stateWithSignals(t, "NONE", map[string]*models.SignalRecord{"bill_ackman": nil}, nil)

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["NONE"]

	if d.Action != models.DecisionActionHold || d.Quantity != 0 || d.Confidence != 0 {
		t.Errorf("expected zero-confidence hold, got %+v", d)
	}
}

func TestSynthesize_BullishWithoutUsableLimitHolds(t *testing.T) {
	// Over-limit position: remaining limit is negative, so no buy is possible
	state := stateWithSignals(t, "FULL",
		map[string]*models.SignalRecord{
			"michael_burry": {Signal: models.SignalBullish, Score: 12, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(-2000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	manager := NewPortfolioManager(nil, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["FULL"]

	if d.Action != models.DecisionActionHold {
		t.Errorf("action = %s, want hold when no limit remains", d.Action)
	}
}

func TestDecide_ModelPath(t *testing.T) {
	state := stateWithSignals(t, "AAPL",
		map[string]*models.SignalRecord{
			"bill_ackman": {Signal: models.SignalBullish, Score: 14, MaxScore: 16},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(20000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	llm := &mockLLM{response: "```json\n" +
		`{"decisions": {"AAPL": {"action": "Buy", "quantity": 100, "confidence": 85, "reasoning": "Strong conviction"}}}` +
		"\n```"}
	manager := NewPortfolioManager(llm, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["AAPL"]

	if d.Action != models.DecisionActionBuy {
		t.Errorf("action = %s, want buy", d.Action)
	}
	if d.Quantity != 100 {
		t.Errorf("quantity = %d, want 100", d.Quantity)
	}
	if d.Confidence != 85 {
		t.Errorf("confidence = %v, want 85", d.Confidence)
	}
	if d.Reasoning != "Strong conviction" {
		t.Errorf("reasoning = %q", d.Reasoning)
	}
}

func TestDecide_ModelFailureFallsBack(t *testing.T) {
	state := stateWithSignals(t, "AAPL",
		map[string]*models.SignalRecord{
			"michael_burry": {Signal: models.SignalBullish, Score: 12, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(5000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	llm := &mockLLM{err: errors.New("model unavailable")}
	manager := NewPortfolioManager(llm, config.NewTestConfig())
	d := manager.Decide(context.Background(), state)["AAPL"]

	if d.Action != models.DecisionActionBuy {
		t.Errorf("fallback action = %s, want buy from signal synthesis", d.Action)
	}
}

func TestDecide_InvalidModelAnswerFallsBack(t *testing.T) {
	state := stateWithSignals(t, "AAPL",
		map[string]*models.SignalRecord{
			"michael_burry": {Signal: models.SignalBearish, Score: 0, MaxScore: 12},
		},
		&models.RiskAssessment{
			RemainingPositionLimit: decimal.NewFromInt(5000),
			CurrentPrice:           decimal.NewFromInt(50),
		})

	tests := []struct {
		name     string
		response string
	}{
		{"invalid action", `{"decisions": {"AAPL": {"action": "yolo", "quantity": 1, "confidence": 50}}}`},
		{"negative quantity", `{"decisions": {"AAPL": {"action": "buy", "quantity": -5, "confidence": 50}}}`},
		{"missing ticker", `{"decisions": {"MSFT": {"action": "buy", "quantity": 1, "confidence": 50}}}`},
		{"no decisions", `{"decisions": {}}`},
		{"not json", `I would hold everything.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewPortfolioManager(&mockLLM{response: tt.response}, config.NewTestConfig())
			d := manager.Decide(context.Background(), state)["AAPL"]
			if d.Action != models.DecisionActionShort {
				t.Errorf("fallback action = %s, want short from signal synthesis", d.Action)
			}
		})
	}
}

func TestConfidenceFromRatio(t *testing.T) {
	signal := config.NewTestConfig().Signal

	tests := []struct {
		ratio float64
		want  float64
	}{
		{1.0, 100},
		{0.7, 0},   // exactly at the bullish threshold
		{0.85, 50}, // halfway between threshold and 1
		{0.5, 0},   // neutral band
		{0.3, 0},   // exactly at the bearish threshold
		{0.15, 50}, // halfway between threshold and 0
		{0.0, 100},
	}

	for _, tt := range tests {
		got := confidenceFromRatio(tt.ratio, signal)
		if diff := got - tt.want; diff > 0.001 || diff < -0.001 {
			t.Errorf("confidenceFromRatio(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}
