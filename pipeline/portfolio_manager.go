package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"hedge-machine/config"
	"hedge-machine/models"
	"hedge-machine/observability"
	"hedge-machine/risk"
	"hedge-machine/services"
)

// PortfolioManager is the terminal pipeline stage. It reads the complete
// analyst signals and risk assessments and produces one decision per run
// ticker. With a model configured it asks for judgment; without one, or when
// the model's answer cannot be used, it synthesizes decisions from the
// signals directly.
type PortfolioManager struct {
	llm services.LLMService // optional
	cfg *config.Config
}

// NewPortfolioManager creates the terminal stage. llm may be nil.
func NewPortfolioManager(llm services.LLMService, cfg *config.Config) *PortfolioManager {
	return &PortfolioManager{llm: llm, cfg: cfg}
}

// llmDecision is the per-ticker shape the model is asked to return.
type llmDecision struct {
	Action     string  `json:"action"`
	Quantity   int64   `json:"quantity"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

type llmDecisionResponse struct {
	Decisions map[string]llmDecision `json:"decisions"`
}

const portfolioManagerInstructions = "You are a portfolio manager making final trading decisions. " +
	"For each ticker, weigh the analyst signals against the risk limits and respond with a JSON object " +
	"of the form {\"decisions\": {\"TICKER\": {\"action\": \"buy|sell|short|cover|hold\", " +
	"\"quantity\": <integer shares>, \"confidence\": <0-100>, \"reasoning\": \"...\"}}}. " +
	"Never exceed a ticker's remaining position limit, and never buy without available cash."

// Decide produces one decision per run ticker from the finished state.
func (m *PortfolioManager) Decide(ctx context.Context, state *models.AgentState) map[string]*models.Decision {
	if m.llm != nil {
		decisions, err := m.decideWithModel(ctx, state)
		if err == nil {
			return decisions
		}
		observability.Warn("model decision failed, falling back to signal synthesis", "error", err)
	}
	return m.synthesize(state)
}

func (m *PortfolioManager) decideWithModel(ctx context.Context, state *models.AgentState) (map[string]*models.Decision, error) {
	payload, err := json.MarshalIndent(map[string]interface{}{
		"tickers":         state.Tickers,
		"end_date":        state.EndDate,
		"portfolio":       state.Portfolio,
		"analyst_signals": state.AnalystSignals,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision context: %w", err)
	}

	message := fmt.Sprintf("Make trading decisions for the following run:\n\n%s", payload)

	var response llmDecisionResponse
	if err := m.llm.InvokeStructured(ctx, portfolioManagerInstructions, message, &response); err != nil {
		return nil, err
	}
	if len(response.Decisions) == 0 {
		return nil, fmt.Errorf("model returned no decisions")
	}

	decisions := make(map[string]*models.Decision, len(state.Tickers))
	for _, ticker := range state.Tickers {
		raw, ok := response.Decisions[ticker]
		if !ok {
			return nil, fmt.Errorf("model returned no decision for %s", ticker)
		}
		action, ok := parseAction(raw.Action)
		if !ok {
			return nil, fmt.Errorf("model returned invalid action %q for %s", raw.Action, ticker)
		}
		quantity := raw.Quantity
		if quantity < 0 {
			return nil, fmt.Errorf("model returned negative quantity %d for %s", quantity, ticker)
		}
		confidence := math.Min(math.Max(raw.Confidence, 0), 100)
		decisions[ticker] = models.NewDecision(ticker, action, quantity, confidence, raw.Reasoning)
	}
	return decisions, nil
}

func parseAction(s string) (models.DecisionAction, bool) {
	switch models.DecisionAction(strings.ToLower(strings.TrimSpace(s))) {
	case models.DecisionActionBuy:
		return models.DecisionActionBuy, true
	case models.DecisionActionSell:
		return models.DecisionActionSell, true
	case models.DecisionActionShort:
		return models.DecisionActionShort, true
	case models.DecisionActionCover:
		return models.DecisionActionCover, true
	case models.DecisionActionHold:
		return models.DecisionActionHold, true
	}
	return "", false
}

// synthesize derives decisions from the persona score ratios alone. The
// average ratio across personas that produced a record is classified with
// the same thresholds the personas use; quantity comes from the risk stage's
// remaining limit at the current price.
func (m *PortfolioManager) synthesize(state *models.AgentState) map[string]*models.Decision {
	decisions := make(map[string]*models.Decision, len(state.Tickers))

	for _, ticker := range state.Tickers {
		ratio, contributors := averageRatio(state, ticker)
		assessment := riskFor(state, ticker)

		if contributors == 0 {
			decisions[ticker] = models.NewDecision(ticker, models.DecisionActionHold, 0, 0,
				"No analyst produced a signal for this ticker")
			continue
		}

		var action models.DecisionAction
		switch {
		case ratio >= m.cfg.Signal.BullishThreshold:
			action = models.DecisionActionBuy
		case ratio <= m.cfg.Signal.BearishThreshold:
			action = models.DecisionActionShort
		default:
			action = models.DecisionActionHold
		}

		var quantity int64
		if action != models.DecisionActionHold && assessment != nil &&
			assessment.CurrentPrice.IsPositive() && assessment.RemainingPositionLimit.IsPositive() {
			quantity = assessment.RemainingPositionLimit.Div(assessment.CurrentPrice).IntPart()
		}
		if quantity == 0 && action != models.DecisionActionHold {
			action = models.DecisionActionHold
		}

		confidence := confidenceFromRatio(ratio, m.cfg.Signal)
		reasoning := describeSynthesis(state, ticker, ratio, contributors)
		decisions[ticker] = models.NewDecision(ticker, action, quantity, confidence, reasoning)
	}

	return decisions
}

// averageRatio averages Ratio() over persona records for the ticker,
// excluding the risk stage and failed (nil) records.
func averageRatio(state *models.AgentState, ticker string) (float64, int) {
	var sum float64
	var n int
	for persona, byTicker := range state.AnalystSignals {
		if persona == risk.Key {
			continue
		}
		record := byTicker[ticker]
		if record == nil || record.MaxScore == 0 {
			continue
		}
		sum += record.Ratio()
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func riskFor(state *models.AgentState, ticker string) *models.RiskAssessment {
	byTicker := state.AnalystSignals[risk.Key]
	if byTicker == nil {
		return nil
	}
	record := byTicker[ticker]
	if record == nil {
		return nil
	}
	return record.Risk
}

// confidenceFromRatio maps the distance from neutral into a 0-100 scale.
// A ratio at either threshold scores 0; at the extremes it scores 100.
func confidenceFromRatio(ratio float64, signal config.SignalConfig) float64 {
	switch {
	case ratio >= signal.BullishThreshold:
		span := 1 - signal.BullishThreshold
		if span <= 0 {
			return 100
		}
		return math.Min((ratio-signal.BullishThreshold)/span*100, 100)
	case ratio <= signal.BearishThreshold:
		if signal.BearishThreshold <= 0 {
			return 100
		}
		return math.Min((signal.BearishThreshold-ratio)/signal.BearishThreshold*100, 100)
	default:
		return 0
	}
}

func describeSynthesis(state *models.AgentState, ticker string, ratio float64, contributors int) string {
	personas := make([]string, 0, contributors)
	for persona, byTicker := range state.AnalystSignals {
		if persona == risk.Key {
			continue
		}
		if record := byTicker[ticker]; record != nil && record.MaxScore != 0 {
			personas = append(personas, fmt.Sprintf("%s %d/%d", persona, record.Score, record.MaxScore))
		}
	}
	sort.Strings(personas)
	return fmt.Sprintf("Synthesized from %d analyst signals (avg ratio %.2f): %s",
		contributors, ratio, strings.Join(personas, ", "))
}
