package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used throughout the run state.
const DateLayout = "2006-01-02"

// AgentState is the unit of shared context threaded through a whole run.
// It is the only shared mutable data in the system and lives in the State
// Store; in-process components hold snapshots obtained via Get.
type AgentState struct {
	Tickers        []string                            `json:"tickers"`
	Portfolio      Portfolio                           `json:"portfolio"`
	StartDate      string                              `json:"start_date"`
	EndDate        string                              `json:"end_date"`
	AnalystSignals map[string]map[string]*SignalRecord `json:"analyst_signals"`
	ShowReasoning  bool                                `json:"show_reasoning"`
}

// NewAgentState seeds the run state for the given tickers and portfolio.
func NewAgentState(tickers []string, startDate, endDate string, portfolio Portfolio, showReasoning bool) *AgentState {
	return &AgentState{
		Tickers:        tickers,
		Portfolio:      portfolio,
		StartDate:      startDate,
		EndDate:        endDate,
		AnalystSignals: make(map[string]map[string]*SignalRecord),
		ShowReasoning:  showReasoning,
	}
}

// Validate rejects states that must never enter the pipeline.
func (s *AgentState) Validate() error {
	if len(s.Tickers) == 0 {
		return fmt.Errorf("ticker list must not be empty")
	}
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", s.StartDate, err)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", s.EndDate, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", s.EndDate, s.StartDate)
	}
	return s.Portfolio.Validate()
}

// MergeSignal records a persona's signal for a ticker. A nil record is the
// explicit failure sentinel; the map entry is still created so downstream
// stages can distinguish "failed" from "never ran".
func (s *AgentState) MergeSignal(persona, ticker string, record *SignalRecord) {
	if s.AnalystSignals == nil {
		s.AnalystSignals = make(map[string]map[string]*SignalRecord)
	}
	if s.AnalystSignals[persona] == nil {
		s.AnalystSignals[persona] = make(map[string]*SignalRecord)
	}
	s.AnalystSignals[persona][ticker] = record
}

// Portfolio holds capital and positions for a run.
type Portfolio struct {
	Cash              decimal.Decimal         `json:"cash"`
	MarginRequirement decimal.Decimal         `json:"margin_requirement"`
	MarginUsed        decimal.Decimal         `json:"margin_used"`
	Positions         map[string]Position     `json:"positions"`
	RealizedGains     map[string]RealizedGain `json:"realized_gains"`
}

// Position tracks long and short share counts plus cost bases for one ticker.
type Position struct {
	Long            int64           `json:"long"`
	Short           int64           `json:"short"`
	LongCostBasis   decimal.Decimal `json:"long_cost_basis"`
	ShortCostBasis  decimal.Decimal `json:"short_cost_basis"`
	ShortMarginUsed decimal.Decimal `json:"short_margin_used"`
}

// RealizedGain is cumulative realized P&L per side.
type RealizedGain struct {
	Long  decimal.Decimal `json:"long"`
	Short decimal.Decimal `json:"short"`
}

// NewPortfolio seeds an empty portfolio for the given tickers. Positions and
// realized gains are seeded together so that every run ticker has an entry.
func NewPortfolio(tickers []string, initialCash, marginRequirement decimal.Decimal) Portfolio {
	p := Portfolio{
		Cash:              initialCash,
		MarginRequirement: marginRequirement,
		MarginUsed:        decimal.Zero,
		Positions:         make(map[string]Position, len(tickers)),
		RealizedGains:     make(map[string]RealizedGain, len(tickers)),
	}
	for _, t := range tickers {
		p.Positions[t] = Position{}
		p.RealizedGains[t] = RealizedGain{}
	}
	return p
}

// Validate checks portfolio invariants that hold at creation time. Cash may
// only go negative later as an explicit error condition, never silently.
func (p *Portfolio) Validate() error {
	if p.Cash.IsNegative() {
		return fmt.Errorf("portfolio cash must not be negative, got %s", p.Cash)
	}
	for ticker, pos := range p.Positions {
		if pos.Long < 0 || pos.Short < 0 {
			return fmt.Errorf("position for %s has negative share count", ticker)
		}
		if pos.LongCostBasis.IsNegative() || pos.ShortCostBasis.IsNegative() {
			return fmt.Errorf("position for %s has negative cost basis", ticker)
		}
		if pos.ShortMarginUsed.IsNegative() {
			return fmt.Errorf("position for %s has negative short margin", ticker)
		}
	}
	return nil
}
