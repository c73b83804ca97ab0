package models

import "github.com/shopspring/decimal"

// RiskAssessment is the per-ticker output of the risk calculator. It is
// derived entirely from the portfolio plus current prices and is never
// persisted independently of a run.
type RiskAssessment struct {
	// RemainingPositionLimit is the additional exposure permitted for this
	// ticker after the concentration cap and the available-cash cap. It may
	// be negative when the position is already over the cap.
	RemainingPositionLimit decimal.Decimal `json:"remaining_position_limit"`
	CurrentPrice           decimal.Decimal `json:"current_price"`
	Reasoning              RiskReasoning   `json:"reasoning"`
}

// RiskReasoning carries the inputs behind a risk assessment. Error is set
// instead of the numeric fields when price data was unavailable.
type RiskReasoning struct {
	PortfolioValue       decimal.Decimal `json:"portfolio_value,omitempty"`
	CurrentPositionValue decimal.Decimal `json:"current_position_value,omitempty"`
	PositionLimit        decimal.Decimal `json:"position_limit,omitempty"`
	RemainingLimit       decimal.Decimal `json:"remaining_limit,omitempty"`
	AvailableCash        decimal.Decimal `json:"available_cash,omitempty"`
	Error                string          `json:"error,omitempty"`
}
