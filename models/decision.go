package models

import (
	"time"

	"github.com/google/uuid"
)

// DecisionAction is the terminal stage's per-ticker trading action.
type DecisionAction string

const (
	DecisionActionBuy   DecisionAction = "buy"
	DecisionActionSell  DecisionAction = "sell"
	DecisionActionShort DecisionAction = "short"
	DecisionActionCover DecisionAction = "cover"
	DecisionActionHold  DecisionAction = "hold"
)

// Decision is the final risk-constrained portfolio decision for one ticker.
type Decision struct {
	ID         uuid.UUID      `json:"id"`
	Ticker     string         `json:"ticker"`
	Action     DecisionAction `json:"action"`
	Quantity   int64          `json:"quantity"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewDecision creates a decision with a fresh ID and timestamp.
func NewDecision(ticker string, action DecisionAction, quantity int64, confidence float64, reasoning string) *Decision {
	return &Decision{
		ID:         uuid.New(),
		Ticker:     ticker,
		Action:     action,
		Quantity:   quantity,
		Confidence: confidence,
		Reasoning:  reasoning,
		CreatedAt:  time.Now(),
	}
}
