package models

// Signal is the three-way classification derived from a persona's score ratio.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalNeutral Signal = "neutral"
	SignalBearish Signal = "bearish"
)

// SubAnalysis is one bounded-score rule contributing to a persona's total.
// Score is always within [0, MaxScore], including on fully missing input.
type SubAnalysis struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Details  string `json:"details"`
}

// SignalRecord is a persona's output for one ticker. For the risk management
// stage the record carries a RiskAssessment instead of sub-analyses; both
// shapes live under the state's analyst_signals map.
type SignalRecord struct {
	Signal      Signal                 `json:"signal,omitempty"`
	Score       int                    `json:"score"`
	MaxScore    int                    `json:"max_score"`
	SubAnalyses map[string]SubAnalysis `json:"sub_analyses,omitempty"`
	Reasoning   string                 `json:"reasoning,omitempty"`
	Risk        *RiskAssessment        `json:"risk,omitempty"`
}

// Ratio returns score/max_score, or 0 when the record has no score range.
func (r *SignalRecord) Ratio() float64 {
	if r == nil || r.MaxScore == 0 {
		return 0
	}
	return float64(r.Score) / float64(r.MaxScore)
}
