package personas

import (
	"sort"
	"strings"

	"hedge-machine/config"
	"hedge-machine/models"
)

// Classify maps a score ratio onto the three-way signal. The thresholds are
// fractions of the maximum score: at or above the bullish fraction is
// bullish, at or below the bearish fraction is bearish, everything between
// is neutral.
func Classify(score, maxScore int, cfg config.SignalConfig) models.Signal {
	if maxScore <= 0 {
		return models.SignalNeutral
	}
	ratio := float64(score) / float64(maxScore)
	switch {
	case ratio >= cfg.BullishThreshold:
		return models.SignalBullish
	case ratio <= cfg.BearishThreshold:
		return models.SignalBearish
	default:
		return models.SignalNeutral
	}
}

// BuildRecord sums the sub-analyses into a classified record. The maximum is
// always the sum of the sub maxima, so the record stays consistent even when
// a sub-analysis scored zero on missing data.
func BuildRecord(subs map[string]models.SubAnalysis, cfg config.SignalConfig) *models.SignalRecord {
	total := 0
	max := 0
	for _, sub := range subs {
		total += sub.Score
		max += sub.MaxScore
	}

	return &models.SignalRecord{
		Signal:      Classify(total, max, cfg),
		Score:       total,
		MaxScore:    max,
		SubAnalyses: subs,
		Reasoning:   summarize(subs),
	}
}

// summarize joins the sub-analysis details into one deterministic line,
// ordered by sub-analysis name.
func summarize(subs map[string]models.SubAnalysis) string {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if details := subs[name].Details; details != "" {
			parts = append(parts, details)
		}
	}
	return strings.Join(parts, "; ")
}
