package personas

import (
	"context"
	"fmt"
	"math"

	"hedge-machine/config"
	"hedge-machine/models"
)

// ackmanPeriods is how many annual periods the persona looks back over.
const ackmanPeriods = 5

var ackmanLineItems = []string{
	"revenue",
	"operating_margin",
	"debt_to_equity",
	"free_cash_flow",
	"total_assets",
	"total_liabilities",
	"dividends_and_other_cash_distributions",
	"outstanding_shares",
}

// Ackman scores a ticker the way an activist quality investor would: durable
// growth and margins, balance sheet discipline, room for operational
// improvement, and a margin of safety against a conservative DCF.
type Ackman struct {
	provider FactProvider
	cfg      *config.Config
}

// NewAckman creates the Bill Ackman persona.
func NewAckman(provider FactProvider, cfg *config.Config) *Ackman {
	return &Ackman{provider: provider, cfg: cfg}
}

func (a *Ackman) Key() string  { return "bill_ackman" }
func (a *Ackman) Name() string { return "Bill Ackman" }

// Score fetches five annual periods and runs the four sub-analyses.
func (a *Ackman) Score(ctx context.Context, ticker, endDate string) (*models.SignalRecord, error) {
	metrics, err := a.provider.GetFinancialMetrics(ctx, ticker, endDate, "annual", ackmanPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch financial metrics for %s: %w", ticker, err)
	}

	items, err := a.provider.SearchLineItems(ctx, ticker, ackmanLineItems, endDate, "annual", ackmanPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch line items for %s: %w", ticker, err)
	}

	marketCap, err := a.provider.GetMarketCap(ctx, ticker, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market cap for %s: %w", ticker, err)
	}

	subs := map[string]models.SubAnalysis{
		"business_quality":     analyzeBusinessQuality(metrics, items),
		"financial_discipline": analyzeFinancialDiscipline(items),
		"activism_potential":   analyzeActivismPotential(items),
		"valuation":            analyzeMarginOfSafety(items, marketCap),
	}

	return BuildRecord(subs, a.cfg.Signal), nil
}

// revenueGrowth returns the cumulative growth from the oldest to the newest
// revenue figure. Line items arrive newest first. The second return reports
// whether enough data existed to compute it.
func revenueGrowth(items []models.LineItem) (float64, bool) {
	revenues := collectValues(items, func(li models.LineItem) *float64 { return li.Revenue })
	if len(revenues) < 2 {
		return 0, false
	}
	initial := revenues[len(revenues)-1]
	final := revenues[0]
	if initial == 0 {
		return 0, false
	}
	return (final - initial) / math.Abs(initial), true
}

// analyzeBusinessQuality scores growth, margins, cash generation, and
// returns on equity. Max 7.
func analyzeBusinessQuality(metrics []models.FinancialMetrics, items []models.LineItem) models.SubAnalysis {
	score := 0
	details := ""

	if growth, ok := revenueGrowth(items); ok {
		switch {
		case growth > 0.5:
			score += 2
			details = fmt.Sprintf("revenue grew %.1f%% over the period", growth*100)
		case growth > 0:
			score++
			details = fmt.Sprintf("revenue grew modestly (%.1f%%)", growth*100)
		default:
			details = "revenue declined over the period"
		}
	} else {
		details = "insufficient revenue history"
	}

	margins := collectValues(items, func(li models.LineItem) *float64 { return li.OperatingMargin })
	above := 0
	for _, m := range margins {
		if m > 0.15 {
			above++
		}
	}
	if len(margins) > 0 && above >= majority(len(margins)) {
		score += 2
		details += "; operating margins consistently above 15%"
	} else {
		details += "; operating margins not consistently strong"
	}

	fcfs := collectValues(items, func(li models.LineItem) *float64 { return li.FreeCashFlow })
	positive := 0
	for _, f := range fcfs {
		if f > 0 {
			positive++
		}
	}
	if len(fcfs) > 0 && positive >= majority(len(fcfs)) {
		score++
		details += "; free cash flow positive in most periods"
	} else {
		details += "; free cash flow inconsistent"
	}

	if len(metrics) > 0 && metrics[0].ReturnOnEquity != nil && *metrics[0].ReturnOnEquity > 0.15 {
		score += 2
		details += fmt.Sprintf("; ROE of %.1f%% indicates a moat", *metrics[0].ReturnOnEquity*100)
	} else {
		details += "; ROE below 15% or unavailable"
	}

	return models.SubAnalysis{Score: score, MaxScore: 7, Details: details}
}

// analyzeFinancialDiscipline scores leverage, capital returns, and share
// count trend. Max 4.
func analyzeFinancialDiscipline(items []models.LineItem) models.SubAnalysis {
	score := 0
	details := ""

	ratios := collectValues(items, func(li models.LineItem) *float64 { return li.DebtToEquity })
	if len(ratios) > 0 {
		below := 0
		for _, r := range ratios {
			if r < 1.0 {
				below++
			}
		}
		if below >= majority(len(ratios)) {
			score += 2
			details = "debt-to-equity below 1.0 in most periods"
		} else {
			details = "elevated leverage in most periods"
		}
	} else {
		// Fall back to liabilities-to-assets when the provider has no
		// debt-to-equity series.
		below := 0
		count := 0
		for _, li := range items {
			if li.TotalLiabilities == nil || li.TotalAssets == nil || *li.TotalAssets == 0 {
				continue
			}
			count++
			if *li.TotalLiabilities / *li.TotalAssets < 0.5 {
				below++
			}
		}
		if count > 0 && below >= majority(count) {
			score += 2
			details = "liabilities below half of assets in most periods"
		} else {
			details = "leverage data unavailable or elevated"
		}
	}

	dividends := collectValues(items, func(li models.LineItem) *float64 { return li.DividendsAndOtherCashDistributions })
	paying := 0
	for _, d := range dividends {
		// Distributions are cash outflows, reported negative.
		if d < 0 {
			paying++
		}
	}
	if len(dividends) > 0 && paying >= majority(len(dividends)) {
		score++
		details += "; returns capital through dividends"
	} else {
		details += "; no consistent dividend"
	}

	shares := collectValues(items, func(li models.LineItem) *float64 { return li.OutstandingShares })
	if len(shares) >= 2 && shares[0] < shares[len(shares)-1] {
		score++
		details += "; share count shrinking"
	} else {
		details += "; no net buybacks"
	}

	return models.SubAnalysis{Score: score, MaxScore: 4, Details: details}
}

// analyzeActivismPotential looks for good growth paired with weak margins,
// the profile where an activist can force operational change. Max 2.
func analyzeActivismPotential(items []models.LineItem) models.SubAnalysis {
	growth, ok := revenueGrowth(items)
	if !ok {
		return models.SubAnalysis{MaxScore: 2, Details: "insufficient data for activism assessment"}
	}

	margins := collectValues(items, func(li models.LineItem) *float64 { return li.OperatingMargin })
	if len(margins) == 0 {
		return models.SubAnalysis{MaxScore: 2, Details: "no operating margin history"}
	}
	sum := 0.0
	for _, m := range margins {
		sum += m
	}
	avg := sum / float64(len(margins))

	if growth > 0.15 && avg < 0.10 {
		return models.SubAnalysis{
			Score:    2,
			MaxScore: 2,
			Details:  fmt.Sprintf("growing business (%.1f%%) with thin margins (%.1f%%), operational upside", growth*100, avg*100),
		}
	}
	return models.SubAnalysis{MaxScore: 2, Details: "no obvious activism angle"}
}

// analyzeMarginOfSafety compares a conservative DCF against the market cap.
// Max 3.
func analyzeMarginOfSafety(items []models.LineItem, marketCap *float64) models.SubAnalysis {
	if marketCap == nil || *marketCap <= 0 {
		return models.SubAnalysis{MaxScore: 3, Details: "market cap unavailable"}
	}

	fcfs := collectValues(items, func(li models.LineItem) *float64 { return li.FreeCashFlow })
	if len(fcfs) == 0 || fcfs[0] <= 0 {
		return models.SubAnalysis{MaxScore: 3, Details: "no positive free cash flow to value"}
	}

	intrinsic := IntrinsicValue(fcfs[0], DefaultDCFParams)
	mos := MarginOfSafety(intrinsic, *marketCap)

	switch {
	case mos > 0.3:
		return models.SubAnalysis{
			Score:    3,
			MaxScore: 3,
			Details:  fmt.Sprintf("intrinsic value implies %.1f%% margin of safety", mos*100),
		}
	case mos > 0.1:
		return models.SubAnalysis{
			Score:    1,
			MaxScore: 3,
			Details:  fmt.Sprintf("modest %.1f%% margin of safety", mos*100),
		}
	default:
		return models.SubAnalysis{
			MaxScore: 3,
			Details:  fmt.Sprintf("no margin of safety (%.1f%%)", mos*100),
		}
	}
}

// collectValues extracts the non-nil values of one field, preserving the
// newest-first order of the source.
func collectValues(items []models.LineItem, pick func(models.LineItem) *float64) []float64 {
	out := make([]float64, 0, len(items))
	for _, li := range items {
		if v := pick(li); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// majority is the smallest count that is more than half of n.
func majority(n int) int {
	return n/2 + 1
}

// Compile-time interface verification
var _ Scorer = (*Ackman)(nil)
