package personas

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hedge-machine/config"
	"hedge-machine/models"
)

const (
	// burryPeriods is how many trailing-twelve-month periods the persona
	// looks back over.
	burryPeriods = 5
	// burryNewsLimit caps the news slice used for the contrarian check.
	burryNewsLimit = 250
	// burryLookbackDays bounds insider trades and news to the trailing year.
	burryLookbackDays = 365
)

var burryLineItems = []string{
	"free_cash_flow",
	"net_income",
	"total_debt",
	"cash_and_equivalents",
	"total_assets",
	"total_liabilities",
	"outstanding_shares",
	"issuance_or_purchase_of_equity_shares",
}

// Burry scores a ticker as a hard-numbers contrarian: cheap against free
// cash flow and EBIT, a balance sheet that survives stress, insiders buying,
// and a market that currently hates the stock.
type Burry struct {
	provider FactProvider
	cfg      *config.Config
}

// NewBurry creates the Michael Burry persona.
func NewBurry(provider FactProvider, cfg *config.Config) *Burry {
	return &Burry{provider: provider, cfg: cfg}
}

func (b *Burry) Key() string  { return "michael_burry" }
func (b *Burry) Name() string { return "Michael Burry" }

// Score fetches TTM fundamentals plus a trailing year of insider trades and
// news, then runs the four sub-analyses.
func (b *Burry) Score(ctx context.Context, ticker, endDate string) (*models.SignalRecord, error) {
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	startDate := end.AddDate(0, 0, -burryLookbackDays).Format(models.DateLayout)

	metrics, err := b.provider.GetFinancialMetrics(ctx, ticker, endDate, "ttm", burryPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch financial metrics for %s: %w", ticker, err)
	}

	items, err := b.provider.SearchLineItems(ctx, ticker, burryLineItems, endDate, "ttm", burryPeriods)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch line items for %s: %w", ticker, err)
	}

	marketCap, err := b.provider.GetMarketCap(ctx, ticker, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market cap for %s: %w", ticker, err)
	}

	trades, err := b.provider.GetInsiderTrades(ctx, ticker, startDate, endDate, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch insider trades for %s: %w", ticker, err)
	}

	news, err := b.provider.GetCompanyNews(ctx, ticker, startDate, endDate, burryNewsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", ticker, err)
	}

	subs := map[string]models.SubAnalysis{
		"deep_value":           analyzeDeepValue(metrics, items, marketCap),
		"balance_sheet":        analyzeBalanceSheet(metrics, items),
		"insider_activity":     analyzeInsiderActivity(trades),
		"contrarian_sentiment": analyzeContrarianSentiment(news),
	}

	return BuildRecord(subs, b.cfg.Signal), nil
}

// analyzeDeepValue scores free cash flow yield and EV/EBIT. Max 6.
func analyzeDeepValue(metrics []models.FinancialMetrics, items []models.LineItem, marketCap *float64) models.SubAnalysis {
	score := 0
	details := ""

	fcfs := collectValues(items, func(li models.LineItem) *float64 { return li.FreeCashFlow })
	if marketCap != nil && *marketCap > 0 && len(fcfs) > 0 {
		yield := fcfs[0] / *marketCap
		switch {
		case yield >= 0.15:
			score += 4
			details = fmt.Sprintf("extraordinary FCF yield of %.1f%%", yield*100)
		case yield >= 0.12:
			score += 3
			details = fmt.Sprintf("very high FCF yield of %.1f%%", yield*100)
		case yield >= 0.08:
			score += 2
			details = fmt.Sprintf("respectable FCF yield of %.1f%%", yield*100)
		default:
			details = fmt.Sprintf("FCF yield of %.1f%% is unremarkable", yield*100)
		}
	} else {
		details = "FCF yield unavailable"
	}

	if len(metrics) > 0 && metrics[0].EVToEBIT != nil {
		ev := *metrics[0].EVToEBIT
		switch {
		case ev < 6:
			score += 2
			details += fmt.Sprintf("; EV/EBIT of %.1f is deeply cheap", ev)
		case ev < 10:
			score++
			details += fmt.Sprintf("; EV/EBIT of %.1f is cheap", ev)
		default:
			details += fmt.Sprintf("; EV/EBIT of %.1f offers no bargain", ev)
		}
	} else {
		details += "; EV/EBIT unavailable"
	}

	return models.SubAnalysis{Score: score, MaxScore: 6, Details: details}
}

// analyzeBalanceSheet scores leverage and liquidity from the latest period.
// The provider's reported debt-to-equity is preferred; the ratio is derived
// from line items only when the metric is absent. Max 3.
func analyzeBalanceSheet(metrics []models.FinancialMetrics, items []models.LineItem) models.SubAnalysis {
	score := 0
	details := ""

	var latest *models.LineItem
	if len(items) > 0 {
		latest = &items[0]
	}

	if ratio, reason, ok := debtToEquity(metrics, latest); ok {
		switch {
		case ratio < 0.5:
			score += 2
			details = fmt.Sprintf("conservative debt-to-equity of %.2f", ratio)
		case ratio < 1:
			score++
			details = fmt.Sprintf("manageable debt-to-equity of %.2f", ratio)
		default:
			details = fmt.Sprintf("leveraged at %.2f debt-to-equity", ratio)
		}
	} else {
		details = reason
	}

	if latest != nil && latest.CashAndEquivalents != nil && latest.TotalDebt != nil {
		if *latest.CashAndEquivalents > *latest.TotalDebt {
			score++
			details += "; net cash position"
		} else {
			details += "; net debt position"
		}
	} else {
		details += "; liquidity data unavailable"
	}

	return models.SubAnalysis{Score: score, MaxScore: 3, Details: details}
}

// debtToEquity resolves the leverage ratio: the provider's reported metric
// when present, otherwise total debt over book equity from line items. The
// reason explains an absent ratio.
func debtToEquity(metrics []models.FinancialMetrics, latest *models.LineItem) (float64, string, bool) {
	if len(metrics) > 0 && metrics[0].DebtToEquity != nil {
		return *metrics[0].DebtToEquity, "", true
	}

	if latest != nil && latest.TotalDebt != nil && latest.TotalAssets != nil && latest.TotalLiabilities != nil {
		equity := *latest.TotalAssets - *latest.TotalLiabilities
		if equity <= 0 {
			return 0, "negative shareholder equity", false
		}
		return *latest.TotalDebt / equity, "", true
	}

	return 0, "leverage data unavailable", false
}

// analyzeInsiderActivity scores net insider buying over the trailing year.
// Max 2.
func analyzeInsiderActivity(trades []models.InsiderTrade) models.SubAnalysis {
	if len(trades) == 0 {
		return models.SubAnalysis{MaxScore: 2, Details: "no insider trade data"}
	}

	bought := 0.0
	sold := 0.0
	for _, trade := range trades {
		if trade.TransactionShares == nil {
			continue
		}
		shares := *trade.TransactionShares
		if shares > 0 {
			bought += shares
		} else {
			sold += -shares
		}
	}

	net := bought - sold
	if net <= 0 {
		return models.SubAnalysis{
			MaxScore: 2,
			Details:  fmt.Sprintf("insiders net sellers (%.0f bought vs %.0f sold)", bought, sold),
		}
	}

	denominator := sold
	if denominator < 1 {
		denominator = 1
	}
	if net/denominator > 1 {
		return models.SubAnalysis{
			Score:    2,
			MaxScore: 2,
			Details:  fmt.Sprintf("heavy net insider buying of %.0f shares", net),
		}
	}
	return models.SubAnalysis{
		Score:    1,
		MaxScore: 2,
		Details:  fmt.Sprintf("modest net insider buying of %.0f shares", net),
	}
}

// analyzeContrarianSentiment rewards a drumbeat of negative coverage; bad
// headlines often precede the prices Burry likes. Max 1.
func analyzeContrarianSentiment(news []models.NewsArticle) models.SubAnalysis {
	negative := 0
	for _, article := range news {
		if strings.EqualFold(article.Sentiment, "negative") || strings.EqualFold(article.Sentiment, "bearish") {
			negative++
		}
	}

	if negative >= 5 {
		return models.SubAnalysis{
			Score:    1,
			MaxScore: 1,
			Details:  fmt.Sprintf("%d negative headlines, market is pessimistic", negative),
		}
	}
	return models.SubAnalysis{
		MaxScore: 1,
		Details:  fmt.Sprintf("only %d negative headlines", negative),
	}
}

// Compile-time interface verification
var _ Scorer = (*Burry)(nil)
