package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialMetrics is one period of derived metrics for a ticker, newest
// first in provider responses. Nil fields mean the provider had no data.
type FinancialMetrics struct {
	Ticker          string   `json:"ticker"`
	ReportPeriod    string   `json:"report_period"`
	Period          string   `json:"period"`
	MarketCap       *float64 `json:"market_cap"`
	ReturnOnEquity  *float64 `json:"return_on_equity"`
	DebtToEquity    *float64 `json:"debt_to_equity"`
	EVToEBIT        *float64 `json:"ev_to_ebit"`
	OperatingMargin *float64 `json:"operating_margin"`
	RevenueGrowth   *float64 `json:"revenue_growth"`
}

// LineItem is one period of raw statement line items. Only the fields a
// persona asked for are populated; the rest stay nil.
type LineItem struct {
	Ticker                             string   `json:"ticker"`
	ReportPeriod                       string   `json:"report_period"`
	Revenue                            *float64 `json:"revenue"`
	OperatingMargin                    *float64 `json:"operating_margin"`
	DebtToEquity                       *float64 `json:"debt_to_equity"`
	FreeCashFlow                       *float64 `json:"free_cash_flow"`
	NetIncome                          *float64 `json:"net_income"`
	TotalDebt                          *float64 `json:"total_debt"`
	CashAndEquivalents                 *float64 `json:"cash_and_equivalents"`
	TotalAssets                        *float64 `json:"total_assets"`
	TotalLiabilities                   *float64 `json:"total_liabilities"`
	DividendsAndOtherCashDistributions *float64 `json:"dividends_and_other_cash_distributions"`
	OutstandingShares                  *float64 `json:"outstanding_shares"`
	IssuanceOrPurchaseOfEquityShares   *float64 `json:"issuance_or_purchase_of_equity_shares"`
}

// InsiderTrade is one reported insider transaction. Negative share counts
// are sales.
type InsiderTrade struct {
	Ticker            string   `json:"ticker"`
	TransactionDate   string   `json:"transaction_date"`
	TransactionShares *float64 `json:"transaction_shares"`
}

// NewsArticle is one company news item with provider-tagged sentiment.
type NewsArticle struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Sentiment string `json:"sentiment"`
}

// Price is one OHLCV bar.
type Price struct {
	Time   string          `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Quote is a point-in-time market quote from the live data feed.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Last      decimal.Decimal `json:"last"`
	Timestamp time.Time       `json:"timestamp"`
}
