package pipeline

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"hedge-machine/models"
	"hedge-machine/services"
)

func f(v float64) *float64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// tickerData is the canned provider payload for one ticker.
type tickerData struct {
	metrics   []models.FinancialMetrics
	items     []models.LineItem
	marketCap *float64
	trades    []models.InsiderTrade
	news      []models.NewsArticle
	prices    []models.Price
	err       error
}

// mockProvider serves canned data per ticker.
type mockProvider struct {
	data map[string]tickerData
}

func (m *mockProvider) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	d := m.data[ticker]
	return d.metrics, d.err
}

func (m *mockProvider) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	d := m.data[ticker]
	return d.items, d.err
}

func (m *mockProvider) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	d := m.data[ticker]
	return d.marketCap, d.err
}

func (m *mockProvider) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	d := m.data[ticker]
	return d.trades, d.err
}

func (m *mockProvider) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.NewsArticle, error) {
	d := m.data[ticker]
	return d.news, d.err
}

func (m *mockProvider) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	d := m.data[ticker]
	return d.prices, d.err
}

// llmCall records one structured invocation.
type llmCall struct {
	systemPrompt string
	userPrompt   string
}

// mockLLM returns a canned JSON payload and records every call.
type mockLLM struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []llmCall
}

func (m *mockLLM) InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, llmCall{systemPrompt: systemPrompt, userPrompt: userPrompt})
	m.mu.Unlock()
	return m.response, m.err
}

func (m *mockLLM) InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error {
	text, err := m.InvokeWithPrompt(ctx, systemPrompt, userPrompt)
	if err != nil {
		return err
	}
	return services.ParseJSONResponse(text, result)
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// strongTickerData scores 14/16 on Ackman and well above bullish on Burry.
func strongTickerData(ticker string) tickerData {
	news := make([]models.NewsArticle, 6)
	for i := range news {
		news[i] = models.NewsArticle{Ticker: ticker, Sentiment: "negative"}
	}
	return tickerData{
		metrics: []models.FinancialMetrics{
			{Ticker: ticker, ReturnOnEquity: f(0.30), EVToEBIT: f(5)},
		},
		items: []models.LineItem{
			{Revenue: f(200), OperatingMargin: f(0.20), DebtToEquity: f(0.4), FreeCashFlow: f(20), DividendsAndOtherCashDistributions: f(-1), OutstandingShares: f(90), TotalDebt: f(10), CashAndEquivalents: f(20), TotalAssets: f(100), TotalLiabilities: f(50)},
			{Revenue: f(170), OperatingMargin: f(0.19), DebtToEquity: f(0.5), FreeCashFlow: f(18), DividendsAndOtherCashDistributions: f(-1), OutstandingShares: f(95), TotalDebt: f(12), CashAndEquivalents: f(15), TotalAssets: f(95), TotalLiabilities: f(52)},
			{Revenue: f(100), OperatingMargin: f(0.18), DebtToEquity: f(0.6), FreeCashFlow: f(15), DividendsAndOtherCashDistributions: f(-1), OutstandingShares: f(100), TotalDebt: f(15), CashAndEquivalents: f(10), TotalAssets: f(90), TotalLiabilities: f(55)},
		},
		marketCap: f(100),
		trades: []models.InsiderTrade{
			{TransactionShares: f(1000)},
			{TransactionShares: f(-100)},
		},
		news:   news,
		prices: []models.Price{{Time: "2025-01-31", Close: dec("50")}},
	}
}

// weakTickerData scores near zero on both personas.
func weakTickerData(ticker string) tickerData {
	return tickerData{
		metrics: []models.FinancialMetrics{
			{Ticker: ticker, ReturnOnEquity: f(0.02), EVToEBIT: f(40)},
		},
		items: []models.LineItem{
			{Revenue: f(80), OperatingMargin: f(0.03), DebtToEquity: f(3), FreeCashFlow: f(-5), OutstandingShares: f(110), TotalDebt: f(100), CashAndEquivalents: f(2), TotalAssets: f(100), TotalLiabilities: f(95)},
			{Revenue: f(100), OperatingMargin: f(0.04), DebtToEquity: f(2.5), FreeCashFlow: f(-3), OutstandingShares: f(100), TotalDebt: f(95), CashAndEquivalents: f(3), TotalAssets: f(100), TotalLiabilities: f(92)},
		},
		marketCap: f(100),
		prices:    []models.Price{{Time: "2025-01-31", Close: dec("10")}},
	}
}
