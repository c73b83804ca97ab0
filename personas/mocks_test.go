package personas

import (
	"context"

	"hedge-machine/models"
)

// mockProvider implements FactProvider with canned data for tests
type mockProvider struct {
	metrics   []models.FinancialMetrics
	items     []models.LineItem
	marketCap *float64
	trades    []models.InsiderTrade
	news      []models.NewsArticle
	prices    []models.Price

	err error

	// captured request parameters
	lastPeriod    string
	lastStartDate string
	lastEndDate   string
	lastLineItems []string
}

func (m *mockProvider) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	m.lastPeriod = period
	m.lastEndDate = endDate
	return m.metrics, m.err
}

func (m *mockProvider) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	m.lastLineItems = lineItems
	return m.items, m.err
}

func (m *mockProvider) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	return m.marketCap, m.err
}

func (m *mockProvider) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	m.lastStartDate = startDate
	return m.trades, m.err
}

func (m *mockProvider) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.NewsArticle, error) {
	return m.news, m.err
}

func (m *mockProvider) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	return m.prices, m.err
}

// f returns a pointer to v, for optional fields
func f(v float64) *float64 {
	return &v
}
