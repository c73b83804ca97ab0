package services

import (
	"context"
	"time"

	"hedge-machine/models"
)

// LLMService defines the interface for model invocations. Both the Bedrock
// and OpenAI backends satisfy it.
type LLMService interface {
	InvokeWithPrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	InvokeStructured(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error
}

// FinDataServiceInterface defines the interface for fundamental data operations
type FinDataServiceInterface interface {
	GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error)
	SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error)
	GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error)
	GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error)
	GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.NewsArticle, error)
	GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error)
}

// AlpacaServiceInterface defines the interface for live market data operations
type AlpacaServiceInterface interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error)
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Price, error)
}

// Compile-time interface verification
var _ LLMService = (*BedrockService)(nil)
var _ LLMService = (*OpenAIService)(nil)
var _ FinDataServiceInterface = (*FinDataService)(nil)
var _ AlpacaServiceInterface = (*AlpacaService)(nil)
