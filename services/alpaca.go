package services

import (
	"context"
	"fmt"
	"time"

	"hedge-machine/models"
	"hedge-machine/observability"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// AlpacaService handles communication with Alpaca for live market data
type AlpacaService struct {
	dataClient *marketdata.Client
}

// NewAlpacaService creates a new AlpacaService instance
func NewAlpacaService(apiKey, apiSecret string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})

	return &AlpacaService{
		dataClient: dataClient,
	}
}

// GetQuote returns the latest quote for a symbol
func (s *AlpacaService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_quote")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		quote, err := s.dataClient.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}

		return &models.Quote{
			Symbol:    symbol,
			Bid:       decimal.NewFromFloat(quote.BidPrice),
			Ask:       decimal.NewFromFloat(quote.AskPrice),
			Timestamp: quote.Timestamp,
		}, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_quote")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_quote", categorizeAPIError(err))
	}
	return result, err
}

// GetLatestTrade returns the latest trade for a symbol
func (s *AlpacaService) GetLatestTrade(ctx context.Context, symbol string) (*models.Quote, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_latest_trade")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() (*models.Quote, error) {
		trade, err := s.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		if err != nil {
			return nil, fmt.Errorf("failed to get trade for %s: %w", symbol, err)
		}

		return &models.Quote{
			Symbol:    symbol,
			Last:      decimal.NewFromFloat(trade.Price),
			Timestamp: trade.Timestamp,
		}, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_latest_trade")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_latest_trade", categorizeAPIError(err))
	}
	return result, err
}

// GetDailyBars returns daily OHLCV bars for a date range
func (s *AlpacaService) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Price, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlpaca, "get_bars")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerAlpaca, func() ([]models.Price, error) {
		bars, err := s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
		}

		prices := make([]models.Price, 0, len(bars))
		for _, bar := range bars {
			prices = append(prices, models.Price{
				Time:   bar.Timestamp.Format(models.DateLayout),
				Open:   decimal.NewFromFloat(bar.Open),
				High:   decimal.NewFromFloat(bar.High),
				Low:    decimal.NewFromFloat(bar.Low),
				Close:  decimal.NewFromFloat(bar.Close),
				Volume: int64(bar.Volume),
			})
		}

		return prices, nil
	})

	timer.ObserveExternalAPI(BreakerAlpaca, "get_bars")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlpaca, "get_bars", categorizeAPIError(err))
	}
	return result, err
}
