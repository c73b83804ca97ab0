package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hedge-machine/models"
	"hedge-machine/observability"
)

// FinDataService handles communication with the financial datasets API. It
// serves the fundamentals, insider trades, news, and price history the
// persona stages score against.
type FinDataService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFinDataService creates a new FinDataService instance
func NewFinDataService(apiKey, baseURL string) *FinDataService {
	return &FinDataService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

type financialMetricsResponse struct {
	FinancialMetrics []models.FinancialMetrics `json:"financial_metrics"`
}

type lineItemsResponse struct {
	SearchResults []models.LineItem `json:"search_results"`
}

type insiderTradesResponse struct {
	InsiderTrades []models.InsiderTrade `json:"insider_trades"`
}

type companyNewsResponse struct {
	News []models.NewsArticle `json:"news"`
}

type pricesResponse struct {
	Prices []models.Price `json:"prices"`
}

// GetFinancialMetrics returns derived metrics for a ticker up to endDate,
// newest first.
func (s *FinDataService) GetFinancialMetrics(ctx context.Context, ticker, endDate, period string, limit int) ([]models.FinancialMetrics, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFinData, "financial_metrics")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFinData, func() ([]models.FinancialMetrics, error) {
		var out []models.FinancialMetrics

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("ticker", ticker)
			params.Set("report_period_lte", endDate)
			params.Set("period", period)
			params.Set("limit", strconv.Itoa(limit))

			var resp financialMetricsResponse
			if err := s.get(ctx, "/financial-metrics/?"+params.Encode(), &resp); err != nil {
				return err
			}

			out = resp.FinancialMetrics
			return nil
		})

		return out, err
	})

	timer.ObserveExternalAPI(BreakerFinData, "financial_metrics")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFinData, "financial_metrics", categorizeAPIError(err))
	}
	return result, err
}

// SearchLineItems returns the requested raw statement line items for a
// ticker up to endDate, newest first.
func (s *FinDataService) SearchLineItems(ctx context.Context, ticker string, lineItems []string, endDate, period string, limit int) ([]models.LineItem, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFinData, "line_items")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFinData, func() ([]models.LineItem, error) {
		var out []models.LineItem

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			body := map[string]interface{}{
				"tickers":    []string{ticker},
				"line_items": lineItems,
				"end_date":   endDate,
				"period":     period,
				"limit":      limit,
			}

			reqBody, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal line items request: %w", err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/financials/search/line-items", bytes.NewReader(reqBody))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("X-API-KEY", s.apiKey)
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to search line items: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("line items API returned status %d", resp.StatusCode)
			}

			var itemsResp lineItemsResponse
			if err := json.NewDecoder(resp.Body).Decode(&itemsResp); err != nil {
				return fmt.Errorf("failed to decode line items response: %w", err)
			}

			out = itemsResp.SearchResults
			return nil
		})

		return out, err
	})

	timer.ObserveExternalAPI(BreakerFinData, "line_items")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFinData, "line_items", categorizeAPIError(err))
	}
	return result, err
}

// GetMarketCap returns the market capitalization for a ticker as of endDate.
// Returns nil when the provider has no market cap for the period.
func (s *FinDataService) GetMarketCap(ctx context.Context, ticker, endDate string) (*float64, error) {
	metricsList, err := s.GetFinancialMetrics(ctx, ticker, endDate, "ttm", 1)
	if err != nil {
		return nil, err
	}
	if len(metricsList) == 0 {
		return nil, nil
	}
	return metricsList[0].MarketCap, nil
}

// GetInsiderTrades returns insider transactions filed between startDate and
// endDate.
func (s *FinDataService) GetInsiderTrades(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.InsiderTrade, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFinData, "insider_trades")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFinData, func() ([]models.InsiderTrade, error) {
		var out []models.InsiderTrade

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("ticker", ticker)
			params.Set("filing_date_gte", startDate)
			params.Set("filing_date_lte", endDate)
			params.Set("limit", strconv.Itoa(limit))

			var resp insiderTradesResponse
			if err := s.get(ctx, "/insider-trades/?"+params.Encode(), &resp); err != nil {
				return err
			}

			out = resp.InsiderTrades
			return nil
		})

		return out, err
	})

	timer.ObserveExternalAPI(BreakerFinData, "insider_trades")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFinData, "insider_trades", categorizeAPIError(err))
	}
	return result, err
}

// GetCompanyNews returns company news published between startDate and endDate.
func (s *FinDataService) GetCompanyNews(ctx context.Context, ticker, startDate, endDate string, limit int) ([]models.NewsArticle, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFinData, "company_news")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFinData, func() ([]models.NewsArticle, error) {
		var out []models.NewsArticle

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("ticker", ticker)
			params.Set("start_date", startDate)
			params.Set("end_date", endDate)
			params.Set("limit", strconv.Itoa(limit))

			var resp companyNewsResponse
			if err := s.get(ctx, "/news/?"+params.Encode(), &resp); err != nil {
				return err
			}

			out = resp.News
			return nil
		})

		return out, err
	})

	timer.ObserveExternalAPI(BreakerFinData, "company_news")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFinData, "company_news", categorizeAPIError(err))
	}
	return result, err
}

// GetPrices returns daily OHLCV bars for a ticker between startDate and
// endDate.
func (s *FinDataService) GetPrices(ctx context.Context, ticker, startDate, endDate string) ([]models.Price, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerFinData, "prices")
	timer := metrics.NewTimer()

	result, err := WithCircuitBreaker(ctx, BreakerFinData, func() ([]models.Price, error) {
		var out []models.Price

		err := WithRetry(ctx, DefaultRetryConfig, func() error {
			params := url.Values{}
			params.Set("ticker", ticker)
			params.Set("interval", "day")
			params.Set("interval_multiplier", "1")
			params.Set("start_date", startDate)
			params.Set("end_date", endDate)

			var resp pricesResponse
			if err := s.get(ctx, "/prices/?"+params.Encode(), &resp); err != nil {
				return err
			}

			out = resp.Prices
			return nil
		})

		return out, err
	})

	timer.ObserveExternalAPI(BreakerFinData, "prices")
	if err != nil {
		metrics.RecordExternalAPIError(BreakerFinData, "prices", categorizeAPIError(err))
	}
	return result, err
}

// get issues an authenticated GET against the provider and decodes the JSON
// response into result.
func (s *FinDataService) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
