// Package risk derives per-ticker position limits from the live portfolio
// and current prices. It is purely arithmetic: no model calls, no judgment.
package risk

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hedge-machine/config"
	"hedge-machine/models"
	"hedge-machine/observability"
	"hedge-machine/services"
	"hedge-machine/statestore"
)

// Key is the analyst-signals entry the calculator writes under.
const Key = "risk_management_agent"

// missingPriceReason is the explicit reason recorded when a ticker cannot
// be priced.
const missingPriceReason = "Missing price data for risk calculation"

// Calculator computes concentration-capped position limits. A live quote
// feed is preferred when configured; the historical price provider is the
// fallback.
type Calculator struct {
	provider services.FinDataServiceInterface
	quotes   services.AlpacaServiceInterface // optional
	cfg      *config.Config
}

// NewCalculator creates a Calculator. quotes may be nil, in which case only
// the historical provider is consulted.
func NewCalculator(provider services.FinDataServiceInterface, quotes services.AlpacaServiceInterface, cfg *config.Config) *Calculator {
	return &Calculator{provider: provider, quotes: quotes, cfg: cfg}
}

// Apply prices the run's tickers, computes each ticker's remaining position
// limit, and merges the assessments into the shared state as one serialized
// read-modify-write cycle.
func (c *Calculator) Apply(ctx context.Context, store *statestore.Serialized) error {
	return store.Update(ctx, func(state *models.AgentState) error {
		prices := c.fetchPrices(ctx, state)
		assessments := Assess(state, prices, c.cfg.Risk.PositionLimitPercent)

		for ticker, assessment := range assessments {
			state.MergeSignal(Key, ticker, &models.SignalRecord{Risk: assessment})
		}
		return nil
	})
}

// fetchPrices resolves a current price for every ticker the run or the
// portfolio touches. Tickers that cannot be priced are simply absent from
// the result; the assessment handles absence explicitly.
func (c *Calculator) fetchPrices(ctx context.Context, state *models.AgentState) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)

	for _, ticker := range pricingUniverse(state) {
		price, err := c.currentPrice(ctx, ticker, state.StartDate, state.EndDate)
		if err != nil {
			observability.Warn("failed to price ticker for risk assessment",
				"ticker", ticker,
				"error", err)
			continue
		}
		prices[ticker] = price
	}

	return prices
}

// currentPrice prefers the live quote feed and falls back to the last close
// in the run's date window.
func (c *Calculator) currentPrice(ctx context.Context, ticker, startDate, endDate string) (decimal.Decimal, error) {
	if c.quotes != nil {
		if price, ok := c.livePrice(ctx, ticker, startDate, endDate); ok {
			return price, nil
		}
	}

	bars, err := c.provider.GetPrices(ctx, ticker, startDate, endDate)
	if err != nil {
		return decimal.Zero, err
	}
	if len(bars) == 0 {
		return decimal.Zero, fmt.Errorf("no price history for %s", ticker)
	}
	return bars[len(bars)-1].Close, nil
}

// livePrice works down the quote feed: last trade, then the bid/ask midpoint,
// then the close of the newest daily bar in the run's window.
func (c *Calculator) livePrice(ctx context.Context, ticker, startDate, endDate string) (decimal.Decimal, bool) {
	trade, err := c.quotes.GetLatestTrade(ctx, ticker)
	if err == nil && trade != nil && trade.Last.IsPositive() {
		return trade.Last, true
	}
	if err != nil {
		observability.Debug("latest trade unavailable",
			"ticker", ticker,
			"error", err)
	}

	quote, err := c.quotes.GetQuote(ctx, ticker)
	if err == nil && quote != nil && quote.Bid.IsPositive() && quote.Ask.IsPositive() {
		return quote.Bid.Add(quote.Ask).Div(decimal.NewFromInt(2)), true
	}
	if err != nil {
		observability.Debug("quote unavailable",
			"ticker", ticker,
			"error", err)
	}

	start, startErr := time.Parse(models.DateLayout, startDate)
	end, endErr := time.Parse(models.DateLayout, endDate)
	if startErr == nil && endErr == nil {
		bars, err := c.quotes.GetDailyBars(ctx, ticker, start, end)
		if err == nil && len(bars) > 0 && bars[len(bars)-1].Close.IsPositive() {
			return bars[len(bars)-1].Close, true
		}
		if err != nil {
			observability.Debug("daily bars unavailable, falling back to price history",
				"ticker", ticker,
				"error", err)
		}
	}

	return decimal.Zero, false
}

// pricingUniverse is the run tickers plus any ticker the portfolio holds,
// deduplicated, in stable order. Held tickers outside the run still affect
// total portfolio value.
func pricingUniverse(state *models.AgentState) []string {
	seen := make(map[string]bool, len(state.Tickers))
	universe := make([]string, 0, len(state.Tickers))
	for _, t := range state.Tickers {
		if !seen[t] {
			seen[t] = true
			universe = append(universe, t)
		}
	}

	held := make([]string, 0, len(state.Portfolio.Positions))
	for t := range state.Portfolio.Positions {
		if !seen[t] {
			seen[t] = true
			held = append(held, t)
		}
	}
	sort.Strings(held)

	return append(universe, held...)
}

// Assess computes one assessment per run ticker from the given prices.
// Total portfolio value counts cash plus the net direction-signed value of
// every priced position; unpriced positions are excluded rather than
// guessed at.
func Assess(state *models.AgentState, prices map[string]decimal.Decimal, limitPercent float64) map[string]*models.RiskAssessment {
	portfolio := state.Portfolio

	totalValue := portfolio.Cash
	for ticker, position := range portfolio.Positions {
		price, ok := prices[ticker]
		if !ok {
			continue
		}
		longValue := decimal.NewFromInt(position.Long).Mul(price)
		shortValue := decimal.NewFromInt(position.Short).Mul(price)
		totalValue = totalValue.Add(longValue).Sub(shortValue)
	}

	limitFraction := decimal.NewFromFloat(limitPercent)
	assessments := make(map[string]*models.RiskAssessment, len(state.Tickers))

	for _, ticker := range state.Tickers {
		price, ok := prices[ticker]
		if !ok || !price.IsPositive() {
			assessments[ticker] = &models.RiskAssessment{
				RemainingPositionLimit: decimal.Zero,
				CurrentPrice:           decimal.Zero,
				Reasoning:              models.RiskReasoning{Error: missingPriceReason},
			}
			continue
		}

		position := portfolio.Positions[ticker]
		longValue := decimal.NewFromInt(position.Long).Mul(price)
		shortValue := decimal.NewFromInt(position.Short).Mul(price)
		currentValue := longValue.Sub(shortValue).Abs()

		positionLimit := totalValue.Mul(limitFraction)
		remaining := positionLimit.Sub(currentValue)

		// The usable limit is additionally capped by cash on hand. It is
		// never clamped at zero: a negative value reports an over-limit
		// position.
		maxPositionSize := remaining
		if portfolio.Cash.LessThan(maxPositionSize) {
			maxPositionSize = portfolio.Cash
		}

		assessments[ticker] = &models.RiskAssessment{
			RemainingPositionLimit: maxPositionSize,
			CurrentPrice:           price,
			Reasoning: models.RiskReasoning{
				PortfolioValue:       totalValue,
				CurrentPositionValue: currentValue,
				PositionLimit:        positionLimit,
				RemainingLimit:       remaining,
				AvailableCash:        portfolio.Cash,
			},
		}
	}

	return assessments
}
