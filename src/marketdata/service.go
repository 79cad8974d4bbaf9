package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradelab/src/indicator"
	"tradelab/src/model"
)

// CandleSource supplies persisted daily candles in ascending date order.
type CandleSource interface {
	FetchRecentDaily(ctx context.Context, symbol string, to time.Time, limit int) ([]model.OHLCVDaily, error)
}

// IndicatorProvider augments candles with computed indicator columns.
type IndicatorProvider interface {
	ComputeIndicators(ctx context.Context, candles []model.OHLCVDaily) ([]indicator.Row, error)
}

// QuoteProvider returns the latest trade price for a symbol.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Service is the market-data facade the engines talk to: candle history plus
// indicator columns for simulation, and a cache-fronted live quote for paper
// trading and price alerts.
type Service struct {
	logger     *logrus.Entry
	candles    CandleSource
	indicators IndicatorProvider
	quotes     QuoteProvider
	cache      *PriceCache
	now        func() time.Time
}

func NewService(
	logger *logrus.Entry,
	candles CandleSource,
	indicators IndicatorProvider,
	quotes QuoteProvider,
	cache *PriceCache,
) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Service{
		logger:     logger.WithField("component", "MarketDataService"),
		candles:    candles,
		indicators: indicators,
		quotes:     quotes,
		cache:      cache,
		now:        time.Now,
	}
}

// FetchHistory loads up to period daily candles for the symbol and runs them
// through the indicator provider. The returned rows are ascending by date.
func (s *Service) FetchHistory(ctx context.Context, symbol string, period int) ([]indicator.Row, error) {
	candles, err := s.candles.FetchRecentDaily(ctx, symbol, s.now(), period)
	if err != nil {
		return nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return nil, nil
	}

	rows, err := s.indicators.ComputeIndicators(ctx, candles)
	if err != nil {
		return nil, fmt.Errorf("compute indicators for %s: %w", symbol, err)
	}

	return rows, nil
}

// LastTwoRows returns the D-1 and D0 rows for a symbol, used for alert
// crossover checks. Rows without a close are skipped so holidays and
// half-populated periods never stand in for a trading day.
func (s *Service) LastTwoRows(ctx context.Context, symbol string, lookback int) (prev, current indicator.Row, err error) {
	rows, fetchErr := s.FetchHistory(ctx, symbol, lookback)
	if fetchErr != nil {
		return indicator.Row{}, indicator.Row{}, fetchErr
	}

	populated := make([]indicator.Row, 0, 2)
	for i := len(rows) - 1; i >= 0 && len(populated) < 2; i-- {
		if _, ok := indicator.Resolve(rows[i], indicator.NameClose); ok {
			populated = append(populated, rows[i])
		}
	}
	if len(populated) < 2 {
		return indicator.Row{}, indicator.Row{}, fmt.Errorf("need at least two populated rows for %s, got %d", symbol, len(populated))
	}

	return populated[1], populated[0], nil
}

// FetchCurrentPrice serves the latest trade price, consulting the freshness
// cache before hitting the quote provider.
func (s *Service) FetchCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if price, ok := s.cache.Get(symbol); ok {
		return price, nil
	}

	price, err := s.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	s.cache.Set(symbol, price)
	return price, nil
}

// RefreshPrices warms the cache for every symbol. Individual failures are
// logged and skipped so one bad symbol never blocks the rest.
func (s *Service) RefreshPrices(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		price, err := s.quotes.FetchQuote(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Error("failed to refresh price")
			continue
		}
		s.cache.Set(symbol, price)
	}
}
