package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const streamReconnectDelay = 5 * time.Second

type tickMessage struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// QuoteStream keeps the price cache warm from the provider's websocket tick
// feed. It is an optional optimization: with no stream configured the quote
// REST client still serves every price.
type QuoteStream struct {
	logger *logrus.Entry
	url    string
	cache  *PriceCache
}

func NewQuoteStream(logger *logrus.Entry, url string, cache *PriceCache) *QuoteStream {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &QuoteStream{
		logger: logger.WithField("component", "QuoteStream"),
		url:    url,
		cache:  cache,
	}
}

// Run consumes ticks until the context is canceled, reconnecting with a
// fixed delay after any failure.
func (s *QuoteStream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			s.logger.WithError(err).Warn("quote stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

func (s *QuoteStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial failed: %w", err)
	}
	defer conn.Close()

	s.logger.Info("quote stream connected")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read failed: %w", err)
		}

		var tick tickMessage
		if err := json.Unmarshal(msg, &tick); err != nil {
			s.logger.WithError(err).Debug("skipping malformed tick")
			continue
		}
		if tick.Symbol == "" || tick.Price.LessThanOrEqual(decimal.Zero) {
			continue
		}

		s.cache.Set(tick.Symbol, tick.Price)
	}
}
