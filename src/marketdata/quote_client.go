package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	return (code >= 500 && code <= 599) || code == 429 || code == 408
}

// QuoteClient fetches the latest trade price from the quote provider's REST
// API.
type QuoteClient struct {
	http *resty.Client
}

func NewQuoteClient(baseURL, apiKey string) *QuoteClient {
	if baseURL == "" {
		logger.Warn("No quote base URL provided, quote requests will fail")
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	if apiKey != "" {
		httpClient.SetHeader("X-Api-Key", apiKey)
	}

	return &QuoteClient{http: httpClient}
}

type quoteResponse struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

func (c *QuoteClient) FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var payload quoteResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetResult(&payload).
		Get("/v1/quotes/{symbol}")
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch quote %s: %w", symbol, err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("fetch quote %s: status %d", symbol, resp.StatusCode())
	}
	if payload.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("fetch quote %s: non-positive price %s", symbol, payload.Price)
	}

	return payload.Price, nil
}
