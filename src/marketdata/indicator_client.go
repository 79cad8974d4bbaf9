package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"tradelab/src/indicator"
	"tradelab/src/model"
)

// IndicatorClient calls the indicator service, which turns raw candles into
// rows augmented with the computed columns (RSI_14, MACD_12_26_9, bands,
// MM9/MM21, ...). The math itself lives in that service, not here.
type IndicatorClient struct {
	http *resty.Client
}

func NewIndicatorClient(baseURL string) *IndicatorClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &IndicatorClient{http: httpClient}
}

type computeRequest struct {
	Candles []model.OHLCVDaily `json:"candles"`
}

type computeResponse struct {
	Rows []indicator.Row `json:"rows"`
}

func (c *IndicatorClient) ComputeIndicators(ctx context.Context, candles []model.OHLCVDaily) ([]indicator.Row, error) {
	var payload computeResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(computeRequest{Candles: candles}).
		SetResult(&payload).
		Post("/v1/compute")
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("compute indicators: status %d", resp.StatusCode())
	}

	return payload.Rows, nil
}
