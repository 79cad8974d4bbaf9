package marketdata

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	QuoteBaseURL     string        `envconfig:"QUOTE_BASE_URL" default:"https://api.tradelab.internal/quotes"`
	QuoteAPIKey      string        `envconfig:"QUOTE_API_KEY"`
	IndicatorBaseURL string        `envconfig:"INDICATOR_BASE_URL" default:"https://api.tradelab.internal/indicators"`
	QuoteStreamURL   string        `envconfig:"QUOTE_STREAM_URL"`
	PriceMaxAge      time.Duration `envconfig:"PRICE_MAX_AGE" default:"5m"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
