package pricesync

import (
	"context"
	"net/http"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/model"
	"tradelab/src/repository"
	"tradelab/src/utils"
)

// PriceSync ingests daily candles from the exchange into ohlcv_daily.
// In auto mode each symbol resumes from its newest stored candle; the last
// stored day is re-read on purpose so a partially formed candle gets
// overwritten by the upsert.
type PriceSync struct {
	Log      *logger.Entry
	DB       *gorm.DB
	Config   *Config
	exchange goex.API
}

func (p *PriceSync) Start() error {
	p.Config = GetConfig()

	p.exchange = p.newBinanceInstance()

	ctx := context.Background()
	repo := repository.NewOHLCVRepositoryWithDB(p.DB)

	var lastErr error
	for _, symbol := range p.Config.Symbols {
		if err := p.syncSymbol(ctx, repo, symbol); err != nil {
			p.Log.WithError(err).WithField("symbol", symbol).Error("symbol sync failed, continuing")
			lastErr = err
		}
	}

	return lastErr
}

func (*PriceSync) newBinanceInstance() *binance.Binance {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return binance.NewWithConfig(apiConfig)
}

func (p *PriceSync) syncSymbol(ctx context.Context, repo *repository.OHLCVRepository, symbol string) error {
	pair := goex.NewCurrencyPair(goex.Currency{Symbol: symbol}, goex.Currency{Symbol: p.Config.Quote})

	start := p.Config.StartDt
	if p.Config.AutoMode {
		latest, err := repo.LatestDate(ctx, pair.String())
		if err != nil {
			return err
		}
		if !latest.IsZero() {
			// step one day back so the still-open candle is refreshed
			start = latest.AddDate(0, 0, -1)
		}
	}

	klines, err := p.fetchDailyKlines(pair, utils.ResetTime(start, "day"))
	if err != nil {
		return err
	}

	candles := make([]model.OHLCVDaily, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, model.OHLCVDaily{
			Symbol:   k.Pair.String(),
			Datetime: time.Unix(k.Timestamp, 0).UTC(),
			Open:     decimal.NewFromFloat(k.Open),
			High:     decimal.NewFromFloat(k.High),
			Low:      decimal.NewFromFloat(k.Low),
			Close:    decimal.NewFromFloat(k.Close),
			Volume:   decimal.NewFromFloat(k.Vol),
		})
	}

	if err := repo.UpsertDaily(ctx, candles); err != nil {
		return err
	}

	p.Log.WithFields(logger.Fields{
		"Symbol":  pair.String(),
		"Candles": len(candles),
		"From":    start.UTC(),
	}).Info("daily OHLCV data inserted or updated in database")

	return nil
}

func (p *PriceSync) fetchDailyKlines(pair goex.CurrencyPair, start time.Time) ([]goex.Kline, error) {
	const millis = 1000
	klines, err := p.exchange.GetKlineRecords(
		pair,
		goex.KLINE_PERIOD_1DAY,
		p.Config.Limit,
		goex.OptionalParameter{}.
			Optional("startTime", start.Unix()*millis).
			Optional("endTime", time.Now().Unix()*millis),
	)
	if err != nil {
		return nil, err
	}

	return klines, nil
}
