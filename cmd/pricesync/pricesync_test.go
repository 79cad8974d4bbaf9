package pricesync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradelab/src/model"
	"tradelab/src/repository"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.OHLCVDaily{}))
	return db
}

func setupMockBinanceServer() *httptest.Server {
	handler := http.NewServeMux()
	handler.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		// Sample JSON response shaped like the Binance klines endpoint
		_, err := w.Write([]byte(`[
			[1736121600000, "96000.10", "97550.00", "95200.00", "97100.50", "1234.56", 1736207999999, "119000000.00", 308, "600.00", "58000000.00", "0"]
		]`))
		if err != nil {
			return
		}
	})
	return httptest.NewServer(handler)
}

func TestPriceSync_fetchDailyKlines(t *testing.T) {
	server := setupMockBinanceServer()
	defer server.Close()

	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   server.URL,
	}

	sync := PriceSync{
		Log:      logrus.NewEntry(logrus.New()),
		Config:   &Config{Quote: "USDT", Limit: 1000},
		exchange: binance.NewWithConfig(apiConfig),
	}

	pair := goex.NewCurrencyPair(goex.Currency{Symbol: "BTC"}, goex.Currency{Symbol: "USDT"})
	klines, err := sync.fetchDailyKlines(pair, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, klines, 1, "Should fetch exactly one OHLCV record")
	require.InDelta(t, 96000.10, klines[0].Open, 0, "Open price should match")
}

func TestPriceSync_syncSymbolUpserts(t *testing.T) {
	server := setupMockBinanceServer()
	defer server.Close()

	db := setupDB(t)

	sync := PriceSync{
		Log:    logrus.NewEntry(logrus.New()),
		DB:     db,
		Config: &Config{Quote: "USDT", Limit: 1000, StartDt: time.Now().Add(-48 * time.Hour)},
		exchange: binance.NewWithConfig(&goex.APIConfig{
			HttpClient: http.DefaultClient,
			Endpoint:   server.URL,
		}),
	}

	repo := repository.NewOHLCVRepositoryWithDB(db)

	require.NoError(t, sync.syncSymbol(context.Background(), repo, "BTC"))

	var count int64
	require.NoError(t, db.Model(&model.OHLCVDaily{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	// A second run re-reads the same candle and must not duplicate it.
	require.NoError(t, sync.syncSymbol(context.Background(), repo, "BTC"))
	require.NoError(t, db.Model(&model.OHLCVDaily{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestPriceSync_autoModeResumesFromLatest(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewOHLCVRepositoryWithDB(db)

	stored := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.OHLCVDaily{
		Symbol:   "BTC_USDT",
		Datetime: stored,
	}).Error)

	latest, err := repo.LatestDate(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	require.True(t, latest.Equal(stored))
}
