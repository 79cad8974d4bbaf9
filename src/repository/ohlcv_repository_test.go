package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestFetchRecentDaily(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OHLCVRepository{db: mockDB}

	to := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	candleRows := func(dates ...time.Time) *sqlmock.Rows {
		rows := sqlmock.NewRows([]string{"id", "symbol", "datetime", "open", "high", "low", "close", "volume"})
		for i, d := range dates {
			rows.AddRow(uint(i+1), "PETR4", d, 10.0, 11.0, 9.0, 10.5, 1000.0)
		}
		return rows
	}

	t.Run("returns ascending order", func(t *testing.T) {
		// DB hands back newest first; the repository flips to chronological.
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ohlcv_daily" WHERE symbol = $1 AND datetime <= $2 ORDER BY datetime DESC LIMIT $3`)).
			WithArgs("PETR4", to, 3).
			WillReturnRows(candleRows(to, to.AddDate(0, 0, -1), to.AddDate(0, 0, -2)))

		rows, err := repo.FetchRecentDaily(context.Background(), "PETR4", to, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("expected 3 candles, got %d", len(rows))
		}
		if !rows[0].Datetime.Before(rows[1].Datetime) || !rows[1].Datetime.Before(rows[2].Datetime) {
			t.Fatalf("candles not in ascending order: %+v", rows)
		}
	})

	t.Run("defaults the limit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ohlcv_daily" WHERE symbol = $1 AND datetime <= $2 ORDER BY datetime DESC LIMIT $3`)).
			WithArgs("PETR4", to, defaultDailyLimit).
			WillReturnRows(candleRows())

		rows, err := repo.FetchRecentDaily(context.Background(), "PETR4", to, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected no candles, got %d", len(rows))
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestLatestDateNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OHLCVRepository{db: mockDB}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ohlcv_daily" WHERE symbol = $1 ORDER BY datetime DESC,"ohlcv_daily"."id" LIMIT $2`)).
		WithArgs("VALE3", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol", "datetime", "open", "high", "low", "close", "volume"}))

	got, err := repo.LatestDate(context.Background(), "VALE3")
	if err != nil {
		t.Fatalf("expected missing symbol to yield zero time, got error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestUpsertDailyEmptyBatch(t *testing.T) {
	mockDB, _ := newMockDB(t)
	repo := &OHLCVRepository{db: mockDB}

	// No SQL expected for an empty batch.
	if err := repo.UpsertDaily(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error on empty batch: %v", err)
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}
