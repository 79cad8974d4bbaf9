package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradelab/src/database"
	"tradelab/src/model"
)

const defaultDailyLimit = 200

type OHLCVRepository struct {
	db *gorm.DB
}

func NewOHLCVRepository() *OHLCVRepository {
	logger.WithField("component", "OHLCVRepository").
		Info("Creating new OHLCVRepository with MainDB")

	return &OHLCVRepository{
		db: database.MainDB,
	}
}

func NewOHLCVRepositoryWithDB(db *gorm.DB) *OHLCVRepository {
	return &OHLCVRepository{
		db: db,
	}
}

// FetchRecentDaily returns up to limit daily candles for symbol ending at or
// before to, in ascending chronological order.
func (s *OHLCVRepository) FetchRecentDaily(
	ctx context.Context,
	symbol string,
	to time.Time,
	limit int,
) ([]model.OHLCVDaily, error) {
	if limit <= 0 {
		limit = defaultDailyLimit
	}

	var rows []model.OHLCVDaily
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND datetime <= ?", symbol, to).
		Order("datetime DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order for easier logic
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// UpsertDaily saves candles, updating rows that already exist for the same
// (symbol, datetime). Used by the price-sync job, which re-reads the most
// recent days on every run.
func (s *OHLCVRepository) UpsertDaily(ctx context.Context, candles []model.OHLCVDaily) error {
	if len(candles) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "symbol"},
				{Name: "datetime"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume",
			}),
		}).
		Create(&candles).Error
}

// LatestDate returns the datetime of the newest candle stored for symbol,
// or the zero time when none exists.
func (s *OHLCVRepository) LatestDate(ctx context.Context, symbol string) (time.Time, error) {
	var row model.OHLCVDaily
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("datetime DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return row.Datetime, nil
}
