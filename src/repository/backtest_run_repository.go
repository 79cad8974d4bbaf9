package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/database"
	"tradelab/src/model"
)

type BacktestRunRepository struct {
	db *gorm.DB
}

func NewBacktestRunRepository() *BacktestRunRepository {
	logger.WithField("component", "BacktestRunRepository").
		Info("Creating new BacktestRunRepository with MainDB")

	return &BacktestRunRepository{
		db: database.MainDB,
	}
}

func NewBacktestRunRepositoryWithDB(db *gorm.DB) *BacktestRunRepository {
	return &BacktestRunRepository{
		db: db,
	}
}

func (r *BacktestRunRepository) Create(ctx context.Context, run *model.BacktestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *BacktestRunRepository) GetByID(ctx context.Context, id string) (*model.BacktestRun, error) {
	var run model.BacktestRun
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *BacktestRunRepository) ListByStrategy(ctx context.Context, strategyID uint) ([]model.BacktestRun, error) {
	var out []model.BacktestRun
	err := r.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
