package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/database"
	"tradelab/src/model"
)

type StrategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository() *StrategyRepository {
	logger.WithField("component", "StrategyRepository").
		Info("Creating new StrategyRepository with MainDB")

	return &StrategyRepository{
		db: database.MainDB,
	}
}

func NewStrategyRepositoryWithDB(db *gorm.DB) *StrategyRepository {
	return &StrategyRepository{
		db: db,
	}
}

// GetByID loads a strategy with its conditions. Condition ordering is left to
// the evaluator, which sorts by sort_order before folding.
func (r *StrategyRepository) GetByID(ctx context.Context, id uint) (*model.Strategy, error) {
	var s model.Strategy
	err := r.db.WithContext(ctx).
		Preload("Conditions").
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StrategyRepository) ListByUser(ctx context.Context, userID uint) ([]model.Strategy, error) {
	var out []model.Strategy
	err := r.db.WithContext(ctx).
		Preload("Conditions").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *StrategyRepository) Create(ctx context.Context, s *model.Strategy) error {
	return r.db.WithContext(ctx).Create(s).Error
}
