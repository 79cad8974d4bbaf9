package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/database"
	"tradelab/src/model"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository() *AlertRepository {
	logger.WithField("component", "AlertRepository").
		Info("Creating new AlertRepository with MainDB")

	return &AlertRepository{
		db: database.MainDB,
	}
}

func NewAlertRepositoryWithDB(db *gorm.DB) *AlertRepository {
	return &AlertRepository{
		db: db,
	}
}

func (r *AlertRepository) Create(ctx context.Context, alert *model.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *AlertRepository) GetByID(ctx context.Context, id uint) (*model.Alert, error) {
	var a model.Alert
	err := r.db.WithContext(ctx).
		Preload("User").
		First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepository) ListByUser(ctx context.Context, userID uint) ([]model.Alert, error) {
	var out []model.Alert
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reactivate flips a previously triggered alert back on and clears its
// trigger timestamp.
func (r *AlertRepository) Reactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": true, "triggered_at": nil}).Error
}

func (r *AlertRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Alert{}, id).Error
}
