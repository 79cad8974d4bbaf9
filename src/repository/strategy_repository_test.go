package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradelab/src/model"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}

	err = db.AutoMigrate(
		&model.User{},
		&model.Strategy{},
		&model.StrategyCondition{},
		&model.Alert{},
		&model.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}

	return db
}

func TestStrategyRepositoryPreloadsConditions(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewStrategyRepositoryWithDB(db)

	value := 30.0
	s := &model.Strategy{
		UserID:          1,
		Name:            "RSI reversal",
		InitialCapital:  decimal.NewFromInt(10000),
		PositionSizePct: decimal.NewFromInt(50),
		Conditions: []model.StrategyCondition{
			{ConditionType: model.ConditionTypeEntry, Indicator: "RSI", Operator: model.OperatorLessThan, Value: &value, Logic: model.LogicAnd, SortOrder: 0},
			{ConditionType: model.ConditionTypeExit, Indicator: "RSI", Operator: model.OperatorGreaterThan, Value: &value, Logic: model.LogicAnd, SortOrder: 0},
		},
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("failed to create strategy: %v", err)
	}

	loaded, err := repo.GetByID(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Name != "RSI reversal" {
		t.Fatalf("unexpected strategy name: %s", loaded.Name)
	}
	if len(loaded.Conditions) != 2 {
		t.Fatalf("expected 2 preloaded conditions, got %d", len(loaded.Conditions))
	}
	if !loaded.InitialCapital.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("initial capital mismatch: %s", loaded.InitialCapital)
	}
}

func TestAlertRepositoryReactivate(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewAlertRepositoryWithDB(db)

	threshold := 70.0
	alert := &model.Alert{
		UserID:         1,
		Ticker:         "PETR4",
		IndicatorType:  model.AlertIndicatorRSI,
		Condition:      model.OperatorGreaterThan,
		ThresholdValue: &threshold,
		IsActive:       true,
	}
	if err := repo.Create(ctx, alert); err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	// Simulate a trigger, then reactivate.
	if err := db.Model(alert).Updates(map[string]any{"is_active": false, "triggered_at": gorm.Expr("CURRENT_TIMESTAMP")}).Error; err != nil {
		t.Fatalf("failed to deactivate alert: %v", err)
	}

	if err := repo.Reactivate(ctx, alert.ID); err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}

	reloaded, err := repo.GetByID(ctx, alert.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !reloaded.IsActive {
		t.Fatalf("expected alert to be active after reactivation")
	}
	if reloaded.TriggeredAt != nil {
		t.Fatalf("expected triggered_at to be cleared, got %v", reloaded.TriggeredAt)
	}
}

func TestNotificationRepositoryListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewNotificationRepositoryWithDB(db)

	for i := 0; i < 3; i++ {
		n := &model.Notification{
			UserID:  7,
			Title:   fmt.Sprintf("alert %d", i),
			Message: "triggered",
			Data:    map[string]any{"ticker": "PETR4"},
		}
		if err := repo.Create(ctx, n); err != nil {
			t.Fatalf("failed to create notification: %v", err)
		}
	}

	out, err := repo.ListByUser(ctx, 7, 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected limit to cap results at 2, got %d", len(out))
	}
	for _, n := range out {
		if n.UserID != 7 {
			t.Fatalf("listed notification for wrong user: %+v", n)
		}
	}
}
