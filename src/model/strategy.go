package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ConditionTypeEntry = "ENTRY"
	ConditionTypeExit  = "EXIT"
)

const (
	OperatorGreaterThan         = "GREATER_THAN"
	OperatorLessThan            = "LESS_THAN"
	OperatorGreaterEqual        = "GREATER_EQUAL"
	OperatorLessEqual           = "LESS_EQUAL"
	OperatorEqual               = "EQUAL"
	OperatorCrossAbove          = "CROSS_ABOVE"
	OperatorCrossBelow          = "CROSS_BELOW"
	OperatorCrossAboveIndicator = "CROSS_ABOVE_INDICATOR"
	OperatorCrossBelowIndicator = "CROSS_BELOW_INDICATOR"
)

const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Strategy is a user-defined rule set: an ordered list of boolean conditions
// over technical indicators plus the capital settings used when simulating it.
// A strategy is treated as immutable for the duration of one run.
type Strategy struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	Description     string          `gorm:"size:512" json:"description"`
	InitialCapital  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"initial_capital"`
	PositionSizePct decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"position_size_pct"`
	Active          bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Conditions []StrategyCondition `gorm:"foreignKey:StrategyID" json:"conditions,omitempty"`
	User       *User               `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Strategy) TableName() string {
	return "strategies"
}

// StrategyCondition is one boolean rule. Logic combines the rule with the
// running fold of all previous rules (left to right, no precedence), not with
// the immediately preceding rule specifically.
type StrategyCondition struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	StrategyID    uint   `gorm:"not null;index" json:"strategy_id"`
	ConditionType string `gorm:"size:10;not null" json:"condition_type"`
	Indicator     string `gorm:"size:50;not null" json:"indicator"`
	// CompareIndicator names the slow leg for CROSS_ABOVE_INDICATOR /
	// CROSS_BELOW_INDICATOR rules. Empty falls back to the MM9/MM21 pair.
	CompareIndicator string    `gorm:"size:50" json:"compare_indicator,omitempty"`
	Operator         string    `gorm:"size:30;not null" json:"operator"`
	Value            *float64  `json:"value,omitempty"`
	Logic            string    `gorm:"size:5;not null;default:AND" json:"logic"`
	SortOrder        int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Strategy *Strategy `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (StrategyCondition) TableName() string {
	return "strategy_conditions"
}
