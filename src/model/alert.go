package model

import "time"

const (
	AlertIndicatorPrice      = "PRICE"
	AlertIndicatorRSI        = "RSI"
	AlertIndicatorStochastic = "STOCHASTIC"
	AlertIndicatorMACD       = "MACD"
	AlertIndicatorBBands     = "BBANDS"
)

// Alert is a one-shot user alert. Created active; on trigger it is
// deactivated and stamped with triggered_at, and never reactivates on its
// own. The user may flip is_active back on through the API.
type Alert struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	UserID         uint     `gorm:"not null;index" json:"user_id"`
	Ticker         string   `gorm:"size:20;not null;index" json:"ticker"`
	IndicatorType  string   `gorm:"size:20;not null" json:"indicator_type"`
	Condition      string   `gorm:"size:30;not null" json:"condition"`
	ThresholdValue *float64 `json:"threshold_value,omitempty"`
	IsActive       bool     `gorm:"not null;default:true;index" json:"is_active"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}
