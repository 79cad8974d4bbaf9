package model

import "time"

// Notification is an in-app message shown to the user, e.g. when one of
// their alerts fires. Delivery failures elsewhere (email) never block the
// creation of the in-app record.
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Message   string         `gorm:"size:1024" json:"message"`
	Data      map[string]any `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
