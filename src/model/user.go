package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleFree  = "free"
	RolePro   = "pro"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserName     string    `gorm:"size:100;not null;uniqueIndex" json:"user_name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:free" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// CanReceiveAlerts reports whether the user's tier includes alert evaluation.
// Free-tier alerts stay in the database but are never checked.
func (u *User) CanReceiveAlerts() bool {
	return u.Role == RolePro || u.Role == RoleAdmin
}

func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
