package migrations

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tradelab/src/model"
)

const (
	defaultAdminUserName = "admin"
	defaultAdminEmail    = "admin@tradelab.local"
	defaultAdminPassword = "admin123"
)

// seedAdminUser creates the initial admin account so a fresh deployment can
// log in and manage users. The password comes from ADMIN_INITIAL_PASSWORD
// when set; change it after first login either way.
func seedAdminUser(db *gorm.DB) error {
	var existing model.User
	err := db.Where("user_name = ?", defaultAdminUserName).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password := os.Getenv("ADMIN_INITIAL_PASSWORD")
	if password == "" {
		password = defaultAdminPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := model.User{
		UserName:     defaultAdminUserName,
		Email:        defaultAdminEmail,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}

	return db.Create(&admin).Error
}
