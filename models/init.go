package models

import "gorm.io/gorm"

// Migrate creates or updates all tables. Called from config.ConnectDB after
// the pool is up.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Group{},
		&GroupMember{},
		&Campaign{},
		&Wallet{},
		&WalletTransaction{},
		&MessageLog{},
		&OptOut{},
	)
}
