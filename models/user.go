package models

import "gorm.io/gorm"

// User roles
const (
	RoleBrand      = "BRAND"
	RoleGroupAdmin = "GROUP_ADMIN"
)

// User represents a platform account: either a brand buying reach or a
// group admin renting out a membership list.
type User struct {
	gorm.Model
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Phone string `json:"phone"`
	Role  string `gorm:"default:'BRAND'" json:"role"` // BRAND, GROUP_ADMIN

	// Brands need an active subscription before launching campaigns.
	// Plan purchase itself is handled outside this service.
	SubscriptionActive bool `gorm:"default:false" json:"subscription_active"`

	Wallet *Wallet `gorm:"foreignKey:OwnerID" json:"wallet,omitempty"`
}

// AfterCreate provisions every new account with an empty wallet, so the
// ledger never has to handle a missing wallet for a known user.
func (u *User) AfterCreate(tx *gorm.DB) error {
	return tx.Create(&Wallet{OwnerID: u.ID}).Error
}
