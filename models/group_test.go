package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func TestMonetizationRequiresConsent(t *testing.T) {
	db := newTestDB(t)

	err := db.Create(&Group{
		AdminID:             1,
		Name:                "Foodies",
		MonetizationEnabled: true,
	}).Error
	assert.ErrorIs(t, err, ErrConsentRequired)

	// With declared consent the same group saves fine
	require.NoError(t, db.Create(&Group{
		AdminID:             1,
		Name:                "Foodies",
		MonetizationEnabled: true,
		ConsentDeclared:     true,
	}).Error)
}

func TestConsentCannotBeRevokedWhileMonetized(t *testing.T) {
	db := newTestDB(t)

	group := Group{AdminID: 1, Name: "Foodies", MonetizationEnabled: true, ConsentDeclared: true}
	require.NoError(t, db.Create(&group).Error)

	group.ConsentDeclared = false
	assert.ErrorIs(t, db.Save(&group).Error, ErrConsentRequired)
}

func TestGroupPhoneUniquePerGroup(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.Create(&GroupMember{GroupID: 1, Phone: "+911"}).Error)
	assert.Error(t, db.Create(&GroupMember{GroupID: 1, Phone: "+911"}).Error)

	// Same phone in another group is fine
	require.NoError(t, db.Create(&GroupMember{GroupID: 2, Phone: "+911"}).Error)
}
