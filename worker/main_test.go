package worker

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"groupcast/models"

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

	require.NoError(t, models.Migrate(db))
	return db
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

var userSeq int

func seedUserWithWallet(t *testing.T, db *gorm.DB, role string, balance int64) *models.User {
	t.Helper()

	userSeq++
	user := models.User{
		Name:               fmt.Sprintf("user-%d", userSeq),
		Email:              fmt.Sprintf("u%d@example.com", userSeq),
		Role:               role,
		SubscriptionActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	// The wallet itself is provisioned by the user's AfterCreate hook
	require.NoError(t, db.Model(&models.Wallet{}).
		Where("owner_id = ?", user.ID).Update("balance", balance).Error)
	return &user
}

func seedGroup(t *testing.T, db *gorm.DB, adminID uint, name string, price int64, cap int, createdAt time.Time, phones ...string) *models.Group {
	t.Helper()

	group := models.Group{
		AdminID:           adminID,
		Name:              name,
		Status:            models.GroupStatusActive,
		PricePerMessage:   price,
		DailyCapPerMember: cap,
	}
	require.NoError(t, db.Create(&group).Error)
	require.NoError(t, db.Model(&group).Update("created_at", createdAt).Error)

	for _, phone := range phones {
		require.NoError(t, db.Create(&models.GroupMember{GroupID: group.ID, Phone: phone}).Error)
	}
	return &group
}

func walletBalance(t *testing.T, db *gorm.DB, ownerID uint) int64 {
	t.Helper()

	var wallet models.Wallet
	require.NoError(t, db.Where("owner_id = ?", ownerID).First(&wallet).Error)
	return wallet.Balance
}

// stubSender fabricates deterministic provider ids and can be told to fail.
type stubSender struct {
	sent    []string
	failFor map[string]error
	seq     int
}

func newStubSender() *stubSender {
	return &stubSender{failFor: make(map[string]error)}
}

func (s *stubSender) Send(ctx context.Context, phone, content string) (string, error) {
	if err := s.failFor[phone]; err != nil {
		return "", err
	}
	s.seq++
	s.sent = append(s.sent, phone)
	return fmt.Sprintf("wamid.test-%d", s.seq), nil
}
