package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"groupcast/config"
	"groupcast/models"
	"groupcast/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMessageWorker(t *testing.T, db *gorm.DB, mode string, sender *stubSender) *MessageWorker {
	t.Helper()
	q := queue.NewInMemoryQueue(0, discardLogger())
	return NewMessageWorker(db, q, NewLedger(db, discardLogger()), sender, mode, discardLogger())
}

func seedCampaignWithMember(t *testing.T, db *gorm.DB, brandBalance int64) (*models.Campaign, *models.GroupMember) {
	t.Helper()

	brand := seedUserWithWallet(t, db, models.RoleBrand, brandBalance)
	group := seedGroup(t, db, 1, "Foodies", 500, 1, time.Now(), "+911")

	campaign := models.Campaign{
		BrandID:          brand.ID,
		Name:             "Launch",
		Content:          "hello",
		Status:           models.CampaignStatusProcessing,
		SelectedGroupIDs: []uint{group.ID},
		CostPerMsg:       500,
	}
	require.NoError(t, db.Create(&campaign).Error)

	var member models.GroupMember
	require.NoError(t, db.Where("group_id = ?", group.ID).First(&member).Error)
	return &campaign, &member
}

func messagePayload(t *testing.T, campaign *models.Campaign, member *models.GroupMember) []byte {
	t.Helper()
	data, err := json.Marshal(MessageJob{
		CampaignID: campaign.ID,
		Phone:      member.Phone,
		GroupID:    member.GroupID,
		MemberID:   member.ID,
		Content:    campaign.Content,
		Cost:       campaign.CostPerMsg,
	})
	require.NoError(t, err)
	return data
}

func TestHandleSendsAndRecordsAtomically(t *testing.T) {
	db := newTestDB(t)
	sender := newStubSender()
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, sender)

	campaign, member := seedCampaignWithMember(t, db, 1000)
	require.NoError(t, mw.Handle(context.Background(), messagePayload(t, campaign, member)))

	// Debit, log, counter and stat all landed
	assert.Equal(t, int64(500), walletBalance(t, db, campaign.BrandID))

	var msg models.MessageLog
	require.NoError(t, db.Where("campaign_id = ?", campaign.ID).First(&msg).Error)
	assert.Equal(t, models.MessageStatusSent, msg.Status)
	assert.NotEmpty(t, msg.MessageID)
	assert.False(t, msg.IsPaid)
	assert.Equal(t, int64(500), msg.Cost)

	var reloadedMember models.GroupMember
	require.NoError(t, db.First(&reloadedMember, member.ID).Error)
	assert.Equal(t, 1, reloadedMember.DailySentCount)
	require.NotNil(t, reloadedMember.LastSentDate)

	var reloaded models.Campaign
	require.NoError(t, db.First(&reloaded, campaign.ID).Error)
	assert.Equal(t, 1, reloaded.Stats.Sent)
}

func TestHandleResetsStaleDailyCounter(t *testing.T) {
	db := newTestDB(t)
	sender := newStubSender()
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, sender)

	campaign, member := seedCampaignWithMember(t, db, 1000)
	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(member).
		Updates(map[string]interface{}{"daily_sent_count": 7, "last_sent_date": yesterday}).Error)

	require.NoError(t, mw.Handle(context.Background(), messagePayload(t, campaign, member)))

	// Stale counter restarts at 1 instead of incrementing to 8
	var reloaded models.GroupMember
	require.NoError(t, db.First(&reloaded, member.ID).Error)
	assert.Equal(t, 1, reloaded.DailySentCount)
}

func TestHandleSendFailureRollsBackEverything(t *testing.T) {
	db := newTestDB(t)
	sender := newStubSender()
	sender.failFor["+911"] = errors.New("bsp unreachable")
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, sender)

	campaign, member := seedCampaignWithMember(t, db, 1000)
	err := mw.Handle(context.Background(), messagePayload(t, campaign, member))
	require.Error(t, err) // surfaced so the queue retries

	// The debit rolled back with the rest of the transaction
	assert.Equal(t, int64(1000), walletBalance(t, db, campaign.BrandID))
	var logCount int64
	require.NoError(t, db.Model(&models.MessageLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(0), logCount)
}

func TestHandleInsufficientFundsIsTerminal(t *testing.T) {
	db := newTestDB(t)
	sender := newStubSender()
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, sender)

	campaign, member := seedCampaignWithMember(t, db, 100) // < cost of 500
	err := mw.Handle(context.Background(), messagePayload(t, campaign, member))
	require.NoError(t, err) // drained, not retried

	assert.Empty(t, sender.sent)
	assert.Equal(t, int64(100), walletBalance(t, db, campaign.BrandID))
}

func TestHandleDispatchModeSkipsDebit(t *testing.T) {
	db := newTestDB(t)
	sender := newStubSender()
	mw := newMessageWorker(t, db, config.SettlementModeDispatch, sender)

	campaign, member := seedCampaignWithMember(t, db, 0) // empty wallet is fine
	require.NoError(t, mw.Handle(context.Background(), messagePayload(t, campaign, member)))

	assert.Equal(t, int64(0), walletBalance(t, db, campaign.BrandID))

	var msg models.MessageLog
	require.NoError(t, db.Where("campaign_id = ?", campaign.ID).First(&msg).Error)
	assert.True(t, msg.IsPaid)
}

func TestHandleMissingCampaignDropsJob(t *testing.T) {
	db := newTestDB(t)
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, newStubSender())

	payload, err := json.Marshal(MessageJob{CampaignID: 999, Phone: "+911"})
	require.NoError(t, err)
	require.NoError(t, mw.Handle(context.Background(), payload))
}

func TestHandleFailureIncrementsFailedStat(t *testing.T) {
	db := newTestDB(t)
	mw := newMessageWorker(t, db, config.SettlementModeDelivery, newStubSender())

	campaign, member := seedCampaignWithMember(t, db, 1000)
	mw.HandleFailure(context.Background(), messagePayload(t, campaign, member),
		errors.New("bsp unreachable"))

	var reloaded models.Campaign
	require.NoError(t, db.First(&reloaded, campaign.ID).Error)
	assert.Equal(t, 1, reloaded.Stats.Failed)
}
