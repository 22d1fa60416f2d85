package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"groupcast/config"
	"groupcast/models"
	"groupcast/queue"
	"groupcast/utils"

	"gorm.io/gorm"
)

// MessageWorker consumes message-delivery jobs. The wallet debit, the send,
// the message-log row, the member's daily counter and the campaign stat all
// land in one database transaction: they apply together or not at all.
type MessageWorker struct {
	DB     *gorm.DB
	Logger *log.Logger
	Queue  queue.Queue
	Ledger *Ledger
	Sender utils.MessageSenderInterface
	Mode   string
}

func NewMessageWorker(db *gorm.DB, q queue.Queue, ledger *Ledger, sender utils.MessageSenderInterface, mode string, logger *log.Logger) *MessageWorker {
	return &MessageWorker{
		DB:     db,
		Logger: logger,
		Queue:  q,
		Ledger: ledger,
		Sender: sender,
		Mode:   mode,
	}
}

// Register attaches the worker and its final-failure hook to the queue.
func (mw *MessageWorker) Register() {
	mw.Queue.Process(KindMessageDelivery, mw.Handle)
	mw.Queue.OnFailure(KindMessageDelivery, mw.HandleFailure)
}

func (mw *MessageWorker) Handle(ctx context.Context, payload []byte) error {
	var job MessageJob
	if err := json.Unmarshal(payload, &job); err != nil {
		mw.Logger.Printf("Dropping undecodable message job: %v", err)
		return nil
	}

	var campaign models.Campaign
	if err := mw.DB.First(&campaign, job.CampaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			mw.Logger.Printf("Campaign %d gone, dropping message job for %s", job.CampaignID, job.Phone)
			return nil
		}
		return err
	}

	err := mw.DB.Transaction(func(tx *gorm.DB) error {
		// Authoritative funds check lives inside this debit; the campaign
		// worker's pre-flight read was advisory only.
		if mw.Mode == config.SettlementModeDelivery {
			err := mw.Ledger.Debit(tx, campaign.BrandID, job.Cost,
				CampaignReference(campaign.ID),
				fmt.Sprintf("Message to %s", job.Phone), nil)
			if err != nil {
				return err
			}
		}

		providerID, err := mw.Sender.Send(ctx, job.Phone, job.Content)
		if err != nil {
			return err // rolls back the debit, queue retries
		}

		if err := tx.Create(&models.MessageLog{
			CampaignID: job.CampaignID,
			GroupID:    job.GroupID,
			MemberID:   job.MemberID,
			Phone:      job.Phone,
			Status:     models.MessageStatusSent,
			MessageID:  providerID,
			Cost:       job.Cost,
			// Dispatch mode settles at run time, so the deferred credit
			// must never fire for these rows
			IsPaid: mw.Mode == config.SettlementModeDispatch,
		}).Error; err != nil {
			return err
		}

		// Increment-or-reset in a single statement so two concurrent jobs
		// for the same member cannot both observe the stale counter
		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if err := tx.Model(&models.GroupMember{}).
			Where("id = ?", job.MemberID).
			Updates(map[string]interface{}{
				"daily_sent_count": gorm.Expr(
					"CASE WHEN last_sent_date >= ? THEN daily_sent_count + 1 ELSE 1 END", today),
				"last_sent_date": today,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Campaign{}).
			Where("id = ?", job.CampaignID).
			Update("stats_sent", gorm.Expr("stats_sent + 1")).Error
	})

	if errors.Is(err, ErrInsufficientFunds) {
		// Normal stopping condition, not a failure: remaining queued sends
		// for this campaign will drain the same way
		mw.Logger.Printf("Campaign %d: skipping send to %s, funds exhausted", job.CampaignID, job.Phone)
		return nil
	}
	return err
}

// HandleFailure runs after a message job exhausts its retries: the send is
// recorded against the campaign's failed counter instead of failing the run.
func (mw *MessageWorker) HandleFailure(ctx context.Context, payload []byte, jobErr error) {
	var job MessageJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return
	}

	utils.LogError("message_send_failed", jobErr, map[string]interface{}{
		"campaign_id": job.CampaignID,
		"phone":       job.Phone,
	})

	if err := mw.DB.Model(&models.Campaign{}).
		Where("id = ?", job.CampaignID).
		Update("stats_failed", gorm.Expr("stats_failed + 1")).Error; err != nil {
		mw.Logger.Printf("Failed to record send failure for campaign %d: %v", job.CampaignID, err)
	}
}
