package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"groupcast/config"
	"groupcast/models"
	"groupcast/queue"
	"groupcast/utils"

	"gorm.io/gorm"
)

// CampaignWorker consumes campaign-execution jobs: resolve the audience,
// settle the run (dispatch mode), then fan out one message job per
// deduplicated recipient that passes the daily cap.
type CampaignWorker struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Queue    queue.Queue
	Resolver *AudienceResolver
	Settler  *Settler
	Mode     string // config.SettlementModeDelivery or SettlementModeDispatch
}

func NewCampaignWorker(db *gorm.DB, q queue.Queue, settler *Settler, mode string, logger *log.Logger) *CampaignWorker {
	return &CampaignWorker{
		DB:       db,
		Logger:   logger,
		Queue:    q,
		Resolver: NewAudienceResolver(db),
		Settler:  settler,
		Mode:     mode,
	}
}

// Register attaches the worker to its queue.
func (cw *CampaignWorker) Register() {
	cw.Queue.Process(KindCampaignExecution, cw.Handle)
}

// Handle runs one campaign job. Structural problems (bad payload, campaign
// row gone) are terminal, not retried: the error is swallowed after the
// campaign is marked FAILED where a row still exists.
func (cw *CampaignWorker) Handle(ctx context.Context, payload []byte) error {
	var job CampaignJob
	if err := json.Unmarshal(payload, &job); err != nil {
		cw.Logger.Printf("Dropping undecodable campaign job: %v", err)
		return nil
	}

	cw.Logger.Printf("Processing campaign %d", job.CampaignID)

	var campaign models.Campaign
	if err := cw.DB.First(&campaign, job.CampaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cw.Logger.Printf("Campaign %d not found, dropping job", job.CampaignID)
			return nil
		}
		return err // store hiccup, let the queue retry
	}

	// A cancelled or already-finished campaign may still have a delayed job
	// in flight; re-checking status here makes queue removal best-effort.
	if campaign.Status == models.CampaignStatusCompleted || campaign.Status == models.CampaignStatusFailed {
		cw.Logger.Printf("Campaign %d already %s, skipping run", campaign.ID, campaign.Status)
		return nil
	}

	if err := cw.DB.Model(&campaign).Update("status", models.CampaignStatusProcessing).Error; err != nil {
		return err
	}

	if err := cw.execute(ctx, &campaign); err != nil {
		utils.LogError("campaign_run_failed", err, map[string]interface{}{
			"campaign_id": campaign.ID,
		})
		cw.DB.Model(&campaign).Update("status", models.CampaignStatusFailed)
		return nil // campaign-level failures are not retried
	}

	return nil
}

func (cw *CampaignWorker) execute(ctx context.Context, campaign *models.Campaign) error {
	audience, err := cw.Resolver.Resolve(campaign.SelectedGroupIDs)
	if err != nil {
		return err
	}

	cw.Logger.Printf("Campaign %d audience: %d billable units, %d unique recipients",
		campaign.ID, audience.TotalBillableUnits(), len(audience.Recipients))

	if cw.Mode == config.SettlementModeDispatch {
		if err := cw.Settler.SettleRun(campaign, audience); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				// Not an error: the run completes with nothing sent
				cw.Logger.Printf("Campaign %d: insufficient funds to settle run, stopping", campaign.ID)
				return cw.complete(campaign, 0)
			}
			return err
		}
	}

	enqueued := 0
	for _, recipient := range audience.Recipients {
		bill := audience.Bill(recipient.GroupID)
		if bill == nil {
			continue
		}
		if !capAllows(recipient, bill.DailyCapPerMember, time.Now()) {
			continue
		}

		if cw.Mode == config.SettlementModeDelivery {
			// Advisory read; the message job re-checks inside its debit
			balance, err := cw.Settler.Ledger.Balance(campaign.BrandID)
			if err != nil {
				return err
			}
			if balance < campaign.CostPerMsg {
				cw.Logger.Printf("Campaign %d: funds exhausted after %d sends, stopping early", campaign.ID, enqueued)
				break
			}
		}

		err := cw.Queue.Enqueue(ctx, KindMessageDelivery, MessageJob{
			CampaignID: campaign.ID,
			Phone:      recipient.Phone,
			GroupID:    recipient.GroupID,
			MemberID:   recipient.MemberID,
			Content:    campaign.Content,
			Cost:       campaign.CostPerMsg,
		})
		if err != nil {
			return err
		}
		enqueued++
	}

	return cw.complete(campaign, enqueued)
}

func (cw *CampaignWorker) complete(campaign *models.Campaign, enqueued int) error {
	cw.Logger.Printf("Campaign %d completed, %d sends dispatched", campaign.ID, enqueued)
	return cw.DB.Model(campaign).Updates(map[string]interface{}{
		"status":       models.CampaignStatusCompleted,
		"completed_at": time.Now(),
	}).Error
}

// capAllows applies the daily cap. A last-sent date before today means the
// counter has implicitly reset, so the member is eligible regardless of its
// stale value.
func capAllows(recipient Recipient, dailyCap int, now time.Time) bool {
	if recipient.LastSentDate == nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if recipient.LastSentDate.Before(today) {
		return true
	}
	return recipient.DailySentCount < dailyCap
}
