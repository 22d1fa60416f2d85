package controller

import (
	"errors"
	"time"

	"groupcast/models"
	"groupcast/queue"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
)

// LaunchCampaign queues the campaign-execution job, optionally delayed until
// the scheduled time and pushed into the allowed send window. An `immediate`
// override collapses a future schedule to now.
func (cc *CampaignController) LaunchCampaign(c *fiber.Ctx) error {
	var input struct {
		UserID    uint `json:"user_id" validate:"required"`
		Immediate bool `json:"immediate"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	if campaign.BrandID != input.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	if campaign.Status != models.CampaignStatusDraft && campaign.Status != models.CampaignStatusScheduled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Campaign already processing or done",
		})
	}

	var user models.User
	if err := cc.DB.First(&user, campaign.BrandID).Error; err == nil {
		if user.Role == models.RoleBrand && !user.SubscriptionActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Active subscription required to launch campaigns",
			})
		}
	}

	// Re-validate funds right before launching
	requiredBudget := campaign.BudgetMax
	if requiredBudget == 0 {
		requiredBudget = campaign.EstimatedCost
	}
	balance, err := cc.Ledger.Balance(campaign.BrandID)
	if err != nil {
		if errors.Is(err, worker.ErrWalletNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Wallet not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read wallet",
		})
	}
	if balance < requiredBudget {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Insufficient wallet balance to launch campaign",
			"balance":  balance,
			"required": requiredBudget,
		})
	}

	// Compute the queue delay: honor a future schedule unless overridden,
	// then push the run time into the send window
	now := time.Now()
	var delay time.Duration

	if campaign.ScheduledAt != nil && !input.Immediate && campaign.ScheduledAt.After(now) {
		delay = time.Until(*campaign.ScheduledAt)
	} else if input.Immediate && campaign.ScheduledAt != nil {
		cc.Logger.Printf("Manual override for campaign %d, resetting schedule to now", campaign.ID)
		campaign.ScheduledAt = utils.Pointer(now)
	}

	runAt := now.Add(delay)
	if !cc.Window.Contains(runAt) {
		next := cc.Window.NextAllowedTime(runAt)
		delay = time.Until(next)
		cc.Logger.Printf("Campaign %d outside send window, delaying until %s", campaign.ID, next)
	}

	prevStatus := campaign.Status
	status := models.CampaignStatusProcessing
	if delay > 0 {
		status = models.CampaignStatusScheduled
	}
	campaign.Status = status
	if err := cc.DB.Save(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign",
		})
	}

	err = cc.Queue.Enqueue(c.Context(), worker.KindCampaignExecution,
		worker.CampaignJob{CampaignID: campaign.ID}, queue.Options{Delay: delay})
	if err != nil {
		cc.Logger.Printf("Failed to enqueue campaign %d: %v", campaign.ID, err)
		// The job never made it to the broker, so the campaign must stay
		// launchable instead of hanging in PROCESSING/SCHEDULED
		if rbErr := cc.DB.Model(&models.Campaign{}).
			Where("id = ?", campaign.ID).
			Update("status", prevStatus).Error; rbErr != nil {
			cc.Logger.Printf("Failed to restore campaign %d status: %v", campaign.ID, rbErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to queue campaign",
		})
	}

	message := "Campaign launched"
	if delay > 0 {
		message = "Campaign queued for next window"
	}
	return c.JSON(fiber.Map{
		"message":     message,
		"campaign_id": campaign.ID,
		"run_at":      now.Add(delay),
	})
}
