package controller

import (
	"encoding/json"

	"groupcast/models"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
)

// DeleteCampaign removes a campaign that has not started executing and
// cancels any pending execution job for it.
func (cc *CampaignController) DeleteCampaign(c *fiber.Ctx) error {
	var input struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Campaign not found"})
	}
	if campaign.BrandID != input.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if campaign.Status == models.CampaignStatusProcessing || campaign.Status == models.CampaignStatusCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot delete a campaign that is processing or completed",
		})
	}

	// Best-effort: a job that already left the queue is caught by the
	// worker's status check instead.
	err := cc.Queue.CancelPending(worker.KindCampaignExecution, func(payload []byte) bool {
		var job worker.CampaignJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return false
		}
		return job.CampaignID == campaign.ID
	})
	if err != nil {
		cc.Logger.Printf("Failed to cancel pending jobs for campaign %d: %v", campaign.ID, err)
	}

	if err := cc.DB.Delete(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete campaign"})
	}

	return c.JSON(fiber.Map{"message": "Campaign deleted", "campaign_id": campaign.ID})
}
