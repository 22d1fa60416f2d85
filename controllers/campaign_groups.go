package controller

import (
	"time"

	"groupcast/models"
	"groupcast/utils"

	"github.com/gofiber/fiber/v2"
)

// mutableStatus reports whether group/schedule edits are still allowed.
func mutableStatus(campaign *models.Campaign) bool {
	return campaign.Status == models.CampaignStatusDraft || campaign.Status == models.CampaignStatusScheduled
}

// reprice refreshes estimated cost and the weighted average after a group
// change, projecting across the campaign's recurrence.
func (cc *CampaignController) reprice(campaign *models.Campaign, groupIDs []uint) error {
	estimate, err := cc.Estimator.EstimateRun(groupIDs)
	if err != nil {
		return err
	}

	totalRuns := utils.TotalRuns(campaign.Recurrence, campaign.ScheduledAt, 0)
	campaign.SelectedGroupIDs = groupIDs
	campaign.EstimatedCost = utils.ProjectedCost(estimate.TotalCost, totalRuns)
	campaign.CostPerMsg = cc.Estimator.WeightedCostPerMessage(estimate)
	return nil
}

// AddGroups merges new groups into a DRAFT/SCHEDULED campaign and reprices it.
func (cc *CampaignController) AddGroups(c *fiber.Ctx) error {
	var input struct {
		UserID   uint   `json:"user_id" validate:"required"`
		GroupIDs []uint `json:"group_ids" validate:"required,min=1"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
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
	if !mutableStatus(&campaign) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only add groups to DRAFT or SCHEDULED campaigns",
		})
	}

	existing := make(map[uint]bool, len(campaign.SelectedGroupIDs))
	for _, id := range campaign.SelectedGroupIDs {
		existing[id] = true
	}
	merged := campaign.SelectedGroupIDs
	added := 0
	for _, id := range input.GroupIDs {
		if !existing[id] {
			merged = append(merged, id)
			added++
		}
	}
	if added == 0 {
		return c.JSON(fiber.Map{"message": "No new groups to add", "campaign": campaign})
	}

	if err := cc.reprice(&campaign, merged); err != nil {
		cc.Logger.Printf("Reprice failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to estimate cost"})
	}
	if err := cc.DB.Save(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campaign"})
	}
	return c.JSON(campaign)
}

// RemoveGroup drops one group from a DRAFT/SCHEDULED campaign and reprices it.
func (cc *CampaignController) RemoveGroup(c *fiber.Ctx) error {
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
	if !mutableStatus(&campaign) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only remove groups from DRAFT or SCHEDULED campaigns",
		})
	}

	groupID := utils.ParseUint(c.Params("groupId"))
	remaining := make([]uint, 0, len(campaign.SelectedGroupIDs))
	for _, id := range campaign.SelectedGroupIDs {
		if id != groupID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == len(campaign.SelectedGroupIDs) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found in campaign"})
	}

	if err := cc.reprice(&campaign, remaining); err != nil {
		cc.Logger.Printf("Reprice failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to estimate cost"})
	}
	if err := cc.DB.Save(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campaign"})
	}
	return c.JSON(campaign)
}

// AddSchedule appends custom run dates to a campaign, re-validating the
// wallet against the grown projection and bumping the budget if needed.
func (cc *CampaignController) AddSchedule(c *fiber.Ctx) error {
	var input struct {
		UserID          uint        `json:"user_id" validate:"required"`
		AdditionalDates []time.Time `json:"additional_dates" validate:"required,min=1"`
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
	if !mutableStatus(&campaign) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Can only modify DRAFT or SCHEDULED campaigns",
		})
	}

	switch campaign.Recurrence.Type {
	case "", models.RecurrenceNone:
		campaign.Recurrence = models.Recurrence{Type: models.RecurrenceCustom}
	case models.RecurrenceCustom:
		// extendable
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot add custom dates to a periodic recurrence",
		})
	}

	estimate, err := cc.Estimator.EstimateRun(campaign.SelectedGroupIDs)
	if err != nil {
		cc.Logger.Printf("Estimate failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to estimate cost"})
	}

	totalRuns := utils.TotalRuns(campaign.Recurrence, campaign.ScheduledAt, len(input.AdditionalDates))
	newTotalCost := utils.ProjectedCost(estimate.TotalCost, totalRuns)

	balance, err := cc.Ledger.Balance(campaign.BrandID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Wallet not found"})
	}
	if balance < newTotalCost {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Insufficient wallet balance for total runs",
			"runs":     totalRuns,
			"balance":  balance,
			"required": newTotalCost,
		})
	}

	campaign.Recurrence.CustomDates = append(campaign.Recurrence.CustomDates, input.AdditionalDates...)
	campaign.EstimatedCost = newTotalCost
	if campaign.BudgetMax < newTotalCost {
		campaign.BudgetMax = newTotalCost
	}

	if err := cc.DB.Save(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update campaign"})
	}
	return c.JSON(campaign)
}
