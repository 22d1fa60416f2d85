package controller

import (
	"errors"
	"time"

	"groupcast/models"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
)

// CreateCampaign validates the request, prices the selected groups, adjusts
// the schedule into the allowed send window and checks the projected cost
// against the brand's wallet before persisting a DRAFT/SCHEDULED campaign.
func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var input struct {
		UserID      uint               `json:"user_id" validate:"required"`
		Name        string             `json:"name" validate:"required"`
		Description string             `json:"description"`
		Content     string             `json:"content" validate:"required"`
		GroupIDs    []uint             `json:"selected_group_ids" validate:"required,min=1"`
		ScheduledAt *time.Time         `json:"scheduled_at"`
		BudgetMax   int64              `json:"budget_max"`
		Recurrence  *models.Recurrence `json:"recurrence"`
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

	// 1. Brand accounts need an active subscription
	var user models.User
	if err := cc.DB.First(&user, input.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if user.Role == models.RoleBrand && !user.SubscriptionActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Subscription required. Please upgrade your plan.",
		})
	}

	// 2. Price a single run
	estimate, err := cc.Estimator.EstimateRun(input.GroupIDs)
	if err != nil {
		cc.Logger.Printf("Estimate failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to estimate cost",
		})
	}

	// 3. Validate the schedule and auto-adjust into the send window
	scheduledAt := input.ScheduledAt
	status := models.CampaignStatusDraft
	if scheduledAt != nil {
		if !scheduledAt.After(time.Now()) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Scheduled time must be in the future",
			})
		}
		if !cc.Window.Contains(*scheduledAt) {
			adjusted := cc.Window.NextAllowedTime(*scheduledAt)
			scheduledAt = &adjusted
		}
		status = models.CampaignStatusScheduled
	}

	// 4. Project the total cost across all recurrence runs
	recurrence := models.Recurrence{Type: models.RecurrenceNone}
	if input.Recurrence != nil {
		recurrence = *input.Recurrence
	}
	totalRuns := utils.TotalRuns(recurrence, scheduledAt, 0)
	totalEstimatedCost := utils.ProjectedCost(estimate.TotalCost, totalRuns)

	// 5. Check the wallet covers the projected spend
	requiredFunds := input.BudgetMax
	if requiredFunds == 0 {
		requiredFunds = totalEstimatedCost
	}
	balance, err := cc.Ledger.Balance(input.UserID)
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
	if balance < requiredFunds {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    "Insufficient wallet balance",
			"runs":     totalRuns,
			"balance":  balance,
			"required": requiredFunds,
		})
	}

	budgetMax := input.BudgetMax
	if budgetMax == 0 {
		budgetMax = totalEstimatedCost
	}

	campaign := models.Campaign{
		BrandID:          input.UserID,
		Name:             input.Name,
		Description:      input.Description,
		Content:          input.Content,
		Status:           status,
		SelectedGroupIDs: input.GroupIDs,
		BudgetMax:        budgetMax,
		EstimatedCost:    totalEstimatedCost,
		CostPerMsg:       cc.Estimator.WeightedCostPerMessage(estimate),
		ScheduledAt:      scheduledAt,
		Recurrence:       recurrence,
	}

	if err := cc.DB.Create(&campaign).Error; err != nil {
		cc.Logger.Printf("Failed to create campaign: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}
