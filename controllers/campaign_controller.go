package controller

import (
	"log"
	"strings"

	"groupcast/models"
	"groupcast/queue"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CampaignController struct {
	DB        *gorm.DB
	Logger    *log.Logger
	Queue     queue.Queue
	Estimator *utils.CostEstimator
	Ledger    *worker.Ledger
	Window    utils.SendWindow
}

func NewCampaignController(db *gorm.DB, q queue.Queue, estimator *utils.CostEstimator, ledger *worker.Ledger, window utils.SendWindow, logger *log.Logger) *CampaignController {
	return &CampaignController{
		DB:        db,
		Logger:    logger,
		Queue:     q,
		Estimator: estimator,
		Ledger:    ledger,
		Window:    window,
	}
}

// ListCampaigns returns all campaigns owned by a brand, each with a summary
// of the groups it targets.
func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	userID := utils.ParseUint(c.Query("user_id"))
	if userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	var campaigns []models.Campaign
	if err := cc.DB.Where("brand_id = ?", userID).
		Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list campaigns",
		})
	}

	// One lookup for every group referenced across the page
	groupIDs := make(map[uint]bool)
	for _, campaign := range campaigns {
		for _, id := range campaign.SelectedGroupIDs {
			groupIDs[id] = true
		}
	}
	groupsByID := make(map[uint]models.Group, len(groupIDs))
	if len(groupIDs) > 0 {
		ids := make([]uint, 0, len(groupIDs))
		for id := range groupIDs {
			ids = append(ids, id)
		}
		var groups []models.Group
		if err := cc.DB.Where("id IN ?", ids).Find(&groups).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list campaigns",
			})
		}
		for _, g := range groups {
			groupsByID[g.ID] = g
		}
	}

	result := make([]fiber.Map, 0, len(campaigns))
	for _, campaign := range campaigns {
		summaries := make([]fiber.Map, 0, len(campaign.SelectedGroupIDs))
		for _, id := range campaign.SelectedGroupIDs {
			if g, ok := groupsByID[id]; ok {
				summaries = append(summaries, fiber.Map{
					"id":                id,
					"name":              g.Name,
					"status":            g.Status,
					"price_per_message": g.PricePerMessage,
				})
			}
		}
		result = append(result, fiber.Map{
			"campaign": campaign,
			"groups":   summaries,
		})
	}

	return c.JSON(result)
}

// GetCampaign returns one campaign with its current stats.
func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	var campaign models.Campaign
	if err := cc.DB.First(&campaign, c.Params("id")).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	return c.JSON(campaign)
}

// EstimateCost prices a prospective group selection before a campaign exists.
func (cc *CampaignController) EstimateCost(c *fiber.Ctx) error {
	raw := c.Query("selected_group_ids")
	if raw == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "selected_group_ids required",
		})
	}

	var groupIDs []uint
	for _, part := range strings.Split(raw, ",") {
		if id := utils.ParseUint(strings.TrimSpace(part)); id != 0 {
			groupIDs = append(groupIDs, id)
		}
	}

	estimate, err := cc.Estimator.EstimateRun(groupIDs)
	if err != nil {
		cc.Logger.Printf("Estimate failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to estimate cost",
		})
	}

	return c.JSON(fiber.Map{
		"estimated_cost":  estimate.TotalCost,
		"estimated_units": estimate.TotalUnits,
		"cost_per_msg":    cc.Estimator.WeightedCostPerMessage(estimate),
		"groups":          estimate.Groups,
	})
}
