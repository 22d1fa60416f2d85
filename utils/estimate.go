package utils

import (
	"groupcast/models"

	"gorm.io/gorm"
)

// GroupEstimate is the billable-unit breakdown for one group in a run.
type GroupEstimate struct {
	GroupID         uint   `json:"id"`
	Name            string `json:"name"`
	MemberCount     int64  `json:"member_count"` // non-opted-out members
	PricePerMessage int64  `json:"price_per_message"`
	Cost            int64  `json:"group_cost"`
}

// RunEstimate sizes one campaign run. Units intentionally count a member once
// per group they belong to: sellers are paid for audience rented, not
// audience reached, so overlap is not deduplicated here.
type RunEstimate struct {
	TotalCost  int64           `json:"estimated_cost"`
	TotalUnits int64           `json:"estimated_units"`
	Groups     []GroupEstimate `json:"groups"`
}

// CostEstimator prices campaign runs from live group and member data.
type CostEstimator struct {
	DB *gorm.DB

	// DefaultCostPerMsg is the weighted-average fallback when the selected
	// groups have no members at all.
	DefaultCostPerMsg int64
}

func NewCostEstimator(db *gorm.DB, defaultCostPerMsg int64) *CostEstimator {
	return &CostEstimator{DB: db, DefaultCostPerMsg: defaultCostPerMsg}
}

// EstimateRun sums, for each ACTIVE selected group, the count of
// non-opted-out members times the group's price per message.
func (ce *CostEstimator) EstimateRun(groupIDs []uint) (*RunEstimate, error) {
	estimate := &RunEstimate{}
	if len(groupIDs) == 0 {
		return estimate, nil
	}

	var groups []models.Group
	if err := ce.DB.Where("id IN ? AND status = ?", groupIDs, models.GroupStatusActive).
		Order("created_at ASC, id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}

	for _, group := range groups {
		var memberCount int64
		if err := ce.DB.Model(&models.GroupMember{}).
			Where("group_id = ? AND is_opted_out = ?", group.ID, false).
			Count(&memberCount).Error; err != nil {
			return nil, err
		}

		groupCost := memberCount * group.PricePerMessage
		estimate.Groups = append(estimate.Groups, GroupEstimate{
			GroupID:         group.ID,
			Name:            group.Name,
			MemberCount:     memberCount,
			PricePerMessage: group.PricePerMessage,
			Cost:            groupCost,
		})
		estimate.TotalUnits += memberCount
		estimate.TotalCost += groupCost
	}

	return estimate, nil
}

// WeightedCostPerMessage derives the campaign's average price per billable
// unit, rounded to the nearest minor unit. With zero members it falls back to
// the first group's price, then to the configured default.
func (ce *CostEstimator) WeightedCostPerMessage(estimate *RunEstimate) int64 {
	if estimate.TotalUnits > 0 {
		return (estimate.TotalCost + estimate.TotalUnits/2) / estimate.TotalUnits
	}
	if len(estimate.Groups) > 0 {
		return estimate.Groups[0].PricePerMessage
	}
	return ce.DefaultCostPerMsg
}

// ProjectedCost prices runs repetitions of a run.
func ProjectedCost(perRunCost int64, runs int) int64 {
	if runs < 1 {
		runs = 1
	}
	return perRunCost * int64(runs)
}
