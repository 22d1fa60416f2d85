package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign statuses
const (
	CampaignStatusDraft      = "DRAFT"
	CampaignStatusScheduled  = "SCHEDULED"
	CampaignStatusProcessing = "PROCESSING"
	CampaignStatusCompleted  = "COMPLETED"
	CampaignStatusFailed     = "FAILED"
)

// Recurrence types
const (
	RecurrenceNone    = "NONE"
	RecurrenceDaily   = "DAILY"
	RecurrenceWeekly  = "WEEKLY"
	RecurrenceMonthly = "MONTHLY"
	RecurrenceCustom  = "CUSTOM"
)

// Recurrence describes how often a campaign repeats after its first run.
// CUSTOM recurrences carry an explicit list of extra run dates.
type Recurrence struct {
	Type        string      `json:"type"` // NONE, DAILY, WEEKLY, MONTHLY, CUSTOM
	EndDate     *time.Time  `json:"end_date,omitempty"`
	CustomDates []time.Time `json:"custom_dates,omitempty"`
}

// CampaignStats is denormalized delivery accounting, incremented by the
// dispatch pipeline and the delivery webhook reconciler.
type CampaignStats struct {
	Sent      int `gorm:"default:0" json:"sent"`
	Delivered int `gorm:"default:0" json:"delivered"`
	Read      int `gorm:"default:0" json:"read"`
	Failed    int `gorm:"default:0" json:"failed"`
}

// Campaign is one bulk-messaging purchase by a brand against a set of groups.
type Campaign struct {
	gorm.Model
	BrandID uint `gorm:"not null;index" json:"brand_id"`

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Content     string `gorm:"not null" json:"content"`
	Status      string `gorm:"default:'DRAFT'" json:"status"`

	SelectedGroupIDs []uint `gorm:"type:jsonb;serializer:json" json:"selected_group_ids"`

	// Money, in minor currency units
	BudgetMax     int64 `json:"budget_max"`
	EstimatedCost int64 `json:"estimated_cost"`
	CostPerMsg    int64 `gorm:"default:5" json:"cost_per_msg"` // weighted average across groups

	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Recurrence  Recurrence `gorm:"type:jsonb;serializer:json" json:"recurrence"`

	Stats CampaignStats `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Brand User `json:"-"`
}
