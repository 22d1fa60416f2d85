package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Group statuses
const (
	GroupStatusActive   = "ACTIVE"
	GroupStatusInactive = "INACTIVE"
)

// ErrConsentRequired is returned when monetization is enabled on a group
// whose admin never declared member consent.
var ErrConsentRequired = errors.New("monetization requires declared member consent")

// Group is a rentable membership list owned by a group admin.
type Group struct {
	gorm.Model
	AdminID     uint   `gorm:"not null;index" json:"admin_id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'ACTIVE'" json:"status"` // ACTIVE, INACTIVE

	// Pricing and sending limits, money in minor currency units (paisa)
	PricePerMessage   int64 `gorm:"default:5" json:"price_per_message"`
	DailyCapPerMember int   `gorm:"default:1" json:"daily_cap_per_member"`

	MemberCount         int  `gorm:"default:0" json:"member_count"`
	MonetizationEnabled bool `gorm:"default:false" json:"monetization_enabled"`
	ConsentDeclared     bool `gorm:"default:false" json:"consent_declared"`

	Admin User `json:"-"`
}

// BeforeSave enforces the consent invariant: a group cannot be monetized
// unless consent was declared for its members.
func (g *Group) BeforeSave(tx *gorm.DB) error {
	if g.MonetizationEnabled && !g.ConsentDeclared {
		return ErrConsentRequired
	}
	return nil
}

// GroupMember is one phone number inside a group. The (group, phone) pair is
// unique; the same phone may appear in many groups.
type GroupMember struct {
	gorm.Model
	GroupID uint   `gorm:"not null;uniqueIndex:idx_group_phone" json:"group_id"`
	Phone   string `gorm:"not null;uniqueIndex:idx_group_phone;index" json:"phone"`

	IsOptedOut bool `gorm:"default:false" json:"is_opted_out"`

	// Daily cap bookkeeping. The counter is only meaningful when
	// LastSentDate is today; an older date means the counter has
	// implicitly reset.
	DailySentCount int        `gorm:"default:0" json:"daily_sent_count"`
	LastSentDate   *time.Time `json:"last_sent_date,omitempty"`

	Group Group `json:"-"`
}
