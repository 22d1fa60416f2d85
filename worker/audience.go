package worker

import (
	"time"

	"groupcast/models"

	"gorm.io/gorm"
)

// Recipient is one deduplicated send-set entry: a phone plus the group that
// owns the send and the member row's cap bookkeeping.
type Recipient struct {
	Phone          string
	GroupID        uint
	MemberID       uint
	DailySentCount int
	LastSentDate   *time.Time
}

// GroupBill carries one group's billable-unit count and everything needed to
// settle and cap-check it.
type GroupBill struct {
	GroupID           uint
	AdminID           uint
	Name              string
	PricePerMessage   int64
	DailyCapPerMember int
	Units             int64
}

// Audience is the resolved output for one campaign run: per-group billable
// units for settlement and the deduplicated send set for dispatch.
type Audience struct {
	Groups     []GroupBill
	Recipients []Recipient
}

// TotalBillableUnits sums units across all groups.
func (a *Audience) TotalBillableUnits() int64 {
	var total int64
	for _, g := range a.Groups {
		total += g.Units
	}
	return total
}

// Bill returns the billing entry for a group id.
func (a *Audience) Bill(groupID uint) *GroupBill {
	for i := range a.Groups {
		if a.Groups[i].GroupID == groupID {
			return &a.Groups[i]
		}
	}
	return nil
}

// AudienceResolver expands a campaign's selected groups into billable units
// and a deduplicated send set.
type AudienceResolver struct {
	DB *gorm.DB
}

func NewAudienceResolver(db *gorm.DB) *AudienceResolver {
	return &AudienceResolver{DB: db}
}

// Resolve walks the selected groups in creation order. The first group to
// introduce a phone owns the send; later duplicates still count as billable
// units for their own group, because sellers are paid for audience rented,
// not audience reached. Globally opted-out phones are excluded from both
// billing and sending.
func (r *AudienceResolver) Resolve(groupIDs []uint) (*Audience, error) {
	audience := &Audience{}
	if len(groupIDs) == 0 {
		return audience, nil
	}

	// Creation-time order makes dedup ownership deterministic; id breaks
	// same-timestamp ties.
	var groups []models.Group
	if err := r.DB.Where("id IN ? AND status = ?", groupIDs, models.GroupStatusActive).
		Order("created_at ASC, id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}

	membersByGroup := make(map[uint][]models.GroupMember, len(groups))
	var phones []string
	for _, group := range groups {
		var members []models.GroupMember
		if err := r.DB.Where("group_id = ? AND is_opted_out = ?", group.ID, false).
			Order("id ASC").Find(&members).Error; err != nil {
			return nil, err
		}
		membersByGroup[group.ID] = members
		for _, m := range members {
			phones = append(phones, m.Phone)
		}
	}

	optedOut, err := r.globalOptOuts(phones)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, group := range groups {
		bill := GroupBill{
			GroupID:           group.ID,
			AdminID:           group.AdminID,
			Name:              group.Name,
			PricePerMessage:   group.PricePerMessage,
			DailyCapPerMember: group.DailyCapPerMember,
		}

		for _, member := range membersByGroup[group.ID] {
			// Opt-out beats billing attribution
			if optedOut[member.Phone] {
				continue
			}

			bill.Units++

			if !seen[member.Phone] {
				seen[member.Phone] = true
				audience.Recipients = append(audience.Recipients, Recipient{
					Phone:          member.Phone,
					GroupID:        group.ID,
					MemberID:       member.ID,
					DailySentCount: member.DailySentCount,
					LastSentDate:   member.LastSentDate,
				})
			}
		}

		audience.Groups = append(audience.Groups, bill)
	}

	return audience, nil
}

func (r *AudienceResolver) globalOptOuts(phones []string) (map[string]bool, error) {
	set := make(map[string]bool)
	if len(phones) == 0 {
		return set, nil
	}

	var optOuts []models.OptOut
	if err := r.DB.Where("phone IN ?", phones).Find(&optOuts).Error; err != nil {
		return nil, err
	}
	for _, o := range optOuts {
		set[o.Phone] = true
	}
	return set, nil
}
