package worker

import "fmt"

// Job kinds, one logical queue each.
const (
	KindCampaignExecution = "campaign-execution"
	KindMessageDelivery   = "message-delivery"
)

// CampaignJob triggers one full campaign run.
type CampaignJob struct {
	CampaignID uint `json:"campaign_id"`
}

// MessageJob dispatches one message to one recipient. Cost is frozen at
// enqueue time so a later campaign edit cannot change what a queued send
// charges.
type MessageJob struct {
	CampaignID uint   `json:"campaign_id"`
	Phone      string `json:"phone"`
	GroupID    uint   `json:"group_id"`
	MemberID   uint   `json:"member_id"`
	Content    string `json:"content"`
	Cost       int64  `json:"cost"`
}

// CampaignReference is the free-form wallet-transaction reference for a
// campaign; cross-references are resolved by lookup, never by embedding.
func CampaignReference(campaignID uint) string {
	return fmt.Sprintf("campaign:%d", campaignID)
}
