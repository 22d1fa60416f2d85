package models

import "gorm.io/gorm"

// Message statuses
const (
	MessageStatusQueued    = "QUEUED"
	MessageStatusSent      = "SENT"
	MessageStatusDelivered = "DELIVERED"
	MessageStatusRead      = "READ"
	MessageStatusFailed    = "FAILED"
)

// MessageLog is one row per (campaign, recipient) actually dispatched.
// Created by the message worker, mutated only by the webhook reconciler
// afterwards, never deleted.
type MessageLog struct {
	gorm.Model
	CampaignID uint   `gorm:"not null;index" json:"campaign_id"`
	GroupID    uint   `gorm:"index" json:"group_id"` // send-owner group, for attribution
	MemberID   uint   `json:"member_id"`
	Phone      string `gorm:"not null" json:"phone"`

	Status    string `gorm:"default:'QUEUED'" json:"status"`
	MessageID string `gorm:"index" json:"message_id"` // provider id from the transport
	Cost      int64  `json:"cost"`

	// IsPaid guards the deferred revenue split: the seller credit for this
	// row may fire only while it is false.
	IsPaid bool `gorm:"default:false" json:"is_paid"`
}

// OptOut is the global suppression list. One row per phone, regardless of
// group membership, inserted when a recipient replies STOP. Never expires.
type OptOut struct {
	gorm.Model
	Phone string `gorm:"not null;uniqueIndex" json:"phone"`
}
