package models

import "gorm.io/gorm"

// Wallet transaction types
const (
	TxnDebit  = "DEBIT"
	TxnCredit = "CREDIT"
)

// Wallet holds one user's balance in minor currency units. Balance is a
// cached sum: it must always equal the signed sum of the transaction rows.
type Wallet struct {
	gorm.Model
	OwnerID  uint   `gorm:"not null;uniqueIndex" json:"owner_id"`
	Balance  int64  `gorm:"default:0" json:"balance"`
	Currency string `gorm:"default:'INR'" json:"currency"`

	Transactions []WalletTransaction `gorm:"foreignKey:WalletID" json:"transactions,omitempty"`
}

// WalletTransaction is one immutable, append-only ledger entry. Rows are
// never updated or deleted; they are the audit trail behind Balance.
type WalletTransaction struct {
	gorm.Model
	WalletID uint   `gorm:"not null;index" json:"wallet_id"`
	Type     string `gorm:"not null" json:"type"` // DEBIT, CREDIT
	Amount   int64  `gorm:"not null" json:"amount"`

	// ReferenceID points at the campaign or provider message this entry
	// settles, as a free-form id resolved by lookup.
	ReferenceID string            `gorm:"index" json:"reference_id"`
	Description string            `json:"description"`
	Metadata    map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
}
