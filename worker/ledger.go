package worker

import (
	"errors"
	"log"

	"groupcast/models"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientFunds signals a debit larger than the wallet balance.
	// Not a pipeline failure: callers treat it as a normal stop condition.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrWalletNotFound signals a missing wallet row for an owner.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Ledger moves money. Every balance change is paired with exactly one
// immutable transaction row inside the caller's database transaction, so
// balance can never drift from the audit trail.
type Ledger struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewLedger(db *gorm.DB, logger *log.Logger) *Ledger {
	return &Ledger{DB: db, Logger: logger}
}

// Debit subtracts amount from the owner's wallet and appends the matching
// DEBIT row. The balance check happens inside the conditional UPDATE itself,
// so concurrent debits against the same wallet cannot race past a pre-flight
// read. Must be called with an open transaction.
func (l *Ledger) Debit(tx *gorm.DB, ownerID uint, amount int64, referenceID, description string, metadata map[string]string) error {
	wallet, err := l.walletFor(tx, ownerID)
	if err != nil {
		return err
	}

	result := tx.Model(&models.Wallet{}).
		Where("id = ? AND balance >= ?", wallet.ID, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientFunds
	}

	return tx.Create(&models.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        models.TxnDebit,
		Amount:      amount,
		ReferenceID: referenceID,
		Description: description,
		Metadata:    metadata,
	}).Error
}

// Credit adds amount to the owner's wallet and appends the matching CREDIT
// row. Must be called with an open transaction.
func (l *Ledger) Credit(tx *gorm.DB, ownerID uint, amount int64, referenceID, description string, metadata map[string]string) error {
	wallet, err := l.walletFor(tx, ownerID)
	if err != nil {
		return err
	}

	if err := tx.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return err
	}

	return tx.Create(&models.WalletTransaction{
		WalletID:    wallet.ID,
		Type:        models.TxnCredit,
		Amount:      amount,
		ReferenceID: referenceID,
		Description: description,
		Metadata:    metadata,
	}).Error
}

// Balance reads the cached balance. Advisory only: authoritative checks live
// inside Debit's conditional update.
func (l *Ledger) Balance(ownerID uint) (int64, error) {
	wallet, err := l.walletFor(l.DB, ownerID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (l *Ledger) walletFor(tx *gorm.DB, ownerID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := tx.Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}
