package worker

import (
	"testing"

	"groupcast/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSellerShare(t *testing.T) {
	assert.Equal(t, int64(8), SellerShare(10, 80))
	assert.Equal(t, int64(4), SellerShare(5, 80))
	// Floors rather than rounds
	assert.Equal(t, int64(2), SellerShare(3, 80))
	assert.Equal(t, int64(0), SellerShare(1, 80))
}

func TestRunCost(t *testing.T) {
	audience := &Audience{Groups: []GroupBill{
		{PricePerMessage: 10, Units: 3},
		{PricePerMessage: 5, Units: 2},
	}}
	assert.Equal(t, int64(40), RunCost(audience))
	assert.Equal(t, int64(0), RunCost(&Audience{}))
}

func TestSettleRunDistributesMoney(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, discardLogger())
	settler := NewSettler(db, ledger, discardLogger(), 80)

	brand := seedUserWithWallet(t, db, models.RoleBrand, 100)
	seller1 := seedUserWithWallet(t, db, models.RoleGroupAdmin, 0)
	seller2 := seedUserWithWallet(t, db, models.RoleGroupAdmin, 0)

	campaign := models.Campaign{BrandID: brand.ID, Name: "Launch", Content: "hi"}
	require.NoError(t, db.Create(&campaign).Error)

	audience := &Audience{Groups: []GroupBill{
		{GroupID: 1, AdminID: seller1.ID, Name: "Foodies", PricePerMessage: 10, Units: 3},
		{GroupID: 2, AdminID: seller2.ID, Name: "Gamers", PricePerMessage: 5, Units: 2},
	}}

	require.NoError(t, settler.SettleRun(&campaign, audience))

	assert.Equal(t, int64(60), walletBalance(t, db, brand.ID))   // 100 - 40
	assert.Equal(t, int64(24), walletBalance(t, db, seller1.ID)) // 8 × 3
	assert.Equal(t, int64(8), walletBalance(t, db, seller2.ID))  // 4 × 2

	// Credits carry group attribution for the seller's statement
	var credit models.WalletTransaction
	require.NoError(t, db.Where("type = ? AND amount = ?", models.TxnCredit, int64(24)).
		First(&credit).Error)
	assert.Equal(t, CampaignReference(campaign.ID), credit.ReferenceID)
	assert.Equal(t, "Foodies", credit.Metadata["group_name"])
}

func TestSettleRunInsufficientFunds(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db, discardLogger())
	settler := NewSettler(db, ledger, discardLogger(), 80)

	brand := seedUserWithWallet(t, db, models.RoleBrand, 10)
	seller := seedUserWithWallet(t, db, models.RoleGroupAdmin, 0)

	campaign := models.Campaign{BrandID: brand.ID, Name: "Launch", Content: "hi"}
	require.NoError(t, db.Create(&campaign).Error)

	audience := &Audience{Groups: []GroupBill{
		{GroupID: 1, AdminID: seller.ID, PricePerMessage: 10, Units: 4},
	}}

	err := settler.SettleRun(&campaign, audience)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing moved anywhere
	assert.Equal(t, int64(10), walletBalance(t, db, brand.ID))
	assert.Equal(t, int64(0), walletBalance(t, db, seller.ID))
}

func TestSettleRunEmptyAudience(t *testing.T) {
	db := newTestDB(t)
	settler := NewSettler(db, NewLedger(db, discardLogger()), discardLogger(), 80)

	campaign := models.Campaign{BrandID: 1, Name: "Launch", Content: "hi"}
	require.NoError(t, db.Create(&campaign).Error)

	// Zero-cost runs settle trivially, even without a wallet
	require.NoError(t, settler.SettleRun(&campaign, &Audience{}))
}
