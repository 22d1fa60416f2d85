package worker

import (
	"fmt"
	"log"

	"groupcast/models"

	"gorm.io/gorm"
)

// Settler performs dispatch-time settlement for one campaign run: debit the
// buyer for every billable unit, credit every seller their revenue share.
// Only used in dispatch mode; delivery mode defers seller credits to the
// webhook reconciler.
type Settler struct {
	DB           *gorm.DB
	Ledger       *Ledger
	Logger       *log.Logger
	SharePercent int // seller share of price_per_message, e.g. 80
}

func NewSettler(db *gorm.DB, ledger *Ledger, logger *log.Logger, sharePercent int) *Settler {
	return &Settler{DB: db, Ledger: ledger, Logger: logger, SharePercent: sharePercent}
}

// RunCost prices the run from live billable units. Always recomputed here;
// the campaign's stored estimate is for pre-flight validation only and may
// be stale.
func RunCost(audience *Audience) int64 {
	var cost int64
	for _, g := range audience.Groups {
		cost += g.Units * g.PricePerMessage
	}
	return cost
}

// SettleRun debits the buyer for the whole run, then credits each seller.
// The debit and each credit are independent atomic units rather than one
// cross-wallet transaction: sellers still get paid even when buyer-side
// accounting needs later correction. A failed seller credit is reported but
// does not stop the remaining credits.
func (s *Settler) SettleRun(campaign *models.Campaign, audience *Audience) error {
	runCost := RunCost(audience)
	if runCost == 0 {
		return nil
	}

	reference := CampaignReference(campaign.ID)

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Ledger.Debit(tx, campaign.BrandID, runCost, reference,
			fmt.Sprintf("Campaign execution: %s", campaign.Name), nil)
	})
	if err != nil {
		return err
	}

	var creditErr error
	for _, bill := range audience.Groups {
		earnings := SellerShare(bill.PricePerMessage, s.SharePercent) * bill.Units
		if earnings == 0 {
			continue
		}

		bill := bill
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			return s.Ledger.Credit(tx, bill.AdminID, earnings, reference,
				fmt.Sprintf("Earnings from campaign: %s", campaign.Name),
				map[string]string{
					"group_id":   fmt.Sprintf("%d", bill.GroupID),
					"group_name": bill.Name,
				})
		})
		if err != nil {
			s.Logger.Printf("Failed to credit admin %d for group %d: %v", bill.AdminID, bill.GroupID, err)
			if creditErr == nil {
				creditErr = err
			}
		}
	}

	return creditErr
}

// SellerShare is the per-unit seller payout: floor(price × share%).
func SellerShare(pricePerMessage int64, sharePercent int) int64 {
	return pricePerMessage * int64(sharePercent) / 100
}
