package worker

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"groupcast/config"
	"groupcast/models"

	"gorm.io/gorm"
)

// ErrMessageNotFound signals a status report for an unknown provider id.
var ErrMessageNotFound = errors.New("message log not found")

// Reconciler folds asynchronous delivery reports back into the message log,
// campaign stats and — in delivery mode — the seller's wallet. Events arrive
// at-least-once, so every path here must tolerate replays.
type Reconciler struct {
	DB           *gorm.DB
	Logger       *log.Logger
	Ledger       *Ledger
	Mode         string
	SharePercent int
}

func NewReconciler(db *gorm.DB, ledger *Ledger, mode string, sharePercent int, logger *log.Logger) *Reconciler {
	return &Reconciler{
		DB:           db,
		Logger:       logger,
		Ledger:       ledger,
		Mode:         mode,
		SharePercent: sharePercent,
	}
}

// HandleStatus applies one provider status report. The deferred seller
// credit is gated on flipping is_paid false→true inside the same
// transaction, so a replayed DELIVERED report can never pay twice.
func (r *Reconciler) HandleStatus(messageID, status string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var msg models.MessageLog
		if err := tx.Where("message_id = ?", messageID).First(&msg).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return err
		}

		// Reports replay, so the stat increment must follow what the UPDATE
		// actually did, not what the pre-read row looked like.
		var statusChanged bool

		if status == models.MessageStatusDelivered && r.Mode == config.SettlementModeDelivery {
			// Conditional flip acquires the payment; losing the race (or a
			// replay) leaves both the row and the stats alone
			result := tx.Model(&models.MessageLog{}).
				Where("id = ? AND is_paid = ?", msg.ID, false).
				Updates(map[string]interface{}{"status": status, "is_paid": true})
			if result.Error != nil {
				return result.Error
			}

			if result.RowsAffected == 1 {
				statusChanged = true
				if err := r.creditSeller(tx, &msg); err != nil {
					return err
				}
			}
		} else {
			result := tx.Model(&models.MessageLog{}).
				Where("id = ? AND status != ?", msg.ID, status).
				Update("status", status)
			if result.Error != nil {
				return result.Error
			}
			statusChanged = result.RowsAffected == 1
		}

		if statusChanged {
			if column := statColumn(status); column != "" {
				if err := tx.Model(&models.Campaign{}).
					Where("id = ?", msg.CampaignID).
					Update(column, gorm.Expr(column+" + 1")).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (r *Reconciler) creditSeller(tx *gorm.DB, msg *models.MessageLog) error {
	var group models.Group
	if err := tx.First(&group, msg.GroupID).Error; err != nil {
		return err
	}

	share := msg.Cost * int64(r.SharePercent) / 100
	if share == 0 {
		return nil
	}

	return r.Ledger.Credit(tx, group.AdminID, share, msg.MessageID,
		fmt.Sprintf("Earnings for message %s", msg.MessageID),
		map[string]string{
			"group_id":   fmt.Sprintf("%d", group.ID),
			"group_name": group.Name,
		})
}

// HandleInbound processes a recipient reply. STOP, case and whitespace
// insensitive, lands the phone on the global opt-out list; the unique
// constraint makes replays a no-op.
func (r *Reconciler) HandleInbound(phone, text string) error {
	if !strings.EqualFold(strings.TrimSpace(text), "STOP") {
		return nil
	}

	var optOut models.OptOut
	if err := r.DB.Where(models.OptOut{Phone: phone}).FirstOrCreate(&optOut).Error; err != nil {
		return err
	}
	r.Logger.Printf("Opt-out recorded for %s", phone)
	return nil
}

func statColumn(status string) string {
	switch status {
	case models.MessageStatusDelivered:
		return "stats_delivered"
	case models.MessageStatusRead:
		return "stats_read"
	case models.MessageStatusFailed:
		return "stats_failed"
	default:
		return ""
	}
}
