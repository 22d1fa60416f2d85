package controller

import (
	"errors"
	"fmt"
	"log"

	"groupcast/models"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WalletController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Ledger *worker.Ledger
}

func NewWalletController(db *gorm.DB, ledger *worker.Ledger, logger *log.Logger) *WalletController {
	return &WalletController{DB: db, Logger: logger, Ledger: ledger}
}

// GetBalance returns a wallet with its transaction history.
func (wc *WalletController) GetBalance(c *fiber.Ctx) error {
	ownerID := utils.ParseUint(c.Params("userId"))
	if ownerID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	var wallet models.Wallet
	err := wc.DB.Preload("Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Limit(50)
	}).Where("owner_id = ?", ownerID).First(&wallet).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Wallet not found"})
	}

	return c.JSON(wallet)
}

// TopUp credits a wallet. Funding is assumed settled out of band, so the
// credit is unconditional.
func (wc *WalletController) TopUp(c *fiber.Ctx) error {
	var input struct {
		UserID uint  `json:"user_id" validate:"required"`
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	reference := fmt.Sprintf("topup:%s", uuid.New().String())
	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		return wc.Ledger.Credit(tx, input.UserID, input.Amount, reference, "Manual Top-up", nil)
	})
	if err != nil {
		if errors.Is(err, worker.ErrWalletNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Wallet not found"})
		}
		wc.Logger.Printf("Top-up failed for user %d: %v", input.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to top up wallet"})
	}

	balance, _ := wc.Ledger.Balance(input.UserID)
	return c.JSON(fiber.Map{
		"message":   "Wallet topped up",
		"balance":   balance,
		"reference": reference,
	})
}

// RequestPayout debits a group admin's earnings for withdrawal.
func (wc *WalletController) RequestPayout(c *fiber.Ctx) error {
	var input struct {
		UserID uint  `json:"user_id" validate:"required"`
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	reference := fmt.Sprintf("payout:%s", uuid.New().String())
	err := wc.DB.Transaction(func(tx *gorm.DB) error {
		return wc.Ledger.Debit(tx, input.UserID, input.Amount, reference, "Payout request", nil)
	})
	if err != nil {
		if errors.Is(err, worker.ErrWalletNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Wallet not found"})
		}
		if errors.Is(err, worker.ErrInsufficientFunds) {
			balance, _ := wc.Ledger.Balance(input.UserID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Insufficient wallet balance",
				"balance": balance,
			})
		}
		wc.Logger.Printf("Payout failed for user %d: %v", input.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payout"})
	}

	balance, _ := wc.Ledger.Balance(input.UserID)
	return c.JSON(fiber.Map{
		"message":   "Payout requested",
		"balance":   balance,
		"reference": reference,
	})
}
