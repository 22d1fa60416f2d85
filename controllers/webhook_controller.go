package controller

import (
	"errors"
	"log"
	"strings"

	"groupcast/models"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WebhookController struct {
	DB         *gorm.DB
	Logger     *log.Logger
	Reconciler *worker.Reconciler
}

func NewWebhookController(db *gorm.DB, reconciler *worker.Reconciler, logger *log.Logger) *WebhookController {
	return &WebhookController{DB: db, Logger: logger, Reconciler: reconciler}
}

// HandleWhatsApp ingests provider callbacks: delivery status reports and
// inbound replies. The provider retries on non-2xx, so processing errors are
// logged and acknowledged rather than bounced back.
func (wc *WebhookController) HandleWhatsApp(c *fiber.Ctx) error {
	var event struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		Status    string `json:"status"`
		Phone     string `json:"phone"`
		Text      string `json:"text"`
	}
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	switch strings.ToUpper(event.Type) {
	case "STATUS":
		status := strings.ToUpper(event.Status)
		switch status {
		case models.MessageStatusDelivered, models.MessageStatusRead, models.MessageStatusFailed, models.MessageStatusSent:
		default:
			wc.Logger.Printf("Ignoring unknown status %q for message %s", event.Status, event.MessageID)
			return c.JSON(fiber.Map{"received": true})
		}

		if err := wc.Reconciler.HandleStatus(event.MessageID, status); err != nil {
			if errors.Is(err, worker.ErrMessageNotFound) {
				wc.Logger.Printf("Status report for unknown message %s", event.MessageID)
			} else {
				utils.LogError("webhook_status", err, map[string]interface{}{
					"message_id": event.MessageID,
					"status":     status,
				})
			}
		}

	case "INBOUND":
		if err := wc.Reconciler.HandleInbound(event.Phone, event.Text); err != nil {
			utils.LogError("webhook_inbound", err, map[string]interface{}{"phone": event.Phone})
		}

	default:
		wc.Logger.Printf("Ignoring webhook event type %q", event.Type)
	}

	return c.JSON(fiber.Map{"received": true})
}
