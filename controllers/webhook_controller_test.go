package controller

import (
	"testing"

	"groupcast/config"
	"groupcast/models"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newWebhookApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	reconciler := worker.NewReconciler(db, worker.NewLedger(db, discardLogger()),
		config.SettlementModeDelivery, 80, discardLogger())
	wc := NewWebhookController(db, reconciler, discardLogger())

	app := fiber.New()
	app.Post("/webhooks/whatsapp", wc.HandleWhatsApp)
	return app
}

func TestWebhookStatusUpdatesMessage(t *testing.T) {
	db := newTestDB(t)
	app := newWebhookApp(t, db)

	admin := models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleGroupAdmin}
	require.NoError(t, db.Create(&admin).Error)

	group := models.Group{AdminID: admin.ID, Name: "Foodies", Status: models.GroupStatusActive}
	require.NoError(t, db.Create(&group).Error)

	campaign := models.Campaign{BrandID: 1, Name: "Launch", Content: "hi"}
	require.NoError(t, db.Create(&campaign).Error)
	require.NoError(t, db.Create(&models.MessageLog{
		CampaignID: campaign.ID,
		GroupID:    group.ID,
		Phone:      "+911",
		Status:     models.MessageStatusSent,
		MessageID:  "wamid.xyz",
		Cost:       500,
	}).Error)

	resp, body := postJSON(t, app, "/webhooks/whatsapp", fiber.Map{
		"type":       "STATUS",
		"message_id": "wamid.xyz",
		"status":     "delivered",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["received"])

	var msg models.MessageLog
	require.NoError(t, db.Where("message_id = ?", "wamid.xyz").First(&msg).Error)
	assert.Equal(t, models.MessageStatusDelivered, msg.Status)

	// Delivery mode: the seller's share landed with the status flip
	var wallet models.Wallet
	require.NoError(t, db.Where("owner_id = ?", admin.ID).First(&wallet).Error)
	assert.Equal(t, int64(400), wallet.Balance)
}

func TestWebhookInboundStopOptsOut(t *testing.T) {
	db := newTestDB(t)
	app := newWebhookApp(t, db)

	resp, _ := postJSON(t, app, "/webhooks/whatsapp", fiber.Map{
		"type":  "INBOUND",
		"phone": "+911",
		"text":  "Stop",
	})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.OptOut{}).Where("phone = ?", "+911").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// The provider retries on non-2xx, so bad events still get acknowledged.
func TestWebhookAlwaysAcknowledges(t *testing.T) {
	db := newTestDB(t)
	app := newWebhookApp(t, db)

	t.Run("unknown message id", func(t *testing.T) {
		resp, body := postJSON(t, app, "/webhooks/whatsapp", fiber.Map{
			"type":       "STATUS",
			"message_id": "wamid.nope",
			"status":     "DELIVERED",
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["received"])
	})

	t.Run("unknown status", func(t *testing.T) {
		resp, _ := postJSON(t, app, "/webhooks/whatsapp", fiber.Map{
			"type":       "STATUS",
			"message_id": "wamid.xyz",
			"status":     "TELEPORTED",
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("unknown event type", func(t *testing.T) {
		resp, _ := postJSON(t, app, "/webhooks/whatsapp", fiber.Map{"type": "MYSTERY"})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
