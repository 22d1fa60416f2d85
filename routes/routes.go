package routes

import (
	"log"
	"os"

	"groupcast/config"
	controller "groupcast/controllers"
	"groupcast/queue"
	"groupcast/utils"
	"groupcast/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, q queue.Queue, ledger *worker.Ledger, reconciler *worker.Reconciler) {
	// Initialize controllers with their respective loggers
	campaignLogger := log.New(os.Stdout, "CAMPAIGN: ", log.LstdFlags)
	walletLogger := log.New(os.Stdout, "WALLET: ", log.LstdFlags)
	webhookLogger := log.New(os.Stdout, "WEBHOOK: ", log.LstdFlags)

	estimator := utils.NewCostEstimator(db, config.AppConfig.DefaultCostPerMsg)
	window := utils.SendWindow{
		StartHour: config.AppConfig.SendWindow.StartHour,
		EndHour:   config.AppConfig.SendWindow.EndHour,
	}

	campaignController := controller.NewCampaignController(db, q, estimator, ledger, window, campaignLogger)
	walletController := controller.NewWalletController(db, ledger, walletLogger)
	webhookController := controller.NewWebhookController(db, reconciler, webhookLogger)

	// API group with versioning
	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Campaign routes; /estimate must register before /:id
	campaigns := api.Group("/campaigns")
	campaigns.Get("/estimate", campaignController.EstimateCost)
	campaigns.Get("/", campaignController.ListCampaigns)
	campaigns.Post("/", campaignController.CreateCampaign)
	campaigns.Get("/:id", campaignController.GetCampaign)
	campaigns.Delete("/:id", campaignController.DeleteCampaign)
	campaigns.Post("/:id/launch", campaignController.LaunchCampaign)
	campaigns.Post("/:id/groups", campaignController.AddGroups)
	campaigns.Delete("/:id/groups/:groupId", campaignController.RemoveGroup)
	campaigns.Post("/:id/schedule", campaignController.AddSchedule)

	// Wallet routes
	wallet := api.Group("/wallet")
	wallet.Get("/:userId", walletController.GetBalance)
	wallet.Post("/topup", walletController.TopUp)
	wallet.Post("/payout", walletController.RequestPayout)

	// Provider callbacks live outside the versioned API
	app.Post("/webhooks/whatsapp", webhookController.HandleWhatsApp)

	campaignLogger.Println("Routes initialized successfully")
}
