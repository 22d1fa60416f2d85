package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"groupcast/config"
	"groupcast/middleware"
	"groupcast/queue"
	"groupcast/routes"
	"groupcast/utils"
	"groupcast/worker"
)

func main() {
	logger := log.New(os.Stdout, "GROUPCAST: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Error reporting
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry init failed: %v", err)
		}
	}

	// Queue broker: redis when enabled, synchronous in-memory otherwise
	q := queue.New(config.AppConfig.Redis, config.AppConfig.QueueMaxRetries,
		log.New(os.Stdout, "QUEUE: ", log.LstdFlags))

	// Settlement plumbing shared by workers and controllers
	ledger := worker.NewLedger(config.DB, log.New(os.Stdout, "LEDGER: ", log.LstdFlags))
	settler := worker.NewSettler(config.DB, ledger,
		log.New(os.Stdout, "SETTLE: ", log.LstdFlags), config.AppConfig.RevenueSharePercent)
	reconciler := worker.NewReconciler(config.DB, ledger,
		config.AppConfig.SettlementMode, config.AppConfig.RevenueSharePercent,
		log.New(os.Stdout, "RECONCILE: ", log.LstdFlags))

	sender := utils.NewTimeoutSender(
		utils.NewMockWhatsAppSender(log.New(os.Stdout, "SENDER: ", log.LstdFlags)),
		config.AppConfig.SenderTimeout,
	)

	campaignWorker := worker.NewCampaignWorker(config.DB, q, settler,
		config.AppConfig.SettlementMode, log.New(os.Stdout, "CAMPAIGN-WORKER: ", log.LstdFlags))
	messageWorker := worker.NewMessageWorker(config.DB, q, ledger, sender,
		config.AppConfig.SettlementMode, log.New(os.Stdout, "MESSAGE-WORKER: ", log.LstdFlags))
	campaignWorker.Register()
	messageWorker.Register()

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	routes.SetupRoutes(app, config.DB, q, ledger, reconciler)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Drain the queue on shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Println("Shutting down...")
		if err := q.Close(); err != nil {
			logger.Printf("Queue close failed: %v", err)
		}
		_ = app.Shutdown()
	}()

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
