package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"groupcast/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

// Settlement modes. Exactly one is active per deployment; mixing them would
// pay sellers twice.
const (
	SettlementModeDelivery = "delivery" // credit sellers on confirmed delivery
	SettlementModeDispatch = "dispatch" // settle the whole run at dispatch time
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// SendWindowConfig bounds the clock hours campaigns may dispatch in.
type SendWindowConfig struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis RedisConfig `json:"redis"`

	// Campaign execution knobs
	SendWindow          SendWindowConfig `json:"send_window"`
	SettlementMode      string           `json:"settlement_mode"`
	RevenueSharePercent int              `json:"revenue_share_percent"` // seller share of price_per_message
	DefaultCostPerMsg   int64            `json:"default_cost_per_msg"`  // fallback when a campaign has no members
	QueueMaxRetries     int              `json:"queue_max_retries"`
	SenderTimeout       time.Duration    `json:"sender_timeout"`

	SentryDSN string `json:"-"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "5000"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "groupcast"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "127.0.0.1:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},

		SendWindow: SendWindowConfig{
			StartHour: getEnvAsInt("SEND_WINDOW_START_HOUR", 9),
			EndHour:   getEnvAsInt("SEND_WINDOW_END_HOUR", 21),
		},
		SettlementMode:      getEnv("SETTLEMENT_MODE", SettlementModeDelivery),
		RevenueSharePercent: getEnvAsInt("REVENUE_SHARE_PERCENT", 80),
		DefaultCostPerMsg:   int64(getEnvAsInt("DEFAULT_COST_PER_MSG", 5)),
		QueueMaxRetries:     getEnvAsInt("QUEUE_MAX_RETRIES", 3),
		SenderTimeout:       time.Duration(getEnvAsInt("SENDER_TIMEOUT_SECONDS", 10)) * time.Second,

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}

	// Validate required configurations
	if AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if AppConfig.SettlementMode != SettlementModeDelivery && AppConfig.SettlementMode != SettlementModeDispatch {
		return fmt.Errorf("SETTLEMENT_MODE must be %q or %q, got %q",
			SettlementModeDelivery, SettlementModeDispatch, AppConfig.SettlementMode)
	}
	if AppConfig.SendWindow.StartHour < 0 || AppConfig.SendWindow.EndHour > 24 ||
		AppConfig.SendWindow.StartHour >= AppConfig.SendWindow.EndHour {
		return fmt.Errorf("invalid send window [%d, %d)",
			AppConfig.SendWindow.StartHour, AppConfig.SendWindow.EndHour)
	}
	if AppConfig.RevenueSharePercent < 0 || AppConfig.RevenueSharePercent > 100 {
		return fmt.Errorf("REVENUE_SHARE_PERCENT must be between 0 and 100")
	}

	logConfig()
	return nil
}

func ConnectDB() error {
	log.Println("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("✅ Successfully connected to the database")
	log.Println("🔄 Starting database migration...")
	if err := models.Migrate(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✅ Database migration completed")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("⚠️ Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("🔧 Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Database: %s@%s:%s/%s",
		AppConfig.DBUser,
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBName)
	log.Printf("Queue broker: redis(%t)", AppConfig.Redis.Enabled)
	log.Printf("Settlement mode: %s, revenue share: %d%%",
		AppConfig.SettlementMode, AppConfig.RevenueSharePercent)
	log.Printf("Send window: %02d:00-%02d:00",
		AppConfig.SendWindow.StartHour, AppConfig.SendWindow.EndHour)
}
