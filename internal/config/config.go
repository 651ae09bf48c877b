package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"ledger-service/internal/ledger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	// DBDriver is "mysql" (default) or "sqlite"; SQLitePath is used by the latter.
	DBDriver   string
	SQLitePath string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RedisURL      string
	RedisPassword string

	Port     string
	GRPCPort string
	GinMode  string
	LogLevel string

	AdminCommissionRate decimal.Decimal
	AgentCommissionRate decimal.Decimal
	CurrencyScale       int32
	Currency            string
	// HouseUserID receives the admin cut of deposits; 0 disables the payout.
	HouseUserID int

	MinWithdrawal decimal.Decimal
	MaxWithdrawal decimal.Decimal

	// WebhookSecret signs payment webhooks; empty disables verification.
	WebhookSecret     string
	WebhookClaimTTL   time.Duration
	ReconcileCron     string
	WorkerQueue       string
	WorkerConcurrency int
}

// LoadEnv reads .env from the working directory or its parent. A missing file
// is not an error; the process environment is used as is.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
	log.Println("No .env file found, using system environment variables")
}

func Load() (Config, error) {
	cfg := Config{
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		SQLitePath:    getEnv("SQLITE_PATH", "ledger.db"),
		DBUser:        getEnv("DB_USER", "root"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        getEnv("DB_HOST", "127.0.0.1"),
		DBPort:        getEnv("DB_PORT", "3306"),
		DBName:        getEnv("DB_NAME", "wallet_ledger"),
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Port:          getEnv("PORT", "8080"),
		GRPCPort:      getEnv("GRPC_PORT", "50051"),
		GinMode:       os.Getenv("GIN_MODE"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Currency:      getEnv("CURRENCY", "NGN"),
		ReconcileCron: getEnv("RECONCILE_CRON", "0 0 * * *"),
		WorkerQueue:   getEnv("WORKER_QUEUE", "ledger"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}

	var err error
	if cfg.AdminCommissionRate, err = getDecimal("ADMIN_COMMISSION_RATE", "2"); err != nil {
		return cfg, err
	}
	if cfg.AgentCommissionRate, err = getDecimal("AGENT_COMMISSION_RATE", "1"); err != nil {
		return cfg, err
	}
	if cfg.MinWithdrawal, err = getDecimal("MIN_WITHDRAWAL", "100"); err != nil {
		return cfg, err
	}
	if cfg.MaxWithdrawal, err = getDecimal("MAX_WITHDRAWAL", "1000000"); err != nil {
		return cfg, err
	}

	scale, err := getInt("CURRENCY_SCALE", 2)
	if err != nil {
		return cfg, err
	}
	if scale < 1 {
		return cfg, fmt.Errorf("CURRENCY_SCALE must be at least 1, got %d", scale)
	}
	cfg.CurrencyScale = int32(scale)

	if cfg.HouseUserID, err = getInt("HOUSE_USER_ID", 0); err != nil {
		return cfg, err
	}
	if cfg.WorkerConcurrency, err = getInt("WORKER_CONCURRENCY", 10); err != nil {
		return cfg, err
	}
	if cfg.WebhookClaimTTL, err = getDuration("WEBHOOK_CLAIM_TTL", 24*time.Hour); err != nil {
		return cfg, err
	}

	if err := cfg.CommissionRates().Validate(); err != nil {
		return cfg, fmt.Errorf("commission config: %w", err)
	}
	if cfg.MaxWithdrawal.LessThan(cfg.MinWithdrawal) {
		return cfg, fmt.Errorf("MAX_WITHDRAWAL %s is below MIN_WITHDRAWAL %s", cfg.MaxWithdrawal, cfg.MinWithdrawal)
	}
	return cfg, nil
}

func (c Config) CommissionRates() ledger.CommissionRates {
	return ledger.CommissionRates{
		AdminPercent: c.AdminCommissionRate,
		AgentPercent: c.AgentCommissionRate,
		Scale:        c.CurrencyScale,
	}
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return c.MySQLDSN()
}

func (c Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
