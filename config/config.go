package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ConfigStorePath string

	Workers      int
	RateLimitMs  int
	MaxRetries   int
	SyncAttempts int

	ChromeBin string
	Headless  bool

	LogLevel  string
	LogFormat string

	PushgatewayURL string
	AWSRegion      string
	ReportBucket   string

	// AccountID selects the account for per-account stages when no flag is given.
	AccountID string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "inventory"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "inventory"),
		PostgresDB:       getEnv("POSTGRES_DB", "inventory"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ConfigStorePath: getEnv("CONFIG_STORE_PATH", "./config.yaml"),

		Workers:      getEnvInt("WORKERS", 3),
		RateLimitMs:  getEnvInt("RATE_LIMIT_MS", 1000),
		MaxRetries:   getEnvInt("MAX_RETRIES", 3),
		SyncAttempts: getEnvInt("SYNC_ATTEMPTS", 3),

		ChromeBin: getEnv("CHROME_BIN", ""),
		Headless:  getEnvBool("HEADLESS", true),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		AWSRegion:      getEnv("AWS_REGION", "ap-northeast-2"),
		ReportBucket:   getEnv("REPORT_BUCKET", ""),

		AccountID: getEnv("ACCOUNT_ID", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
