package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	ServerPort  string
	GRPCPort    string
	Environment string

	// Database configuration
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis configuration
	RedisAddress string
	CacheTTL     time.Duration

	// JWT configuration
	JWTSecret string

	// Event broker
	EventDriver       string
	EventStreamMaxLen int64
	EventWorkers      int
	SQSQueueURL       string
	AWSRegion         string

	// DependencyTimeout bounds every store, cache, broker and ledger call.
	DependencyTimeout time.Duration

	SharedWriteViaAPI bool
	FrontendAddress   string
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// DSN is the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory or up to two parents if one exists.
func Load() (Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = filepath.Join("..", ".env")
		if _, err := os.Stat(envPath); os.IsNotExist(err) {
			envPath = filepath.Join("..", "..", ".env")
		}
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	cfg := Config{
		ServerPort:      getEnv("PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "9090"),
		Environment:     getEnv("ENV", "development"),
		StoreDriver:     getEnv("STORE_DRIVER", "postgres"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "documents"),
		RedisAddress:    getEnv("REDIS_ADDRESS", "localhost:6379"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		EventDriver:     getEnv("EVENT_DRIVER", "redis"),
		SQSQueueURL:     os.Getenv("SQS_QUEUE_URL"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		FrontendAddress: getEnv("FRONTEND_ADDRESS", "https://production-frontend.com"),
	}

	var errs []error
	cfg.CacheTTL, errs = parseDuration("CACHE_TTL", "60s", errs)
	cfg.DependencyTimeout, errs = parseDuration("DEPENDENCY_TIMEOUT", "2s", errs)

	maxLen, err := strconv.ParseInt(getEnv("EVENT_STREAM_MAXLEN", "10000"), 10, 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("EVENT_STREAM_MAXLEN: %w", err))
	}
	cfg.EventStreamMaxLen = maxLen

	workers, err := strconv.Atoi(getEnv("EVENT_WORKERS", "0"))
	if err != nil {
		errs = append(errs, fmt.Errorf("EVENT_WORKERS: %w", err))
	}
	cfg.EventWorkers = workers

	shared, err := strconv.ParseBool(getEnv("SHARED_WRITE_VIA_API", "false"))
	if err != nil {
		errs = append(errs, fmt.Errorf("SHARED_WRITE_VIA_API: %w", err))
	}
	cfg.SharedWriteViaAPI = shared

	switch cfg.StoreDriver {
	case "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", cfg.StoreDriver))
	}
	switch cfg.EventDriver {
	case "redis", "log":
	case "sqs":
		if cfg.SQSQueueURL == "" {
			errs = append(errs, errors.New("SQS_QUEUE_URL is required with EVENT_DRIVER=sqs"))
		}
	default:
		errs = append(errs, fmt.Errorf("EVENT_DRIVER: unknown driver %q", cfg.EventDriver))
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			errs = append(errs, errors.New("JWT_SECRET is required outside development"))
		} else {
			cfg.JWTSecret = generateRandomSecret(32)
		}
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseDuration(key, defaultValue string, errs []error) (time.Duration, []error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s: %w", key, err))
	}
	if d <= 0 {
		return 0, append(errs, fmt.Errorf("%s: must be positive", key))
	}
	return d, errs
}

// generateRandomSecret returns a hex secret of n random bytes
func generateRandomSecret(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
