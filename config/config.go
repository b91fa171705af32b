package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	AI        AIConfig
	Ingest    IngestConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Storage   StorageConfig
	S3        S3Config
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// AIConfig configures the hosted multimodal model used for extraction and reports.
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type IngestConfig struct {
	Workers        int
	MaxUploadBytes int64
	// DefaultReviewYear is applied to dates extracted without a year ("12/30").
	// Zero means the current year.
	DefaultReviewYear int
}

type CacheConfig struct {
	SnapshotTTL time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type StorageConfig struct {
	Driver   string // local, s3
	LocalDir string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type SchedulerConfig struct {
	Enabled    bool
	DigestCron string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "reviews"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		AI: AIConfig{
			APIKey:  getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/"),
			Timeout: parseDuration(getEnv("GEMINI_TIMEOUT", "120s"), 120*time.Second),
		},
		Ingest: IngestConfig{
			Workers:           getEnvInt("INGEST_WORKERS", 4),
			MaxUploadBytes:    int64(getEnvInt("INGEST_MAX_UPLOAD_MB", 10)) << 20,
			DefaultReviewYear: getEnvInt("REVIEW_DEFAULT_YEAR", 0),
		},
		Cache: CacheConfig{
			SnapshotTTL: parseDuration(getEnv("SNAPSHOT_CACHE_TTL", "5m"), 5*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Driver:   getEnv("STORAGE_DRIVER", "local"),
			LocalDir: getEnv("STORAGE_LOCAL_DIR", "uploads"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", "review-screenshots"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:    getEnvBool("SCHEDULER_ENABLED", true),
			DigestCron: getEnv("DIGEST_CRON", "0 9 * * *"),
		},
	}

	if config.Ingest.Workers < 1 {
		return nil, fmt.Errorf("INGEST_WORKERS must be positive, got %d", config.Ingest.Workers)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := cast.ToIntE(value)
	if err != nil {
		log.Printf("Invalid integer %s=%q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := cast.ToBoolE(value)
	if err != nil {
		log.Printf("Invalid boolean %s=%q, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
