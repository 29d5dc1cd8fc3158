// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const defaultSecretKey = "default_secret"

// Config holds all runtime configuration for the service.
type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// SecretKey signs session cookies. It is not used for anything else.
	SecretKey  string
	SessionTTL time.Duration
	RedisURL   string // empty keeps sessions in process memory

	DatabaseURL string // empty keeps credentials in process memory
	SeedUsers   string // "user:secret:true,user2:secret2:false"; empty uses the built-in list

	// BucketName is the upload destination. Leaving it unset is reported per
	// upload as a misconfiguration, never at startup.
	BucketName string

	// ObjectStore selects the object storage backend: "s3", "minio" or "local".
	ObjectStore string

	AWSRegion      string
	S3Endpoint     string // optional override for S3-compatible providers
	S3UsePathStyle bool

	StorageEndpoint     string
	StorageAccessKey    string
	StorageSecretKey    string
	StorageUseSSL       bool
	StorageCreateBucket bool

	LocalStoreDir string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	cfg := &Config{
		Port:     getEnv("PORT", "5000"),
		AppEnv:   normalizeEnv(getEnv("APP_ENV", "development")),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SecretKey:  getEnv("SECRET_KEY", defaultSecretKey),
		SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),
		RedisURL:   os.Getenv("REDIS_URL"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SeedUsers:   os.Getenv("SEED_USERS"),

		BucketName:  strings.TrimSpace(os.Getenv("BUCKET_NAME")),
		ObjectStore: normalizeStoreType(getEnv("OBJECT_STORE", "s3")),

		AWSRegion:      getEnv("AWS_REGION", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3UsePathStyle: getEnv("S3_USE_PATH_STYLE", "false") == "true",

		StorageEndpoint:     getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:    getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:    getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageUseSSL:       getEnv("STORAGE_USE_SSL", "false") == "true",
		StorageCreateBucket: getEnv("STORAGE_CREATE_BUCKET", "false") == "true",

		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
	}

	if cfg.IsProduction() && cfg.SecretKey == defaultSecretKey {
		log.Fatal("SECRET_KEY is required in production")
	}
	if cfg.BucketName == "" {
		log.Warn("BUCKET_NAME is not set, uploads will be rejected")
	}

	return cfg
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warnf("invalid %s=%q, using %s", key, raw, fallback)
	return fallback
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "development"
	}
}

// normalizeStoreType lowercases the store name. Unknown names are passed
// through for storage.New to reject.
func normalizeStoreType(raw string) string {
	if v := strings.ToLower(strings.TrimSpace(raw)); v != "" {
		return v
	}
	return "s3"
}
