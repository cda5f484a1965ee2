package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string

	DatabaseURL string
	SQLitePath  string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	MinioBucket    string
	MinioOCRBucket string

	OCRProvider     string
	OCRRegion       string
	OCRBucket       string
	OCRPollInterval time.Duration
	OCRJobTimeout   time.Duration
	OCRConcurrency  int

	FaceProvider  string
	FaceRegion    string
	FaceThreshold float64

	AdminJWTSecret      string
	DocumentAliasesFile string
	ValidationQueueURL  string

	// Per-actor token buckets. A zero rate disables the group.
	RateLimitExternalRPS   float64
	RateLimitExternalBurst int
	RateLimitDefaultRPS    float64
	RateLimitDefaultBurst  int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	region := getEnv("AWS_REGION", "")
	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		DatabaseURL: dbURL,
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       region,
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioBucket:    getEnv("MINIO_BUCKET", ""),
		MinioOCRBucket: getEnv("MINIO_OCR_BUCKET", ""),

		OCRProvider:     normalizeOCRProvider(getEnv("OCR_PROVIDER", "local")),
		OCRRegion:       getEnv("OCR_REGION", region),
		OCRBucket:       getEnv("OCR_BUCKET", ""),
		OCRPollInterval: getEnvDuration("OCR_POLL_INTERVAL", 2*time.Second),
		OCRJobTimeout:   getEnvDuration("OCR_JOB_TIMEOUT", 120*time.Second),
		OCRConcurrency:  getEnvInt("OCR_CONCURRENCY", 4),

		FaceProvider:  strings.ToLower(strings.TrimSpace(getEnv("FACE_PROVIDER", "none"))),
		FaceRegion:    getEnv("FACE_REGION", region),
		FaceThreshold: getEnvFloat("FACE_THRESHOLD", 90),

		AdminJWTSecret:      getEnv("ADMIN_JWT_SECRET", ""),
		DocumentAliasesFile: getEnv("DOCUMENT_ALIASES_FILE", ""),
		ValidationQueueURL:  getEnv("VALIDATION_SQS_QUEUE_URL", ""),

		RateLimitExternalRPS:   getEnvFloat("RATE_LIMIT_EXTERNAL_RPS", 1),
		RateLimitExternalBurst: getEnvInt("RATE_LIMIT_EXTERNAL_BURST", 10),
		RateLimitDefaultRPS:    getEnvFloat("RATE_LIMIT_DEFAULT_RPS", 0),
		RateLimitDefaultBurst:  getEnvInt("RATE_LIMIT_DEFAULT_BURST", 0),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		log.Printf("config: %s invalid int, using %d", key, def)
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		log.Printf("config: %s invalid float, using %v", key, def)
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
		log.Printf("config: %s invalid duration, using %s", key, def)
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeOCRProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "textract", "aws":
		return "textract"
	default:
		return "local"
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}
