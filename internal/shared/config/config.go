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
	CORSAllowOrigin []string
	Env             string

	DatabaseURL string
	RedisURL    string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	InferenceAPIURL    string
	InferenceModel     string
	InferenceTokens    []string
	InferenceTimeout   time.Duration
	MaxAttempts        int
	RetryBaseDelay     time.Duration
	CredentialCooldown time.Duration

	WorkerCount int
	ChunkSize   int

	OCRCommand    string
	RasterCommand string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		DatabaseURL: dbURL,
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		InferenceAPIURL:    getEnv("INFERENCE_API_URL", "https://api.mistral.ai/v1/chat/completions"),
		InferenceModel:     getEnv("INFERENCE_MODEL", "mistral-medium"),
		InferenceTokens:    splitAndTrim(getEnv("INFERENCE_API_TOKENS", os.Getenv("INFERENCE_API_TOKEN"))),
		InferenceTimeout:   getDuration("INFERENCE_TIMEOUT_SECONDS", 120*time.Second),
		MaxAttempts:        getInt("INFERENCE_MAX_ATTEMPTS", 3),
		RetryBaseDelay:     getDuration("INFERENCE_RETRY_BASE_SECONDS", time.Second),
		CredentialCooldown: getDuration("CREDENTIAL_COOLDOWN_SECONDS", time.Hour),

		WorkerCount: getInt("WORKER_COUNT", 4),
		ChunkSize:   getInt("ANALYSIS_CHUNK_SIZE", 4000),

		OCRCommand:    getEnv("OCR_COMMAND", "tesseract"),
		RasterCommand: getEnv("RASTER_COMMAND", "pdftoppm"),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return time.Duration(parsed) * time.Second
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
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
