package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Supported text generation providers.
const (
	TextProviderOpenAI = "openai"
	TextProviderGemini = "gemini"
)

// Supported asset storage backends.
const (
	AssetStorageLocal = "local"
	AssetStorageGCS   = "gcs"
)

type Config struct {
	MongoURI    string
	DBName      string
	JWTSecret   string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Text and image generation
	TextProvider     string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAITextModel  string
	OpenAIChatModel  string
	OpenAIImageModel string
	OpenAIImageSize  string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiTier       string

	// Asset mirror
	AssetStorage   string
	FileStorageDir string
	AssetURLPrefix string
	PublicBaseURL  string
	GCSBucket      string
	GCSPublicURL   string

	// Instagram Graph API
	InstagramGraphURL string
	FacebookGraphURL  string
	InstagramPageCap  int
	InstagramSyncCron string

	// Google Analytics (GA4 Data API, service account)
	GAPropertyID      string
	GoogleClientEmail string
	GooglePrivateKey  string

	// Tracing
	TracingEnabled     bool
	OTLPEndpoint       string
	TracingSampleRatio float64
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/social_content"),
		DBName:      getEnv("DB_NAME", "social_content"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"), ","),

		// Redis Configuration
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		TextProvider:     strings.ToLower(getEnv("TEXT_PROVIDER", TextProviderOpenAI)),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		OpenAITextModel:  getEnv("OPENAI_TEXT_MODEL", "gpt-4"),
		OpenAIChatModel:  getEnv("OPENAI_CHAT_MODEL", "gpt-4o"),
		OpenAIImageModel: getEnv("OPENAI_IMAGE_MODEL", "dall-e-2"),
		OpenAIImageSize:  getEnv("OPENAI_IMAGE_SIZE", "512x512"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:       getEnv("GEMINI_TIER", "free"),

		AssetStorage:   strings.ToLower(getEnv("ASSET_STORAGE", AssetStorageLocal)),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./uploads"),
		AssetURLPrefix: getEnv("ASSET_URL_PREFIX", "/uploads"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		GCSPublicURL:   strings.TrimRight(getEnv("GCS_PUBLIC_URL", "https://storage.googleapis.com"), "/"),

		InstagramGraphURL: strings.TrimRight(getEnv("INSTAGRAM_GRAPH_URL", "https://graph.instagram.com"), "/"),
		FacebookGraphURL:  strings.TrimRight(getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v19.0"), "/"),
		InstagramPageCap:  getEnvInt("INSTAGRAM_PAGE_CAP", 20),
		InstagramSyncCron: getEnv("INSTAGRAM_SYNC_CRON", "0 */6 * * *"),

		GAPropertyID:      getEnv("GOOGLE_ANALYTICS_PROPERTY_ID", ""),
		GoogleClientEmail: getEnv("GOOGLE_CLIENT_EMAIL", ""),
		// Keys pasted into .env usually carry escaped newlines.
		GooglePrivateKey: strings.ReplaceAll(getEnv("GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),

		TracingEnabled:     getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:       getEnv("OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRatio: getEnvFloat64("TRACING_SAMPLE_RATIO", 0.1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and enumerated values.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	switch c.TextProvider {
	case TextProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TEXT_PROVIDER=openai")
		}
	case TextProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when TEXT_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unknown TEXT_PROVIDER %q", c.TextProvider)
	}

	switch c.AssetStorage {
	case AssetStorageLocal:
		if c.FileStorageDir == "" {
			return fmt.Errorf("FILE_STORAGE_DIR is required when ASSET_STORAGE=local")
		}
	case AssetStorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when ASSET_STORAGE=gcs")
		}
	default:
		return fmt.Errorf("unknown ASSET_STORAGE %q", c.AssetStorage)
	}

	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}

	return nil
}

// ImagesEnabled reports whether an image generation backend is configured.
func (c *Config) ImagesEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// AnalyticsEnabled reports whether GA4 service account credentials are present.
func (c *Config) AnalyticsEnabled() bool {
	return c.GAPropertyID != "" && c.GoogleClientEmail != "" && c.GooglePrivateKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
