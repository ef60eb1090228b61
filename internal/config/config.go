package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	PublicBaseURL      string
	CORSAllowedOrigins []string

	// LLM classifier / triage
	GeminiAPIKey      string
	GeminiModelID     string
	ClassifierTimeout time.Duration

	// Provider directory
	NPIBaseURL       string
	ZipLookupBaseURL string
	DirectoryTimeout time.Duration
	DirectoryLimit   int

	// Conversation state
	ConversationTTL time.Duration
	UseRedisState   bool
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool

	// Booking ledger slot generation
	SlotWindowDays      int
	SlotIntervalMinutes int

	// Auth
	AuthJWTSecret string
	VoiceAPIToken string

	// Email notifications
	EmailProvider     string // "sendgrid", "ses", or "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string
	AWSRegion         string

	// Voice adapters
	ElevenLabsAPIKey string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	VoiceTimeout     time.Duration
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 15*time.Second),

		NPIBaseURL:       getEnv("NPI_BASE_URL", "https://npiregistry.cms.hhs.gov/api/"),
		ZipLookupBaseURL: getEnv("ZIP_LOOKUP_BASE_URL", "https://api.zippopotam.us"),
		DirectoryTimeout: getEnvAsDuration("DIRECTORY_TIMEOUT", 10*time.Second),
		DirectoryLimit:   getEnvAsInt("DIRECTORY_LIMIT", 5),

		ConversationTTL: getEnvAsDuration("CONVERSATION_TTL", 30*time.Minute),
		UseRedisState:   getEnvAsBool("USE_REDIS_STATE", false),
		RedisAddr:       getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),

		SlotWindowDays:      getEnvAsInt("SLOT_WINDOW_DAYS", 7),
		SlotIntervalMinutes: getEnvAsInt("SLOT_INTERVAL_MINUTES", 30),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		VoiceAPIToken: getEnv("VOICE_API_TOKEN", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "ClinicCall AI"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "ClinicCall AI"),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),

		ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		VoiceTimeout:     getEnvAsDuration("VOICE_TIMEOUT", 45*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
