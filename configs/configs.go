// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables; a .env file is
// honoured for local development.
package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Field modes for writing plan parameters onto a contact.
const (
	// FieldModeID resolves each plan key to the CRM custom-field id first.
	FieldModeID = "id"
	// FieldModeKey sends plan parameters as free-form key/value pairs.
	FieldModeKey = "key"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	Server ServerConfig
	CRM    CRMConfig
	Plan   PlanConfig
	Kafka  KafkaConfig
	Log    LogConfig
}

// ServerConfig holds inbound HTTP settings.
type ServerConfig struct {
	// Port is the TCP port the API binds to.
	Port int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// AllowedOrigin is the single browser origin allowed to call the API.
	AllowedOrigin string
}

// CRMConfig holds settings for the HighLevel (LeadConnector) API.
// APIKey and LocationID may be empty; submissions then fail with a
// configuration error instead of the process refusing to start.
type CRMConfig struct {
	APIKey            string
	LocationID        string
	BaseURL           string
	APIVersion        string
	Timeout           time.Duration
	RequestsPerSecond float64

	// FieldMode is FieldModeID or FieldModeKey.
	FieldMode string
}

// PlanConfig holds settings for the delivery tag.
type PlanConfig struct {
	// Tag marks a contact as having received a plan.
	Tag string

	// RefreshTag removes the tag before adding it again so automations
	// keyed on "tag added" fire on every submission.
	RefreshTag bool
}

// KafkaConfig holds Kafka settings for delivery events.
// An empty Broker disables event publishing.
type KafkaConfig struct {
	Broker string
	Topic  string
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string
	Format string // text|json
}

// Enabled reports whether delivery events should be published.
func (k KafkaConfig) Enabled() bool {
	return k.Broker != ""
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 3000),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigin:   getEnv("CORS_ALLOWED_ORIGIN", "https://tools.daytradinguni.com"),
		},
		CRM: CRMConfig{
			APIKey:            strings.TrimSpace(os.Getenv("GHL_API_KEY")),
			LocationID:        strings.TrimSpace(os.Getenv("GHL_LOCATION_ID")),
			BaseURL:           strings.TrimRight(getEnv("GHL_BASE_URL", "https://services.leadconnectorhq.com"), "/"),
			APIVersion:        getEnv("GHL_API_VERSION", "2021-07-28"),
			Timeout:           getEnvDuration("GHL_TIMEOUT", 15*time.Second),
			RequestsPerSecond: getEnvFloat("GHL_REQUESTS_PER_SECOND", 10),
			FieldMode:         getFieldMode(),
		},
		Plan: PlanConfig{
			Tag:        getEnv("PLAN_TAG", "risk_calculator_plan"),
			RefreshTag: getEnvBool("PLAN_TAG_REFRESH", true),
		},
		Kafka: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_TOPIC", "plan_deliveries"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// getFieldMode falls back to id mode for anything unrecognised.
func getFieldMode() string {
	mode := strings.ToLower(strings.TrimSpace(getEnv("GHL_FIELD_MODE", FieldModeID)))
	if mode != FieldModeKey {
		return FieldModeID
	}
	return mode
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("15s") or plain milliseconds ("15000").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if ms, err := strconv.Atoi(valueStr); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
