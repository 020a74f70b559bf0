package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "GHL_API_KEY", "GHL_LOCATION_ID", "GHL_BASE_URL", "GHL_TIMEOUT",
		"GHL_FIELD_MODE", "GHL_REQUESTS_PER_SECOND", "PLAN_TAG", "PLAN_TAG_REFRESH",
		"KAFKA_BROKER", "CORS_ALLOWED_ORIGIN",
	} {
		t.Setenv(key, "")
	}

	cfg := AppLoad()

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "https://tools.daytradinguni.com", cfg.Server.AllowedOrigin)
	assert.Empty(t, cfg.CRM.APIKey)
	assert.Empty(t, cfg.CRM.LocationID)
	assert.Equal(t, "https://services.leadconnectorhq.com", cfg.CRM.BaseURL)
	assert.Equal(t, "2021-07-28", cfg.CRM.APIVersion)
	assert.Equal(t, 15*time.Second, cfg.CRM.Timeout)
	assert.Equal(t, 10.0, cfg.CRM.RequestsPerSecond)
	assert.Equal(t, FieldModeID, cfg.CRM.FieldMode)
	assert.Equal(t, "risk_calculator_plan", cfg.Plan.Tag)
	assert.True(t, cfg.Plan.RefreshTag)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestAppLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("GHL_API_KEY", "  secret-token \n")
	t.Setenv("GHL_LOCATION_ID", " loc-1 ")
	t.Setenv("GHL_BASE_URL", "http://localhost:9999/")
	t.Setenv("GHL_TIMEOUT", "2500")
	t.Setenv("GHL_FIELD_MODE", "KEY")
	t.Setenv("PLAN_TAG_REFRESH", "false")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	cfg := AppLoad()

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "secret-token", cfg.CRM.APIKey)
	assert.Equal(t, "loc-1", cfg.CRM.LocationID)
	assert.Equal(t, "http://localhost:9999", cfg.CRM.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.CRM.Timeout)
	assert.Equal(t, FieldModeKey, cfg.CRM.FieldMode)
	assert.False(t, cfg.Plan.RefreshTag)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{"empty uses default", "", 15 * time.Second},
		{"milliseconds", "500", 500 * time.Millisecond},
		{"go duration", "3s", 3 * time.Second},
		{"garbage uses default", "soon", 15 * time.Second},
		{"negative uses default", "-1s", 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, getEnvDuration("TEST_DURATION", 15*time.Second))
		})
	}
}

func TestGetFieldModeFallsBackToID(t *testing.T) {
	t.Setenv("GHL_FIELD_MODE", "bogus")
	assert.Equal(t, FieldModeID, getFieldMode())
}
