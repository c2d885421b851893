package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_PORT", "MAPPING_BACKEND", "KAFKA_BROKERS", "LMS_TIMEOUT", "DATA_DIR", "VERCEL", "AWS_LAMBDA_FUNCTION_NAME", "WEBHOOK_MODE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, BackendFile, cfg.MappingBackend)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "enrollment-events", cfg.KafkaEnrollmentTopic)
	assert.Equal(t, 30*time.Second, cfg.LMSTimeout)
	assert.Equal(t, WebhookModeInline, cfg.WebhookMode)
}

func TestDefaultDataDirOnServerless(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("VERCEL", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/data", cfg.DataDir)
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("TEST_GETENV_INT", "")
	assert.Equal(t, 42, getEnvAsInt("TEST_GETENV_INT", 42))

	t.Setenv("TEST_GETENV_INT", "100")
	assert.Equal(t, 100, getEnvAsInt("TEST_GETENV_INT", 42))

	t.Setenv("TEST_GETENV_INT", "not-an-int")
	assert.Equal(t, 42, getEnvAsInt("TEST_GETENV_INT", 42))
}

func TestGetEnvAsDuration(t *testing.T) {
	testCases := []struct {
		value    string
		expected time.Duration
	}{
		{"", 5 * time.Second},
		{"45s", 45 * time.Second},
		{"2m", 2 * time.Minute},
		{"12", 12 * time.Second},
		{"-3s", 5 * time.Second},
		{"soon", 5 * time.Second},
	}

	for _, tc := range testCases {
		t.Setenv("TEST_GETENV_DURATION", tc.value)
		assert.Equal(t, tc.expected, getEnvAsDuration("TEST_GETENV_DURATION", 5*time.Second), "value %q", tc.value)
	}
}
