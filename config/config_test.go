package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("CIOEXPORT_CUSTOMERIO_SITE_ID", "site-123")
	t.Setenv("CIOEXPORT_CUSTOMERIO_TOKEN", "token-456")
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigFromEnvOnly(t *testing.T) {
	setSecrets(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "site-123", cfg.CustomerIO.SiteID)
	assert.Equal(t, "token-456", cfg.CustomerIO.Token)
	assert.Equal(t, DefaultInfoAPIURL, cfg.CustomerIO.InfoAPIURL)
	assert.Equal(t, DefaultTrackAPIURL, cfg.CustomerIO.TrackAPIURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.CustomerIO.RequestTimeout)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DefaultQueueTopic, cfg.Queue.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	setSecrets(t)
	path := writeConfigFile(t, `
customerio:
  info_api_url: http://localhost:9999/
  request_timeout: 3s
server:
  port: 9000
log:
  level: DEBUG
  format: json
`)
	t.Setenv("CIOEXPORT_SERVER_PORT", "9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.CustomerIO.InfoAPIURL)
	assert.Equal(t, DefaultTrackAPIURL, cfg.CustomerIO.TrackAPIURL)
	assert.Equal(t, 3*time.Second, cfg.CustomerIO.RequestTimeout)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing secrets", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "SiteID")
	})

	t.Run("explicit file missing", func(t *testing.T) {
		setSecrets(t)
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("kafka enabled without brokers", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("CIOEXPORT_KAFKA_ENABLED", "true")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "Brokers")
	})

	t.Run("auth required without secret", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("CIOEXPORT_AUTH_REQUIRED", "true")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "Secret")
	})
}

func TestKafkaEnablesQueue(t *testing.T) {
	setSecrets(t)
	t.Setenv("CIOEXPORT_KAFKA_ENABLED", "true")
	t.Setenv("CIOEXPORT_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CIOEXPORT_KAFKA_GROUP_ID", "cioexport")
	t.Setenv("CIOEXPORT_KAFKA_TOPIC", "events")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.True(t, cfg.Queue.Enabled)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestRedacted(t *testing.T) {
	cfg := Config{
		CustomerIO: CustomerIOConfig{SiteID: "site", Token: "token"},
		Auth:       AuthConfig{Secret: ""},
	}

	redacted := cfg.Redacted()

	assert.Equal(t, "********", redacted.CustomerIO.SiteID)
	assert.Equal(t, "********", redacted.CustomerIO.Token)
	assert.Empty(t, redacted.Auth.Secret)
	assert.Equal(t, "site", cfg.CustomerIO.SiteID)
}
