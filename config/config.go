package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/getzep/cioexport/internal"
)

const EnvPrefix = "CIOEXPORT"

const (
	DefaultInfoAPIURL     = "https://beta-api.customer.io"
	DefaultTrackAPIURL    = "https://track.customer.io"
	DefaultRequestTimeout = 10 * time.Second
	DefaultQueueTopic     = "customerio_batches"
)

// We're bootstrapping so avoid any imports from other packages
var log = logrus.New()

// defaultConfig fills any option left unset by the config file or ENV.
// Booleans always default to false.
var defaultConfig = Config{
	CustomerIO: CustomerIOConfig{
		InfoAPIURL:     DefaultInfoAPIURL,
		TrackAPIURL:    DefaultTrackAPIURL,
		RequestTimeout: DefaultRequestTimeout,
	},
	Server: ServerConfig{
		Port: 8000,
	},
	Queue: QueueConfig{
		Topic: DefaultQueueTopic,
	},
	Telemetry: TelemetryConfig{
		ServiceName: "cioexport",
	},
	Log: LogConfig{
		Level:  "info",
		Format: "text",
	},
}

// envKeys lists every config key so that it can be set from ENV alone,
// e.g. customerio.site_id -> CIOEXPORT_CUSTOMERIO_SITE_ID
var envKeys = []string{
	"customerio.site_id",
	"customerio.token",
	"customerio.info_api_url",
	"customerio.track_api_url",
	"customerio.request_timeout",
	"server.host",
	"server.port",
	"auth.secret",
	"auth.required",
	"queue.enabled",
	"queue.topic",
	"kafka.enabled",
	"kafka.brokers",
	"kafka.group_id",
	"kafka.topic",
	"telemetry.enabled",
	"telemetry.endpoint",
	"telemetry.insecure",
	"telemetry.service_name",
	"log.level",
	"log.format",
}

// LoadConfig loads the config file and ENV variables into a Config struct.
// When configFile is empty, ./config.yaml is read if it exists; the exporter
// can be configured from ENV alone.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		log.Debug("no config file found, using ENV and defaults")
	}

	// Environment variables take precedence over config file
	loadDotEnv()

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := mergo.Merge(&cfg, defaultConfig); err != nil {
		return nil, fmt.Errorf("error applying config defaults: %w", err)
	}

	cleanConfig(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config is invalid: %w", err)
	}

	return &cfg, nil
}

func cleanConfig(cfg *Config) {
	cfg.CustomerIO.SiteID = strings.TrimSpace(cfg.CustomerIO.SiteID)
	cfg.CustomerIO.Token = strings.TrimSpace(cfg.CustomerIO.Token)
	cfg.CustomerIO.InfoAPIURL = strings.TrimRight(cfg.CustomerIO.InfoAPIURL, "/")
	cfg.CustomerIO.TrackAPIURL = strings.TrimRight(cfg.CustomerIO.TrackAPIURL, "/")
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	// the Kafka source feeds the queue
	if cfg.Kafka.Enabled {
		cfg.Queue.Enabled = true
	}
}

// loadDotEnv loads environment variables from .env file
func loadDotEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Debug(".env file not found or unable to load")
	}
}

// SetLogLevel sets the log level and format based on the config. Defaults to
// INFO if not set or invalid
func SetLogLevel(cfg *Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	internal.SetLogLevel(level)
	internal.SetLogFormat(cfg.Log.Format)
	internal.GetLogger().Info("Log level set to: ", level)
}

// Redacted returns a copy of the config that is safe to print.
func (c Config) Redacted() Config {
	redact := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.CustomerIO.SiteID = redact(c.CustomerIO.SiteID)
	c.CustomerIO.Token = redact(c.CustomerIO.Token)
	c.Auth.Secret = redact(c.Auth.Secret)
	return c
}
