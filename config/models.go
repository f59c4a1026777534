package config

import "time"

// Config holds the configuration of the exporter
// Use LoadConfig to create a new instance
type Config struct {
	CustomerIO CustomerIOConfig `mapstructure:"customerio" yaml:"customerio"`
	Server     ServerConfig     `mapstructure:"server"     yaml:"server"`
	Auth       AuthConfig       `mapstructure:"auth"       yaml:"auth"`
	Queue      QueueConfig      `mapstructure:"queue"      yaml:"queue"`
	Kafka      KafkaConfig      `mapstructure:"kafka"      yaml:"kafka"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"  yaml:"telemetry"`
	Log        LogConfig        `mapstructure:"log"        yaml:"log"`
}

type CustomerIOConfig struct {
	// SiteID and Token are loaded from ENV, not the config file.
	SiteID         string        `mapstructure:"site_id"         yaml:"site_id"         validate:"required"`
	Token          string        `mapstructure:"token"           yaml:"token"           validate:"required"`
	InfoAPIURL     string        `mapstructure:"info_api_url"    yaml:"info_api_url"    validate:"required,url"`
	TrackAPIURL    string        `mapstructure:"track_api_url"   yaml:"track_api_url"   validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port" validate:"min=1,max=65535"`
}

type AuthConfig struct {
	Secret   string `mapstructure:"secret"   yaml:"secret"   validate:"required_if=Required true"`
	Required bool   `mapstructure:"required" yaml:"required"`
}

// QueueConfig controls the in-process batch queue. The Kafka source
// publishes onto it, so enabling Kafka implies the queue.
type QueueConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Topic   string `mapstructure:"topic"   yaml:"topic"   validate:"required"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"  yaml:"enabled"`
	Brokers []string `mapstructure:"brokers"  yaml:"brokers"  validate:"required_if=Enabled true"`
	GroupID string   `mapstructure:"group_id" yaml:"group_id" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic"    yaml:"topic"    validate:"required_if=Enabled true"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     yaml:"endpoint"     validate:"required_if=Enabled true"`
	Insecure    bool   `mapstructure:"insecure"     yaml:"insecure"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}
