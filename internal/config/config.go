// Package config provides configuration types and loading for moltcourt.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration struct.
// Top-level groups: Database, Oracle, Gateway, Auth, Events, Archive, Notify, Log.
// Env keys are derived with split_words, e.g. MOLTCOURT_ORACLE_API_KEY.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Oracle   OracleConfig   `json:"oracle"`
	Gateway  GatewayConfig  `json:"gateway"`
	Auth     AuthConfig     `json:"auth"`
	Events   EventsConfig   `json:"events"`
	Archive  ArchiveConfig  `json:"archive"`
	Notify   NotifyConfig   `json:"notify"`
	Log      LogConfig      `json:"log"`
}

// ---------------------------------------------------------------------------
// Database – persistent arena state
// ---------------------------------------------------------------------------

// DatabaseConfig selects the storage dialect.
// Driver is "sqlite" (Path) or "postgres" (DSN).
type DatabaseConfig struct {
	Driver string `json:"driver" split_words:"true"`
	Path   string `json:"path" split_words:"true"`
	DSN    string `json:"dsn" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Oracle – the LLM jury
// ---------------------------------------------------------------------------

// OracleConfig configures the judging provider.
type OracleConfig struct {
	Provider      string        `json:"provider" split_words:"true"`
	Model         string        `json:"model" split_words:"true"`
	APIKey        string        `json:"apiKey" split_words:"true"`
	APIBase       string        `json:"apiBase" split_words:"true"`
	MaxTokens     int           `json:"maxTokens" split_words:"true"`
	Temperature   float64       `json:"temperature" split_words:"true"`
	Timeout       time.Duration `json:"timeout" split_words:"true"`
	MaxConcurrent int           `json:"maxConcurrent" split_words:"true"`
	JudgingLease  time.Duration `json:"judgingLease" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Gateway – HTTP API
// ---------------------------------------------------------------------------

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Host       string `json:"host" split_words:"true"`
	Port       int    `json:"port" split_words:"true"`
	CORSOrigin string `json:"corsOrigin" split_words:"true"`
}

// AuthConfig configures bearer token resolution.
type AuthConfig struct {
	CacheSize int `json:"cacheSize" split_words:"true"`
}

// ---------------------------------------------------------------------------
// Event sinks
// ---------------------------------------------------------------------------

// EventsConfig groups outbound event transports.
type EventsConfig struct {
	Kafka KafkaConfig `json:"kafka"`
}

// KafkaConfig configures the arena event topic.
type KafkaConfig struct {
	Enabled bool     `json:"enabled" split_words:"true"`
	Brokers []string `json:"brokers" split_words:"true"`
	Topic   string   `json:"topic" split_words:"true"`
}

// ArchiveConfig configures transcript archival to S3-compatible storage.
type ArchiveConfig struct {
	Enabled   bool   `json:"enabled" split_words:"true"`
	Endpoint  string `json:"endpoint" split_words:"true"`
	Region    string `json:"region" split_words:"true"`
	AccessKey string `json:"accessKey" split_words:"true"`
	SecretKey string `json:"secretKey" split_words:"true"`
	Bucket    string `json:"bucket" split_words:"true"`
	UseSSL    bool   `json:"useSSL" split_words:"true"`
}

// NotifyConfig groups human-facing notifiers.
type NotifyConfig struct {
	Slack SlackConfig `json:"slack"`
}

// SlackConfig configures the incoming-webhook notifier.
type SlackConfig struct {
	Enabled    bool   `json:"enabled" split_words:"true"`
	WebhookURL string `json:"webhookURL" split_words:"true"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" split_words:"true"`
	Format string `json:"format" split_words:"true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "~/.moltcourt/moltcourt.db",
		},
		Oracle: OracleConfig{
			Provider:      "anthropic",
			Model:         "claude-sonnet-4-20250514",
			MaxTokens:     1000,
			Temperature:   0,
			Timeout:       60 * time.Second,
			MaxConcurrent: 4,
			JudgingLease:  2 * time.Minute,
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1", // Secure default
			Port: 3000,
		},
		Auth: AuthConfig{
			CacheSize: 1024,
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{
				Topic: "moltcourt.events",
			},
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			Bucket: "moltcourt-transcripts",
			UseSSL: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Addr returns the gateway listen address.
func (g GatewayConfig) Addr() string {
	return net.JoinHostPort(g.Host, strconv.Itoa(g.Port))
}
