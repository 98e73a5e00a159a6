package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// GatewayConfig is the root configuration for the gateway binary.
	GatewayConfig struct {
		Server   ServerConfig   `yaml:"server"`
		Logger   LoggerConfig   `yaml:"logger"`
		Storage  StorageConfig  `yaml:"storage"`
		Session  SessionConfig  `yaml:"session"`
		Provider ProviderConfig `yaml:"provider"`
		Webhook  WebhookConfig  `yaml:"webhook"`
		Push     PushConfig     `yaml:"push"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// ServerConfig represents the HTTP control surface configuration.
	ServerConfig struct {
		Addr            string        `yaml:"addr"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// StorageConfig represents the durable session store configuration.
	StorageConfig struct {
		RootDir string `yaml:"root_dir"`
	}

	// SessionConfig holds the lifecycle policy knobs applied to every session.
	SessionConfig struct {
		MaxRetries     int           `yaml:"max_retries"`     // connect attempts before giving up
		RetryDelay     time.Duration `yaml:"retry_delay"`     // delay between reconnect attempts
		PairingTimeout time.Duration `yaml:"pairing_timeout"` // how long a pairing code may stay unscanned
		FlushInterval  time.Duration `yaml:"flush_interval"`  // mirror snapshot flush cadence
		AlwaysRetry    []string      `yaml:"always_retry"`    // session ids exempt from the retry budget
	}

	// ProviderConfig selects the connection transport.
	ProviderConfig struct {
		Type         string        `yaml:"type"`          // loopback is the only built-in
		PairingDelay time.Duration `yaml:"pairing_delay"` // loopback self-pairing delay
	}

	// WebhookConfig represents the inbound-message webhook sink.
	WebhookConfig struct {
		URL     string        `yaml:"url"`
		Origin  string        `yaml:"origin"`
		Timeout time.Duration `yaml:"timeout"`
	}

	// PushConfig represents the websocket push channel.
	PushConfig struct {
		QueueSize int `yaml:"queue_size"`
	}

	// MetricsConfig represents the Prometheus exposition settings.
	MetricsConfig struct {
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*GatewayConfig, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg GatewayConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	return &cfg, nil
}

// SetDefaults fills in unset values with the stock deployment policy.
func (c *GatewayConfig) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":4001"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.RootDir == "" {
		c.Storage.RootDir = "whatsapp-sessions"
	}
	if c.Session.MaxRetries <= 0 {
		c.Session.MaxRetries = 2
	}
	if c.Session.RetryDelay <= 0 {
		c.Session.RetryDelay = 5 * time.Second
	}
	if c.Session.PairingTimeout <= 0 {
		c.Session.PairingTimeout = 2 * time.Minute
	}
	if c.Session.FlushInterval <= 0 {
		c.Session.FlushInterval = 10 * time.Second
	}
	if c.Webhook.Origin == "" {
		c.Webhook.Origin = "zaploop"
	}
	if c.Webhook.Timeout <= 0 {
		c.Webhook.Timeout = 10 * time.Second
	}
	if c.Push.QueueSize <= 0 {
		c.Push.QueueSize = 100
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "zaploop"
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "loopback"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
