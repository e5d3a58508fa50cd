package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Store backends.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Events    EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// CORSOrigins lists the allowed browser origins. Empty allows any.
	CORSOrigins []string `yaml:"cors_origins"`
	// StaticDir, when set, is served at / with index.html fallback.
	StaticDir string `yaml:"static_dir"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.CORSOrigins, validation.Each(validation.Required)),
	)
}

// StoreConfig selects and configures the note store.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	// Path is the JSON file used by the file backend.
	Path string `yaml:"path"`
	// SerializeWrites runs mutations one at a time within this process.
	SerializeWrites bool     `yaml:"serialize_writes"`
	S3              S3Config `yaml:"s3"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFile, BackendS3)),
		validation.Field(&c.Path, validation.When(c.Backend == BackendFile, validation.Required)),
	); err != nil {
		return err
	}
	if c.Backend == BackendS3 {
		return c.S3.Validate()
	}
	return nil
}

// S3Config holds the object location and credentials of the S3 backend.
// Empty credentials fall back to the default AWS credential chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Key             string `yaml:"key"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.Region, validation.Required),
		validation.Field(&c.SecretAccessKey, validation.When(c.AccessKeyID != "", validation.Required)),
	)
}

// RateLimitConfig configures the per-client token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Enabled reports whether requests are rate limited.
func (c *RateLimitConfig) Enabled() bool {
	return c.RPS > 0
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RPS, validation.Min(0.0)),
		validation.Field(&c.Burst, validation.When(c.RPS > 0, validation.Required, validation.Min(1))),
	)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// EventsConfig configures the SSE broker.
type EventsConfig struct {
	// Throttle is the minimum interval between notes.changed events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if c.Throttle < 0 {
		return fmt.Errorf("events: throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5000,
			},
		},
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    "./data/notes.json",
			S3: S3Config{
				Key:    "notes.json",
				Region: "us-east-1",
			},
		},
		RateLimit: RateLimitConfig{
			Burst: 20,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
