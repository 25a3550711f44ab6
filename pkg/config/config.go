package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIURL is the Atlassian platform gateway used for OAuth 2.0 (3LO) apps
const DefaultAPIURL = "https://api.atlassian.com"

// Config represents the application configuration
type Config struct {
	// Atlassian gateway and session
	APIURL      string `env:"ATLASSIAN_API_URL" validate:"required,url" default:"https://api.atlassian.com"`
	AccessToken string `env:"JIRA_ACCESS_TOKEN"`
	UserName    string `env:"JIRA_USER_NAME" default:"User"`
	AccountID   string `env:"JIRA_ACCOUNT_ID"`

	// DemoMode serves the fixed demo dataset instead of calling Jira
	DemoMode bool `env:"DEMO_MODE" default:"false"`

	// DemoLatency makes the demo provider pause like a real Jira round trip
	DemoLatency bool `env:"DEMO_LATENCY" default:"true"`

	// Client behaviour
	SearchLimit        int           `env:"SEARCH_LIMIT" default:"200"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" default:"30s"`
	WorklogConcurrency int           `env:"WORKLOG_CONCURRENCY" default:"5"`

	// Rate limiting configuration
	RateLimitDelay         time.Duration `env:"RATE_LIMIT_DELAY" default:"100ms"`
	MaxConcurrentRequests  int           `env:"MAX_CONCURRENT_REQUESTS" default:"5"`
	ExponentialBackoffBase time.Duration `env:"EXPONENTIAL_BACKOFF_BASE" default:"1s"`
	MaxBackoffDelay        time.Duration `env:"MAX_BACKOFF_DELAY" default:"30s"`

	// Reports
	ReportDir string `env:"REPORT_DIR" default:"."`

	// API server
	APIHost string `env:"API_HOST" default:"0.0.0.0"`
	APIPort int    `env:"API_PORT" default:"8080"`

	// Application configuration
	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error" default:"info"`
	LogFormat string `env:"LOG_FORMAT" validate:"oneof=text json" default:"text"`
}

// Provider defines the interface for configuration management
// This enables dependency injection and easy testing
type Provider interface {
	Load() (*Config, error)
	Validate(*Config) error
	LoadFromEnv() (*Config, error)
}

// Loader implements the Provider interface
type Loader struct {
	envLoader EnvLoader

	// requireToken makes JIRA_ACCESS_TOKEN mandatory outside demo mode
	requireToken bool
}

// EnvLoader defines interface for environment variable loading
// This allows for testing with mock environment variables
type EnvLoader interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
}

// OSEnvLoader implements EnvLoader using os package
type OSEnvLoader struct{}

func (o *OSEnvLoader) Getenv(key string) string {
	return os.Getenv(key)
}

func (o *OSEnvLoader) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// NewLoader creates a new configuration loader
func NewLoader() Provider {
	return &Loader{
		envLoader:    &OSEnvLoader{},
		requireToken: true,
	}
}

// NewLoaderWithEnv creates a loader with custom environment loader (for testing)
func NewLoaderWithEnv(envLoader EnvLoader) Provider {
	return &Loader{
		envLoader:    envLoader,
		requireToken: true,
	}
}

// NewServerLoaderWithEnv creates a loader that does not require an access token.
// The API server takes the token from each inbound request instead.
func NewServerLoaderWithEnv(envLoader EnvLoader) Provider {
	return &Loader{envLoader: envLoader}
}

// Load loads configuration from environment variables
func (l *Loader) Load() (*Config, error) {
	return l.LoadFromEnv()
}

// LoadFromEnv loads configuration from environment variables
func (l *Loader) LoadFromEnv() (*Config, error) {
	config := &Config{}

	config.APIURL = strings.TrimSuffix(l.getEnvWithDefault("ATLASSIAN_API_URL", DefaultAPIURL), "/")
	config.AccessToken = l.envLoader.Getenv("JIRA_ACCESS_TOKEN")
	config.UserName = l.getEnvWithDefault("JIRA_USER_NAME", "User")
	config.AccountID = l.envLoader.Getenv("JIRA_ACCOUNT_ID")
	config.DemoMode = l.getBoolWithDefault("DEMO_MODE", false)
	config.DemoLatency = l.getBoolWithDefault("DEMO_LATENCY", true)

	config.SearchLimit = l.getIntWithDefault("SEARCH_LIMIT", 200)
	config.HTTPTimeout = l.getDurationWithDefault("HTTP_TIMEOUT", 30*time.Second)
	config.WorklogConcurrency = l.getIntWithDefault("WORKLOG_CONCURRENCY", 5)

	config.RateLimitDelay = l.getDurationWithDefault("RATE_LIMIT_DELAY", 100*time.Millisecond)
	config.MaxConcurrentRequests = l.getIntWithDefault("MAX_CONCURRENT_REQUESTS", 5)
	config.ExponentialBackoffBase = l.getDurationWithDefault("EXPONENTIAL_BACKOFF_BASE", 1*time.Second)
	config.MaxBackoffDelay = l.getDurationWithDefault("MAX_BACKOFF_DELAY", 30*time.Second)

	config.ReportDir = l.getEnvWithDefault("REPORT_DIR", ".")
	config.APIHost = l.getEnvWithDefault("API_HOST", "0.0.0.0")
	config.APIPort = l.getIntWithDefault("API_PORT", 8080)

	config.LogLevel = l.getEnvWithDefault("LOG_LEVEL", "info")
	config.LogFormat = l.getEnvWithDefault("LOG_FORMAT", "text")

	if err := l.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (l *Loader) Validate(config *Config) error {
	var errors []string

	if config.APIURL == "" {
		errors = append(errors, "ATLASSIAN_API_URL is required")
	} else if err := l.validateURL(config.APIURL); err != nil {
		errors = append(errors, fmt.Sprintf("ATLASSIAN_API_URL is invalid: %v", err))
	}

	if l.requireToken && !config.DemoMode && config.AccessToken == "" {
		errors = append(errors, "JIRA_ACCESS_TOKEN is required unless DEMO_MODE is enabled")
	}

	if config.SearchLimit < 1 {
		errors = append(errors, "SEARCH_LIMIT must be at least 1")
	}
	if config.HTTPTimeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if config.WorklogConcurrency < 1 {
		errors = append(errors, "WORKLOG_CONCURRENCY must be at least 1")
	}

	if config.RateLimitDelay < 0 {
		errors = append(errors, "RATE_LIMIT_DELAY must be non-negative")
	}
	if config.MaxConcurrentRequests < 1 {
		errors = append(errors, "MAX_CONCURRENT_REQUESTS must be at least 1")
	}
	if config.ExponentialBackoffBase < 0 {
		errors = append(errors, "EXPONENTIAL_BACKOFF_BASE must be non-negative")
	}
	if config.MaxBackoffDelay < 0 {
		errors = append(errors, "MAX_BACKOFF_DELAY must be non-negative")
	}
	if config.MaxBackoffDelay < config.ExponentialBackoffBase {
		errors = append(errors, "MAX_BACKOFF_DELAY must be greater than or equal to EXPONENTIAL_BACKOFF_BASE")
	}

	if config.APIPort < 1 || config.APIPort > 65535 {
		errors = append(errors, "API_PORT must be between 1 and 65535")
	}

	if err := l.validateLogLevel(config.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL is invalid: %v", err))
	}

	if err := l.validateLogFormat(config.LogFormat); err != nil {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT is invalid: %v", err))
	}

	if len(errors) > 0 {
		return &ValidationError{Errors: errors}
	}

	return nil
}

// ValidationError represents configuration validation errors
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Helper methods

func (l *Loader) getEnvWithDefault(key, defaultValue string) string {
	if value := l.envLoader.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (l *Loader) validateURL(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}

func (l *Loader) validateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(validLevels, ", "))
}

func (l *Loader) validateLogFormat(format string) error {
	validFormats := []string{"text", "json"}
	for _, valid := range validFormats {
		if format == valid {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(validFormats, ", "))
}

// getDurationWithDefault gets a duration from environment with fallback to default
func (l *Loader) getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := l.envLoader.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}

// getIntWithDefault gets an integer from environment with fallback to default
func (l *Loader) getIntWithDefault(key string, defaultValue int) int {
	valueStr := l.envLoader.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}

	return defaultValue
}

func (l *Loader) getBoolWithDefault(key string, defaultValue bool) bool {
	valueStr := l.envLoader.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}

	return defaultValue
}
