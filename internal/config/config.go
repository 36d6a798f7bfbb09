package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrConfiguration is matched by every configuration failure returned from this package.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports a required setting that is missing or invalid.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Key, e.Reason)
}

// Is lets callers match with errors.Is(err, ErrConfiguration).
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

const (
	ProtocolHTTP1 = "http1"
	ProtocolH2C   = "h2c"
)

// ProbeConfig holds the probe client's configuration values.
type ProbeConfig struct {
	ServerURL     string
	TickInterval  time.Duration
	MaxInFlight   int
	HTTPTimeout   time.Duration
	Protocol      string
	MetricsPort   string
	ShutdownGrace time.Duration
	LogFile       string
}

// EchoConfig holds the echo service's configuration values.
type EchoConfig struct {
	HTTPPort      string
	ShutdownGrace time.Duration
	LogFile       string
}

// LoadProbe loads the probe configuration from environment variables.
// SERVER_URL is required; an unset or blank value yields a *ConfigurationError.
func LoadProbe() (*ProbeConfig, error) {
	serverURL, ok := os.LookupEnv("SERVER_URL")
	if !ok || strings.TrimSpace(serverURL) == "" {
		return nil, &ConfigurationError{Key: "SERVER_URL", Reason: "is not set or its value is blank"}
	}

	cfg := &ProbeConfig{
		ServerURL:     serverURL,
		TickInterval:  getEnvDuration("TICK_INTERVAL", 100*time.Millisecond),
		MaxInFlight:   getEnvInt("MAX_IN_FLIGHT", 32),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 5*time.Second),
		Protocol:      strings.ToLower(getEnv("PROBE_PROTOCOL", ProtocolHTTP1)),
		MetricsPort:   getEnv("METRICS_PORT", ""),
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		LogFile:       getEnv("LOG_FILE", ""),
	}

	if cfg.TickInterval <= 0 {
		return nil, &ConfigurationError{Key: "TICK_INTERVAL", Reason: "must be positive"}
	}
	if cfg.MaxInFlight <= 0 {
		return nil, &ConfigurationError{Key: "MAX_IN_FLIGHT", Reason: "must be positive"}
	}
	if cfg.Protocol != ProtocolHTTP1 && cfg.Protocol != ProtocolH2C {
		return nil, &ConfigurationError{Key: "PROBE_PROTOCOL", Reason: "must be one of http1, h2c"}
	}
	return cfg, nil
}

// LoadEcho loads the echo service configuration with sane defaults.
func LoadEcho() *EchoConfig {
	return &EchoConfig{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 10*time.Second),
		LogFile:       getEnv("LOG_FILE", ""),
	}
}

// Helper function to get an environment variable or return a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get an environment variable as an integer.
func getEnvInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

// Helper function to get an environment variable as a time.Duration.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return fallback
}
