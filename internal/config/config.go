package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultInitialDelay is the delay before the first generation job run.
const DefaultInitialDelay = 1000 * time.Millisecond

// Scheduling modes accepted by ProductConfig.Mode.
const (
	ModeFixedRate  = "fixed-rate"
	ModeFixedDelay = "fixed-delay"
)

// Saturation policies accepted by AsyncConfig.SaturationPolicy.
const (
	PolicyBlock  = "block"
	PolicyReject = "reject"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Product  ProductConfig
	Async    AsyncConfig
	Shutdown ShutdownConfig
	Metrics  MetricsConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// ProductConfig holds the product feature and its generation job.
type ProductConfig struct {
	// Enabled gates the repository, the async writer and the generation job.
	Enabled bool

	// GenerateInterval is the interval between job triggers.
	GenerateInterval time.Duration
	InitialDelay     time.Duration
	Mode             string

	// LongRunningMin and LongRunningMax bound the simulated slow call, both inclusive.
	LongRunningMin time.Duration
	LongRunningMax time.Duration
}

// AsyncConfig holds the worker pool used for asynchronous product writes.
type AsyncConfig struct {
	PoolSize         int
	QueueCapacity    int
	SaturationPolicy string
	DrainTimeout     time.Duration
}

// ShutdownConfig holds graceful shutdown configuration.
type ShutdownConfig struct {
	Timeout time.Duration
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Product: ProductConfig{
			Enabled:          getEnvAsBool("SERVICE_PRODUCT_ENABLED", true),
			GenerateInterval: getEnvAsMillis("SERVICE_GENERATE_JOB_TS", 10000),
			InitialDelay:     DefaultInitialDelay,
			Mode:             getEnv("SERVICE_GENERATE_JOB_MODE", ModeFixedRate),
			LongRunningMin:   time.Duration(getEnvAsInt("LONG_RUNNING_MIN_SECONDS", 1)) * time.Second,
			LongRunningMax:   time.Duration(getEnvAsInt("LONG_RUNNING_MAX_SECONDS", 19)) * time.Second,
		},
		Async: AsyncConfig{
			PoolSize:         getEnvAsInt("ASYNC_POOL_SIZE", 2),
			QueueCapacity:    getEnvAsInt("ASYNC_QUEUE_CAPACITY", 500),
			SaturationPolicy: getEnv("ASYNC_SATURATION_POLICY", PolicyBlock),
			DrainTimeout:     getEnvAsMillis("ASYNC_DRAIN_TIMEOUT_MS", 5000),
		},
		Shutdown: ShutdownConfig{
			Timeout: time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Shutdown.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	// Nothing below is constructed when the product feature is off.
	if !c.Product.Enabled {
		return nil
	}

	if c.Product.GenerateInterval <= 0 {
		return fmt.Errorf("generate job interval must be positive")
	}

	if c.Product.InitialDelay < 0 {
		return fmt.Errorf("generate job initial delay cannot be negative")
	}

	if c.Product.Mode != ModeFixedRate && c.Product.Mode != ModeFixedDelay {
		return fmt.Errorf("invalid generate job mode: %s (must be %s or %s)", c.Product.Mode, ModeFixedRate, ModeFixedDelay)
	}

	if c.Product.LongRunningMin < 0 {
		return fmt.Errorf("long-running minimum cannot be negative")
	}

	if c.Product.LongRunningMin > c.Product.LongRunningMax {
		return fmt.Errorf("long-running minimum cannot exceed maximum")
	}

	if c.Async.PoolSize < 1 {
		return fmt.Errorf("async pool size must be at least 1")
	}

	if c.Async.QueueCapacity < 1 {
		return fmt.Errorf("async queue capacity must be at least 1")
	}

	if c.Async.SaturationPolicy != PolicyBlock && c.Async.SaturationPolicy != PolicyReject {
		return fmt.Errorf("invalid async saturation policy: %s (must be %s or %s)", c.Async.SaturationPolicy, PolicyBlock, PolicyReject)
	}

	if c.Async.DrainTimeout < 0 {
		return fmt.Errorf("async drain timeout cannot be negative")
	}

	return nil
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsMillis retrieves an environment variable holding milliseconds as a duration.
func getEnvAsMillis(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMillis)) * time.Millisecond
}
