package querycore

import "time"

// Config consolidates the tunable knobs of the execution core: the
// embedded engine's resource policy, logging, and metrics, in the
// teacher's nested-struct-plus-DefaultConfig-plus-Validate style.
type Config struct {
	Execution ExecutionConfig `json:"execution"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// ExecutionConfig holds the execution resource settings. Apart from
// Validate, nothing in QueryExecutor reads these fields, and they are not
// passed to the Engine.
type ExecutionConfig struct {
	BatchSize       int           `json:"batchSize"`
	Concurrency     int           `json:"concurrency"`
	ScanBatchSize   int64         `json:"scanBatchSize"`
	PartitionTimeout time.Duration `json:"partitionTimeout"`
}

// LoggingConfig controls structured logging and slow/error query
// diagnostics.
type LoggingConfig struct {
	Level              string        `json:"level"`
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold"`
	TracePhysicalPlans bool          `json:"tracePhysicalPlans"`
}

// MetricsConfig controls whether the facade emits row/latency metrics.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns the configuration the original engine's
// ExecutionContext::with_config(...) call hard-codes: batch size 4096,
// concurrency 1.
func DefaultConfig() *Config {
	return &Config{
		Execution: ExecutionConfig{
			BatchSize:        4096,
			Concurrency:      1,
			ScanBatchSize:    4096,
			PartitionTimeout: 0,
		},
		Logging: LoggingConfig{
			Level:              "info",
			SlowQueryThreshold: 200 * time.Millisecond,
			TracePhysicalPlans: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Execution.BatchSize <= 0 {
		return &ConfigError{Field: "execution.batchSize", Message: "must be greater than 0"}
	}
	if c.Execution.Concurrency <= 0 {
		return &ConfigError{Field: "execution.concurrency", Message: "must be greater than 0"}
	}
	if c.Execution.ScanBatchSize <= 0 {
		return &ConfigError{Field: "execution.scanBatchSize", Message: "must be greater than 0"}
	}
	if c.Logging.SlowQueryThreshold < 0 {
		return &ConfigError{Field: "logging.slowQueryThreshold", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
