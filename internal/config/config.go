package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Artifex configuration
type Config struct {
	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Debug/introspection HTTP server
	DebugServer DebugServerConfig `json:"debug_server" mapstructure:"debug_server"`

	// Periodic stats reporter
	Reporter ReporterConfig `json:"reporter" mapstructure:"reporter"`

	// Pipeline dispatch settings
	Pipeline PipelineConfig `json:"pipeline" mapstructure:"pipeline"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DebugServerConfig holds the introspection server configuration
type DebugServerConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
}

// ReporterConfig holds the periodic stats reporter configuration
type ReporterConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // cron expression or @every syntax
}

// PipelineConfig holds pipeline dispatch settings
type PipelineConfig struct {
	// MaxInFlight caps concurrently dispatched actions per batch; 0 means unlimited.
	MaxInFlight int `json:"max_in_flight" mapstructure:"max_in_flight"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		DebugServer: DebugServerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    7630,
		},
		Reporter: ReporterConfig{
			Enabled:  true,
			Schedule: "@every 1m",
		},
		Pipeline: PipelineConfig{
			MaxInFlight: 0,
		},
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	if c.DebugServer.Enabled {
		if c.DebugServer.Port <= 0 || c.DebugServer.Port > 65535 {
			return fmt.Errorf("invalid debug server port %d", c.DebugServer.Port)
		}
	}

	if c.Reporter.Enabled && c.Reporter.Schedule == "" {
		return fmt.Errorf("reporter schedule cannot be empty when reporter is enabled")
	}

	if c.Pipeline.MaxInFlight < 0 {
		return fmt.Errorf("pipeline max_in_flight cannot be negative")
	}

	return nil
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config marshal error: %v", err)
	}
	return string(data)
}
