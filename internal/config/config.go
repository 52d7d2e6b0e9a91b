// Package config provides configuration management for the audit engine.
// It defines configuration structures and default values for audit parameters.
package config

import (
	"time"
)

// AuditConfig holds audit engine configuration
type AuditConfig struct {
	// Request parameters
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"` // Timeout for the page fetch and robots.txt check
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`     // Timeout for each sampled link probe
	ProbeDelay     time.Duration `mapstructure:"probe_delay" yaml:"probe_delay"`         // Minimum delay between probes to the same host
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header

	// Heuristic parameters
	SampleSize    int           `mapstructure:"sample_size" yaml:"sample_size"`       // Max links probed per run (0 disables probing)
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"` // Response time above which a performance finding is raised

	// Database configuration
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"` // Path to SQLite database file

	// Logging configuration
	LogLevel string `mapstructure:"log_level" yaml:"log_level"` // Log level (debug, info, warn, error)
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`   // Optional log file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *AuditConfig {
	return &AuditConfig{
		RequestTimeout: 10 * time.Second,
		ProbeTimeout:   5 * time.Second,
		ProbeDelay:     100 * time.Millisecond,
		UserAgent:      "SiteAudit/1.0",
		SampleSize:     5,
		SlowThreshold:  2 * time.Second,
		DatabasePath:   "./siteaudit.db",
		LogLevel:       "info",
	}
}

// Validate checks if the configuration is valid
func (c *AuditConfig) Validate() error {
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}

	if c.SampleSize < 0 {
		return ErrInvalidSampleSize
	}

	// A non-positive threshold would flag every response as slow
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 2 * time.Second
	}

	// Enforce minimum delay so probe bursts stay polite
	if c.ProbeDelay < 50*time.Millisecond {
		c.ProbeDelay = 50 * time.Millisecond
	}

	if c.DatabasePath == "" {
		return ErrEmptyDatabasePath
	}

	return nil
}
