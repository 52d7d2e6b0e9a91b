package config

import "errors"

var (
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0")
	// ErrInvalidProbeTimeout is returned when probe timeout is not greater than 0
	ErrInvalidProbeTimeout = errors.New("probe_timeout must be greater than 0")
	// ErrInvalidSampleSize is returned when sample size is negative
	ErrInvalidSampleSize = errors.New("sample_size cannot be negative")
	// ErrEmptyDatabasePath is returned when database path is empty
	ErrEmptyDatabasePath = errors.New("database_path cannot be empty")
)
