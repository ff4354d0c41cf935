package config

import "errors"

// Configuration validation errors, returned by Config.Validate().
// Package-level sentinels let callers branch with errors.Is while the
// messages stay useful to humans.
var (
	// ErrNoScript is returned when no script path was provided.
	ErrNoScript = errors.New("no script specified: provide a script file path")

	// ErrInvalidConcurrency is returned when the concurrency bound is
	// not positive. Zero would mean no branches ever execute.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not
	// positive. A zero timeout would fail every fetch immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the request delay is negative.
	// Use 0 for no spacing between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when a body size limit is
	// negative. Use 0 to apply the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
