package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These are deliberately conservative:
// a crawl script can touch many pages, and the defaults should not
// surprise either the operator or the sites being crawled.
const (
	// DefaultConcurrency bounds concurrent child branches per click
	// fan-out. Eight keeps large link lists moving without opening an
	// unbounded number of simultaneous connections.
	DefaultConcurrency = 8

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultDelay is the minimum interval between request starts.
	// Zero means no spacing; scripts that crawl shared infrastructure
	// should set one.
	DefaultDelay = 0 * time.Second

	// DefaultMaxBodySize limits page bodies to 10MB. HTML pages
	// rarely approach this; the limit protects against accidentally
	// streaming large binaries through the HTML parser.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// DefaultMediaMaxSize limits individual saved media files.
	DefaultMediaMaxSize = 100 * 1024 * 1024

	// DefaultUserAgent identifies msl in HTTP requests so operators
	// can recognize scripted traffic in their logs.
	DefaultUserAgent = "msl/1.0 (+https://github.com/mediascrape/msl)"

	// AppName is the application name used for XDG directory paths.
	AppName = "msl"
)

// Config holds all run options. It is populated from CLI flags and the
// optional YAML config file, then passed by dependency injection; there
// is no global configuration state.
type Config struct {
	// ScriptPath is the crawl script to execute.
	ScriptPath string

	// Concurrency bounds concurrent child branches per click fan-out.
	Concurrency int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Delay is the minimum interval between request starts.
	Delay time.Duration

	// UserAgent is sent with every page and media request.
	UserAgent string

	// MaxBodySize limits how many bytes of a page body are read.
	MaxBodySize int64

	// MediaMaxSize limits individual saved media files, in bytes.
	MediaMaxSize int64

	// Verbose enables slog.LevelDebug output.
	Verbose bool

	// ConfigFilePath is the YAML config file path. Empty means search
	// the standard locations (see FindConfigFile).
	ConfigFilePath string

	// Sites holds per-site settings loaded from the config file.
	Sites *File

	// JSONReport selects JSON run-summary output.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown run-summary output.
	MarkdownReport bool

	// ReportFile, when set, writes the run summary to this path
	// instead of stdout.
	ReportFile string

	// DBDir is the directory holding the run-history database.
	// Empty disables history recording.
	DBDir string
}

// NewConfig returns a Config with all defaults applied. Many defaults
// are non-zero, so relying on zero values would be wrong; this
// constructor also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		Concurrency:  DefaultConcurrency,
		Timeout:      DefaultTimeout,
		Delay:        DefaultDelay,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  DefaultMaxBodySize,
		MediaMaxSize: DefaultMediaMaxSize,
	}
}

// XDGDataDir returns the XDG data directory for msl, the default home
// of the run-history database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for msl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration, returning the first problem found
// as one of the package's sentinel errors. It runs once after flag
// parsing, before any execution begins.
func (c *Config) Validate() error {
	if c.ScriptPath == "" {
		return ErrNoScript
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.MaxBodySize < 0 || c.MediaMaxSize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
