package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mediascrape/msl/internal/config"
	"github.com/mediascrape/msl/internal/database"
	"github.com/mediascrape/msl/internal/engine"
	"github.com/mediascrape/msl/internal/fetch"
	"github.com/mediascrape/msl/internal/log"
	"github.com/mediascrape/msl/internal/report"
	"github.com/mediascrape/msl/internal/script"
	"github.com/mediascrape/msl/internal/storage"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a media scraping script",
		Long: `Run parses and executes a media scraping script.

The script opens pages, follows links matching CSS selectors, and
saves matching media files. Each click fans out concurrently; branch
failures are reported in the run summary without aborting the run.

Examples:
  # Execute a script
  msl run gallery.msl

  # Limit fan-out and space out requests
  msl run --concurrency 2 --delay 500ms gallery.msl

  # Output a JSON run summary to a file
  msl run --json --output summary.json gallery.msl

  # Use per-site cookies and headers from a config file
  msl run -c .msl.yaml gallery.msl

Configuration file (.msl.yaml) example:
  sites:
    gallery.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	// Execution flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Maximum concurrent branches per click fan-out")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"HTTP timeout for each request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum interval between request starts")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header for all requests")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .msl.yaml in current or XDG config directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON run summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown run summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write run summary to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Cancel the run on interrupt so partial results still get reported
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScript(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ScriptPath = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.Concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Delay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load site-specific configurations from config file.
	// An explicitly specified file must exist; otherwise a missing
	// file just means empty site config.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Sites, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Sites = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if !noHistory {
		cfg.DBDir = config.XDGDataDir()
	}

	return cfg, nil
}

// runScript parses the script, executes it, and reports the outcome.
func runScript(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	src, err := os.ReadFile(cfg.ScriptPath) //nolint:gosec // User-provided script path is intentional
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	s, err := script.Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.ScriptPath, err)
	}

	runID := uuid.NewString()
	logger.Info("starting run",
		"runID", runID,
		"script", cfg.ScriptPath,
		"concurrency", cfg.Concurrency,
		"delay", cfg.Delay,
	)

	// Open history database before crawling so a bad DB dir fails fast
	var db *database.HistoryDB
	if cfg.DBDir != "" {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		logger.Debug("history database opened", "dir", cfg.DBDir)
	}

	eng := engine.New(
		newFetcher(cfg, logger),
		newStorage(cfg, logger),
		engine.WithLogger(logger),
		engine.WithConcurrency(cfg.Concurrency),
	)

	fmt.Printf("Running %s...\n", cfg.ScriptPath)

	summary, err := eng.Execute(ctx, s)
	if err != nil {
		// Even a cancelled run produced a partial summary worth showing
		if reportErr := outputSummary(cfg, runID, summary); reportErr != nil {
			logger.Error("report failed", "error", reportErr)
		}
		return fmt.Errorf("run interrupted: %w", err)
	}

	if err := outputSummary(cfg, runID, summary); err != nil {
		logger.Error("report failed", "error", err)
	}

	if err := recordRun(ctx, db, runID, cfg.ScriptPath, summary, logger); err != nil {
		logger.Error("failed to record run history", "error", err)
	}

	return nil
}

// newFetcher builds the HTTP fetcher from the run configuration.
func newFetcher(cfg *config.Config, logger *slog.Logger) *fetch.Client {
	opts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithDelay(cfg.Delay),
		fetch.WithLogger(logger),
	}

	if cfg.Sites != nil {
		for host := range cfg.Sites.Sites {
			headers := cfg.Sites.SiteConfigFor(host).RequestHeaders()
			opts = append(opts, fetch.WithSiteHeaders(host, headers))
		}
	}

	return fetch.NewClient(opts...)
}

// newStorage builds the media store from the run configuration.
func newStorage(cfg *config.Config, logger *slog.Logger) *storage.DiskStore {
	return storage.NewDiskStore(
		storage.WithHTTPClient(&http.Client{Timeout: 2 * cfg.Timeout}),
		storage.WithMaxSize(cfg.MediaMaxSize),
		storage.WithLogger(logger),
	)
}

// outputSummary writes the run summary in the requested format. JSON
// output carries the run metadata (version, run ID, script path) so a
// stored report stays attributable to its run.
func outputSummary(cfg *config.Config, runID string, summary *engine.Summary) error {
	if summary == nil {
		return nil
	}

	var output *os.File
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	} else {
		output = os.Stdout
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), runID, cfg.ScriptPath, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	// When a machine-readable report goes to a file, the operator still
	// gets a readable summary on stdout.
	if cfg.ReportFile != "" && (cfg.JSONReport || cfg.MarkdownReport) {
		writer = report.NewMultiWriter(writer,
			report.NewSimpleWriter(os.Stdout, report.WithVerbose(cfg.Verbose)))
	}

	_, err := writer.Write(summary)
	return err
}

// recordRun saves the run outcome to the history database.
// If db is nil, this function is a no-op.
func recordRun(ctx context.Context, db *database.HistoryDB, runID, scriptPath string, summary *engine.Summary, logger *slog.Logger) error {
	if db == nil || summary == nil {
		return nil
	}

	run := &database.Run{
		ID:             runID,
		ScriptPath:     scriptPath,
		Started:        summary.Started,
		Finished:       summary.Finished,
		PagesFetched:   summary.PagesFetched,
		BranchesTotal:  len(summary.Branches),
		BranchesFailed: len(summary.Failed()),
		SavesTotal:     len(summary.Saves),
	}

	saves := make([]database.SavedFile, 0, len(summary.Saves))
	for _, s := range summary.Saves {
		saves = append(saves, database.SavedFile{
			RunID:     runID,
			SourceURL: s.SourceURL,
			DestPath:  s.DestPath,
		})
	}

	if err := db.InsertRun(ctx, run, saves); err != nil {
		return err
	}

	logger.Debug("run recorded", "runID", runID, "saves", len(saves))
	return nil
}
