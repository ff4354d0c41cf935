package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediascrape/msl/internal/script"
)

// NewParseCmd creates the parse command.
func NewParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <script>",
		Short: "Validate a script without executing it",
		Long: `Parse reads a media scraping script, checks its syntax, and prints
an outline of what it would do. No network requests are made.

Syntax errors are reported with line and column numbers:

  gallery.msl: syntax error at 4:9: expected string, got identifier "items"`,
		Args: cobra.ExactArgs(1),
		RunE: runParseCmd,
	}
}

// runParseCmd executes the parse command.
func runParseCmd(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]

	src, err := os.ReadFile(scriptPath) //nolint:gosec // User-provided script path is intentional
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	s, err := script.Parse(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", scriptPath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: syntax OK\n\n", scriptPath)
	for _, line := range s.Summary() {
		fmt.Fprintln(out, line)
	}

	return nil
}
