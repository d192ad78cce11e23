// Package commands implements the kyresults subcommands.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kyrealign/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "kyresults",
	Short:         "kyresults builds per-county Kentucky statewide election results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text or json); overrides the config file")
}

// ExecuteContext runs the root command and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// newLogger builds a logger from flags, falling back to the given defaults.
func newLogger(level, format string) *logger.Logger {
	if logLevel != "" {
		level = logLevel
	}

	if logFormat != "" {
		format = logFormat
	}

	return logger.New(logger.Options{Level: level, Format: format})
}
