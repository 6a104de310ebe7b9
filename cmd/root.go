// Package cmd defines the CLI commands for the hibid-crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/auctionops/hibid-crawler/internal/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hibid-crawler",
		Short: "Scrapes HiBid auction listings into a local database.",
		Long: `hibid-crawler ingests open auction lots from HiBid for a zip code and
search radius. Raw lot payloads, with their auction and lot-state records
inlined, are upserted into SQLite (default) or PostgreSQL. Designed to run
on demand and slot into orchestration systems.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml when present)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newRunsCmd())
	cmd.AddCommand(newItemsCmd())
	return cmd
}

// loadConfig reads configuration from the --config file, a ./config.yaml if
// one exists, or environment variables alone.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
