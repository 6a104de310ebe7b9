package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auctionops/hibid-crawler/internal/database"
)

// newRunsCmd creates the 'runs' subcommand, which prints recent scrape-run
// history from storage.
func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Shows recent scrape run history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DB.DSN == "" {
				return fmt.Errorf("db.dsn is required")
			}

			store, err := database.Open(cmd.Context(), cfg.DB.DSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close() //nolint:errcheck // closing on exit

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No scrape runs recorded yet.")
				return nil
			}

			fmt.Printf("%-38s %-21s %-12s %-7s %7s %7s %8s %7s\n",
				"RUN ID", "STARTED", "STATUS", "ZIP", "FOUND", "ADDED", "UPDATED", "ERRORS")
			for _, run := range runs {
				fmt.Printf("%-38s %-21s %-12s %-7s %7d %7d %8d %7d\n",
					run.ID,
					run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Status,
					run.ZipCode,
					run.ItemsFound,
					run.ItemsAdded,
					run.ItemsUpdated,
					run.Errors,
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}
