package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auctionops/hibid-crawler/internal/database"
)

// newItemsCmd creates the 'items' subcommand, which lists recently scraped
// items from storage.
func newItemsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Shows recently scraped auction items",
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

			items, err := store.RecentItems(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := store.CountItems(cmd.Context())
			if err != nil {
				return err
			}

			if len(items) == 0 {
				fmt.Println("No items stored yet.")
				return nil
			}

			fmt.Printf("%-24s %-24s %-7s %s\n", "ITEM ID", "CATEGORY", "ZIP", "SCRAPED")
			for _, item := range items {
				category := item.Category
				if category == "" {
					category = "all"
				}
				fmt.Printf("%-24s %-24s %-7s %s\n",
					item.ItemID,
					category,
					item.ZipCode,
					item.ScrapedAt.Format("2006-01-02 15:04:05"),
				)
			}
			fmt.Printf("\n%d shown of %d stored.\n", len(items), total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of items to show")
	return cmd
}
