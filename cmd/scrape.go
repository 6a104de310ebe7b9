package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auctionops/hibid-crawler/internal/config"
	"github.com/auctionops/hibid-crawler/internal/database"
	"github.com/auctionops/hibid-crawler/internal/logging"
	"github.com/auctionops/hibid-crawler/internal/middleware"
	"github.com/auctionops/hibid-crawler/internal/scraper"
)

type scrapeFlags struct {
	zip        string
	radius     int
	test       bool
	limit      int
	categories string
	db         string
}

// newScrapeCmd creates the 'scrape' subcommand, which runs one full crawl
// session and records it as a scrape run.
func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs a scrape session for the configured search",
		Long: `Fetches open lots page by page for each configured category, resolves
the embedded auction references and upserts every item into storage.
Interrupting with Ctrl-C records the run as interrupted and keeps all
items persisted so far.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.zip, "zip", "", "override zip code")
	cmd.Flags().IntVar(&flags.radius, "radius", 0, "override search radius in miles")
	cmd.Flags().BoolVar(&flags.test, "test", false, "test mode: stop after a small number of items")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "item cap in test mode")
	cmd.Flags().StringVar(&flags.categories, "categories", "", "comma-separated category list")
	cmd.Flags().StringVar(&flags.db, "db", "", "override database DSN")

	return cmd
}

func runScrape(cmd *cobra.Command, flags scrapeFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScrapeFlags(&cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close() //nolint:errcheck // closing on exit

	metrics := scraper.NewMetrics()
	if cfg.Metrics.ListenAddr != "" {
		srv := startMetricsServer(cfg.Metrics.ListenAddr, metrics, logger)
		defer srv.Shutdown(context.Background()) //nolint:errcheck // shutdown on exit
	}

	engineCfg := cfg.EngineConfig()
	fetcher := scraper.NewCollyFetcher(engineCfg, logger, metrics)
	driver := scraper.NewDriver(engineCfg, fetcher, logger, metrics)

	logger.Info("starting scrape",
		zap.String("zip", cfg.Search.ZipCode),
		zap.Int("radius_miles", cfg.Search.RadiusMiles),
		zap.Bool("test_mode", cfg.Search.TestMode),
		zap.Strings("categories", cfg.Search.Categories),
	)

	runID, err := store.StartRun(ctx, cfg.Search.ZipCode, cfg.Search.RadiusMiles, cfg.Search.TestMode)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	start := time.Now()
	var itemsAdded, itemsUpdated int

	runErr := driver.ScrapeAll(ctx, func(item scraper.Item) error {
		isNew, isUpdated, err := store.UpsertItem(ctx, database.UpsertParams{
			ItemID:      item.ID,
			Payload:     item.Payload,
			ZipCode:     cfg.Search.ZipCode,
			RadiusMiles: cfg.Search.RadiusMiles,
			Category:    item.Category,
		})
		if err != nil {
			return err
		}
		switch {
		case isNew:
			itemsAdded++
			logger.Debug("added item", zap.String("item_id", item.ID))
		case isUpdated:
			itemsUpdated++
			logger.Debug("updated item", zap.String("item_id", item.ID))
		}
		return nil
	})

	stats := driver.Stats()
	summary := database.RunSummary{
		ItemsFound:   stats.ItemsFound,
		ItemsAdded:   itemsAdded,
		ItemsUpdated: itemsUpdated,
		Errors:       stats.Errors,
		Status:       database.RunStatusCompleted,
	}
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		summary.Status = database.RunStatusInterrupted
	default:
		summary.Status = database.RunStatusFailed
		summary.Errors++
	}

	// The session context may already be canceled; the audit row still has
	// to be written.
	if err := store.CompleteRun(context.WithoutCancel(ctx), runID, summary); err != nil {
		logger.Error("failed to record run completion", zap.Error(err))
	}

	printSummary(runID, summary, time.Since(start), cfg)

	switch {
	case runErr == nil:
		logger.Info("scrape completed")
		return nil
	case errors.Is(runErr, context.Canceled):
		logger.Warn("scrape interrupted; partial results persisted")
		return nil
	default:
		return runErr
	}
}

func applyScrapeFlags(cfg *config.Config, flags scrapeFlags) {
	if flags.zip != "" {
		cfg.Search.ZipCode = flags.zip
	}
	if flags.radius > 0 {
		cfg.Search.RadiusMiles = flags.radius
	}
	if flags.test {
		cfg.Search.TestMode = true
	}
	if flags.limit > 0 {
		cfg.Search.TestLimit = flags.limit
	}
	if flags.categories != "" {
		var categories []string
		for _, c := range strings.Split(flags.categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
		cfg.Search.Categories = categories
	}
	if flags.db != "" {
		cfg.DB.DSN = flags.db
	}
}

// startMetricsServer exposes the engine registry on /metrics plus a trivial
// health check.
func startMetricsServer(addr string, metrics *scraper.Metrics, logger *zap.Logger) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("metrics server listening", zap.String("addr", addr))
	return srv
}

func printSummary(runID string, summary database.RunSummary, duration time.Duration, cfg config.Config) {
	categories := strings.Join(cfg.Search.Categories, ", ")
	if categories == "" {
		categories = "all"
	}
	testMode := "No"
	if cfg.Search.TestMode {
		testMode = "Yes"
	}

	line := strings.Repeat("=", 60)
	divider := strings.Repeat("-", 60)
	fmt.Println()
	fmt.Println(line)
	fmt.Println("SCRAPE RUN SUMMARY")
	fmt.Println(line)
	fmt.Printf("Run ID:          %s\n", runID)
	fmt.Printf("Status:          %s\n", summary.Status)
	fmt.Printf("Duration:        %.2f seconds\n", duration.Seconds())
	fmt.Println(divider)
	fmt.Printf("Zip Code:        %s\n", cfg.Search.ZipCode)
	fmt.Printf("Radius:          %d miles\n", cfg.Search.RadiusMiles)
	fmt.Printf("Test Mode:       %s\n", testMode)
	fmt.Printf("Categories:      %s\n", categories)
	fmt.Println(divider)
	fmt.Printf("Items Found:     %d\n", summary.ItemsFound)
	fmt.Printf("Items Added:     %d\n", summary.ItemsAdded)
	fmt.Printf("Items Updated:   %d\n", summary.ItemsUpdated)
	fmt.Printf("Errors:          %d\n", summary.Errors)
	fmt.Println(line)
}
