package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"inventory-sync/automation"
	"inventory-sync/config"
	"inventory-sync/metrics"
	"inventory-sync/models"
	"inventory-sync/services"
	"inventory-sync/storage"
	"inventory-sync/utils"
)

// ExitNeedsRetry is the process status of a sync run that left listings
// unconfirmed. Schedulers treat it as "run again".
const ExitNeedsRetry = 75

var storePath string

// env is what every subcommand shares, built once in PersistentPreRunE.
type env struct {
	cfg     *config.Config
	store   *config.Store
	logger  *utils.Logger
	metrics *metrics.Pipeline
	runID   string
	started time.Time

	listings *storage.PostgresStore
}

var app *env

var rootCmd = &cobra.Command{
	Use:   "inventory-sync",
	Short: "Distribute scraped vehicle listings across dealer accounts",
	Long: `inventory-sync assigns scraped listings from the shared pool to seller
accounts under per-account and per-region quotas, keeps each account's remote
listing page in line with what it was assigned, and reports listings the
taxonomy cannot classify.

Examples:
  # Reclaim and allocate every region
  ./inventory-sync manage

  # Reconcile and resubmit one account
  ./inventory-sync sync --account seller-a

  # Bulk load the taxonomy
  ./inventory-sync taxonomy import taxonomy.yaml`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storePath, "config", "c", "", "config store path (defaults to CONFIG_STORE_PATH)")
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	runID := uuid.NewString()
	logger := utils.NewLoggerWithConfig(utils.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat}).
		With("run_id", runID)

	path := cfg.ConfigStorePath
	if storePath != "" {
		path = storePath
	}
	store, err := config.LoadStore(path)
	if err != nil {
		return err
	}

	app = &env{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: metrics.NewPipeline(),
		runID:   runID,
		started: time.Now(),
	}
	logger.Info("=== inventory-sync %s starting ===", cmd.Name())
	logger.Info("Config: %d accounts | %d regions | workers: %d | rate: %dms",
		len(store.Accounts), len(store.Regions), cfg.Workers, cfg.RateLimitMs)
	return nil
}

// Execute runs the command tree and releases what the run opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if app == nil {
		return err
	}

	app.metrics.Finish(app.started)
	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if perr := app.metrics.Push(pushCtx, app.cfg.PushgatewayURL, "inventory_sync", app.runID); perr != nil {
		app.logger.Warn("%v", perr)
	}
	if app.listings != nil {
		_ = app.listings.Close()
	}
	if err != nil {
		app.logger.Error("%s failed: %v", rootCmd.Name(), err)
	}
	_ = app.logger.Sync()
	return err
}

// ExitCode maps a run error to the process status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case services.OnlyNeedsRetry(err):
		return ExitNeedsRetry
	default:
		if app == nil {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
}

// listingStore opens the Postgres store on first use.
func (e *env) listingStore() (*storage.PostgresStore, error) {
	if e.listings != nil {
		return e.listings, nil
	}
	ps, err := storage.NewPostgresStore(e.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	e.listings = ps
	return ps, nil
}

func (e *env) classifier(ctx context.Context) (*services.Classifier, error) {
	ps, err := e.listingStore()
	if err != nil {
		return nil, err
	}
	taxonomy, err := ps.LoadTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return services.NewClassifier(taxonomy), nil
}

func (e *env) chromeFactory() *automation.ChromeFactory {
	return automation.NewChromeFactory(automation.ChromeConfig{
		ChromeBin:  e.cfg.ChromeBin,
		Headless:   e.cfg.Headless,
		MaxRetries: e.cfg.MaxRetries,
	}, e.logger)
}

// accounts lists accounts grouped by region, regions sorted by name and
// config order kept inside each region.
func (e *env) accounts() []*models.Account {
	out := make([]*models.Account, 0, len(e.store.Accounts))
	for _, region := range e.store.RegionNames() {
		out = append(out, e.store.AccountsInRegion(region)...)
	}
	return out
}

func (e *env) accountIDs() []string {
	ids := make([]string, len(e.store.Accounts))
	for i, a := range e.store.Accounts {
		ids[i] = a.ID
	}
	return ids
}

// accountFlag resolves --account, falling back to ACCOUNT_ID.
func (e *env) accountFlag(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if e.cfg.AccountID != "" {
		return e.cfg.AccountID, nil
	}
	return "", errors.New("no account given: pass --account or set ACCOUNT_ID")
}
