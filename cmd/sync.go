package cmd

import (
	"github.com/spf13/cobra"

	"inventory-sync/services"
)

var (
	syncAccount string
	syncAll     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile remote listings with assignments and resubmit what is missing",
	Long: `Sync logs in as the account, deletes remote rows it should not hold,
marks assigned listings confirmed or unconfirmed by what the remote shows,
and submits the unconfirmed ones. The cycle repeats up to SYNC_ATTEMPTS
times. Listings still unconfirmed afterwards end the run with status 75.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVarP(&syncAccount, "account", "a", "", "account id (defaults to ACCOUNT_ID)")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every configured account in turn")
}

func runSync(cmd *cobra.Command, _ []string) error {
	ps, err := app.listingStore()
	if err != nil {
		return err
	}
	classifier, err := app.classifier(cmd.Context())
	if err != nil {
		return err
	}
	forms, err := services.NewFormBuilder(services.NewMarginTable(app.store.Margins), app.store.DescriptionTemplate)
	if err != nil {
		return err
	}

	factory := app.chromeFactory()
	reconciler := services.NewReconciler(ps, app.store, factory, app.metrics, app.logger)
	submitter := services.NewSubmitter(ps, app.store, factory, classifier, forms,
		services.SubmitterConfig{Workers: app.cfg.Workers, RateLimitMs: app.cfg.RateLimitMs},
		app.metrics, app.logger)
	svc := services.NewSyncService(reconciler, submitter, app.cfg.SyncAttempts, app.cfg.Workers, app.logger)

	if syncAll {
		return svc.SyncAll(cmd.Context(), app.accountIDs())
	}
	id, err := app.accountFlag(syncAccount)
	if err != nil {
		return err
	}
	return svc.SyncAccount(cmd.Context(), id)
}
