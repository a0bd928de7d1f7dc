package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"inventory-sync/services"
)

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Reclaim over-quota listings and allocate the pool, region by region",
	RunE:  runManage,
}

var unassignCmd = &cobra.Command{
	Use:   "unassign",
	Short: "Release every assigned listing back to the pool",
	RunE:  runUnassign,
}

var reassignCmd = &cobra.Command{
	Use:   "reassign",
	Short: "Release every listing, then allocate from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runUnassign(cmd, args); err != nil {
			return err
		}
		return runManage(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(manageCmd, unassignCmd, reassignCmd)
}

func newAllocator(cmd *cobra.Command) (*services.Allocator, error) {
	ps, err := app.listingStore()
	if err != nil {
		return nil, err
	}
	classifier, err := app.classifier(cmd.Context())
	if err != nil {
		return nil, err
	}
	bucketizer := services.NewBucketizer(app.store.Rules)
	return services.NewAllocator(ps, classifier, bucketizer, app.store.Caps, app.metrics, app.logger), nil
}

func runManage(cmd *cobra.Command, _ []string) error {
	alloc, err := newAllocator(cmd)
	if err != nil {
		return err
	}
	report, err := alloc.Run(cmd.Context(), app.accounts())
	if report != nil {
		services.NewReportService(app.logger).PrintAllocation(os.Stdout, report)
	}
	return err
}

func runUnassign(cmd *cobra.Command, _ []string) error {
	alloc, err := newAllocator(cmd)
	if err != nil {
		return err
	}
	n, err := alloc.ReleaseAll(cmd.Context())
	if err != nil {
		return err
	}
	app.logger.Info("Released %d listings", n)
	return nil
}
