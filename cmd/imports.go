package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"inventory-sync/models"
	"inventory-sync/services"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Manage the classification taxonomy",
}

var taxonomyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk load taxonomy records from a YAML list",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaxonomyImport,
}

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Manage the scraped listing pool",
}

var listingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Clean and upsert scraped listings from a YAML list",
	Long: `Import reads scraped listings, normalises their text fields, drops
records without an id or repeating one, and upserts the rest. Ownership of
listings already stored is kept.

With --prune, stored listings absent from the file are deleted afterwards.
The next sync then removes them from the accounts that held them.`,
	Args: cobra.ExactArgs(1),
	RunE: runListingsImport,
}

var pruneListings bool

func init() {
	listingsImportCmd.Flags().BoolVar(&pruneListings, "prune", false, "delete stored listings missing from the file")
	taxonomyCmd.AddCommand(taxonomyImportCmd)
	listingsCmd.AddCommand(listingsImportCmd)
	rootCmd.AddCommand(taxonomyCmd, listingsCmd)
}

func decodeYAMLFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

func runTaxonomyImport(cmd *cobra.Command, args []string) error {
	var records []models.TaxonomyRecord
	if err := decodeYAMLFile(args[0], &records); err != nil {
		return err
	}
	ps, err := app.listingStore()
	if err != nil {
		return err
	}

	res := ps.SaveRecords(cmd.Context(), records)
	app.logger.Info("Taxonomy import: %d requested, %d written, %d failed", res.Requested, res.Written, res.Failed)
	return res.Err()
}

func runListingsImport(cmd *cobra.Command, args []string) error {
	var raw []*models.Listing
	if err := decodeYAMLFile(args[0], &raw); err != nil {
		return err
	}
	ps, err := app.listingStore()
	if err != nil {
		return err
	}

	res, err := services.NewListingImporter(ps, app.logger).Import(cmd.Context(), raw, pruneListings)
	if errors.Is(err, services.ErrNoListings) {
		return fmt.Errorf("%w in %q", err, args[0])
	}
	if res != nil && pruneListings {
		app.logger.Info("Listing import: pruned %d of %d stale listings", res.Pruned.Written, res.Pruned.Requested)
	}
	return err
}
