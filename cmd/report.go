package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"inventory-sync/models"
	"inventory-sync/services"
	"inventory-sync/storage"
)

var reportCSV string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print operator reports",
}

var reportUnclassifiedCmd = &cobra.Command{
	Use:   "unclassified",
	Short: "List pooled listings the taxonomy cannot classify",
	Long: `Unclassified groups pool listings that never classify by raw category,
raw manufacturer and reason. With --csv the groups are also written to a
file, which is uploaded to REPORT_BUCKET when that is set. --csv - writes
the CSV to stdout in place of the table.`,
	RunE: runReportUnclassified,
}

func init() {
	reportCmd.AddCommand(reportUnclassifiedCmd)
	rootCmd.AddCommand(reportCmd)
	reportUnclassifiedCmd.Flags().StringVar(&reportCSV, "csv", "", "also write the groups to this CSV file, or - for stdout")
}

func runReportUnclassified(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	ps, err := app.listingStore()
	if err != nil {
		return err
	}
	classifier, err := app.classifier(ctx)
	if err != nil {
		return err
	}
	pool, err := ps.ListUnassigned(ctx)
	if err != nil {
		return err
	}

	classified, dropped := classifier.ClassifyAll(pool)
	app.metrics.ObserveClassification(len(classified), dropped)
	reports := services.NewReportService(app.logger)
	groups := reports.GroupUnclassified(dropped)
	if reportCSV == "-" {
		return writeUnclassifiedCSV(os.Stdout, groups)
	}
	reports.PrintUnclassified(os.Stdout, groups)

	if reportCSV == "" {
		return nil
	}
	w, err := storage.NewCSVWriter(reportCSV)
	if err != nil {
		return err
	}
	if err := w.WriteUnclassified(groups); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	app.logger.Info("Unclassified report saved to %s", reportCSV)

	if app.cfg.ReportBucket == "" {
		return nil
	}
	exporter, err := storage.NewS3Exporter(ctx, app.cfg.AWSRegion, app.cfg.ReportBucket)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("unclassified-%s%s", app.runID, filepath.Ext(reportCSV))
	key, err := exporter.UploadFile(ctx, reportCSV, name)
	if err != nil {
		return err
	}
	app.logger.Info("Uploaded report to s3://%s/%s", app.cfg.ReportBucket, key)
	return nil
}

func writeUnclassifiedCSV(out io.Writer, groups []models.UnclassifiedGroup) error {
	w, err := storage.NewCSVStreamWriter(out)
	if err != nil {
		return err
	}
	if err := w.WriteUnclassified(groups); err != nil {
		return err
	}
	return w.Close()
}
