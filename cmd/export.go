package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"invoicer/internal/export"
	"invoicer/internal/sheets"
	"invoicer/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export invoice lists",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export invoices to invoices_export.csv",
	Long: `Write all invoices to invoices_export.csv with the columns
InvoiceNumber,Date,DueDate,Status,Customer,Subtotal,Tax,Total.`,
	Example: `  invoicer export csv
  invoicer export csv --output-dir ./reports
  invoicer export csv --stdout --hide-paid`,
	Args: cobra.NoArgs,
	RunE: runExportCSV,
}

var exportSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Append invoices to a Google Sheet",
	Long: `Append the invoice export rows to a worksheet of a Google Sheet. The
worksheet and its header row are created when missing.

Required environment variables:
  GOOGLE_SHEET_URL - URL of the target spreadsheet
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string

The service account needs edit access to the spreadsheet.`,
	Example: `  invoicer export sheets
  invoicer export sheets --sheet "2024" --hide-paid`,
	Args: cobra.NoArgs,
	RunE: runExportSheets,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCSVCmd, exportSheetsCmd)

	exportCSVCmd.Flags().String("output-dir", "", "Directory for the CSV file (default: INVOICER_OUTPUT_DIR)")
	exportCSVCmd.Flags().Bool("stdout", false, "Write the CSV to stdout instead of a file")
	exportCSVCmd.Flags().Bool("hide-paid", false, "Only export outstanding invoices")

	exportSheetsCmd.Flags().String("sheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportSheetsCmd.Flags().Bool("hide-paid", false, "Only export outstanding invoices")
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	hidePaid, _ := cmd.Flags().GetBool("hide-paid")

	return withSession(cmd, "export", func(ctx context.Context, s *session) error {
		invoices, err := s.st.ListInvoices(ctx, exportFilter(hidePaid))
		if err != nil {
			return err
		}

		if toStdout {
			return export.WriteCSV(s.out, invoices)
		}

		if outputDir == "" {
			outputDir = s.cfg.OutputDir
		}
		path, err := export.ExportCSVFile(outputDir, invoices)
		if err != nil {
			return fmt.Errorf("failed to export CSV: %w", err)
		}
		fmt.Fprintf(s.out, "Exported %d invoices to %s\n", len(invoices), path)
		return nil
	})
}

func runExportSheets(cmd *cobra.Command, args []string) error {
	sheetName, _ := cmd.Flags().GetString("sheet")
	hidePaid, _ := cmd.Flags().GetBool("hide-paid")

	return withSession(cmd, "export", func(ctx context.Context, s *session) error {
		if err := s.cfg.RequireSheets(); err != nil {
			return fmt.Errorf("Google Sheets export is not configured: %w", err)
		}
		if sheetName == "" {
			sheetName = s.cfg.GoogleSheetWorksheet
		}

		invoices, err := s.st.ListInvoices(ctx, exportFilter(hidePaid))
		if err != nil {
			return err
		}

		sheetsService, err := sheets.NewSheetsService(ctx, sheets.Credentials{
			File: s.cfg.GoogleCredentialsFile,
			JSON: s.cfg.GoogleCredentialsJSON,
		}, s.cfg.GoogleSheetURL)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to create sheets service")
			return fmt.Errorf("failed to connect to Google Sheets. Please check your credentials: %w", err)
		}

		s.log.Info().
			Str("sheet", sheetName).
			Int("invoices", len(invoices)).
			Msg("Appending invoices to Google Sheet")

		rows, err := sheetsService.AppendInvoices(ctx, invoices, sheetName)
		if err != nil {
			return fmt.Errorf("failed to append to Google Sheet: %w", err)
		}
		fmt.Fprintf(s.out, "Appended %d rows to worksheet %q.\n", rows, sheetName)
		return nil
	})
}

func exportFilter(hidePaid bool) store.InvoiceFilter {
	var filter store.InvoiceFilter
	if hidePaid {
		unpaid := false
		filter.Paid = &unpaid
	}
	return filter
}
