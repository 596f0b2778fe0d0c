package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/config"
	"invoicer/internal/importer"
	"invoicer/internal/logger"
	"invoicer/internal/ocr"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import <pdf-or-image>",
	Short: "Import a paper or legacy invoice with Google Document AI",
	Long: `Read an existing invoice (PDF or scanned image) with Google Document AI's
invoice parser and store it as an outstanding invoice. Customers and products
are matched by name and created when unknown.

When the parser misses the invoice number, date or line items and
OPENAI_API_KEY is set, the document is run through Google Cloud Vision OCR and
OpenAI fills in the missing fields. Stated net, tax and gross amounts are
compared against the recomputed totals; differences above 1% are reported as
warnings.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - Your Document AI invoice processor ID

Optional:
  OPENAI_API_KEY - Enables OCR + OpenAI completion of missing fields
  OPENAI_MODEL - Completion model (default gpt-4o-mini)`,
	Example: `  # Import a scanned invoice
  invoicer import old-invoice.pdf

  # Show the extraction confidence per field
  invoicer import scan.png --confidence

  # Allow more time for large documents
  invoicer import big.pdf --timeout 300`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("confidence", false, "Print confidence scores for the extracted fields")
	importCmd.Flags().Int("timeout", 0, "Processing timeout in seconds (default: IMPORT_TIMEOUT)")
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import")

	showConfidence, _ := cmd.Flags().GetBool("confidence")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	path := args[0]

	log.Info().
		Str("file", path).
		Int("timeout", timeoutSecs).
		Msg("Starting invoice import")

	if _, err := validateImportFile(path, log); err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if err := cfg.RequireDocumentAI(); err != nil {
		return fmt.Errorf("invoice import is not configured: %w", err)
	}

	timeout := cfg.ImportTimeout
	if timeoutSecs > 0 {
		timeout = time.Duration(timeoutSecs) * time.Second
	}
	ctx, cancel := createCommandContext(timeout, log)
	defer cancel()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	company, err := st.GetCompany(ctx)
	if err != nil {
		return handleCommandError(err, log)
	}

	extractor, err := importer.NewDocumentAIExtractor(ctx, importer.DocumentAIConfig{
		ProjectID:        cfg.GoogleCloudProject,
		Location:         cfg.GoogleCloudLocation,
		ProcessorID:      cfg.DocumentAIProcessorID,
		ProcessorVersion: cfg.DocumentAIProcessorVersion,
		Timeout:          timeout,
		CredentialsFile:  cfg.GoogleCredentialsFile,
		CredentialsJSON:  cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		return handleImportError(err, log)
	}
	defer extractor.Close()

	completer, closeCompleter, err := createCompleter(ctx, cfg, company, log)
	if err != nil {
		return handleImportError(err, log)
	}
	defer closeCompleter()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	startTime := time.Now()
	result, err := importer.NewService(st, extractor, completer).Import(ctx, path, file)
	if err != nil {
		return handleImportError(err, log)
	}

	log.Info().
		Str("invoice_number", result.Invoice.InvoiceNumber).
		Dur("duration", time.Since(startTime)).
		Msg("Invoice import completed")

	printImportResult(cmd, result, showConfidence)
	return nil
}

// createCompleter builds the OCR + OpenAI completer when an API key is set.
// Without one it returns a nil completer.
func createCompleter(ctx context.Context, cfg *config.Config, company *models.CompanyInfo, log zerolog.Logger) (importer.Completer, func(), error) {
	if !cfg.CompletionEnabled() {
		log.Debug().Msg("OPENAI_API_KEY not set, completion disabled")
		return nil, func() {}, nil
	}

	vision, err := ocr.NewGoogleVisionService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleCredentialsJSON)
	if err != nil {
		return nil, nil, err
	}

	completer := importer.NewOpenAICompleter(vision, cfg.OpenAIAPIKey, importer.CompletionConfig{
		CompanyName: company.Name,
		MaxRetries:  cfg.CompletionRetries,
		OpenAIModel: cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
	})
	log.Debug().Str("model", cfg.OpenAIModel).Msg("Completion enabled")

	return completer, func() {
		if err := vision.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Vision client")
		}
	}, nil
}

// validateImportFile validates the document before it is uploaded
func validateImportFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msg("Invoice file not found")
			return nil, fmt.Errorf("invoice file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msg("Permission denied accessing invoice file")
			return nil, fmt.Errorf("permission denied accessing invoice file: %s", path)
		}
		return nil, fmt.Errorf("error accessing invoice file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", path).
			Msg("Invoice file is empty")
		return nil, fmt.Errorf("invoice file is empty: %s", path)
	}

	if fileInfo.Size() > importer.MaxDocumentSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", fileInfo.Size()).
			Int64("max_size", importer.MaxDocumentSizeBytes).
			Msg("Invoice file exceeds maximum size limit")
		return nil, fmt.Errorf("invoice file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), importer.MaxDocumentSizeBytes)
	}

	return fileInfo, nil
}

// handleImportError provides user-friendly error messages for import failures
func handleImportError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Invoice import failed")

	var missing *importer.MissingFieldsError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("invoice import timed out. Try increasing --timeout or importing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("invoice import was canceled")
	case errors.As(err, &missing):
		hint := "Set OPENAI_API_KEY to let OCR and OpenAI fill them in"
		return fmt.Errorf("could not extract required invoice fields %v. %s: %w", missing.Fields, hint, err)
	case errors.Is(err, importer.ErrUnsupportedFormat), errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file format. Import a PDF or a PNG, JPEG, GIF, TIFF, WebP or BMP image")
	case errors.Is(err, importer.ErrInvalidDocument):
		return fmt.Errorf("invalid or corrupted document. Please check the file integrity")
	case errors.Is(err, importer.ErrDocumentTooLarge), errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("document is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("document has too many pages for OCR completion (maximum %d)", ocr.MaxPagesSync)
	case errors.Is(err, importer.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID and GOOGLE_CLOUD_LOCATION")
	case errors.Is(err, importer.ErrInvalidConfiguration):
		return fmt.Errorf("invalid Document AI configuration. Please check your .env file:\n"+
			"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
			"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
			"  DOCUMENT_AI_PROCESSOR_ID - your Document AI processor ID\n"+
			"Original error: %w", err)
	case errors.Is(err, importer.ErrInvalidCredentials), errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Ensure the service account has 'Document AI API User' role\n\n"+
			"Original error: %v", err)
	case errors.Is(err, importer.ErrQuotaExceeded):
		return fmt.Errorf("Document AI API quota exceeded. Check your project quotas in Google Cloud Console")
	case errors.Is(err, importer.ErrCompletionFailed):
		return fmt.Errorf("OpenAI could not complete the missing invoice fields: %w", err)
	case errors.Is(err, importer.ErrProcessingFailed):
		return fmt.Errorf("Document AI processing failed. This may be due to network issues or service unavailability: %w", err)
	case errors.Is(err, store.ErrDuplicateNumber),
		errors.Is(err, store.ErrCompanyNotConfigured),
		errors.Is(err, models.ErrInvalid):
		return handleCommandError(err, log)
	default:
		return fmt.Errorf("invoice import failed: %w", err)
	}
}

func printImportResult(cmd *cobra.Command, result *importer.Result, showConfidence bool) {
	out := cmd.OutOrStdout()
	inv := result.Invoice

	fmt.Fprintf(out, "Imported invoice %s for %s, dated %s, due %s (%s), total %s.\n",
		inv.InvoiceNumber,
		customerLabel(inv),
		inv.Date.Format(models.MediumDateLayout),
		inv.DueDate().Format(models.MediumDateLayout),
		inv.PaymentTerms(),
		models.FormatAmount(inv.TotalAmount()))

	if result.CreatedCustomer {
		fmt.Fprintf(out, "New customer: %s\n", inv.CustomerName())
	}
	for _, name := range result.CreatedProducts {
		fmt.Fprintf(out, "New product:  %s\n", name)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "Warning: %s\n", warning)
	}

	if showConfidence && len(result.Imported.Confidence) > 0 {
		fields := make([]string, 0, len(result.Imported.Confidence))
		for field := range result.Imported.Confidence {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		fmt.Fprintln(out, "\nConfidence:")
		w := newTable(out)
		for _, field := range fields {
			fmt.Fprintf(w, "  %s\t%.0f%%\n", field, result.Imported.Confidence[field]*100)
		}
		_ = w.Flush()
	}
}
