package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"invoicer/internal/config"
	"invoicer/internal/ledger"
	"invoicer/internal/logger"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var version = "1.0.0"

// defaultCommandTimeout bounds every command that only talks to the local store.
const defaultCommandTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Invoicer - invoices, customers and products for a small business",
	Long: `Invoicer keeps the company details, customers and products of a small
business, composes invoices with tax and discount rules, renders them as PDF
and exports invoice lists to CSV or Google Sheets.

Run without a subcommand to see the outstanding invoices at a glance.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}

func runRoot(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "root", func(ctx context.Context, s *session) error {
		s.log.Info().
			Str("version", version).
			Msg("Invoicer executed")

		company, err := s.st.GetCompany(ctx)
		if errors.Is(err, store.ErrCompanyNotConfigured) {
			fmt.Fprintln(s.out, "Welcome to Invoicer!")
			fmt.Fprintln(s.out, "Start with: invoicer company set --name \"Your Company\"")
			fmt.Fprintln(s.out, "Use --help to see available commands and options.")
			return nil
		}
		if err != nil {
			return err
		}

		invoices, err := s.st.ListInvoices(ctx, store.InvoiceFilter{})
		if err != nil {
			return err
		}

		fmt.Fprintf(s.out, "%s\n\n", company.Name)
		printSummary(s.out, ledger.Summarize(invoices, time.Now()))
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Use --help to see available commands and options.")
		return nil
	})
}

// session bundles what a store-backed command needs.
type session struct {
	cfg *config.Config
	st  *store.Store
	out io.Writer
	log zerolog.Logger
}

// withSession loads the configuration, opens the store and runs fn under a
// context with timeout and signal handling. Errors from fn are mapped to
// user-friendly messages.
func withSession(cmd *cobra.Command, component string, fn func(ctx context.Context, s *session) error) error {
	log := logger.WithComponent(component)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := createCommandContext(defaultCommandTimeout, log)
	defer cancel()

	s := &session{cfg: cfg, st: st, out: cmd.OutOrStdout(), log: log}
	if err := fn(ctx, s); err != nil {
		return handleCommandError(err, log)
	}
	return nil
}

// loadConfig reads the environment configuration.
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, fmt.Errorf("invalid configuration. Please check your .env file: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured database.
func openStore(cfg *config.Config, log zerolog.Logger) (*store.Store, error) {
	st, err := store.Open(store.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Debug:  cfg.LogLevel == "debug",
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("driver", cfg.DBDriver).
			Msg("Failed to open database")
		if errors.Is(err, store.ErrUnsupportedDriver) {
			return nil, fmt.Errorf("unsupported database driver %q. Set INVOICER_DB_DRIVER to sqlite or postgres", cfg.DBDriver)
		}
		return nil, fmt.Errorf("failed to open database (INVOICER_DB_DSN=%s): %w", cfg.DBDSN, err)
	}

	log.Debug().
		Str("driver", cfg.DBDriver).
		Msg("Database opened")
	return st, nil
}

// createCommandContext creates a context with timeout and signal handling
func createCommandContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling command")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// handleCommandError provides user-friendly error messages for store and
// validation failures
func handleCommandError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Command failed")

	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("operation timed out: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled: %w", err)
	case errors.Is(err, store.ErrCompanyNotConfigured):
		return fmt.Errorf("company info is not configured yet. Run 'invoicer company set --name <name>' first: %w", err)
	case errors.Is(err, store.ErrDuplicateNumber):
		return fmt.Errorf("an invoice with this number already exists. Choose another --number or leave it empty to generate one: %w", err)
	case errors.Is(err, store.ErrProductInUse):
		return fmt.Errorf("the product is still used by invoice items. Remove those items or delete the invoices first: %w", err)
	case errors.Is(err, store.ErrNumberSpaceExhausted):
		return fmt.Errorf("could not generate a free invoice number. Pass one with --number: %w", err)
	case errors.As(err, &validationErr):
		return fmt.Errorf("invalid input: %w", validationErr)
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("not found: %w", err)
	default:
		return err
	}
}

// newTable returns a tab-aligned writer for list output.
func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

// printSummary prints the outstanding header shared by the root command and
// due summary.
func printSummary(out io.Writer, summary ledger.Summary) {
	fmt.Fprintf(out, "Outstanding invoices: %d\n", summary.OutstandingCount)
	fmt.Fprintf(out, "Outstanding total:    %s\n", models.FormatAmount(summary.OutstandingTotal))
	if len(summary.Overdue) == 0 {
		fmt.Fprintln(out, "Overdue:              none")
		return
	}
	fmt.Fprintf(out, "Overdue:              %d\n", len(summary.Overdue))
	for i := range summary.Overdue {
		inv := &summary.Overdue[i]
		fmt.Fprintf(out, "  %s  %s  due %s  %s\n",
			inv.InvoiceNumber,
			customerLabel(inv),
			inv.DueDate().Format(models.MediumDateLayout),
			models.FormatAmount(inv.TotalAmount()))
	}
}

// parseDateFlag parses YYYY-MM-DD in local time. Empty means zero time.
func parseDateFlag(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

// customerLabel is the customer name, or "No Customer".
func customerLabel(inv *models.Invoice) string {
	if name := inv.CustomerName(); name != "" {
		return name
	}
	return models.NoCustomer
}
