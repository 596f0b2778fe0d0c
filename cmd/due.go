package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"invoicer/internal/ledger"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "See what is outstanding and when it falls due",
}

var dueSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Outstanding count, total and overdue invoices",
	Args:  cobra.NoArgs,
	RunE:  runDueSummary,
}

var dueAgendaCmd = &cobra.Command{
	Use:   "agenda",
	Short: "Invoices falling due over the coming days",
	Example: `  invoicer due agenda
  invoicer due agenda --from 2024-03-01 --days 14 --all`,
	Args: cobra.NoArgs,
	RunE: runDueAgenda,
}

var dueDayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Invoices due on one day (default: today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDueDay,
}

var dueMonthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Calendar of a month with due markers",
	Long: `Print a calendar of the month. Days with outstanding invoices due are
marked with '*'; the invoices are listed below the calendar.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDueMonth,
}

func init() {
	rootCmd.AddCommand(dueCmd)
	dueCmd.AddCommand(dueSummaryCmd, dueAgendaCmd, dueDayCmd, dueMonthCmd)

	dueAgendaCmd.Flags().String("from", "", "First day YYYY-MM-DD (default: today)")
	dueAgendaCmd.Flags().Int("days", ledger.DefaultAgendaDays, "Number of days")
	dueAgendaCmd.Flags().Bool("all", false, "Also print days with nothing due")

	dueMonthCmd.Flags().Bool("monday", false, "Start weeks on Monday")
}

func runDueSummary(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "due", func(ctx context.Context, s *session) error {
		invoices, err := s.st.ListInvoices(ctx, store.InvoiceFilter{})
		if err != nil {
			return err
		}
		printSummary(s.out, ledger.Summarize(invoices, time.Now()))
		return nil
	})
}

func runDueAgenda(cmd *cobra.Command, args []string) error {
	rawFrom, _ := cmd.Flags().GetString("from")
	days, _ := cmd.Flags().GetInt("days")
	all, _ := cmd.Flags().GetBool("all")

	from, err := parseDateFlag(rawFrom)
	if err != nil {
		return err
	}
	if from.IsZero() {
		from = time.Now()
	}

	return withSession(cmd, "due", func(ctx context.Context, s *session) error {
		invoices, err := outstandingInvoices(ctx, s.st)
		if err != nil {
			return err
		}

		printed := 0
		for _, day := range ledger.Agenda(invoices, from, days) {
			if len(day.Due) == 0 && !all {
				continue
			}
			printed++
			fmt.Fprintf(s.out, "%s\n", day.Day.Format("Mon, "+models.MediumDateLayout))
			if len(day.Due) == 0 {
				fmt.Fprintln(s.out, "  nothing due")
			}
			for i := range day.Due {
				printDueLine(s, &day.Due[i])
			}
		}
		if printed == 0 {
			fmt.Fprintln(s.out, "Nothing falls due in this period.")
		}
		return nil
	})
}

func runDueDay(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if len(args) == 1 {
		parsed, err := parseDateFlag(args[0])
		if err != nil {
			return err
		}
		day = parsed
	}

	return withSession(cmd, "due", func(ctx context.Context, s *session) error {
		invoices, err := outstandingInvoices(ctx, s.st)
		if err != nil {
			return err
		}

		due := ledger.DueOn(invoices, day)
		fmt.Fprintf(s.out, "Due on %s:\n", day.Format(models.MediumDateLayout))
		if len(due) == 0 {
			fmt.Fprintln(s.out, "  nothing due")
			return nil
		}
		for i := range due {
			printDueLine(s, &due[i])
		}
		return nil
	})
}

func runDueMonth(cmd *cobra.Command, args []string) error {
	monday, _ := cmd.Flags().GetBool("monday")

	month := time.Now()
	if len(args) == 1 {
		parsed, err := time.ParseInLocation("2006-01", args[0], time.Local)
		if err != nil {
			return fmt.Errorf("invalid month %q, expected YYYY-MM", args[0])
		}
		month = parsed
	}
	firstWeekday := time.Sunday
	if monday {
		firstWeekday = time.Monday
	}

	return withSession(cmd, "due", func(ctx context.Context, s *session) error {
		invoices, err := outstandingInvoices(ctx, s.st)
		if err != nil {
			return err
		}

		fmt.Fprintf(s.out, "%s\n", month.Format("January 2006"))
		fmt.Fprintln(s.out, strings.Join(ledger.WeekdayLabels(firstWeekday), " "))

		var dueDays []ledger.AgendaDay
		cells := ledger.MonthGrid(month, firstWeekday)
		for i, cell := range cells {
			switch {
			case cell == nil:
				fmt.Fprint(s.out, "   ")
			default:
				due := ledger.DueOn(invoices, *cell)
				marker := " "
				if len(due) > 0 {
					marker = "*"
					dueDays = append(dueDays, ledger.AgendaDay{Day: *cell, Due: due})
				}
				fmt.Fprintf(s.out, "%2d%s", cell.Day(), marker)
			}
			if i%7 == 6 {
				fmt.Fprintln(s.out)
			} else {
				fmt.Fprint(s.out, " ")
			}
		}

		for _, day := range dueDays {
			fmt.Fprintf(s.out, "\n%s\n", day.Day.Format(models.MediumDateLayout))
			for i := range day.Due {
				printDueLine(s, &day.Due[i])
			}
		}
		return nil
	})
}

func outstandingInvoices(ctx context.Context, st *store.Store) ([]models.Invoice, error) {
	unpaid := false
	return st.ListInvoices(ctx, store.InvoiceFilter{Paid: &unpaid})
}

func printDueLine(s *session, inv *models.Invoice) {
	fmt.Fprintf(s.out, "  %s  %s  %s\n", inv.InvoiceNumber, customerLabel(inv), models.FormatAmount(inv.TotalAmount()))
}
