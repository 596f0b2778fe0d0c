package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"invoicer/internal/ledger"
	"invoicer/internal/pdf"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice",
	Short: "Compose, list and render invoices",
}

var invoiceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an invoice",
	Long: `Create an invoice for the configured company.

Items are given as product[:quantity[:discount]], where product is a product
id or name, quantity defaults to 1 and discount is a percentage (10 = 10%).
Without --number a free number of the form INV-1234 is generated.`,
	Example: `  # Net 30 invoice dated today
  invoicer invoice create --customer "Globex Corp" --item Consulting:8 --item Hosting

  # Explicit number, date and terms with a 10% discount on one line
  invoicer invoice create --number 2024-001 --date 2024-03-01 --terms "Net 10" --item 3:2:10`,
	Args: cobra.NoArgs,
	RunE: runInvoiceCreate,
}

var invoiceAddItemCmd = &cobra.Command{
	Use:     "add-item <number> <product[:quantity[:discount]]>",
	Short:   "Add a line to an invoice",
	Example: `  invoicer invoice add-item INV-4711 Consulting:2:5`,
	Args:    cobra.ExactArgs(2),
	RunE:    runInvoiceAddItem,
}

var invoiceRemoveItemCmd = &cobra.Command{
	Use:   "remove-item <number> <item-id>",
	Short: "Remove a line from an invoice",
	Long:  `Remove a line from an invoice. Item ids are shown by 'invoicer invoice show'.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runInvoiceRemoveItem,
}

var invoiceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	Example: `  invoicer invoice list --group customer --hide-paid
  invoicer invoice list --from 2024-01-01 --to 2024-04-01`,
	Args: cobra.NoArgs,
	RunE: runInvoiceList,
}

var invoiceShowCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show an invoice with its items and totals",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceShow,
}

var invoicePayCmd = &cobra.Command{
	Use:   "pay <number>",
	Short: "Mark an invoice as paid",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoicePay,
}

var invoiceDeleteCmd = &cobra.Command{
	Use:   "delete <number>",
	Short: "Delete an invoice and its items",
	Args:  cobra.ExactArgs(1),
	RunE:  runInvoiceDelete,
}

var invoicePDFCmd = &cobra.Command{
	Use:   "pdf <number>",
	Short: "Render an invoice as PDF",
	Long: `Render an invoice as a US-Letter PDF named Invoice-<number>.pdf in the
output directory (INVOICER_OUTPUT_DIR, or --output-dir).`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoicePDF,
}

// InvoiceOutput is the JSON form of 'invoice show --json'.
type InvoiceOutput struct {
	Invoice  *models.Invoice `json:"invoice"`
	DueDate  time.Time       `json:"due_date"`
	Status   string          `json:"status"`
	Subtotal string          `json:"subtotal"`
	Tax      string          `json:"tax"`
	Total    string          `json:"total"`
}

func init() {
	rootCmd.AddCommand(invoiceCmd)
	invoiceCmd.AddCommand(
		invoiceCreateCmd,
		invoiceAddItemCmd,
		invoiceRemoveItemCmd,
		invoiceListCmd,
		invoiceShowCmd,
		invoicePayCmd,
		invoiceDeleteCmd,
		invoicePDFCmd,
	)

	invoiceCreateCmd.Flags().String("number", "", "Invoice number (generated when empty)")
	invoiceCreateCmd.Flags().String("date", "", "Invoice date YYYY-MM-DD (default: today)")
	invoiceCreateCmd.Flags().String("terms", string(models.DefaultPaymentTerms), "Payment terms: "+termNames())
	invoiceCreateCmd.Flags().String("customer", "", "Customer id or name")
	invoiceCreateCmd.Flags().StringArray("item", nil, "Line item product[:quantity[:discount]] (repeatable)")
	invoiceCreateCmd.Flags().Bool("paid", false, "Record the invoice as already paid")

	invoiceListCmd.Flags().String("group", "none", "Group by none, customer or status")
	invoiceListCmd.Flags().Bool("hide-paid", false, "Hide paid invoices")
	invoiceListCmd.Flags().String("customer", "", "Only invoices of this customer (id or name)")
	invoiceListCmd.Flags().String("from", "", "Only invoices dated on or after YYYY-MM-DD")
	invoiceListCmd.Flags().String("to", "", "Only invoices dated before YYYY-MM-DD")

	invoiceShowCmd.Flags().Bool("json", false, "Print the invoice as JSON")

	invoicePayCmd.Flags().Bool("unpaid", false, "Mark the invoice as outstanding again")

	invoicePDFCmd.Flags().String("output-dir", "", "Directory for the PDF (default: INVOICER_OUTPUT_DIR)")
}

func runInvoiceCreate(cmd *cobra.Command, args []string) error {
	number, _ := cmd.Flags().GetString("number")
	rawDate, _ := cmd.Flags().GetString("date")
	rawTerms, _ := cmd.Flags().GetString("terms")
	customerRef, _ := cmd.Flags().GetString("customer")
	itemSpecs, _ := cmd.Flags().GetStringArray("item")
	paid, _ := cmd.Flags().GetBool("paid")

	date, err := parseDateFlag(rawDate)
	if err != nil {
		return err
	}
	terms, err := parseTermsFlag(rawTerms)
	if err != nil {
		return err
	}
	specs := make([]itemSpec, 0, len(itemSpecs))
	for _, raw := range itemSpecs {
		spec, err := parseItemSpec(raw)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		in := store.NewInvoice{
			Number: number,
			Date:   date,
			Terms:  terms,
			IsPaid: paid,
		}

		if customerRef != "" {
			customer, err := resolveCustomer(ctx, s.st, customerRef)
			if err != nil {
				return fmt.Errorf("customer %q: %w", customerRef, err)
			}
			in.CustomerID = &customer.ID
		}

		for _, spec := range specs {
			item, err := spec.resolve(ctx, s.st)
			if err != nil {
				return err
			}
			in.Items = append(in.Items, item)
		}

		s.log.Info().
			Str("invoice_number", number).
			Int("items", len(in.Items)).
			Str("terms", terms.String()).
			Msg("Creating invoice")

		inv, err := s.st.CreateInvoice(ctx, in)
		if err != nil {
			return err
		}

		fmt.Fprintf(s.out, "Invoice %s created for %s, due %s, total %s.\n",
			inv.InvoiceNumber,
			customerLabel(inv),
			inv.DueDate().Format(models.MediumDateLayout),
			models.FormatAmount(inv.TotalAmount()))
		return nil
	})
}

func runInvoiceAddItem(cmd *cobra.Command, args []string) error {
	spec, err := parseItemSpec(args[1])
	if err != nil {
		return err
	}

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		item, err := spec.resolve(ctx, s.st)
		if err != nil {
			return err
		}
		inv, err := s.st.AddItem(ctx, args[0], item)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Item added to %s. New total %s.\n", inv.InvoiceNumber, models.FormatAmount(inv.TotalAmount()))
		return nil
	})
}

func runInvoiceRemoveItem(cmd *cobra.Command, args []string) error {
	itemID, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid item id %q", args[1])
	}

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		inv, err := s.st.RemoveItem(ctx, args[0], uint(itemID))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Item %d removed from %s. New total %s.\n", itemID, inv.InvoiceNumber, models.FormatAmount(inv.TotalAmount()))
		return nil
	})
}

func runInvoiceList(cmd *cobra.Command, args []string) error {
	rawGroup, _ := cmd.Flags().GetString("group")
	hidePaid, _ := cmd.Flags().GetBool("hide-paid")
	customerRef, _ := cmd.Flags().GetString("customer")
	rawFrom, _ := cmd.Flags().GetString("from")
	rawTo, _ := cmd.Flags().GetString("to")

	grouping, err := ledger.ParseGrouping(rawGroup)
	if err != nil {
		return err
	}
	from, err := parseDateFlag(rawFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag(rawTo)
	if err != nil {
		return err
	}

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		filter := store.InvoiceFilter{From: from, To: to}
		if customerRef != "" {
			customer, err := resolveCustomer(ctx, s.st, customerRef)
			if err != nil {
				return fmt.Errorf("customer %q: %w", customerRef, err)
			}
			filter.CustomerID = &customer.ID
		}

		invoices, err := s.st.ListInvoices(ctx, filter)
		if err != nil {
			return err
		}

		groups := ledger.Group(invoices, grouping, hidePaid)
		shown := 0
		for _, g := range groups {
			shown += len(g.Invoices)
		}
		if shown == 0 {
			fmt.Fprintln(s.out, "No invoices.")
			return nil
		}

		now := time.Now()
		for i, g := range groups {
			if i > 0 {
				fmt.Fprintln(s.out)
			}
			if g.Key != "" {
				fmt.Fprintf(s.out, "== %s (%d) ==\n", g.Key, len(g.Invoices))
			}
			if err := printInvoiceTable(s.out, g.Invoices, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func runInvoiceShow(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		inv, err := s.st.GetInvoice(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return outputInvoiceJSON(s.out, inv)
		}
		return printInvoice(s.out, inv)
	})
}

func runInvoicePay(cmd *cobra.Command, args []string) error {
	unpaid, _ := cmd.Flags().GetBool("unpaid")

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		if err := s.st.MarkPaid(ctx, args[0], !unpaid); err != nil {
			return err
		}
		if unpaid {
			fmt.Fprintf(s.out, "Invoice %s marked as outstanding.\n", args[0])
		} else {
			fmt.Fprintf(s.out, "Invoice %s marked as paid.\n", args[0])
		}
		return nil
	})
}

func runInvoiceDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		if err := s.st.DeleteInvoice(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Invoice %s deleted.\n", args[0])
		return nil
	})
}

func runInvoicePDF(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")

	return withSession(cmd, "invoice", func(ctx context.Context, s *session) error {
		inv, err := s.st.GetInvoice(ctx, args[0])
		if err != nil {
			return err
		}

		if outputDir == "" {
			outputDir = s.cfg.OutputDir
		}
		path, err := pdf.NewGenerator(nil, outputDir).Generate(inv)
		if err != nil {
			return fmt.Errorf("failed to render invoice PDF: %w", err)
		}
		fmt.Fprintf(s.out, "Invoice PDF written to %s\n", path)
		return nil
	})
}

// itemSpec is a parsed product[:quantity[:discount]] argument.
type itemSpec struct {
	product  string
	quantity int
	discount decimal.Decimal // fraction
}

func parseItemSpec(raw string) (itemSpec, error) {
	spec := itemSpec{quantity: 1, discount: decimal.Zero}

	parts := strings.Split(strings.TrimSpace(raw), ":")
	numeric := func(s string) bool {
		_, err := decimal.NewFromString(strings.TrimSpace(s))
		return err == nil
	}

	// Trailing numeric parts are quantity and discount; the rest is the product.
	switch {
	case len(parts) >= 3 && numeric(parts[len(parts)-1]) && numeric(parts[len(parts)-2]):
		pct, _ := decimal.NewFromString(strings.TrimSpace(parts[len(parts)-1]))
		spec.discount = pct.Div(decimal.NewFromInt(100))
		parts = parts[:len(parts)-1]
		fallthrough
	case len(parts) >= 2 && numeric(parts[len(parts)-1]):
		qty, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
		if err != nil {
			return itemSpec{}, fmt.Errorf("invalid quantity in item %q: must be a whole number", raw)
		}
		spec.quantity = qty
		parts = parts[:len(parts)-1]
	}

	spec.product = strings.TrimSpace(strings.Join(parts, ":"))
	if spec.product == "" {
		return itemSpec{}, fmt.Errorf("invalid item %q: product is required", raw)
	}
	return spec, nil
}

func (spec itemSpec) resolve(ctx context.Context, st *store.Store) (store.NewItem, error) {
	product, err := resolveProduct(ctx, st, spec.product)
	if err != nil {
		return store.NewItem{}, fmt.Errorf("product %q: %w", spec.product, err)
	}
	return store.NewItem{
		ProductID:    product.ID,
		Quantity:     spec.quantity,
		DiscountRate: spec.discount,
	}, nil
}

func parseTermsFlag(raw string) (models.PaymentTerms, error) {
	raw = strings.TrimSpace(raw)
	for _, terms := range models.AllPaymentTerms {
		if strings.EqualFold(raw, string(terms)) || strings.EqualFold(strings.ReplaceAll(raw, " ", ""), strings.ReplaceAll(string(terms), " ", "")) {
			return terms, nil
		}
	}
	return "", fmt.Errorf("unknown payment terms %q (want %s)", raw, termNames())
}

func termNames() string {
	names := make([]string, 0, len(models.AllPaymentTerms))
	for _, terms := range models.AllPaymentTerms {
		names = append(names, string(terms))
	}
	return strings.Join(names, ", ")
}

func printInvoiceTable(out io.Writer, invoices []models.Invoice, now time.Time) error {
	w := newTable(out)
	fmt.Fprintln(w, "NUMBER\tDATE\tDUE\tSTATUS\tCUSTOMER\tTOTAL")
	for i := range invoices {
		inv := &invoices[i]
		status := inv.Status()
		if inv.IsOverdue(now) {
			status += " (overdue)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.InvoiceNumber,
			inv.Date.Format(models.MediumDateLayout),
			inv.DueDate().Format(models.MediumDateLayout),
			status,
			customerLabel(inv),
			models.FormatAmount(inv.TotalAmount()))
	}
	return w.Flush()
}

func printInvoice(out io.Writer, inv *models.Invoice) error {
	rate := inv.CompanyTaxRate()
	taxLabel := models.DefaultTaxLabel
	if inv.CompanyInfo != nil {
		taxLabel = inv.CompanyInfo.TaxLabel
	}

	w := newTable(out)
	fmt.Fprintf(w, "Invoice:\t%s\n", inv.InvoiceNumber)
	fmt.Fprintf(w, "Date:\t%s\n", inv.Date.Format(models.MediumDateLayout))
	fmt.Fprintf(w, "Due:\t%s (%s)\n", inv.DueDate().Format(models.MediumDateLayout), inv.PaymentTerms())
	fmt.Fprintf(w, "Status:\t%s\n", inv.Status())
	fmt.Fprintf(w, "Customer:\t%s\n", customerLabel(inv))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	w = newTable(out)
	fmt.Fprintln(w, "ID\tITEM\tQTY\tPRICE\tDISCOUNT\tTAX\tLINE TOTAL\tCURR.")
	for i := range inv.Items {
		item := &inv.Items[i]
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s%%\t%d%%\t%s\t%s\n",
			item.ID,
			item.Product.Name,
			item.Quantity,
			models.FormatAmount(item.Product.Price),
			item.DiscountRate.Mul(decimal.NewFromInt(100)).StringFixed(0),
			item.EffectiveTaxRate(rate),
			models.FormatAmount(item.LineTotal(rate)),
			item.Product.Currency)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	totals := inv.Totals()
	w = newTable(out)
	fmt.Fprintf(w, "Subtotal:\t%s\n", models.FormatAmount(totals.Subtotal))
	fmt.Fprintf(w, "%s Total:\t%s\n", taxLabel, models.FormatAmount(totals.Tax))
	fmt.Fprintf(w, "Total:\t%s\n", models.FormatAmount(totals.Total))
	return w.Flush()
}

// outputInvoiceJSON prints the invoice with its derived values as JSON.
func outputInvoiceJSON(out io.Writer, inv *models.Invoice) error {
	totals := inv.Totals()
	output := InvoiceOutput{
		Invoice:  inv,
		DueDate:  inv.DueDate(),
		Status:   inv.Status(),
		Subtotal: models.FormatAmount(totals.Subtotal),
		Tax:      models.FormatAmount(totals.Tax),
		Total:    models.FormatAmount(totals.Total),
	}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(jsonData))
	return err
}
