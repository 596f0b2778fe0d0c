package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"invoicer/internal/pdf"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Show and edit the issuing company",
	Long: `The company is printed at the top of every invoice. There is exactly one
company per database; the first 'company set' creates it.`,
}

var companyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the company details",
	Args:  cobra.NoArgs,
	RunE:  runCompanyShow,
}

var companySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or update the company details",
	Long: `Create or update the company details. Only the flags you pass are changed.

The payment instructions may use the placeholders {bankAccount} and
{invoiceNumber}; they are filled in on every invoice.`,
	Example: `  # First time setup
  invoicer company set --name "Acme GmbH" --street "Main St 1" --city Berlin --tax-rate 19

  # Change the tax label and bank account later
  invoicer company set --tax-label MwSt --bank-account DE89370400440532013000`,
	Args: cobra.NoArgs,
	RunE: runCompanySet,
}

var companyAppearanceCmd = &cobra.Command{
	Use:     "appearance",
	Short:   "Set the invoice font and font size",
	Example: `  invoicer company appearance --font "Times New Roman" --size 11`,
	Args:    cobra.NoArgs,
	RunE:    runCompanyAppearance,
}

var companyLogoCmd = &cobra.Command{
	Use:   "logo [image-file]",
	Short: "Set or remove the company logo (PNG, JPEG or GIF)",
	Example: `  invoicer company logo logo.png
  invoicer company logo --remove`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompanyLogo,
}

func init() {
	rootCmd.AddCommand(companyCmd)
	companyCmd.AddCommand(companyShowCmd, companySetCmd, companyAppearanceCmd, companyLogoCmd)

	companySetCmd.Flags().String("name", "", "Company name")
	companySetCmd.Flags().String("street", "", "Street address")
	companySetCmd.Flags().String("post-code", "", "Post code")
	companySetCmd.Flags().String("city", "", "City")
	companySetCmd.Flags().String("country", "", "Country")
	companySetCmd.Flags().String("tax-id", "", "Tax identification number")
	companySetCmd.Flags().String("tax-label", "", "Label of the tax line, e.g. VAT")
	companySetCmd.Flags().Int("tax-rate", 0, "Default tax rate in whole percent (0-100)")
	companySetCmd.Flags().String("footer", "", "Footer text printed above the payment instructions")
	companySetCmd.Flags().String("bank-account", "", "Bank account for payment instructions")
	companySetCmd.Flags().String("payment-instructions", "", "Payment instruction template")
	companySetCmd.Flags().String("cc-email", "", "Address to copy on invoice mails")

	companyAppearanceCmd.Flags().String("font", "", "Font name: "+strings.Join(models.FontNames, ", "))
	companyAppearanceCmd.Flags().Int("size", 0, "Font size (8-36)")

	companyLogoCmd.Flags().Bool("remove", false, "Remove the stored logo")
}

func runCompanyShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "company", func(ctx context.Context, s *session) error {
		company, err := s.st.GetCompany(ctx)
		if err != nil {
			return err
		}

		w := newTable(s.out)
		fmt.Fprintf(w, "Name:\t%s\n", company.Name)
		fmt.Fprintf(w, "Address:\t%s\n", company.StreetAddress)
		fmt.Fprintf(w, "\t%s %s\n", company.PostCode, company.City)
		fmt.Fprintf(w, "\t%s\n", company.Country)
		fmt.Fprintf(w, "Tax ID:\t%s\n", company.TaxID)
		fmt.Fprintf(w, "Tax:\t%s %d%%\n", company.TaxLabel, company.TaxRate)
		fmt.Fprintf(w, "Bank account:\t%s\n", company.BankAccount)
		fmt.Fprintf(w, "Payment instructions:\t%s\n", company.PaymentInstructions)
		fmt.Fprintf(w, "Footer:\t%s\n", company.FooterText)
		fmt.Fprintf(w, "CC email:\t%s\n", company.CCEmail)
		fmt.Fprintf(w, "Font:\t%s %dpt\n", company.FontName, company.FontSize)
		if company.HasLogo() {
			fmt.Fprintf(w, "Logo:\t%d bytes\n", len(company.LogoData))
		} else {
			fmt.Fprintf(w, "Logo:\tnone\n")
		}
		return w.Flush()
	})
}

func runCompanySet(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "company", func(ctx context.Context, s *session) error {
		company, err := s.st.GetCompany(ctx)
		switch {
		case errors.Is(err, store.ErrCompanyNotConfigured):
			company = models.NewCompanyInfo()
		case err != nil:
			return err
		}

		flags := cmd.Flags()
		stringFields := map[string]*string{
			"name":                 &company.Name,
			"street":               &company.StreetAddress,
			"post-code":            &company.PostCode,
			"city":                 &company.City,
			"country":              &company.Country,
			"tax-id":               &company.TaxID,
			"tax-label":            &company.TaxLabel,
			"footer":               &company.FooterText,
			"bank-account":         &company.BankAccount,
			"payment-instructions": &company.PaymentInstructions,
			"cc-email":             &company.CCEmail,
		}
		for name, field := range stringFields {
			if flags.Changed(name) {
				*field, _ = flags.GetString(name)
			}
		}
		if flags.Changed("tax-rate") {
			company.TaxRate, _ = flags.GetInt("tax-rate")
		}

		s.log.Info().
			Str("name", company.Name).
			Int("tax_rate", company.TaxRate).
			Msg("Saving company info")

		if err := s.st.SaveCompany(ctx, company); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Company %q saved.\n", company.Name)
		return nil
	})
}

func runCompanyAppearance(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "company", func(ctx context.Context, s *session) error {
		company, err := s.st.GetCompany(ctx)
		if err != nil {
			return err
		}

		fontName, fontSize := company.FontName, company.FontSize
		if cmd.Flags().Changed("font") {
			fontName, _ = cmd.Flags().GetString("font")
		}
		if cmd.Flags().Changed("size") {
			fontSize, _ = cmd.Flags().GetInt("size")
		}

		company, err = s.st.SaveAppearance(ctx, fontName, fontSize)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Invoice font set to %s %dpt.\n", company.FontName, company.FontSize)
		return nil
	})
}

func runCompanyLogo(cmd *cobra.Command, args []string) error {
	remove, _ := cmd.Flags().GetBool("remove")
	if remove == (len(args) == 1) {
		return fmt.Errorf("pass either an image file or --remove")
	}

	return withSession(cmd, "company", func(ctx context.Context, s *session) error {
		if remove {
			if err := s.st.SetLogo(ctx, nil); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Logo removed.")
			return nil
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			s.log.Error().
				Err(err).
				Str("file", args[0]).
				Msg("Failed to read logo file")
			return fmt.Errorf("failed to read logo file: %w", err)
		}

		imageType, err := pdf.DetectImageType(data)
		if err != nil {
			return fmt.Errorf("logo must be a PNG, JPEG or GIF image: %w", err)
		}

		if err := s.st.SetLogo(ctx, data); err != nil {
			return err
		}

		s.log.Info().
			Str("file", args[0]).
			Str("type", imageType).
			Int("bytes", len(data)).
			Msg("Logo stored")
		fmt.Fprintf(s.out, "Logo set from %s (%s, %d bytes).\n", args[0], imageType, len(data))
		return nil
	})
}
