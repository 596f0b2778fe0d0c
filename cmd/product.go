package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"invoicer/internal/store"
	"invoicer/pkg/models"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage the product catalog",
}

var productAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product",
	Long: `Add a product to the catalog. Without --tax-rate the product is taxed at
the company rate.`,
	Example: `  invoicer product add --name Consulting --price 95.00
  invoicer product add --name "Reduced book" --price 12,50 --tax-rate 7 --currency eur`,
	Args: cobra.NoArgs,
	RunE: runProductAdd,
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	Args:  cobra.NoArgs,
	RunE:  runProductList,
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a product no invoice uses",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductDelete,
}

func init() {
	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productAddCmd, productListCmd, productDeleteCmd)

	productAddCmd.Flags().String("name", "", "Product name (required)")
	productAddCmd.Flags().String("price", "", "Unit price, e.g. 19.99 (required)")
	productAddCmd.Flags().Int("tax-rate", 0, "Tax rate override in whole percent (0-100)")
	productAddCmd.Flags().String("currency", models.DefaultCurrency, "Currency code")
	_ = productAddCmd.MarkFlagRequired("name")
	_ = productAddCmd.MarkFlagRequired("price")
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	rawPrice, _ := cmd.Flags().GetString("price")
	currency, _ := cmd.Flags().GetString("currency")

	price, err := models.ParsePrice(rawPrice)
	if err != nil {
		return err
	}

	product := &models.Product{Name: name, Price: price, Currency: currency}
	if cmd.Flags().Changed("tax-rate") {
		rate, _ := cmd.Flags().GetInt("tax-rate")
		product.TaxRate = models.IntPtr(rate)
	}

	return withSession(cmd, "product", func(ctx context.Context, s *session) error {
		if err := s.st.CreateProduct(ctx, product); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Product %d %q added (%s %s).\n",
			product.ID, product.Name, models.FormatAmount(product.Price), product.Currency)
		return nil
	})
}

func runProductList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "product", func(ctx context.Context, s *session) error {
		products, err := s.st.ListProducts(ctx)
		if err != nil {
			return err
		}
		if len(products) == 0 {
			fmt.Fprintln(s.out, "No products yet. Add one with 'invoicer product add'.")
			return nil
		}

		w := newTable(s.out)
		fmt.Fprintln(w, "ID\tNAME\tPRICE\tCURRENCY\tTAX")
		for _, p := range products {
			tax := "company"
			if p.TaxRate != nil {
				tax = fmt.Sprintf("%d%%", *p.TaxRate)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, models.FormatAmount(p.Price), p.Currency, tax)
		}
		return w.Flush()
	})
}

func runProductDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "product", func(ctx context.Context, s *session) error {
		product, err := resolveProduct(ctx, s.st, args[0])
		if err != nil {
			return err
		}
		if err := s.st.DeleteProduct(ctx, product.ID); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Product %q deleted.\n", product.Name)
		return nil
	})
}

// resolveProduct looks a product up by numeric id, else by name.
func resolveProduct(ctx context.Context, st *store.Store, ref string) (*models.Product, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return st.GetProduct(ctx, uint(id))
	}
	return st.FindProductByName(ctx, ref)
}
