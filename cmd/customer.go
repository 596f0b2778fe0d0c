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

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers",
}

var customerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a customer",
	Long:  `Add a customer. A name is required, plus an email address or a phone number.`,
	Example: `  invoicer customer add --name "Globex Corp" --email ap@globex.example
  invoicer customer add --name "Walk-in" --phone "+49 30 123456" --address "Alexanderplatz 1, Berlin"`,
	Args: cobra.NoArgs,
	RunE: runCustomerAdd,
}

var customerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers",
	Args:  cobra.NoArgs,
	RunE:  runCustomerList,
}

var customerDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a customer; their invoices are kept without a customer",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomerDelete,
}

func init() {
	rootCmd.AddCommand(customerCmd)
	customerCmd.AddCommand(customerAddCmd, customerListCmd, customerDeleteCmd)

	customerAddCmd.Flags().String("name", "", "Customer name (required)")
	customerAddCmd.Flags().String("address", "", "Postal address")
	customerAddCmd.Flags().String("email", "", "Email address")
	customerAddCmd.Flags().String("phone", "", "Phone number")
	_ = customerAddCmd.MarkFlagRequired("name")
}

func runCustomerAdd(cmd *cobra.Command, args []string) error {
	customer := &models.Customer{}
	customer.Name, _ = cmd.Flags().GetString("name")
	customer.Address, _ = cmd.Flags().GetString("address")
	customer.Email, _ = cmd.Flags().GetString("email")
	customer.Phone, _ = cmd.Flags().GetString("phone")

	return withSession(cmd, "customer", func(ctx context.Context, s *session) error {
		if err := s.st.CreateCustomer(ctx, customer); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Customer %d %q added.\n", customer.ID, customer.Name)
		return nil
	})
}

func runCustomerList(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "customer", func(ctx context.Context, s *session) error {
		customers, err := s.st.ListCustomers(ctx)
		if err != nil {
			return err
		}
		if len(customers) == 0 {
			fmt.Fprintln(s.out, "No customers yet. Add one with 'invoicer customer add'.")
			return nil
		}

		w := newTable(s.out)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
		for _, c := range customers {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Phone)
		}
		return w.Flush()
	})
}

func runCustomerDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, "customer", func(ctx context.Context, s *session) error {
		customer, err := resolveCustomer(ctx, s.st, args[0])
		if err != nil {
			return err
		}
		if err := s.st.DeleteCustomer(ctx, customer.ID); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Customer %q deleted.\n", customer.Name)
		return nil
	})
}

// resolveCustomer looks a customer up by numeric id, else by name.
func resolveCustomer(ctx context.Context, st *store.Store, ref string) (*models.Customer, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return st.GetCustomer(ctx, uint(id))
	}
	return st.FindCustomerByName(ctx, ref)
}
