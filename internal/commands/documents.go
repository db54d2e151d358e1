package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/model"
)

// The invoice, partner and payment commands record the ERP documents the
// matchers look up.

func newInvoiceCommand(root *rootOptions) *cobra.Command {
	invoiceCmd := &cobra.Command{
		Use:   "invoice",
		Short: "Invoice operations",
	}
	invoiceCmd.AddCommand(newInvoiceAddCommand(root))
	return invoiceCmd
}

func newInvoiceAddCommand(root *rootOptions) *cobra.Command {
	var (
		inv       model.Invoice
		status    string
		total     string
		open      string
		purchases bool
		inactive  bool
	)

	cmd := &cobra.Command{
		Use:   "add <document-no>",
		Short: "Record an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			inv.DocumentNo = args[0]
			inv.IsSOTrx = !purchases
			inv.IsActive = !inactive
			inv.DocStatus = model.DocStatus(strings.ToUpper(status))
			if inv.GrandTotal, err = decimal.NewFromString(total); err != nil {
				return fmt.Errorf("invalid --total %q: %w", total, err)
			}
			inv.OpenAmt = inv.GrandTotal
			if open != "" {
				if inv.OpenAmt, err = decimal.NewFromString(open); err != nil {
					return fmt.Errorf("invalid --open %q: %w", open, err)
				}
			}

			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.CreateInvoice(cmd.Context(), &inv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invoice %s created (id %d, open %s)\n",
				inv.DocumentNo, inv.ID, inv.OpenAmt.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().StringVar(&total, "total", "", "grand total (required)")
	cmd.Flags().StringVar(&open, "open", "", "open amount, defaults to the grand total")
	cmd.Flags().Int64Var(&inv.PartnerID, "partner", 0, "business partner id")
	cmd.Flags().StringVar(&status, "status", string(model.DocStatusCompleted), "document status")
	cmd.Flags().BoolVar(&purchases, "purchase", false, "vendor invoice instead of a sales invoice")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "record the invoice as inactive")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}

func newPartnerCommand(root *rootOptions) *cobra.Command {
	partnerCmd := &cobra.Command{
		Use:   "partner",
		Short: "Business partner operations",
	}
	partnerCmd.AddCommand(newPartnerAddCommand(root))
	return partnerCmd
}

func newPartnerAddCommand(root *rootOptions) *cobra.Command {
	var ibans []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Record a business partner and its bank accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			p := model.Partner{Name: args[0], IBAN: ibans}
			if err := a.store.CreatePartner(cmd.Context(), &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Partner %d created (%s)\n", p.ID, p.Name)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ibans, "iban", nil, "IBAN of the partner, repeatable")

	return cmd
}

func newPaymentCommand(root *rootOptions) *cobra.Command {
	paymentCmd := &cobra.Command{
		Use:   "payment",
		Short: "Payment operations",
	}
	paymentCmd.AddCommand(newPaymentAddCommand(root))
	return paymentCmd
}

func newPaymentAddCommand(root *rootOptions) *cobra.Command {
	var (
		p       model.Payment
		amount  string
		date    string
		status  string
		receipt bool
	)

	cmd := &cobra.Command{
		Use:   "add <document-no>",
		Short: "Record an unreconciled payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			p.DocumentNo = args[0]
			p.IsReceipt = receipt
			p.DocStatus = model.DocStatus(strings.ToUpper(status))
			if p.PayAmt, err = decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			if p.DateTrx, err = time.Parse(time.DateOnly, date); err != nil {
				return fmt.Errorf("invalid --date %q: %w", date, err)
			}

			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.CreatePayment(cmd.Context(), &p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Payment %s created (id %d)\n", p.DocumentNo, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "payment amount (required)")
	cmd.Flags().StringVar(&date, "date", "", "transaction date, YYYY-MM-DD (required)")
	cmd.Flags().Int64Var(&p.PartnerID, "partner", 0, "business partner id (required)")
	cmd.Flags().Int64Var(&p.InvoiceID, "invoice", 0, "invoice id the payment settles")
	cmd.Flags().StringVar(&status, "status", string(model.DocStatusCompleted), "document status")
	cmd.Flags().BoolVar(&receipt, "receipt", false, "incoming payment")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("partner")

	return cmd
}
