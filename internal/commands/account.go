package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/accounts"
	"github.com/bxservice/hibiscus-recon/internal/model"
)

func newAccountCommand(root *rootOptions) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Bank account operations",
	}
	accountCmd.AddCommand(newAccountAddCommand(root))
	accountCmd.AddCommand(newAccountImportCommand(root))
	return accountCmd
}

func newAccountAddCommand(root *rootOptions) *cobra.Command {
	var ba model.BankAccount

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a bank account exports are loaded into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.CreateBankAccount(cmd.Context(), &ba); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bank account %d created (%s / %s)\n", ba.ID, ba.AccountNo, ba.RoutingNo)
			return nil
		},
	}

	cmd.Flags().StringVar(&ba.Name, "name", "", "account name")
	cmd.Flags().StringVar(&ba.AccountNo, "account-no", "", "account number as exported by Hibiscus (required)")
	cmd.Flags().StringVar(&ba.RoutingNo, "routing-no", "", "bank routing number or BIC (required)")
	_ = cmd.MarkFlagRequired("account-no")
	_ = cmd.MarkFlagRequired("routing-no")

	return cmd
}

func newAccountImportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Register the bank accounts listed in a CSV file (" + accounts.Header + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening bank account file: %w", err)
			}
			defer f.Close()

			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := accounts.NewService(a.store).Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d bank accounts created, %d already known\n", len(res.Created), len(res.Skipped))
			return nil
		},
	}
}
