package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/statement"
)

func parseStatementID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid statement id %q", arg)
	}
	return id, nil
}

func newMatchCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <statement-id>",
		Short: "Match the lines of a draft statement with the configured matcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStatementID(args[0])
			if err != nil {
				return err
			}
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.matcher()
			if err != nil {
				return err
			}
			if m == nil {
				return fmt.Errorf("unknown matcher %q", a.cfg.Matching.Matcher)
			}

			sum, err := statement.NewService(a.store, a.log).Match(cmd.Context(), id, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Statement %d: %d lines, %d matched, %d noted\n", id, sum.Lines, sum.Matched, sum.Noted)
			for _, f := range sum.Failed {
				fmt.Fprintf(out, "line %d: %v\n", f.Line, f.Err)
			}
			return nil
		},
	}
}

func newPrepareCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare <statement-id>",
		Short: "Move a draft statement to in progress once every line is settled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStatementID(args[0])
			if err != nil {
				return err
			}
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			err = statement.NewService(a.store, a.log).Prepare(cmd.Context(), id)
			var verr *statement.ValidationError
			if errors.As(err, &verr) {
				return errors.New(verr.Message(a.printer))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Statement %d prepared\n", id)
			return nil
		},
	}
}

func newLinesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lines <statement-id>",
		Short: "List the lines of a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseStatementID(args[0])
			if err != nil {
				return err
			}
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.Statement(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Statement %d %q (%s)\n", st.ID, st.Name, st.DocStatus)
			fmt.Fprintf(out, "%-10s %-10s %12s %8s %8s %8s  %s\n",
				"LINE", "DATE", "AMOUNT", "INVOICE", "PAYMENT", "PARTNER", "DESCRIPTION")
			for _, l := range st.Lines {
				fmt.Fprintf(out, "%-10d %-10s %12s %8d %8d %8d  %s\n",
					l.Line, l.StatementLineDate.Format("2006-01-02"), l.TrxAmt.StringFixed(2),
					l.InvoiceID, l.PaymentID, l.PartnerID, l.Description)
			}
			return nil
		},
	}
}
