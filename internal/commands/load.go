package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/importer"
)

func newLoadCommand(root *rootOptions) *cobra.Command {
	var deleteOld bool

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Stage the rows of a Hibiscus export without importing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if deleteOld {
				n, err := a.store.DeleteAllStaging(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %d staged rows\n", n)
			}

			loader := importer.NewLoader(a.store, a.cfg.Hibiscus, a.log)
			res, err := loader.LoadFile(cmd.Context(), args[0])
			if res != nil {
				for _, w := range res.Warnings {
					fmt.Fprintf(out, "warning: %s\n", w)
				}
				fmt.Fprintf(out, "Staged %d rows as statement %q\n", len(res.Staged), res.StatementName)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&deleteOld, "delete-old", false, "delete previously staged rows first")

	return cmd
}
