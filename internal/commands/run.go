package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/importer"
	"github.com/bxservice/hibiscus-recon/internal/matcher"
	"github.com/bxservice/hibiscus-recon/internal/pipeline"
	"github.com/bxservice/hibiscus-recon/internal/statement"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		opts pipeline.Options
		dir  string
	)

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Load, import and optionally match a Hibiscus export",
		Long: "Runs delete-import, load and import for one export file, or for every CSV in --dir.\n" +
			"With --match the configured matcher runs over the new statements, and with\n" +
			"--create-payments matched invoices get a reconciled payment.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (dir == "") {
				return errors.New("pass either a file or --dir")
			}
			a, err := root.open()
			if err != nil {
				return err
			}
			defer a.Close()

			var files []importer.FileInfo
			if dir != "" {
				if files, err = importer.Scan(dir); err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", dir)
					return nil
				}
			} else {
				files = []importer.FileInfo{{Name: args[0], Path: args[0]}}
			}
			return runPipeline(cmd, a, files, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Match, "match", false, "match the imported statement lines")
	cmd.Flags().BoolVar(&opts.CreatePayments, "create-payments", false, "create payments for matched invoices (needs --match)")
	cmd.Flags().StringVar(&dir, "dir", "", "process every CSV file in this directory and move it to processed/")

	return cmd
}

func runPipeline(cmd *cobra.Command, a *app, files []importer.FileInfo, dir string, opts pipeline.Options) error {
	if opts.CreatePayments && !opts.Match {
		a.log.Warn().Msg("--create-payments has no effect without --match")
	}

	var m matcher.Matcher
	if opts.Match {
		var err error
		if m, err = a.matcher(); err != nil {
			return err
		}
		if m == nil {
			a.log.Warn().Str("matcher", a.cfg.Matching.Matcher).Msg("unknown matcher, matching is skipped")
		}
	}

	loader := importer.NewLoader(a.store, a.cfg.Hibiscus, a.log)
	svc := statement.NewService(a.store, a.log)
	p := pipeline.New(a.log, a.cfg.Log.RunLog, pipeline.Steps(a.store, loader, svc, m, opts)...)

	out := cmd.OutOrStdout()
	failed := 0
	for _, f := range files {
		state, err := p.Run(cmd.Context(), f.Path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", f.Name, err)
			continue
		}
		printState(out, f.Name, state)

		if dir != "" {
			dst, err := importer.MarkProcessed(dir, f.Name)
			if err != nil {
				return fmt.Errorf("moving %s: %w", f.Name, err)
			}
			a.log.Debug().Str("file", f.Name).Str("to", dst).Msg("file processed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func printState(w io.Writer, name string, state *pipeline.State) {
	fmt.Fprintf(w, "%s (run %s)\n", name, state.RunID)
	if state.Load != nil {
		for _, warning := range state.Load.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warning)
		}
	}
	for i, st := range state.Statements {
		fmt.Fprintf(w, "  statement %d %q: %d lines", st.ID, st.Name, len(st.Lines))
		if i < len(state.Matches) {
			m := state.Matches[i]
			fmt.Fprintf(w, ", %d matched, %d noted", m.Matched, m.Noted)
			for _, f := range m.Failed {
				fmt.Fprintf(w, "\n  line %d: %v", f.Line, f.Err)
			}
		}
		fmt.Fprintln(w)
	}
	if len(state.Payments) > 0 {
		fmt.Fprintf(w, "  %d payments created\n", len(state.Payments))
	}
}
