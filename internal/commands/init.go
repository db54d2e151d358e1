package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/importer"
	"github.com/bxservice/hibiscus-recon/internal/store/sqlite"
)

type initOptions struct {
	language     string
	invoiceRegex string
	matcher      string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new reconciliation project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized Hibiscus reconciliation project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.language, "language", "en", "language of notes and messages (en, de)")
	cmd.Flags().StringVar(&opts.invoiceRegex, "invoice-regex", "", "comma-separated invoice number patterns, one capture group each")
	cmd.Flags().StringVar(&opts.matcher, "matcher", "invoice-in-memo", "matchers used by run --match, comma-separated and tried in order")

	return cmd
}

func runInit(dir string, opts initOptions) error {
	dirs := []string{
		"logs",
		"import",
		filepath.Join("import", importer.ProcessedDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	cfg.Language = opts.language
	cfg.Matching.SalesInvoiceMatchRegex = opts.invoiceRegex
	cfg.Matching.Matcher = opts.matcher
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := config.Save(filepath.Join(dir, ConfigFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "*.db\n*.db-shm\n*.db-wal\n.env\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	st, err := sqlite.Open(filepath.Join(dir, cfg.Database.Path), zerolog.Nop())
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	return st.Close()
}
