package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bxservice/hibiscus-recon/internal/buildinfo"
	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/i18n"
	"github.com/bxservice/hibiscus-recon/internal/logger"
	"github.com/bxservice/hibiscus-recon/internal/matcher"
	"github.com/bxservice/hibiscus-recon/internal/store/cached"
	"github.com/bxservice/hibiscus-recon/internal/store/sqlite"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = "hibiscus.yaml"

type rootOptions struct {
	configPath string
	dbPath     string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:     "hibiscus",
		Short:   "Import Hibiscus bank exports and reconcile statement lines",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", ConfigFile, "configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database file (overrides the configuration)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newAccountCommand(opts))
	rootCmd.AddCommand(newInvoiceCommand(opts))
	rootCmd.AddCommand(newPartnerCommand(opts))
	rootCmd.AddCommand(newPaymentCommand(opts))
	rootCmd.AddCommand(newLoadCommand(opts))
	rootCmd.AddCommand(newRunCommand(opts))
	rootCmd.AddCommand(newMatchCommand(opts))
	rootCmd.AddCommand(newPrepareCommand(opts))
	rootCmd.AddCommand(newLinesCommand(opts))

	return rootCmd
}

// app is what a command needs once configuration is resolved.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *cached.Store
	printer *i18n.Printer
	baseDir string
}

// open loads the configuration, applies .env and environment overrides,
// and opens the database. Relative paths in the configuration are resolved
// against the directory of the configuration file.
func (o *rootOptions) open() (*app, error) {
	baseDir := filepath.Dir(o.configPath)

	cfg, err := config.Load(o.configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Database.Path = resolvePath(baseDir, cfg.Database.Path)
	cfg.Log.RunLog = resolvePath(baseDir, cfg.Log.RunLog)
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Log.Level)
	st, err := sqlite.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     log,
		store:   cached.New(st, cached.DefaultExpiration),
		printer: i18n.NewPrinter(cfg.Language),
		baseDir: baseDir,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// matcher builds the configured matchers as one chain. It is nil when a
// configured identifier is unknown.
func (a *app) matcher() (matcher.Matcher, error) {
	return matcher.DefaultRegistry().NewChain(a.cfg.Matching.MatcherNames(), matcher.Deps{
		Config:   a.cfg.Matching,
		Invoices: a.store,
		Payments: a.store,
		Printer:  a.printer,
		Log:      a.log,
	})
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
