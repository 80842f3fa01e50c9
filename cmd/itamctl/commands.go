package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"itam-api/internal/auth"
	"itam-api/internal/config"
	"itam-api/internal/inventory"
	"itam-api/internal/store/postgres"
	"itam-api/pkg/importer"
)

type rootOptions struct {
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "itamctl",
		Short:         "Administer the IT asset ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newTokenCommand())
	return cmd
}

func (o *rootOptions) logger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).Level(level).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		file        string
		mappingPath string
		dryRun      bool
		maxErrors   int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an accountability spreadsheet into the ledger",
		Long: `Import reads the first sheet of an .xlsx accountability workbook,
creates one item per row and files it under its owner's ledger.

With --dry-run the workbook is only parsed and classified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			mapping := importer.DefaultMapping()
			if mappingPath != "" {
				m, err := importer.LoadMapping(mappingPath)
				if err != nil {
					return err
				}
				mapping = m
			}
			return runImport(cmd.Context(), opts.logger(cmd.ErrOrStderr()), cmd.OutOrStdout(), file, importer.ImportOptions{
				Mapping:   mapping,
				DryRun:    dryRun,
				MaxErrors: maxErrors,
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the .xlsx workbook")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "column mapping YAML (defaults to the built-in layout)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and classify without writing")
	cmd.Flags().IntVar(&maxErrors, "max-errors", importer.DefaultMaxErrors, "abort when more rows than this fail to parse")
	return cmd
}

func runImport(ctx context.Context, log zerolog.Logger, out io.Writer, path string, opts importer.ImportOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	pool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	svc := inventory.NewService(postgres.New(pool), inventory.Options{
		ComputerTypes: cfg.ComputerTypes,
		HistoryLimit:  cfg.HistoryLimit,
		Logger:        &log,
	})

	log.Info().Str("file", path).Bool("dry_run", opts.DryRun).Msg("importing workbook")
	summary, err := importer.ImportExcel(ctx, svc, f, opts)
	if err != nil {
		return err
	}
	return printSummary(out, summary)
}

func printSummary(w io.Writer, s importer.ImportSummary) error {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Sheet:      %s\n", s.Sheet)
	fmt.Fprintf(w, "Rows:       %d\n", s.Rows)
	fmt.Fprintf(w, "Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "Assets:     %d\n", s.Assets)
	fmt.Fprintf(w, "Computers:  %d\n", s.Computers)
	fmt.Fprintf(w, "Errors:     %d\n", s.Errors)
	fmt.Fprintf(w, "Dry run:    %v\n", s.DryRun)
	if s.BatchID != "" {
		fmt.Fprintf(w, "Batch:      %s\n", s.BatchID)
		fmt.Fprintf(w, "Created:    %d\n", len(s.Created))
	}
	for _, e := range s.Samples {
		fmt.Fprintf(w, "  row %d: %s\n", e.Row, e.Message)
	}
	return nil
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate <up|down|status>",
		Short:     "Apply, roll back or list schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := postgres.OpenMigrationDB(cfg.DBDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			switch args[0] {
			case "up":
				err = postgres.Migrate(ctx, db)
			case "down":
				err = postgres.MigrateDown(ctx, db)
			case "status":
				err = postgres.MigrationStatus(ctx, db)
			default:
				err = fmt.Errorf("unknown migrate direction %q", args[0])
			}
			return err
		},
	}
	return cmd
}

type tokenOutput struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newTokenCommand() *cobra.Command {
	var (
		userID int64
		email  string
		roles  []string
		expiry time.Duration
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if secret != "" {
				cfg.JWTSecret = secret
			}
			if expiry > 0 {
				cfg.JWTExpiry = expiry
			}

			mgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
			if err := mgr.ValidateConfig(); err != nil {
				return err
			}
			tok, err := mgr.GenerateToken(userID, email, roles)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tokenOutput{
				Token:     tok,
				UserID:    userID,
				Email:     email,
				Roles:     roles,
				ExpiresAt: time.Now().Add(cfg.JWTExpiry).UTC().Truncate(time.Second),
			})
		},
	}

	cmd.Flags().Int64Var(&userID, "user-id", 1, "user id carried in the uid claim")
	cmd.Flags().StringVar(&email, "email", "", "email carried in the token")
	cmd.Flags().StringSliceVar(&roles, "role", []string{auth.RoleAdmin}, "role(s) to grant")
	cmd.Flags().DurationVar(&expiry, "expiry", 0, "token lifetime (defaults to JWT_EXPIRY)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (overrides JWT_SECRET)")
	return cmd
}
