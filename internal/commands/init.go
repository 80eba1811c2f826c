package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imacat/mia-accounting-django-sub000/internal/accounts"
	"github.com/imacat/mia-accounting-django-sub000/internal/config"
	"github.com/imacat/mia-accounting-django-sub000/internal/store"
)

func newInitCommand() *cobra.Command {
	var driver string
	var dsn string
	var noChart bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new mia ledger",
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

			created, err := runInit(cmd.Context(), absDir, driver, dsn, !noChart)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized mia ledger at %s (%d accounts)\n", absDir, created)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite", "database driver: sqlite or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (default: mia.db in the directory)")
	cmd.Flags().BoolVar(&noChart, "empty", false, "skip loading the default chart of accounts")

	return cmd
}

func runInit(ctx context.Context, dir, driver, dsn string, withChart bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	configPath := filepath.Join(dir, "mia.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return 0, fmt.Errorf("%s already exists", configPath)
	}

	cfg := config.Default()
	cfg.Database.Driver = driver
	switch {
	case dsn != "":
		cfg.Database.DSN = dsn
	case driver == "sqlite":
		cfg.Database.DSN = filepath.Join(dir, "mia.db")
	default:
		return 0, fmt.Errorf("--dsn is required for driver %s", driver)
	}
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	// Opening the store runs the migrations.
	s, err := store.Open(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return 0, err
	}
	defer s.Close()

	created := 0
	if withChart {
		created, err = accounts.NewRegistry(s).Import(ctx, accounts.DefaultChart())
		if err != nil {
			return 0, fmt.Errorf("loading chart of accounts: %w", err)
		}
	}

	if err := config.Save(configPath, cfg); err != nil {
		return 0, err
	}
	return created, nil
}
