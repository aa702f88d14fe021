// Command lcadmin runs operator tasks against the Lao Cinema database:
// schema migrations, staff accounts and session cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/cmd/lcadmin/ui"
	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/database"
	"github.com/laocinema/lao-cinema-api/internal/logging"
)

// app is shared by every subcommand. The database is opened on first use
// so migrate commands never need a live pool.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *bun.DB
}

func (a *app) openDB(ctx context.Context) (*bun.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		a.close()
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lcadmin",
		Short:         "Lao Cinema administration tool",
		Long:          "Run database migrations, manage staff accounts and prune sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			a.cfg = cfg
			a.logger = logging.NewLogger(verbose)
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Human-readable debug logging")

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newUserCmd(a),
		newSessionsCmd(a),
	)
	return rootCmd
}
