package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laocinema/lao-cinema-api/cmd/lcadmin/ui"
	"github.com/laocinema/lao-cinema-api/internal/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.MigrateUp(a.cfg.Database.URL(), a.logger); err != nil {
				return err
			}
			ui.PrintSuccess("Database is up to date")
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			yes, _ := cmd.Flags().GetBool("yes")

			if !yes {
				ok, err := ui.Confirm(rollbackPrompt(steps))
				if err != nil {
					return err
				}
				if !ok {
					ui.PrintDetail("status", "aborted")
					return nil
				}
			}

			if err := database.MigrateDown(a.cfg.Database.URL(), steps, a.logger); err != nil {
				return err
			}
			ui.PrintSuccess("Rollback complete")
			return nil
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back everything)")
	downCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	migrateCmd.AddCommand(upCmd, downCmd)
	return migrateCmd
}

func rollbackPrompt(steps int) string {
	if steps <= 0 {
		return "Roll back ALL migrations? Every table will be dropped."
	}
	if steps == 1 {
		return "Roll back the latest migration?"
	}
	return fmt.Sprintf("Roll back the latest %d migrations?", steps)
}
