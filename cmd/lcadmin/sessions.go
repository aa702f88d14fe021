package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/laocinema/lao-cinema-api/cmd/lcadmin/ui"
	"github.com/laocinema/lao-cinema-api/internal/auth"
)

func newSessionsCmd(a *app) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Session maintenance",
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			n, err := pruneSessions(cmd.Context(), auth.NewRepository(db))
			if err != nil {
				return err
			}
			ui.PrintSuccess("Expired sessions pruned")
			ui.PrintDetail("deleted", n)
			return nil
		},
	}

	sessionsCmd.AddCommand(pruneCmd)
	return sessionsCmd
}

func pruneSessions(ctx context.Context, sessions sessionStore) (int64, error) {
	n, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	return n, nil
}
