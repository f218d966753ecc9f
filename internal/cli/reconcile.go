package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"witweb-studio/internal/services"
)

// NewReconcileCommand polls every tracked task once and finalizes the ones
// that succeeded. Useful from cron when the server runs with reconciliation
// disabled.
func NewReconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Poll tracked tasks once and materialize finished ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}
			defer a.close()

			engine := services.NewEngine(a.cfg, a.db, nil)
			if err := engine.Reconciler.RunOnce(cmd.Context()); err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			active, err := engine.Registry.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d task(s) still active\n", len(active))
			return nil
		},
	}
}
