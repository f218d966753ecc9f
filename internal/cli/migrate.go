package cli

import (
	"github.com/spf13/cobra"

	"witweb-studio/pkg/logger"
)

func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false)
			if err != nil {
				return err
			}
			defer a.close()
			logger.Log.Info("database migrated")
			return nil
		},
	}
}
