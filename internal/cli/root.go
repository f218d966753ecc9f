package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"witweb-studio/config"
)

var cfgFile string

// NewRootCommand builds the studio command tree. Without a subcommand it
// runs the server.
func NewRootCommand(versionInfo VersionInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "witweb-studio",
		Short:         "Video generation studio backend",
		Long:          `witweb-studio submits video and character jobs to the provider, tracks them until they finish and stores the resulting artifacts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				config.Viper.SetConfigFile(cfgFile)
			}
			return nil
		},
		RunE: runServe,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a YAML configuration file")
	root.PersistentFlags().Int("port", 0, "HTTP port (overrides PORT)")
	root.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")
	bindFlag(root, "port", "PORT")
	bindFlag(root, "log-level", "LOG_LEVEL")

	root.AddCommand(NewServeCommand())
	root.AddCommand(NewMigrateCommand())
	root.AddCommand(NewReconcileCommand())
	root.AddCommand(NewVersionCommand(versionInfo))
	return root
}

// bindFlag lets an explicitly set flag take precedence over the environment
func bindFlag(cmd *cobra.Command, flag, key string) {
	if err := config.Viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// Execute runs the root command and exits non-zero on failure
func Execute(versionInfo VersionInfo) {
	if err := NewRootCommand(versionInfo).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
