// Package cli provides the command-line interface for dbt-eppo-sync.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/cli/commands"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbt-eppo-sync",
		Short: "Synchronize dbt semantic layer definitions to Eppo",
		Long: `dbt-eppo-sync translates dbt semantic models and metric definitions into
Eppo's metrics-sync document, validates it against the published schema,
and submits it to the Eppo API.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg.Verbose)

			ctx := context.WithValue(cmd.Context(), commands.ConfigKey{}, cfg)
			ctx = context.WithValue(ctx, commands.LoggerKey{}, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
dbt semantic layer to Eppo metrics sync
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./eppo-sync.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "Path to the dbt project directory")
	rootCmd.PersistentFlags().String("manifest-path", "", "Path to the dbt manifest.json artifact")
	rootCmd.PersistentFlags().String("api-key", "", "Eppo API key (prefer the EPPO_API_KEY environment variable)")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL for the Eppo API")
	rootCmd.PersistentFlags().String("sync-tag", "", "Tag identifying this sync run in Eppo")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewSyncCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewLineageCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
