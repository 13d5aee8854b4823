package commands

import (
	"log/slog"
	"os"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/cli/config"
	"github.com/spf13/cobra"
)

// ConfigKey is the context key under which the resolved configuration is stored.
type ConfigKey struct{}

// LoggerKey is the context key under which the logger is stored.
type LoggerKey struct{}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext extracts the configuration and logger installed by the
// root command's PersistentPreRunE. It falls back to defaults so commands
// remain usable when constructed outside the root command, e.g. in tests.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg, _ := cmd.Context().Value(ConfigKey{}).(*config.Config)
	if cfg == nil {
		cfg = &config.Config{
			ProjectDir:   config.DefaultProjectDir,
			ManifestPath: config.DefaultManifestPath,
			APIKey:       os.Getenv("EPPO_API_KEY"),
			BaseURL:      config.DefaultBaseURL,
			Output:       config.DefaultOutput,
		}
	}

	logger, _ := cmd.Context().Value(LoggerKey{}).(*slog.Logger)
	if logger == nil {
		logger = config.NewLogger(cfg.Verbose)
	}

	return &CommandContext{Cfg: cfg, Logger: logger}
}
