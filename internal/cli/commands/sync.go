package commands

import (
	"encoding/json"
	"fmt"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/pipeline"
	"github.com/spf13/cobra"
)

// SyncOptions holds options for the sync command.
type SyncOptions struct {
	DryRun bool
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	opts := &SyncOptions{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate dbt metrics and push them to Eppo",
		Long: `Read the dbt manifest and semantic layer YAML, translate every metric into
Eppo's metrics-sync document, validate it against the published schema, and
submit it to the Eppo API.

With --dry-run the validated document is printed instead of submitted, which
is useful in CI to catch translation and schema errors before they reach Eppo.`,
		Example: `  # Sync the project in the current directory
  dbt-eppo-sync sync --api-key $EPPO_API_KEY

  # Validate without submitting
  dbt-eppo-sync sync --dry-run

  # Sync with an explicit tag and manifest location
  dbt-eppo-sync sync --sync-tag release-42 --manifest-path target/manifest.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and print the document without submitting")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	if !opts.DryRun && cfg.APIKey == "" {
		return fmt.Errorf("an Eppo API key is required: set --api-key or the EPPO_API_KEY environment variable (or use --dry-run)")
	}

	runner := pipeline.NewRunner(pipeline.Config{
		ProjectDir:   cfg.ProjectDir,
		ManifestPath: cfg.ManifestPath,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		SyncTag:      cfg.SyncTag,
		DryRun:       opts.DryRun,
	}, cmdCtx.Logger)

	result, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if opts.DryRun || cfg.Output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Payload); err != nil {
			return err
		}
		if opts.DryRun {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Dry run: %d fact source(s) and %d metric(s) validated, nothing submitted.\n",
				len(result.Payload.FactSources), len(result.Payload.Metrics))
		}
		return nil
	}

	_, _ = fmt.Fprintf(out, "Synced %d fact source(s) and %d metric(s) to Eppo (sync tag: %s)\n",
		len(result.Payload.FactSources), len(result.Payload.Metrics), result.SyncTag)
	return nil
}
