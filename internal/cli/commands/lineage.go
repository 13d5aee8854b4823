package commands

import (
	"encoding/json"
	"fmt"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/manifest"
	"github.com/spf13/cobra"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Upstream   bool
	Downstream bool
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <model>",
		Short: "Show upstream and downstream lineage for a dbt model",
		Long: `Display the upstream dependencies and downstream dependents of a model,
as recorded in the compiled manifest. The model may be given by name
(e.g. orders) or by unique ID (e.g. model.my_project.orders).`,
		Example: `  # Show full lineage for a model
  dbt-eppo-sync lineage orders

  # Only upstream dependencies
  dbt-eppo-sync lineage orders --downstream=false

  # Output as JSON
  dbt-eppo-sync lineage orders --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream dependencies")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream dependents")

	return cmd
}

type lineageOutput struct {
	Root       string   `json:"root"`
	Upstream   []string `json:"upstream,omitempty"`
	Downstream []string `json:"downstream,omitempty"`
}

func runLineage(cmd *cobra.Command, target string, opts *LineageOptions) error {
	cmdCtx := NewCommandContext(cmd)

	idx, err := manifest.Load(cmdCtx.Cfg.ManifestPath)
	if err != nil {
		return err
	}

	node, err := idx.Resolve(target)
	if err != nil {
		node, err = idx.ResolveModelName(target)
		if err != nil {
			return fmt.Errorf("model not found in manifest: %s", target)
		}
	}

	graph := idx.Graph()

	out := lineageOutput{Root: node.UniqueID}
	if opts.Upstream {
		out.Upstream = graph.Upstream(node.UniqueID)
	}
	if opts.Downstream {
		out.Downstream = graph.Downstream(node.UniqueID)
	}

	if cmdCtx.Cfg.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Lineage for: %s\n\n", node.UniqueID)
	if opts.Upstream {
		_, _ = fmt.Fprintf(w, "Upstream dependencies (%d):\n", len(out.Upstream))
		for _, id := range out.Upstream {
			_, _ = fmt.Fprintf(w, "  - %s\n", id)
		}
		_, _ = fmt.Fprintln(w)
	}
	if opts.Downstream {
		_, _ = fmt.Fprintf(w, "Downstream dependents (%d):\n", len(out.Downstream))
		for _, id := range out.Downstream {
			_, _ = fmt.Fprintf(w, "  - %s\n", id)
		}
	}
	return nil
}
