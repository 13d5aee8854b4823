package commands

import (
	"encoding/json"
	"fmt"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List semantic models and metrics in the project",
		Long: `Scan the dbt project for semantic layer YAML and list every semantic model
and metric definition found, without touching the manifest or the Eppo API.`,
		Example: `  # List everything in the current project
  dbt-eppo-sync list

  # List as JSON
  dbt-eppo-sync list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

type listOutput struct {
	SemanticModels []listModel  `json:"semantic_models"`
	Metrics        []listMetric `json:"metrics"`
}

type listModel struct {
	Name       string `json:"name"`
	ModelRef   string `json:"model"`
	Entities   int    `json:"entities"`
	Dimensions int    `json:"dimensions"`
	Measures   int    `json:"measures"`
	SourceFile string `json:"source_file"`
}

type listMetric struct {
	Name    string `json:"name"`
	Label   string `json:"label,omitempty"`
	Type    string `json:"type"`
	Measure string `json:"measure,omitempty"`
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)

	arts, err := semantic.LoadDirectory(cmdCtx.Cfg.ProjectDir)
	if err != nil {
		return err
	}

	out := listOutput{
		SemanticModels: make([]listModel, 0, len(arts.SemanticModels)),
		Metrics:        make([]listMetric, 0, len(arts.Metrics)),
	}
	for _, sm := range arts.SemanticModels {
		out.SemanticModels = append(out.SemanticModels, listModel{
			Name:       sm.Name,
			ModelRef:   sm.ModelRef,
			Entities:   len(sm.Entities),
			Dimensions: len(sm.Dimensions),
			Measures:   len(sm.Measures),
			SourceFile: sm.SourceFile,
		})
	}
	for _, m := range arts.Metrics {
		lm := listMetric{
			Name:  m.Name,
			Label: m.Label,
			Type:  string(m.Type),
		}
		if ref := m.NumeratorRef(); ref != nil {
			lm.Measure = ref.Name
		}
		out.Metrics = append(out.Metrics, lm)
	}

	if cmdCtx.Cfg.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return listText(cmd, out)
}

func listText(cmd *cobra.Command, out listOutput) error {
	w := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(w, "Semantic models (%d)\n", len(out.SemanticModels))
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Name", "Model", "Entities", "Dimensions", "Measures", "File"})
	for _, sm := range out.SemanticModels {
		tw.AppendRow(table.Row{sm.Name, sm.ModelRef, sm.Entities, sm.Dimensions, sm.Measures, sm.SourceFile})
	}
	tw.Render()

	_, _ = fmt.Fprintf(w, "\nMetrics (%d)\n", len(out.Metrics))
	tw = table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Name", "Label", "Type", "Measure"})
	for _, m := range out.Metrics {
		tw.AppendRow(table.Row{m.Name, m.Label, m.Type, m.Measure})
	}
	tw.Render()

	return nil
}
