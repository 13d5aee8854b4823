// Package pipeline wires the full synchronization run: load artifacts, build
// the per-run index and registry, translate, validate, and submit.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/manifest"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/schema"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/translate"
)

// Config holds everything a run needs.
type Config struct {
	// ProjectDir is the root of the dbt project holding the YAML declarations
	ProjectDir string
	// ManifestPath points at the compiled manifest.json artifact
	ManifestPath string
	// APIKey authenticates against the sync endpoint (unused in dry runs)
	APIKey string
	// BaseURL overrides the API base URL when non-empty
	BaseURL string
	// SyncTag identifies this run; defaults to dbt-sync-<timestamp>
	SyncTag string
	// DryRun stops after validation without submitting
	DryRun bool
}

// Result reports a completed run.
type Result struct {
	Payload  *eppo.SyncPayload
	Response map[string]any
	SyncTag  string
	DryRun   bool
}

// Runner executes synchronization runs. Every run builds its own index,
// registry, and translator, so concurrent runs never share mutable state.
type Runner struct {
	cfg    Config
	logger *slog.Logger
	// now is swapped out in tests for deterministic sync tags
	now func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger, now: time.Now}
}

// Build runs the pipeline through schema validation and returns the
// validated document without submitting it.
func (r *Runner) Build(ctx context.Context) (*Result, error) {
	idx, err := manifest.Load(r.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("manifest indexed", "nodes", idx.NodeCount())

	arts, err := semantic.LoadDirectory(r.cfg.ProjectDir)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("declarations loaded",
		"semantic_models", len(arts.SemanticModels),
		"metrics", len(arts.Metrics))

	registry, err := semantic.NewRegistry(arts.SemanticModels)
	if err != nil {
		return nil, err
	}

	tag := r.cfg.SyncTag
	if tag == "" {
		tag = "dbt-sync-" + r.now().UTC().Format(time.RFC3339)
	}

	translator := translate.New(idx, registry, r.logger)
	payload, err := translator.Translate(arts.Metrics, translate.Options{SyncTag: tag})
	if err != nil {
		return nil, err
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(payload); err != nil {
		return nil, err
	}
	r.logger.Info("document validated against target schema")

	return &Result{Payload: payload, SyncTag: tag, DryRun: r.cfg.DryRun}, nil
}

// Run executes the full pipeline. In dry-run mode it stops after validation;
// otherwise it submits the document to the sync endpoint.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result, err := r.Build(ctx)
	if err != nil {
		return nil, err
	}
	if r.cfg.DryRun {
		r.logger.Info("dry run, skipping submission", "sync_tag", result.SyncTag)
		return result, nil
	}

	opts := []eppo.ClientOption{eppo.WithLogger(r.logger)}
	if r.cfg.BaseURL != "" {
		opts = append(opts, eppo.WithBaseURL(r.cfg.BaseURL))
	}
	client, err := eppo.NewClient(r.cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sync client: %w", err)
	}

	resp, err := client.Sync(ctx, result.Payload)
	if err != nil {
		return nil, err
	}
	result.Response = resp
	return result, nil
}
