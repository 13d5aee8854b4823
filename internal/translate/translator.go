// Package translate turns semantic-layer declarations into the metrics-sync
// document: it resolves cross-references through the semantic registry and
// the manifest index, maps aggregations onto target operations, reconstructs
// filter expressions into property filters, and deduplicates per-model
// metric sources.
package translate

import (
	"fmt"
	"log/slog"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/manifest"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// Translator runs the translation pipeline. It carries the per-run lineage
// index and semantic registry by reference; it holds no other state, so a
// fresh Translator per run keeps concurrent runs independent.
type Translator struct {
	index    *manifest.Index
	registry *semantic.Registry
	logger   *slog.Logger
}

// New creates a Translator over the given index and registry.
func New(index *manifest.Index, registry *semantic.Registry, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{index: index, registry: registry, logger: logger}
}

// Options controls document assembly.
type Options struct {
	// SyncTag identifies this synchronization run in the target system
	SyncTag string
}

// Translate assembles the sync document for the given metric definitions.
// The pipeline is straight-line and fail-fast: the first resolution or
// mapping error aborts the run, so a partially-correct document is never
// produced. Output ordering is stable across runs with identical input.
func (t *Translator) Translate(metrics []*semantic.MetricDefinition, opts Options) (*eppo.SyncPayload, error) {
	sources := make(map[string]*sourceAccum)
	var sourceOrder []string

	touchSource := func(sm *semantic.SemanticModel) (*sourceAccum, error) {
		if acc, ok := sources[sm.Name]; ok {
			return acc, nil
		}
		node, err := t.index.ResolveRef(sm.ModelRef)
		if err != nil {
			return nil, fmt.Errorf("semantic model %q: %w", sm.Name, err)
		}
		acc := newSourceAccum(sm, node)
		sources[sm.Name] = acc
		sourceOrder = append(sourceOrder, sm.Name)
		return acc, nil
	}

	// Arrays are always present in the document, even when empty.
	payload := &eppo.SyncPayload{
		SyncTag:     opts.SyncTag,
		FactSources: []eppo.FactSource{},
		Metrics:     []eppo.Metric{},
	}

	for _, def := range metrics {
		t.logger.Debug("translating metric", "metric", def.Name, "type", string(def.Type))

		numRef := def.NumeratorRef()
		if numRef == nil {
			return nil, fmt.Errorf("metric %q does not reference a measure", def.Name)
		}
		numModel, numMeasure, err := t.registry.ResolveMeasure(numRef.Name)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		numAcc, err := touchSource(numModel)
		if err != nil {
			return nil, err
		}
		numAcc.addMeasure(numMeasure)

		var denModel *semantic.SemanticModel
		var denMeasure *semantic.Measure
		switch def.Type {
		case semantic.MetricRatio:
			if def.Denominator == nil {
				return nil, fmt.Errorf("ratio metric %q is missing a denominator measure", def.Name)
			}
			if def.Denominator.Name == numRef.Name {
				return nil, &InvalidRatioMetricError{
					Metric: def.Name,
					Reason: "numerator and denominator reference the same measure " + def.Denominator.Name,
				}
			}
			dm, dMeasure, err := t.registry.ResolveMeasure(def.Denominator.Name)
			if err != nil {
				return nil, fmt.Errorf("metric %q denominator: %w", def.Name, err)
			}
			denAcc, err := touchSource(dm)
			if err != nil {
				return nil, err
			}
			denAcc.addMeasure(dMeasure)
			denModel, denMeasure = dm, &dMeasure
		case semantic.MetricAverage:
			// sum/count over the numerator's own fact
			denModel, denMeasure = numModel, &numMeasure
		}

		clauses, err := ParseFilter(def.Filter, t.registry)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		for _, c := range clauses {
			if c.SemanticModel != numModel.Name && (denModel == nil || c.SemanticModel != denModel.Name) {
				return nil, fmt.Errorf("metric %q: filter references semantic model %q, which the metric's measures do not belong to",
					def.Name, c.SemanticModel)
			}
			acc, err := touchSource(mustModel(t.registry, c.SemanticModel))
			if err != nil {
				return nil, err
			}
			acc.addProperty(c.Dimension)
		}

		metric, err := buildMetric(def, numModel, numMeasure, denModel, denMeasure, clauses)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", def.Name, err)
		}
		payload.Metrics = append(payload.Metrics, metric)
	}

	for _, name := range sourceOrder {
		fs, err := sources[name].build()
		if err != nil {
			return nil, err
		}
		payload.FactSources = append(payload.FactSources, fs)
	}

	t.logger.Info("translation complete",
		"fact_sources", len(payload.FactSources),
		"metrics", len(payload.Metrics))
	return payload, nil
}

// mustModel fetches a model already resolved through the registry during
// filter parsing; absence here would be a registry bug, not user input.
func mustModel(reg *semantic.Registry, name string) *semantic.SemanticModel {
	sm, err := reg.Model(name)
	if err != nil {
		panic(err)
	}
	return sm
}
