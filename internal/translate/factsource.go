package translate

import (
	"fmt"
	"strings"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/manifest"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// sourceAccum collects, per semantic model, the measures and filter
// dimensions referenced by the metric set. Slices keep first-reference order
// so repeated runs over identical input emit identical documents.
type sourceAccum struct {
	model *semantic.SemanticModel
	node  *manifest.ModelNode

	measures    []semantic.Measure
	measureSeen map[string]bool

	properties   []semantic.Dimension
	propertySeen map[string]bool
}

func newSourceAccum(model *semantic.SemanticModel, node *manifest.ModelNode) *sourceAccum {
	return &sourceAccum{
		model:        model,
		node:         node,
		measureSeen:  make(map[string]bool),
		propertySeen: make(map[string]bool),
	}
}

// addMeasure records a referenced measure, deduplicated by name.
func (a *sourceAccum) addMeasure(m semantic.Measure) {
	if !a.measureSeen[m.Name] {
		a.measureSeen[m.Name] = true
		a.measures = append(a.measures, m)
	}
}

// addProperty records a filter-referenced dimension, deduplicated by name.
func (a *sourceAccum) addProperty(d semantic.Dimension) {
	if !a.propertySeen[d.Name] {
		a.propertySeen[d.Name] = true
		a.properties = append(a.properties, d)
	}
}

// build emits the fact source for this semantic model.
func (a *sourceAccum) build() (eppo.FactSource, error) {
	tsColumn, err := timestampColumn(a.model)
	if err != nil {
		return eppo.FactSource{}, err
	}

	entities := keyEntities(a.model)
	if len(entities) == 0 {
		return eppo.FactSource{}, fmt.Errorf("semantic model %q declares no primary or foreign entity", a.model.Name)
	}

	fs := eppo.FactSource{
		Name:            a.model.Name,
		SQL:             a.buildSQL(entities, tsColumn),
		TimestampColumn: tsColumn,
		ReferenceURL:    a.model.ReferenceURL,
	}

	for _, e := range entities {
		fs.Entities = append(fs.Entities, eppo.EntityMapping{
			EntityName: e.Name,
			Column:     e.Column,
		})
	}
	for _, m := range a.measures {
		fs.Facts = append(fs.Facts, eppo.Fact{
			Name:          m.Name,
			Column:        m.Column,
			Description:   m.Description,
			DesiredChange: desiredChange(m),
		})
	}
	for _, d := range a.properties {
		fs.Properties = append(fs.Properties, eppo.FactProperty{
			Name:        d.Name,
			Column:      d.Column,
			Description: d.Description,
		})
	}
	return fs, nil
}

// buildSQL generates the source query: entity key columns, the timestamp
// column, every referenced measure expression, and the columns of
// filter-referenced dimensions, selected from the model's relation.
func (a *sourceAccum) buildSQL(entities []semantic.Entity, tsColumn string) string {
	var cols []string
	seen := make(map[string]bool)
	add := func(expr string) {
		if expr != "" && !seen[expr] {
			seen[expr] = true
			cols = append(cols, expr)
		}
	}

	for _, e := range entities {
		add(e.Column)
	}
	add(tsColumn)
	for _, m := range a.measures {
		add(m.Column)
	}
	for _, d := range a.properties {
		add(d.Column)
	}

	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), a.node.RelationName)
}

// keyEntities returns the model's primary and foreign entities in
// declaration order.
func keyEntities(sm *semantic.SemanticModel) []semantic.Entity {
	var out []semantic.Entity
	for _, e := range sm.Entities {
		if e.Role == semantic.EntityPrimary || e.Role == semantic.EntityForeign {
			out = append(out, e)
		}
	}
	return out
}

// timestampColumn picks the fact source's timestamp column: the model's
// default aggregation time dimension when declared, otherwise the first time
// dimension.
func timestampColumn(sm *semantic.SemanticModel) (string, error) {
	if sm.DefaultTimeDimension != "" {
		for _, d := range sm.Dimensions {
			if d.Name == sm.DefaultTimeDimension {
				return d.Column, nil
			}
		}
		return "", &semantic.UnknownDimensionError{
			SemanticModel: sm.Name,
			Dimension:     sm.DefaultTimeDimension,
		}
	}
	for _, d := range sm.Dimensions {
		if d.Kind == semantic.DimensionTime {
			return d.Column, nil
		}
	}
	return "", fmt.Errorf("semantic model %q has no time dimension to use as the timestamp column", sm.Name)
}

// desiredChange normalizes the measure's desired-change metadata; anything
// other than "decrease" falls back to "increase".
func desiredChange(m semantic.Measure) string {
	if m.DesiredChange == "decrease" {
		return "decrease"
	}
	return "increase"
}
