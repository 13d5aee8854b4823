package semantic

// Registry indexes semantic models by name and measures by name globally.
// It is built once per run and read-only afterwards; callers pass it by
// reference so concurrent runs never share state.
type Registry struct {
	models map[string]*SemanticModel
	order  []string
	// measures maps a globally unique measure name to its owning model
	measures map[string]measureEntry
}

type measureEntry struct {
	model   *SemanticModel
	measure Measure
}

// NewRegistry builds a registry from the declared semantic models.
// It fails if the same measure name is declared twice, whether by two
// distinct models or within a single model.
func NewRegistry(models []*SemanticModel) (*Registry, error) {
	r := &Registry{
		models:   make(map[string]*SemanticModel),
		measures: make(map[string]measureEntry),
	}

	for _, sm := range models {
		r.models[sm.Name] = sm
		r.order = append(r.order, sm.Name)

		for _, m := range sm.Measures {
			if existing, ok := r.measures[m.Name]; ok {
				return nil, &DuplicateMeasureNameError{
					Measure:     m.Name,
					FirstModel:  existing.model.Name,
					SecondModel: sm.Name,
				}
			}
			r.measures[m.Name] = measureEntry{model: sm, measure: m}
		}
	}

	return r, nil
}

// Model returns the semantic model with the given name.
func (r *Registry) Model(name string) (*SemanticModel, error) {
	sm, ok := r.models[name]
	if !ok {
		return nil, &UnknownSemanticModelError{SemanticModel: name}
	}
	return sm, nil
}

// Models returns all semantic models in declaration order.
func (r *Registry) Models() []*SemanticModel {
	out := make([]*SemanticModel, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name])
	}
	return out
}

// ResolveMeasure resolves a measure name to its owning semantic model and
// measure declaration.
func (r *Registry) ResolveMeasure(name string) (*SemanticModel, Measure, error) {
	entry, ok := r.measures[name]
	if !ok {
		return nil, Measure{}, &UnknownMeasureError{Measure: name}
	}
	return entry.model, entry.measure, nil
}

// ResolveDimension resolves a dimension name within the named semantic model.
func (r *Registry) ResolveDimension(modelName, dimName string) (Dimension, error) {
	sm, err := r.Model(modelName)
	if err != nil {
		return Dimension{}, err
	}
	for _, d := range sm.Dimensions {
		if d.Name == dimName {
			return d, nil
		}
	}
	return Dimension{}, &UnknownDimensionError{SemanticModel: modelName, Dimension: dimName}
}
