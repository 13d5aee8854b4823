// Package semantic holds the typed semantic-layer declarations (semantic
// models, entities, dimensions, measures, metrics) and the registry that
// resolves cross-references between them.
package semantic

// EntityRole is the key role an entity column plays in a semantic model.
type EntityRole string

const (
	EntityPrimary EntityRole = "primary"
	EntityForeign EntityRole = "foreign"
	EntityUnique  EntityRole = "unique"
)

// DimensionKind distinguishes time dimensions from categorical ones.
type DimensionKind string

const (
	DimensionTime        DimensionKind = "time"
	DimensionCategorical DimensionKind = "categorical"
)

// Aggregation is the source-side aggregation vocabulary of a measure.
type Aggregation string

const (
	AggSum           Aggregation = "sum"
	AggCount         Aggregation = "count"
	AggCountDistinct Aggregation = "count_distinct"
	// AggSumBoolean sums a 0/1 flag, i.e. counts true values.
	AggSumBoolean Aggregation = "sum_boolean"
)

// MetricType is the declared type of a metric definition.
type MetricType string

const (
	MetricSimple        MetricType = "simple"
	MetricSum           MetricType = "sum"
	MetricCount         MetricType = "count"
	MetricCountDistinct MetricType = "count_distinct"
	MetricRatio         MetricType = "ratio"
	MetricAverage       MetricType = "average"
)

// Entity is a key column role within a semantic model.
type Entity struct {
	Name   string
	Role   EntityRole
	Column string
}

// Dimension is a non-measure attribute usable for filtering or grouping.
type Dimension struct {
	Name        string
	Kind        DimensionKind
	Column      string
	Description string
}

// Measure is a named aggregable expression defined on a semantic model.
type Measure struct {
	Name        string
	Agg         Aggregation
	Column      string
	Description string
	// TimeDimension overrides the model's default aggregation time dimension
	TimeDimension string
	// DesiredChange is "increase" or "decrease", carried to the fact
	DesiredChange string
}

// SemanticModel groups one underlying relation with its declared entities,
// dimensions, and measures.
type SemanticModel struct {
	Name        string
	Description string
	// ModelRef is the raw model reference string, e.g. "ref('stg_users')"
	ModelRef string
	// DefaultTimeDimension names the dimension used as the timestamp column
	DefaultTimeDimension string
	Entities             []Entity
	Dimensions           []Dimension
	Measures             []Measure
	// ReferenceURL links back to the upstream definition, when declared
	ReferenceURL string
	// SourceFile is the YAML file this model was declared in
	SourceFile string
}

// PrimaryEntity returns the model's primary entity, if declared.
func (sm *SemanticModel) PrimaryEntity() (Entity, bool) {
	for _, e := range sm.Entities {
		if e.Role == EntityPrimary {
			return e, true
		}
	}
	return Entity{}, false
}

// MeasureRef names a measure from some semantic model.
type MeasureRef struct {
	Name string
}

// MetricMeta carries optional target-side metadata declared on a metric.
type MetricMeta struct {
	IsGuardrail                  *bool
	DisplayStyle                 string
	ReferenceURL                 string
	MinimumDetectableEffect      *float64
	WinsorizationLowerPercentile *float64
	WinsorizationUpperPercentile *float64
	AggregationTimeframeValue    *float64
	AggregationTimeframeUnit     string
}

// MetricDefinition is one declared metric referencing measures by name.
type MetricDefinition struct {
	Name        string
	Label       string
	Description string
	Type        MetricType
	// Measure is the numerator reference for non-ratio metrics
	Measure *MeasureRef
	// Numerator and Denominator are set for ratio metrics
	Numerator   *MeasureRef
	Denominator *MeasureRef
	// Filter is the raw template-expression filter string, if any
	Filter string
	Meta   MetricMeta
	// SourceFile is the YAML file this metric was declared in
	SourceFile string
}

// DisplayName prefers the label over the bare metric name.
func (m *MetricDefinition) DisplayName() string {
	if m.Label != "" {
		return m.Label
	}
	return m.Name
}

// NumeratorRef returns the measure reference for the metric's numerator.
func (m *MetricDefinition) NumeratorRef() *MeasureRef {
	if m.Measure != nil {
		return m.Measure
	}
	return m.Numerator
}
