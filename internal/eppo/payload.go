// Package eppo defines the metrics-sync wire document and the API client
// that submits it. The document types mirror the published sync schema
// field-for-field; serialization goes through struct tags only, so no
// unrecognized keys can ever be emitted.
package eppo

// Operation is the target operation vocabulary.
type Operation string

const (
	OpSum            Operation = "sum"
	OpCount          Operation = "count"
	OpDistinctEntity Operation = "distinct_entity"
	OpThreshold      Operation = "threshold"
	OpConversion     Operation = "conversion"
	OpRetention      Operation = "retention"
)

// FilterOperation is the comparison vocabulary for property filters.
type FilterOperation string

const (
	FilterEquals    FilterOperation = "equals"
	FilterNotEquals FilterOperation = "not_equals"
)

// SyncPayload is the top-level metrics-sync document.
type SyncPayload struct {
	SyncTag     string       `json:"sync_tag,omitempty"`
	FactSources []FactSource `json:"fact_sources"`
	Metrics     []Metric     `json:"metrics"`
}

// FactSource is one SQL-backed source of facts and properties.
type FactSource struct {
	Name            string          `json:"name"`
	SQL             string          `json:"sql"`
	TimestampColumn string          `json:"timestamp_column"`
	Entities        []EntityMapping `json:"entities"`
	Facts           []Fact          `json:"facts"`
	Properties      []FactProperty  `json:"properties,omitempty"`
	ReferenceURL    string          `json:"reference_url,omitempty"`
}

// EntityMapping binds an entity name to its key column.
type EntityMapping struct {
	EntityName string `json:"entity_name"`
	Column     string `json:"column"`
}

// Fact is one measured column within a fact source.
type Fact struct {
	Name          string `json:"name"`
	Column        string `json:"column,omitempty"`
	Description   string `json:"description,omitempty"`
	DesiredChange string `json:"desired_change,omitempty"`
}

// FactProperty is a filterable attribute of a fact source.
type FactProperty struct {
	Name        string `json:"name"`
	Column      string `json:"column"`
	Description string `json:"description,omitempty"`
}

// Metric is one target metric referencing facts by name.
type Metric struct {
	Name                    string             `json:"name"`
	Description             string             `json:"description,omitempty"`
	Type                    string             `json:"type"`
	Entity                  string             `json:"entity"`
	Numerator               MetricAggregation  `json:"numerator"`
	Denominator             *MetricAggregation `json:"denominator,omitempty"`
	IsGuardrail             *bool              `json:"is_guardrail,omitempty"`
	MetricDisplayStyle      string             `json:"metric_display_style,omitempty"`
	MinimumDetectableEffect *float64           `json:"minimum_detectable_effect,omitempty"`
	ReferenceURL            string             `json:"reference_url,omitempty"`
}

// MetricAggregation is a numerator or denominator over one fact.
type MetricAggregation struct {
	FactName                     string    `json:"fact_name"`
	Operation                    Operation `json:"operation"`
	Filters                      []Filter  `json:"filters,omitempty"`
	AggregationTimeframeValue    *float64  `json:"aggregation_timeframe_value,omitempty"`
	AggregationTimeframeUnit     string    `json:"aggregation_timeframe_unit,omitempty"`
	WinsorizationLowerPercentile *float64  `json:"winsorization_lower_percentile,omitempty"`
	WinsorizationUpperPercentile *float64  `json:"winsorization_upper_percentile,omitempty"`
}

// Filter restricts an aggregation to rows matching a property value list.
type Filter struct {
	FactProperty string          `json:"fact_property"`
	Operation    FilterOperation `json:"operation"`
	Values       []string        `json:"values"`
}
