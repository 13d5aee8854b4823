package translate

import (
	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// buildMetric assembles one target metric from its definition and the
// already-resolved numerator (and optional denominator) measures.
func buildMetric(
	def *semantic.MetricDefinition,
	numModel *semantic.SemanticModel,
	numMeasure semantic.Measure,
	denModel *semantic.SemanticModel,
	denMeasure *semantic.Measure,
	clauses []FilterClause,
) (eppo.Metric, error) {
	primary, ok := numModel.PrimaryEntity()
	if !ok {
		return eppo.Metric{}, &InvalidRatioMetricError{
			Metric: def.Name,
			Reason: "semantic model " + numModel.Name + " declares no primary entity",
		}
	}

	metric := eppo.Metric{
		Name:                    def.DisplayName(),
		Description:             def.Description,
		Type:                    "simple",
		Entity:                  primary.Name,
		IsGuardrail:             def.Meta.IsGuardrail,
		MetricDisplayStyle:      def.Meta.DisplayStyle,
		MinimumDetectableEffect: def.Meta.MinimumDetectableEffect,
		ReferenceURL:            def.Meta.ReferenceURL,
	}

	switch def.Type {
	case semantic.MetricRatio:
		numOp, err := MapOperation(numMeasure.Agg, def.Type, RoleNumerator)
		if err != nil {
			return eppo.Metric{}, err
		}
		denOp, err := MapOperation(denMeasure.Agg, def.Type, RoleDenominator)
		if err != nil {
			return eppo.Metric{}, err
		}
		metric.Type = "ratio"
		metric.Numerator = aggregation(numMeasure.Name, numOp, def, true)
		den := aggregation(denMeasure.Name, denOp, def, false)
		metric.Denominator = &den

	case semantic.MetricAverage:
		// An average is a ratio of sum over count of the same fact.
		metric.Type = "ratio"
		metric.Numerator = aggregation(numMeasure.Name, eppo.OpSum, def, true)
		den := aggregation(numMeasure.Name, eppo.OpCount, def, false)
		metric.Denominator = &den

	default:
		op, err := MapOperation(numMeasure.Agg, def.Type, RoleNumerator)
		if err != nil {
			return eppo.Metric{}, err
		}
		metric.Numerator = aggregation(numMeasure.Name, op, def, true)
	}

	attachFilters(&metric, numModel, denModel, clauses)
	return metric, nil
}

// aggregation builds a numerator or denominator payload. Winsorization and
// timeframe settings are carried on the numerator only.
func aggregation(factName string, op eppo.Operation, def *semantic.MetricDefinition, numerator bool) eppo.MetricAggregation {
	agg := eppo.MetricAggregation{
		FactName:  factName,
		Operation: op,
	}
	if numerator {
		agg.WinsorizationLowerPercentile = def.Meta.WinsorizationLowerPercentile
		agg.WinsorizationUpperPercentile = def.Meta.WinsorizationUpperPercentile
		agg.AggregationTimeframeValue = def.Meta.AggregationTimeframeValue
		agg.AggregationTimeframeUnit = def.Meta.AggregationTimeframeUnit
	}
	return agg
}

// attachFilters places each parsed clause on the side whose fact belongs to
// the clause's semantic model, so a filter never references a property
// outside the fact source that owns the filtered fact.
func attachFilters(metric *eppo.Metric, numModel, denModel *semantic.SemanticModel, clauses []FilterClause) {
	for _, c := range clauses {
		f := eppo.Filter{
			FactProperty: c.Dimension.Name,
			Operation:    c.Operator,
			Values:       c.Values,
		}
		if c.SemanticModel == numModel.Name {
			metric.Numerator.Filters = append(metric.Numerator.Filters, f)
		}
		if metric.Denominator != nil && denModel != nil && c.SemanticModel == denModel.Name {
			metric.Denominator.Filters = append(metric.Denominator.Filters, f)
		}
	}
}
