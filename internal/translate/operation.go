package translate

import (
	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// Role distinguishes which side of a metric an operation lands in.
type Role string

const (
	RoleNumerator   Role = "numerator"
	RoleDenominator Role = "denominator"
)

// aggregationOps maps source aggregation semantics onto the stricter target
// operation vocabulary. sum_boolean sums a 0/1 flag, so the target sees a
// plain sum whose value is the count of true rows.
var aggregationOps = map[semantic.Aggregation]eppo.Operation{
	semantic.AggSum:           eppo.OpSum,
	semantic.AggCount:         eppo.OpCount,
	semantic.AggCountDistinct: eppo.OpDistinctEntity,
	semantic.AggSumBoolean:    eppo.OpSum,
}

// mappableMetricTypes enumerates the metric types the table covers.
// average is absent on purpose: it is rewritten to a ratio before any
// operation mapping happens.
var mappableMetricTypes = map[semantic.MetricType]bool{
	semantic.MetricSimple:        true,
	semantic.MetricSum:           true,
	semantic.MetricCount:         true,
	semantic.MetricCountDistinct: true,
	semantic.MetricRatio:         true,
}

// denominatorExcluded lists operations never valid in a denominator.
var denominatorExcluded = map[eppo.Operation]bool{
	eppo.OpThreshold:  true,
	eppo.OpConversion: true,
	eppo.OpRetention:  true,
}

// MapOperation maps a measure aggregation and metric type onto the target
// operation for the given role. Combinations without a table entry fail with
// UnsupportedOperationError; denominators additionally reject threshold,
// conversion, and retention.
func MapOperation(agg semantic.Aggregation, metricType semantic.MetricType, role Role) (eppo.Operation, error) {
	op, ok := aggregationOps[agg]
	if !ok || !mappableMetricTypes[metricType] {
		return "", &UnsupportedOperationError{Aggregation: agg, MetricType: metricType}
	}
	if role == RoleDenominator && denominatorExcluded[op] {
		return "", &InvalidDenominatorOperationError{Operation: op}
	}
	return op, nil
}
