package translate

import (
	"fmt"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// UnsupportedFilterSyntaxError reports a filter expression the parser
// refuses to interpret. Ambiguous constructs fail closed.
type UnsupportedFilterSyntaxError struct {
	Expression string
	Reason     string
}

func (e *UnsupportedFilterSyntaxError) Error() string {
	return fmt.Sprintf("unsupported filter syntax in %q: %s", e.Expression, e.Reason)
}

// UnsupportedOperationError reports an (aggregation, metric type) pair with
// no entry in the operation table.
type UnsupportedOperationError struct {
	Aggregation semantic.Aggregation
	MetricType  semantic.MetricType
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("no operation mapping for aggregation %q with metric type %q",
		e.Aggregation, e.MetricType)
}

// InvalidDenominatorOperationError reports an operation that is not allowed
// in a denominator.
type InvalidDenominatorOperationError struct {
	Operation eppo.Operation
}

func (e *InvalidDenominatorOperationError) Error() string {
	return fmt.Sprintf("operation %q is not allowed in a denominator", e.Operation)
}

// InvalidRatioMetricError reports a ratio metric that cannot be assembled.
type InvalidRatioMetricError struct {
	Metric string
	Reason string
}

func (e *InvalidRatioMetricError) Error() string {
	return fmt.Sprintf("invalid ratio metric %q: %s", e.Metric, e.Reason)
}
