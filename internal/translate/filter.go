package translate

import (
	"regexp"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
)

// FilterClause is one structured comparison extracted from a filter
// expression, resolved against the semantic registry.
type FilterClause struct {
	// SemanticModel is the model segment of the dimension reference
	SemanticModel string
	// Dimension is the resolved dimension declaration
	Dimension semantic.Dimension
	Operator  eppo.FilterOperation
	// Values collects every literal compared against this dimension with
	// the same operator
	Values []string
}

var (
	// One comparison: {{ Dimension('model__scope__name') }} = 'value'
	clausePattern = regexp.MustCompile(
		`^\s*\{\{\s*Dimension\s*\(\s*['"](\w+)__(\w+)__(\w+)['"]\s*\)\s*\}\}\s*(!=|==|=)\s*['"]([^'"]*)['"]\s*$`)
	// Clauses may only be combined with AND
	andPattern = regexp.MustCompile(`(?i)\s+AND\s+`)
	orPattern  = regexp.MustCompile(`(?i)(^|\s)OR\s`)
)

// ParseFilter parses a template-expression filter string into structured
// clauses. Parsing is syntactic only; every dimension reference is resolved
// through the registry to confirm existence. Repeated comparisons against the
// same dimension with the same operator merge into one clause with a combined
// value list.
func ParseFilter(expr string, reg *semantic.Registry) ([]FilterClause, error) {
	if expr == "" {
		return nil, nil
	}

	parts := andPattern.Split(expr, -1)

	var clauses []FilterClause
	index := make(map[string]int) // model__dimension__operator -> clause position

	for _, part := range parts {
		m := clausePattern.FindStringSubmatch(part)
		if m == nil {
			reason := "expected {{ Dimension('model__entity__name') }} compared to a quoted literal with = or !="
			if orPattern.MatchString(part) {
				reason = "OR is not supported"
			}
			return nil, &UnsupportedFilterSyntaxError{Expression: expr, Reason: reason}
		}

		modelName, dimName, rawOp, value := m[1], m[3], m[4], m[5]

		dim, err := reg.ResolveDimension(modelName, dimName)
		if err != nil {
			return nil, err
		}

		op := eppo.FilterEquals
		if rawOp == "!=" {
			op = eppo.FilterNotEquals
		}

		key := modelName + "\x00" + dimName + "\x00" + string(op)
		if i, ok := index[key]; ok {
			clauses[i].Values = append(clauses[i].Values, value)
			continue
		}
		index[key] = len(clauses)
		clauses = append(clauses, FilterClause{
			SemanticModel: modelName,
			Dimension:     dim,
			Operator:      op,
			Values:        []string{value},
		})
	}

	return clauses, nil
}
