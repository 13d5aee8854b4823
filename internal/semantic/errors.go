package semantic

import "fmt"

// DuplicateMeasureNameError reports the same measure name declared twice,
// either by two semantic models or within one, which would make metric
// resolution ambiguous.
type DuplicateMeasureNameError struct {
	Measure     string
	FirstModel  string
	SecondModel string
}

func (e *DuplicateMeasureNameError) Error() string {
	if e.FirstModel == e.SecondModel {
		return fmt.Sprintf("measure %q is declared more than once by semantic model %q",
			e.Measure, e.FirstModel)
	}
	return fmt.Sprintf("measure %q is declared by both semantic model %q and %q",
		e.Measure, e.FirstModel, e.SecondModel)
}

// UnknownMeasureError reports a measure reference that no semantic model declares.
type UnknownMeasureError struct {
	Measure string
}

func (e *UnknownMeasureError) Error() string {
	return fmt.Sprintf("unknown measure: %q", e.Measure)
}

// UnknownDimensionError reports a dimension reference that the named semantic
// model does not declare.
type UnknownDimensionError struct {
	SemanticModel string
	Dimension     string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("semantic model %q has no dimension %q", e.SemanticModel, e.Dimension)
}

// UnknownSemanticModelError reports a reference to an undeclared semantic model.
type UnknownSemanticModelError struct {
	SemanticModel string
}

func (e *UnknownSemanticModelError) Error() string {
	return fmt.Sprintf("unknown semantic model: %q", e.SemanticModel)
}
