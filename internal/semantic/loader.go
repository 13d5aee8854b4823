package semantic

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Artifacts holds everything loaded from the project's YAML declarations.
type Artifacts struct {
	SemanticModels []*SemanticModel
	Metrics        []*MetricDefinition
}

// LoadDirectory walks the project directory for *.yml / *.yaml files and
// decodes every semantic_models and metrics block into typed records.
// Declaration order follows the lexical file walk, so repeated loads of the
// same tree produce identical ordering.
func LoadDirectory(dir string) (*Artifacts, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access project directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project path is not a directory: %s", dir)
	}

	arts := &Artifacts{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		return loadFile(path, arts)
	})
	if err != nil {
		return nil, err
	}
	return arts, nil
}

// LoadFile decodes a single YAML declaration file into the artifacts.
func loadFile(path string, arts *Artifacts) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}

	for _, raw := range content.SemanticModels {
		sm, err := raw.toSemanticModel(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		arts.SemanticModels = append(arts.SemanticModels, sm)
	}
	for _, raw := range content.Metrics {
		m, err := raw.toMetric(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		arts.Metrics = append(arts.Metrics, m)
	}
	return nil
}

// ParseYAML decodes declarations from raw YAML bytes. Used by tests and by
// callers that already hold file contents.
func ParseYAML(data []byte, sourceFile string) (*Artifacts, error) {
	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	arts := &Artifacts{}
	for _, raw := range content.SemanticModels {
		sm, err := raw.toSemanticModel(sourceFile)
		if err != nil {
			return nil, err
		}
		arts.SemanticModels = append(arts.SemanticModels, sm)
	}
	for _, raw := range content.Metrics {
		m, err := raw.toMetric(sourceFile)
		if err != nil {
			return nil, err
		}
		arts.Metrics = append(arts.Metrics, m)
	}
	return arts, nil
}

// --- YAML shapes ---

type fileContent struct {
	SemanticModels []yamlSemanticModel `yaml:"semantic_models"`
	Metrics        []yamlMetric        `yaml:"metrics"`
}

type yamlSemanticModel struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Model       string `yaml:"model"`
	Defaults    struct {
		AggTimeDimension string `yaml:"agg_time_dimension"`
	} `yaml:"defaults"`
	Entities   []yamlEntity    `yaml:"entities"`
	Dimensions []yamlDimension `yaml:"dimensions"`
	Measures   []yamlMeasure   `yaml:"measures"`
	Meta       map[string]any  `yaml:"meta"`
}

type yamlEntity struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Expr string `yaml:"expr"`
}

type yamlDimension struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Expr        string `yaml:"expr"`
	Description string `yaml:"description"`
}

type yamlMeasure struct {
	Name             string         `yaml:"name"`
	Agg              string         `yaml:"agg"`
	Expr             string         `yaml:"expr"`
	Description      string         `yaml:"description"`
	AggTimeDimension string         `yaml:"agg_time_dimension"`
	Meta             map[string]any `yaml:"meta"`
}

type yamlMetric struct {
	Name        string          `yaml:"name"`
	Label       string          `yaml:"label"`
	Description string          `yaml:"description"`
	Type        string          `yaml:"type"`
	Measure     *yamlMeasureRef `yaml:"measure"`
	Numerator   *yamlMetricSide `yaml:"numerator"`
	Denominator *yamlMetricSide `yaml:"denominator"`
	Filter      string          `yaml:"filter"`
	Meta        map[string]any  `yaml:"meta"`
}

// yamlMeasureRef accepts both the scalar and the mapping spelling:
//
//	measure: number_of_users
//	measure: { name: number_of_users }
type yamlMeasureRef struct {
	Name string
}

func (r *yamlMeasureRef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.Name)
	case yaml.MappingNode:
		var m struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		r.Name = m.Name
		return nil
	default:
		return fmt.Errorf("measure reference must be a string or a mapping with a name key")
	}
}

type yamlMetricSide struct {
	Measure yamlMeasureRef `yaml:"measure"`
}

// --- conversion to typed records ---

func (raw yamlSemanticModel) toSemanticModel(sourceFile string) (*SemanticModel, error) {
	if raw.Name == "" {
		return nil, fmt.Errorf("semantic model is missing a name")
	}
	if raw.Model == "" {
		return nil, fmt.Errorf("semantic model %q is missing its model reference", raw.Name)
	}

	sm := &SemanticModel{
		Name:                 raw.Name,
		Description:          raw.Description,
		ModelRef:             raw.Model,
		DefaultTimeDimension: raw.Defaults.AggTimeDimension,
		ReferenceURL:         metaString(raw.Meta, "eppo_reference_url"),
		SourceFile:           sourceFile,
	}

	for _, e := range raw.Entities {
		if e.Name == "" || e.Expr == "" {
			return nil, fmt.Errorf("semantic model %q has an entity missing name or expr", raw.Name)
		}
		sm.Entities = append(sm.Entities, Entity{
			Name:   e.Name,
			Role:   EntityRole(e.Type),
			Column: e.Expr,
		})
	}
	for _, d := range raw.Dimensions {
		if d.Name == "" || d.Expr == "" {
			return nil, fmt.Errorf("semantic model %q has a dimension missing name or expr", raw.Name)
		}
		sm.Dimensions = append(sm.Dimensions, Dimension{
			Name:        d.Name,
			Kind:        DimensionKind(d.Type),
			Column:      d.Expr,
			Description: d.Description,
		})
	}
	for _, m := range raw.Measures {
		if m.Name == "" {
			return nil, fmt.Errorf("semantic model %q has a measure missing a name", raw.Name)
		}
		if m.Agg == "" {
			return nil, fmt.Errorf("measure %q in semantic model %q is missing its aggregation", m.Name, raw.Name)
		}
		sm.Measures = append(sm.Measures, Measure{
			Name:          m.Name,
			Agg:           Aggregation(m.Agg),
			Column:        m.Expr,
			Description:   m.Description,
			TimeDimension: m.AggTimeDimension,
			DesiredChange: metaString(m.Meta, "eppo_desired_change"),
		})
	}
	return sm, nil
}

func (raw yamlMetric) toMetric(sourceFile string) (*MetricDefinition, error) {
	if raw.Name == "" {
		return nil, fmt.Errorf("metric is missing a name")
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("metric %q is missing its type", raw.Name)
	}

	m := &MetricDefinition{
		Name:        raw.Name,
		Label:       raw.Label,
		Description: raw.Description,
		Type:        MetricType(raw.Type),
		Filter:      raw.Filter,
		SourceFile:  sourceFile,
		Meta: MetricMeta{
			IsGuardrail:                  metaBool(raw.Meta, "eppo_is_guardrail"),
			DisplayStyle:                 metaString(raw.Meta, "eppo_display_style"),
			ReferenceURL:                 metaString(raw.Meta, "eppo_reference_url"),
			MinimumDetectableEffect:      metaFloat(raw.Meta, "eppo_mde"),
			WinsorizationLowerPercentile: metaFloat(raw.Meta, "eppo_winsorization_lower_percentile"),
			WinsorizationUpperPercentile: metaFloat(raw.Meta, "eppo_winsorization_upper_percentile"),
			AggregationTimeframeValue:    metaFloat(raw.Meta, "eppo_aggregation_timeframe_value"),
			AggregationTimeframeUnit:     metaString(raw.Meta, "eppo_aggregation_timeframe_unit"),
		},
	}

	if raw.Measure != nil && raw.Measure.Name != "" {
		m.Measure = &MeasureRef{Name: raw.Measure.Name}
	}
	if raw.Numerator != nil && raw.Numerator.Measure.Name != "" {
		m.Numerator = &MeasureRef{Name: raw.Numerator.Measure.Name}
	}
	if raw.Denominator != nil && raw.Denominator.Measure.Name != "" {
		m.Denominator = &MeasureRef{Name: raw.Denominator.Measure.Name}
	}

	if m.NumeratorRef() == nil {
		return nil, fmt.Errorf("metric %q does not reference a measure", raw.Name)
	}
	if m.Type == MetricRatio && m.Denominator == nil {
		return nil, fmt.Errorf("ratio metric %q is missing a denominator measure", raw.Name)
	}
	return m, nil
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func metaBool(meta map[string]any, key string) *bool {
	if v, ok := meta[key].(bool); ok {
		return &v
	}
	return nil
}

func metaFloat(meta map[string]any, key string) *float64 {
	switch v := meta[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}
