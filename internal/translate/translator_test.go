package translate

import (
	"encoding/json"
	"testing"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/manifest"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/semantic"
	"github.com/Eppo-exp/dbt-eppo-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const translatorManifest = `{
  "metadata": {"project_name": "analytics"},
  "nodes": {
    "model.analytics.stg_users": {
      "unique_id": "model.analytics.stg_users",
      "name": "stg_users",
      "package_name": "analytics",
      "resource_type": "model",
      "relation_name": "analytics.staging.stg_users",
      "depends_on": {"nodes": []}
    },
    "model.analytics.stg_orders": {
      "unique_id": "model.analytics.stg_orders",
      "name": "stg_orders",
      "package_name": "analytics",
      "resource_type": "model",
      "relation_name": "analytics.staging.stg_orders",
      "depends_on": {"nodes": []}
    }
  }
}`

func usersModel() *semantic.SemanticModel {
	return &semantic.SemanticModel{
		Name:                 "users",
		ModelRef:             "ref('stg_users')",
		DefaultTimeDimension: "signup_date",
		Entities: []semantic.Entity{
			{Name: "user", Role: semantic.EntityPrimary, Column: "user_id"},
			{Name: "account", Role: semantic.EntityForeign, Column: "account_id"},
		},
		Dimensions: []semantic.Dimension{
			{Name: "signup_date", Kind: semantic.DimensionTime, Column: "created_at"},
			{Name: "country_code", Kind: semantic.DimensionCategorical, Column: "country"},
		},
		Measures: []semantic.Measure{
			{Name: "total_lifetime_revenue", Agg: semantic.AggSum, Column: "ltv"},
			{Name: "number_of_users", Agg: semantic.AggCount, Column: "user_id", DesiredChange: "decrease"},
		},
	}
}

func ordersModel() *semantic.SemanticModel {
	return &semantic.SemanticModel{
		Name:                 "orders",
		ModelRef:             "ref('stg_orders')",
		DefaultTimeDimension: "ordered_at",
		Entities: []semantic.Entity{
			{Name: "user", Role: semantic.EntityPrimary, Column: "user_id"},
		},
		Dimensions: []semantic.Dimension{
			{Name: "ordered_at", Kind: semantic.DimensionTime, Column: "ordered_at"},
			{Name: "status", Kind: semantic.DimensionCategorical, Column: "order_status"},
		},
		Measures: []semantic.Measure{
			{Name: "order_count", Agg: semantic.AggCount, Column: "order_id"},
			{Name: "order_revenue", Agg: semantic.AggSum, Column: "amount"},
		},
	}
}

func newTestTranslator(t *testing.T, models ...*semantic.SemanticModel) *Translator {
	t.Helper()
	idx, err := manifest.Parse([]byte(translatorManifest))
	require.NoError(t, err)
	reg, err := semantic.NewRegistry(models)
	require.NoError(t, err)
	return New(idx, reg, testutil.NewTestLogger(t))
}

func TestTranslate_SumMetric(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "sum_total_lifetime_revenue",
		Label:   "Total Lifetime Revenue",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
	}}

	payload, err := tr.Translate(metrics, Options{SyncTag: "test-run"})
	require.NoError(t, err)

	assert.Equal(t, "test-run", payload.SyncTag)
	require.Len(t, payload.FactSources, 1)
	require.Len(t, payload.Metrics, 1)

	fs := payload.FactSources[0]
	assert.Equal(t, "users", fs.Name)
	assert.Equal(t, "SELECT user_id, account_id, created_at, ltv FROM analytics.staging.stg_users", fs.SQL)
	assert.Equal(t, "created_at", fs.TimestampColumn)
	assert.Equal(t, []eppo.EntityMapping{
		{EntityName: "user", Column: "user_id"},
		{EntityName: "account", Column: "account_id"},
	}, fs.Entities)
	require.Len(t, fs.Facts, 1)
	assert.Equal(t, eppo.Fact{
		Name:          "total_lifetime_revenue",
		Column:        "ltv",
		DesiredChange: "increase",
	}, fs.Facts[0])
	assert.Empty(t, fs.Properties)

	m := payload.Metrics[0]
	assert.Equal(t, "Total Lifetime Revenue", m.Name)
	assert.Equal(t, "simple", m.Type)
	assert.Equal(t, "user", m.Entity)
	assert.Equal(t, "total_lifetime_revenue", m.Numerator.FactName)
	assert.Equal(t, eppo.OpSum, m.Numerator.Operation)
	assert.Nil(t, m.Denominator)
}

func TestTranslate_FilteredMetric(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "canadian_revenue",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		Filter:  `{{ Dimension('users__user__country_code') }} = 'CA'`,
	}}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	fs := payload.FactSources[0]
	require.Len(t, fs.Properties, 1)
	assert.Equal(t, eppo.FactProperty{Name: "country_code", Column: "country"}, fs.Properties[0])
	// The filter column rides along in the generated query.
	assert.Equal(t, "SELECT user_id, account_id, created_at, ltv, country FROM analytics.staging.stg_users", fs.SQL)

	m := payload.Metrics[0]
	require.Len(t, m.Numerator.Filters, 1)
	assert.Equal(t, eppo.Filter{
		FactProperty: "country_code",
		Operation:    eppo.FilterEquals,
		Values:       []string{"CA"},
	}, m.Numerator.Filters[0])
}

func TestTranslate_SharedMeasureDeduplicated(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{
		{
			Name:    "revenue_plain",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		},
		{
			Name:    "revenue_filtered",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
			Filter:  `{{ Dimension('users__user__country_code') }} != 'XX'`,
		},
	}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	require.Len(t, payload.FactSources, 1)
	assert.Len(t, payload.FactSources[0].Facts, 1)
	assert.Len(t, payload.Metrics, 2)
}

func TestTranslate_RatioMetric(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:        "revenue_per_user",
		Type:        semantic.MetricRatio,
		Numerator:   &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		Denominator: &semantic.MeasureRef{Name: "number_of_users"},
	}}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	m := payload.Metrics[0]
	assert.Equal(t, "ratio", m.Type)
	assert.Equal(t, "total_lifetime_revenue", m.Numerator.FactName)
	assert.Equal(t, eppo.OpSum, m.Numerator.Operation)
	require.NotNil(t, m.Denominator)
	assert.Equal(t, "number_of_users", m.Denominator.FactName)
	assert.Equal(t, eppo.OpCount, m.Denominator.Operation)

	// Both measures land on the shared fact source.
	require.Len(t, payload.FactSources, 1)
	assert.Len(t, payload.FactSources[0].Facts, 2)
}

func TestTranslate_RatioSameMeasureRejected(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:        "broken",
		Type:        semantic.MetricRatio,
		Numerator:   &semantic.MeasureRef{Name: "number_of_users"},
		Denominator: &semantic.MeasureRef{Name: "number_of_users"},
	}}

	_, err := tr.Translate(metrics, Options{})
	require.Error(t, err)

	var ratioErr *InvalidRatioMetricError
	require.ErrorAs(t, err, &ratioErr)
	assert.Equal(t, "broken", ratioErr.Metric)
}

func TestTranslate_AverageMetric(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "average_lifetime_revenue",
		Type:    semantic.MetricAverage,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
	}}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	m := payload.Metrics[0]
	assert.Equal(t, "ratio", m.Type)
	assert.Equal(t, "total_lifetime_revenue", m.Numerator.FactName)
	assert.Equal(t, eppo.OpSum, m.Numerator.Operation)
	require.NotNil(t, m.Denominator)
	assert.Equal(t, "total_lifetime_revenue", m.Denominator.FactName)
	assert.Equal(t, eppo.OpCount, m.Denominator.Operation)
}

func TestTranslate_MetricMetaCarriedOnNumeratorOnly(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	lower, upper, tf := 0.01, 0.99, 30.0
	guardrail := true
	mde := 0.05
	metrics := []*semantic.MetricDefinition{{
		Name:        "revenue_per_user",
		Type:        semantic.MetricRatio,
		Numerator:   &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		Denominator: &semantic.MeasureRef{Name: "number_of_users"},
		Meta: semantic.MetricMeta{
			IsGuardrail:                  &guardrail,
			DisplayStyle:                 "decimal",
			MinimumDetectableEffect:      &mde,
			WinsorizationLowerPercentile: &lower,
			WinsorizationUpperPercentile: &upper,
			AggregationTimeframeValue:    &tf,
			AggregationTimeframeUnit:     "days",
		},
	}}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	m := payload.Metrics[0]
	require.NotNil(t, m.IsGuardrail)
	assert.True(t, *m.IsGuardrail)
	assert.Equal(t, "decimal", m.MetricDisplayStyle)
	require.NotNil(t, m.MinimumDetectableEffect)

	assert.Equal(t, &lower, m.Numerator.WinsorizationLowerPercentile)
	assert.Equal(t, &upper, m.Numerator.WinsorizationUpperPercentile)
	assert.Equal(t, &tf, m.Numerator.AggregationTimeframeValue)
	assert.Equal(t, "days", m.Numerator.AggregationTimeframeUnit)

	assert.Nil(t, m.Denominator.WinsorizationLowerPercentile)
	assert.Nil(t, m.Denominator.AggregationTimeframeValue)
	assert.Empty(t, m.Denominator.AggregationTimeframeUnit)
}

func TestTranslate_DesiredChangeDecrease(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "user_count",
		Type:    semantic.MetricCount,
		Measure: &semantic.MeasureRef{Name: "number_of_users"},
	}}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)
	assert.Equal(t, "decrease", payload.FactSources[0].Facts[0].DesiredChange)
}

func TestTranslate_UnknownMeasure(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "ghost",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "nonexistent"},
	}}

	_, err := tr.Translate(metrics, Options{})
	require.Error(t, err)

	var unknownErr *semantic.UnknownMeasureError
	require.ErrorAs(t, err, &unknownErr)
}

func TestTranslate_FilterOnForeignModelRejected(t *testing.T) {
	tr := newTestTranslator(t, usersModel(), ordersModel())

	metrics := []*semantic.MetricDefinition{{
		Name:    "revenue",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		Filter:  `{{ Dimension('orders__order__status') }} = 'paid'`,
	}}

	_, err := tr.Translate(metrics, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter references semantic model")
}

func TestTranslate_MissingPrimaryEntity(t *testing.T) {
	sm := usersModel()
	sm.Entities = []semantic.Entity{
		{Name: "account", Role: semantic.EntityForeign, Column: "account_id"},
	}
	tr := newTestTranslator(t, sm)

	metrics := []*semantic.MetricDefinition{{
		Name:    "revenue",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
	}}

	_, err := tr.Translate(metrics, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no primary entity")
}

func TestTranslate_MissingTimeDimension(t *testing.T) {
	sm := usersModel()
	sm.DefaultTimeDimension = ""
	sm.Dimensions = []semantic.Dimension{
		{Name: "country_code", Kind: semantic.DimensionCategorical, Column: "country"},
	}
	tr := newTestTranslator(t, sm)

	metrics := []*semantic.MetricDefinition{{
		Name:    "revenue",
		Type:    semantic.MetricSum,
		Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
	}}

	_, err := tr.Translate(metrics, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no time dimension")
}

func TestTranslate_MissingMeasureRefs(t *testing.T) {
	// Definitions built by hand can skip the loader's validation; translation
	// must reject them with an error rather than panicking.
	tr := newTestTranslator(t, usersModel())

	_, err := tr.Translate([]*semantic.MetricDefinition{{
		Name: "dangling",
		Type: semantic.MetricSum,
	}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not reference a measure")

	_, err = tr.Translate([]*semantic.MetricDefinition{{
		Name:      "half_ratio",
		Type:      semantic.MetricRatio,
		Numerator: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
	}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a denominator measure")
}

func TestTranslate_EmptyMetricsProducesEmptyArrays(t *testing.T) {
	tr := newTestTranslator(t, usersModel())

	payload, err := tr.Translate(nil, Options{})
	require.NoError(t, err)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fact_sources":[],"metrics":[]}`, string(data))
}

func TestTranslate_Idempotent(t *testing.T) {
	metrics := []*semantic.MetricDefinition{
		{
			Name:    "canadian_revenue",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
			Filter:  `{{ Dimension('users__user__country_code') }} = 'CA'`,
		},
		{
			Name:        "orders_per_user",
			Type:        semantic.MetricRatio,
			Numerator:   &semantic.MeasureRef{Name: "order_count"},
			Denominator: &semantic.MeasureRef{Name: "number_of_users"},
		},
	}

	var docs [][]byte
	for i := 0; i < 3; i++ {
		tr := newTestTranslator(t, usersModel(), ordersModel())
		payload, err := tr.Translate(metrics, Options{SyncTag: "fixed"})
		require.NoError(t, err)
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		docs = append(docs, data)
	}

	assert.Equal(t, string(docs[0]), string(docs[1]))
	assert.Equal(t, string(docs[1]), string(docs[2]))
}

func TestTranslate_ReferentialIntegrity(t *testing.T) {
	tr := newTestTranslator(t, usersModel(), ordersModel())

	metrics := []*semantic.MetricDefinition{
		{
			Name:    "revenue",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
		},
		{
			Name:        "orders_per_user",
			Type:        semantic.MetricRatio,
			Numerator:   &semantic.MeasureRef{Name: "order_count"},
			Denominator: &semantic.MeasureRef{Name: "number_of_users"},
		},
	}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	facts := make(map[string]bool)
	properties := make(map[string]bool)
	for _, fs := range payload.FactSources {
		for _, f := range fs.Facts {
			facts[f.Name] = true
		}
		for _, p := range fs.Properties {
			properties[p.Name] = true
		}
	}

	checkAgg := func(agg eppo.MetricAggregation) {
		assert.True(t, facts[agg.FactName], "fact %q not declared by any fact source", agg.FactName)
		for _, f := range agg.Filters {
			assert.True(t, properties[f.FactProperty], "property %q not declared by any fact source", f.FactProperty)
		}
	}
	for _, m := range payload.Metrics {
		checkAgg(m.Numerator)
		if m.Denominator != nil {
			checkAgg(*m.Denominator)
		}
	}
}

func TestTranslate_NamesAreUnique(t *testing.T) {
	tr := newTestTranslator(t, usersModel(), ordersModel())

	metrics := []*semantic.MetricDefinition{
		{
			Name:    "revenue_a",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
			Filter:  `{{ Dimension('users__user__country_code') }} = 'CA'`,
		},
		{
			Name:    "revenue_b",
			Type:    semantic.MetricSum,
			Measure: &semantic.MeasureRef{Name: "total_lifetime_revenue"},
			Filter:  `{{ Dimension('users__user__country_code') }} = 'US'`,
		},
		{
			Name:        "orders_per_user",
			Type:        semantic.MetricRatio,
			Numerator:   &semantic.MeasureRef{Name: "order_count"},
			Denominator: &semantic.MeasureRef{Name: "number_of_users"},
		},
	}

	payload, err := tr.Translate(metrics, Options{})
	require.NoError(t, err)

	sourceNames := make(map[string]bool)
	for _, fs := range payload.FactSources {
		assert.False(t, sourceNames[fs.Name], "duplicate fact source %q", fs.Name)
		sourceNames[fs.Name] = true

		factNames := make(map[string]bool)
		for _, f := range fs.Facts {
			assert.False(t, factNames[f.Name], "duplicate fact %q in source %q", f.Name, fs.Name)
			factNames[f.Name] = true
		}
		propNames := make(map[string]bool)
		for _, p := range fs.Properties {
			assert.False(t, propNames[p.Name], "duplicate property %q in source %q", p.Name, fs.Name)
			propNames[p.Name] = true
		}
	}
}
