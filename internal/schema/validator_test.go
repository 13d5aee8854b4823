package schema

import (
	"testing"

	"github.com/Eppo-exp/dbt-eppo-sync/internal/eppo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload() *eppo.SyncPayload {
	return &eppo.SyncPayload{
		SyncTag: "test-run",
		FactSources: []eppo.FactSource{{
			Name:            "users",
			SQL:             "SELECT user_id, created_at, ltv, country FROM analytics.staging.stg_users",
			TimestampColumn: "created_at",
			Entities: []eppo.EntityMapping{
				{EntityName: "user", Column: "user_id"},
			},
			Facts: []eppo.Fact{
				{Name: "total_lifetime_revenue", Column: "ltv", DesiredChange: "increase"},
			},
			Properties: []eppo.FactProperty{
				{Name: "country_code", Column: "country"},
			},
		}},
		Metrics: []eppo.Metric{{
			Name:   "Total Lifetime Revenue",
			Type:   "simple",
			Entity: "user",
			Numerator: eppo.MetricAggregation{
				FactName:  "total_lifetime_revenue",
				Operation: eppo.OpSum,
				Filters: []eppo.Filter{{
					FactProperty: "country_code",
					Operation:    eppo.FilterEquals,
					Values:       []string{"CA"},
				}},
			},
		}},
	}
}

func TestValidate_ValidDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	require.NoError(t, v.Validate(validPayload()))
}

func TestValidate_RatioDocument(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	payload := validPayload()
	lower := 0.01
	payload.Metrics[0].Type = "ratio"
	payload.Metrics[0].Numerator.WinsorizationLowerPercentile = &lower
	payload.Metrics[0].Denominator = &eppo.MetricAggregation{
		FactName:  "total_lifetime_revenue",
		Operation: eppo.OpCount,
	}

	require.NoError(t, v.Validate(payload))
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.ValidateJSON([]byte(`{
		"fact_sources": [],
		"metrics": [],
		"unexpected_field": true
	}`))
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.NotEmpty(t, schemaErr.Violations)
}

func TestValidate_MissingRequiredFields(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.ValidateJSON([]byte(`{"sync_tag": "x"}`))
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	// Two independent problems: a bad operation and a bad desired_change.
	err = v.ValidateJSON([]byte(`{
		"fact_sources": [{
			"name": "users",
			"sql": "SELECT 1",
			"timestamp_column": "ts",
			"entities": [{"entity_name": "user", "column": "user_id"}],
			"facts": [{"name": "revenue", "desired_change": "sideways"}]
		}],
		"metrics": [{
			"name": "m",
			"type": "simple",
			"entity": "user",
			"numerator": {"fact_name": "revenue", "operation": "median"}
		}]
	}`))
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.GreaterOrEqual(t, len(schemaErr.Violations), 2)

	pointers := make([]string, 0, len(schemaErr.Violations))
	for _, violation := range schemaErr.Violations {
		pointers = append(pointers, violation.InstancePointer)
	}
	assert.Contains(t, pointers, "/fact_sources/0/facts/0/desired_change")
	assert.Contains(t, pointers, "/metrics/0/numerator/operation")
}

func TestValidate_DenominatorOperationRestricted(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	payload := validPayload()
	payload.Metrics[0].Type = "ratio"
	payload.Metrics[0].Denominator = &eppo.MetricAggregation{
		FactName:  "total_lifetime_revenue",
		Operation: eppo.OpRetention,
	}

	err = v.Validate(payload)
	require.Error(t, err)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidate_NullArraysRejected(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.ValidateJSON([]byte(`{"fact_sources": null, "metrics": null}`))
	require.Error(t, err)
}

func TestValidate_InvalidJSON(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.ValidateJSON([]byte("{nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestValidationError_MessageListsViolations(t *testing.T) {
	err := &SchemaValidationError{Violations: []Violation{
		{InstancePointer: "/metrics/0/type", Message: "value must be one of 'simple', 'ratio', 'percentile'"},
		{InstancePointer: "/fact_sources", Message: "got null, want array"},
	}}
	msg := err.Error()
	assert.Contains(t, msg, "2 violation(s)")
	assert.Contains(t, msg, "/metrics/0/type")
	assert.Contains(t, msg, "/fact_sources")
}
