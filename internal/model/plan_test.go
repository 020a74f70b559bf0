package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     PlanSubmission
		wantErr bool
	}{
		{"complete", PlanSubmission{FullName: "Jane Doe", Email: "jane@x.com"}, false},
		{"missing email", PlanSubmission{FullName: "Jane Doe"}, true},
		{"missing name", PlanSubmission{Email: "jane@x.com"}, true},
		{"blank name", PlanSubmission{FullName: "   ", Email: "jane@x.com"}, true},
		{"empty", PlanSubmission{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingIdentity)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeTrimsIdentity(t *testing.T) {
	sub := PlanSubmission{FullName: " Jane Doe ", Email: "\tJane@X.com\n"}.Normalize()

	assert.Equal(t, "Jane Doe", sub.FullName)
	assert.Equal(t, "Jane@X.com", sub.Email)
}

func TestDecodeAcceptsNumbersAndNumericStrings(t *testing.T) {
	body := `{
		"full_name": "Jane Doe",
		"email": "jane@x.com",
		"profit_target": 3000,
		"max_loss_limit": "2500.50",
		"daily_loss_limit": "",
		"risk_per_trade": null,
		"consistency_enabled": true,
		"product": "NQ",
		"stop_loss_ticks": 10
	}`

	var sub PlanSubmission
	require.NoError(t, json.Unmarshal([]byte(body), &sub))

	assert.True(t, sub.ProfitTarget.Valid)
	assert.Equal(t, "3000", sub.ProfitTarget.Decimal.String())
	assert.Equal(t, "2500.5", sub.MaxLossLimit.Decimal.String())
	assert.False(t, sub.DailyLossLimit.Valid)
	assert.False(t, sub.RiskPerTrade.Valid)
	assert.False(t, sub.MaxDailyProfit.Valid)
	assert.True(t, sub.ConsistencyEnabled.Valid)
	assert.True(t, sub.ConsistencyEnabled.Value)
	assert.Equal(t, NewText("NQ"), sub.Product)
	assert.Equal(t, "10", sub.StopLossTicks.Decimal.String())
	assert.Empty(t, sub.Dropped())
}

func TestDecodeFormStyleValues(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []FieldValue
		dropped []FieldValue
	}{
		{
			name: "checkbox strings",
			body: `{"consistency_enabled":"true"}`,
			want: []FieldValue{{Key: "consistency_enabled", Value: true}},
		},
		{
			name: "checkbox on",
			body: `{"consistency_enabled":"on"}`,
			want: []FieldValue{{Key: "consistency_enabled", Value: true}},
		},
		{
			name: "checkbox off as zero",
			body: `{"consistency_enabled":0}`,
			want: []FieldValue{{Key: "consistency_enabled", Value: false}},
		},
		{
			name: "numeric product",
			body: `{"product":123}`,
			want: []FieldValue{{Key: "product", Value: "123"}},
		},
		{
			name: "percent suffix",
			body: `{"consistency_rule":"40%"}`,
			want: []FieldValue{{Key: "consistency_rule", Value: json.Number("40")}},
		},
		{
			name:    "unparseable amount",
			body:    `{"profit_target":"lots","risk_per_trade":200}`,
			want:    []FieldValue{{Key: "risk_per_trade", Value: json.Number("200")}},
			dropped: []FieldValue{{Key: "profit_target", Value: "lots"}},
		},
		{
			name:    "unknown checkbox value",
			body:    `{"consistency_enabled":"maybe"}`,
			dropped: []FieldValue{{Key: "consistency_enabled", Value: "maybe"}},
		},
		{
			name:    "boolean product",
			body:    `{"product":true}`,
			dropped: []FieldValue{{Key: "product", Value: "true"}},
		},
		{
			name:    "object amount",
			body:    `{"max_loss_limit":{"v":1}}`,
			dropped: []FieldValue{{Key: "max_loss_limit", Value: `{"v":1}`}},
		},
		{
			name: "whole count written as decimal",
			body: `{"suggested_contracts":"2.0"}`,
			want: []FieldValue{{Key: "suggested_contracts", Value: json.Number("2")}},
		},
		{
			name:    "fractional count",
			body:    `{"stop_loss_ticks":2.5,"max_sl_hits_per_day":3}`,
			want:    []FieldValue{{Key: "max_sl_hits_per_day", Value: json.Number("3")}},
			dropped: []FieldValue{{Key: "stop_loss_ticks", Value: "2.5"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sub PlanSubmission
			require.NoError(t, json.Unmarshal([]byte(tt.body), &sub))

			assert.Equal(t, tt.want, sub.FieldValues())
			assert.Equal(t, tt.dropped, sub.Dropped())
		})
	}
}

func TestDecodeRejectsOutOfRangeNumbers(t *testing.T) {
	tests := []string{
		`{"profit_target":1e10000000}`,
		`{"profit_target":1e2000000000}`,
		`{"max_loss_limit":"1e31"}`,
		`{"risk_per_trade":1e-31}`,
		`{"stop_loss_ticks":1e40}`,
		`{"daily_profit_target":1234567890123456789012345678901}`,
	}

	for _, body := range tests {
		t.Run(body, func(t *testing.T) {
			var sub PlanSubmission
			err := json.Unmarshal([]byte(body), &sub)
			assert.ErrorIs(t, err, ErrNumberOutOfRange)
		})
	}
}

func TestDecodeAcceptsNumbersAtTheBound(t *testing.T) {
	var sub PlanSubmission
	require.NoError(t, json.Unmarshal([]byte(`{"profit_target":1e29,"risk_per_trade":0.000000000000000000000000000001}`), &sub))

	assert.True(t, sub.ProfitTarget.Valid)
	assert.True(t, sub.RiskPerTrade.Valid)
}

func TestFieldValuesOmitsAbsentParameters(t *testing.T) {
	params := PlanParameters{
		Product:            NewText(" NQ "),
		StopLossTicks:      NewCount(10),
		SuggestedContracts: NewCount(2),
	}

	values := params.FieldValues()

	require.Len(t, values, 3)
	assert.Equal(t, FieldValue{Key: "product", Value: "NQ"}, values[0])
	assert.Equal(t, FieldValue{Key: "stop_loss_ticks", Value: json.Number("10")}, values[1])
	assert.Equal(t, FieldValue{Key: "suggested_contracts", Value: json.Number("2")}, values[2])
}

func TestFieldValuesKeepsFalseBoolean(t *testing.T) {
	values := PlanParameters{ConsistencyEnabled: NewFlag(false)}.FieldValues()

	require.Len(t, values, 1)
	assert.Equal(t, "consistency_enabled", values[0].Key)
	assert.Equal(t, false, values[0].Value)
}
