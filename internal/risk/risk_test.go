package risk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/weather"
)

func TestClassify(t *testing.T) {
	th := risk.DefaultThresholds()

	tests := []struct {
		name     string
		sample   weather.Sample
		want     risk.Level
		triggers int
	}{
		{"clear and calm", weather.Sample{Condition: weather.ConditionClear, WindKmh: 10}, risk.LevelSafe, 0},
		{"at caution limits", weather.Sample{Condition: weather.ConditionClear, PrecipitationMm: 2.5, WindKmh: 30}, risk.LevelSafe, 0},
		{"rain condition", weather.Sample{Condition: weather.ConditionRain, PrecipitationMm: 1}, risk.LevelCaution, 1},
		{"fog", weather.Sample{Condition: weather.ConditionFog}, risk.LevelCaution, 1},
		{"moderate precipitation", weather.Sample{Condition: weather.ConditionClear, PrecipitationMm: 4}, risk.LevelCaution, 1},
		{"strong wind", weather.Sample{Condition: weather.ConditionClear, WindKmh: 31}, risk.LevelCaution, 1},
		{"storm", weather.Sample{Condition: weather.ConditionStorm}, risk.LevelUnsafe, 1},
		{"heavy rain", weather.Sample{Condition: weather.ConditionRain, PrecipitationMm: 10.1}, risk.LevelUnsafe, 2},
		{"at unsafe precipitation limit", weather.Sample{Condition: weather.ConditionClear, PrecipitationMm: 10}, risk.LevelCaution, 1},
		{"gale", weather.Sample{Condition: weather.ConditionClear, WindKmh: 62}, risk.LevelUnsafe, 1},
		{"everything", weather.Sample{Condition: weather.ConditionStorm, PrecipitationMm: 20, WindKmh: 70}, risk.LevelUnsafe, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, triggers := risk.Classify(tt.sample, th)
			assert.Equal(t, tt.want, level)
			assert.Len(t, triggers, tt.triggers)
		})
	}
}

func TestClassify_CustomThresholds(t *testing.T) {
	th := risk.Thresholds{CautionPrecipitationMm: 1, UnsafePrecipitationMm: 3, CautionWindKmh: 10, UnsafeWindKmh: 20}

	level, _ := risk.Classify(weather.Sample{Condition: weather.ConditionClear, PrecipitationMm: 3.5}, th)
	assert.Equal(t, risk.LevelUnsafe, level)
}

func TestAggregate(t *testing.T) {
	th := risk.DefaultThresholds()
	samples := []weather.Sample{
		{Condition: weather.ConditionClear, TemperatureC: 20},
		{Condition: weather.ConditionFog, TemperatureC: 20},
		{Condition: weather.ConditionClear, TemperatureC: 20},
	}

	a := risk.Aggregate(samples, th)
	assert.Equal(t, risk.LevelCaution, a.Level)
	require.Len(t, a.Triggers, 1)
	assert.Equal(t, "fog", a.Triggers[0].Reason)
	assert.False(t, a.WeatherUnavailable)
	assert.Len(t, a.Samples, 3)

	empty := risk.Aggregate(nil, th)
	assert.Equal(t, risk.LevelSafe, empty.Level)
	assert.True(t, empty.WeatherUnavailable)
	assert.Equal(t, 100.0, empty.SafetyScore)
}

func TestMax(t *testing.T) {
	assert.Equal(t, risk.LevelUnsafe, risk.Max(risk.LevelUnsafe, risk.LevelCaution))
	assert.Equal(t, risk.LevelCaution, risk.Max(risk.LevelSafe, risk.LevelCaution))
	assert.Equal(t, risk.LevelSafe, risk.Max(risk.LevelSafe, risk.LevelSafe))
}

func TestSafetyScore(t *testing.T) {
	tests := []struct {
		name   string
		sample weather.Sample
		want   float64
	}{
		{"ideal", weather.Sample{TemperatureC: 22}, 100},
		{"light rain", weather.Sample{PrecipitationMm: 3, TemperatureC: 22}, 90},
		{"breezy and warm", weather.Sample{WindKmh: 28, TemperatureC: 33}, 70},
		{"monsoon storm", weather.Sample{PrecipitationMm: 15, WindKmh: 40, TemperatureC: 22}, 30},
		{"freezing gale", weather.Sample{PrecipitationMm: 15, WindKmh: 40, TemperatureC: -2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, risk.SafetyScore([]weather.Sample{tt.sample}))
		})
	}

	// worst sample wins
	assert.Equal(t, 90.0, risk.SafetyScore([]weather.Sample{
		{TemperatureC: 22},
		{PrecipitationMm: 3, TemperatureC: 22},
	}))
}

func TestAssessment_Clone(t *testing.T) {
	a := risk.Assessment{
		Level:    risk.LevelUnsafe,
		Triggers: []risk.Trigger{{Level: risk.LevelUnsafe, Reason: "storm"}},
		Samples:  []weather.Sample{{Condition: weather.ConditionStorm}},
	}

	cp := a.Clone()
	cp.Triggers[0].Reason = "edited"
	cp.Samples[0].Condition = weather.ConditionClear

	assert.Equal(t, "storm", a.Triggers[0].Reason)
	assert.Equal(t, weather.ConditionStorm, a.Samples[0].Condition)
	assert.NotNil(t, risk.Assessment{Triggers: []risk.Trigger{}}.Clone().Triggers, "empty triggers stay non-nil")
}
