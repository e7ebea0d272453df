// Package risk classifies weather along a route and decides whether the
// active route should be kept or swapped for a safer alternative.
package risk

import (
	"fmt"
	"math"
	"slices"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/weather"
)

// Level is a route weather risk level. Levels are ordered safe < caution < unsafe.
type Level string

const (
	LevelSafe    Level = "safe"
	LevelCaution Level = "caution"
	LevelUnsafe  Level = "unsafe"
)

// Levels lists every level in increasing severity.
var Levels = []Level{LevelSafe, LevelCaution, LevelUnsafe}

func (l Level) severity() int {
	switch l {
	case LevelCaution:
		return 1
	case LevelUnsafe:
		return 2
	default:
		return 0
	}
}

// Max returns the more severe of two levels.
func Max(a, b Level) Level {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// Thresholds are the classification limits. A value strictly above a limit trips it.
type Thresholds struct {
	CautionPrecipitationMm float64
	UnsafePrecipitationMm  float64
	CautionWindKmh         float64
	UnsafeWindKmh          float64
}

// DefaultThresholds returns the default limits for light commercial vehicles.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CautionPrecipitationMm: 2.5,
		UnsafePrecipitationMm:  10,
		CautionWindKmh:         30,
		UnsafeWindKmh:          50,
	}
}

// Trigger records why a sample raised the risk level.
type Trigger struct {
	Point  geo.Coordinate `json:"point"`
	Level  Level          `json:"level"`
	Reason string         `json:"reason"`
}

// Classify returns the severity of a single sample and every rule it tripped.
func Classify(s weather.Sample, th Thresholds) (Level, []Trigger) {
	var triggers []Trigger
	add := func(level Level, format string, args ...any) {
		triggers = append(triggers, Trigger{Point: s.Point, Level: level, Reason: fmt.Sprintf(format, args...)})
	}

	switch s.Condition {
	case weather.ConditionStorm:
		add(LevelUnsafe, "storm conditions")
	case weather.ConditionRain:
		add(LevelCaution, "rain")
	case weather.ConditionFog:
		add(LevelCaution, "fog")
	}

	switch {
	case s.PrecipitationMm > th.UnsafePrecipitationMm:
		add(LevelUnsafe, "heavy precipitation %.1f mm/h", s.PrecipitationMm)
	case s.PrecipitationMm > th.CautionPrecipitationMm:
		add(LevelCaution, "precipitation %.1f mm/h", s.PrecipitationMm)
	}

	switch {
	case s.WindKmh > th.UnsafeWindKmh:
		add(LevelUnsafe, "high wind %.0f km/h", s.WindKmh)
	case s.WindKmh > th.CautionWindKmh:
		add(LevelCaution, "strong wind %.0f km/h", s.WindKmh)
	}

	level := LevelSafe
	for _, t := range triggers {
		level = Max(level, t.Level)
	}
	return level, triggers
}

// Assessment is the weather verdict for one route.
type Assessment struct {
	CandidateID        int              `json:"candidateId"`
	Level              Level            `json:"level"`
	Triggers           []Trigger        `json:"triggers"`
	WeatherUnavailable bool             `json:"weatherUnavailable"`
	SafetyScore        float64          `json:"safetyScore"`
	Samples            []weather.Sample `json:"samples"`
}

// Clone returns a deep copy of a.
func (a Assessment) Clone() Assessment {
	a.Triggers = slices.Clone(a.Triggers)
	a.Samples = slices.Clone(a.Samples)
	return a
}

// Aggregate folds per-sample classifications into a route assessment. The
// route level is the worst sample level. No samples means safe with
// WeatherUnavailable set.
func Aggregate(samples []weather.Sample, th Thresholds) Assessment {
	a := Assessment{
		Level:       LevelSafe,
		Triggers:    []Trigger{},
		Samples:     samples,
		SafetyScore: SafetyScore(samples),
	}
	if len(samples) == 0 {
		a.WeatherUnavailable = true
		return a
	}
	for _, s := range samples {
		level, triggers := Classify(s, th)
		a.Level = Max(a.Level, level)
		a.Triggers = append(a.Triggers, triggers...)
	}
	return a
}

// SafetyScore rates driving comfort on a 0-100 scale from precipitation,
// wind and temperature. The route score is the worst sample score; no
// samples scores 100.
func SafetyScore(samples []weather.Sample) float64 {
	score := 100.0
	for _, s := range samples {
		score = math.Min(score, sampleScore(s))
	}
	return score
}

func sampleScore(s weather.Sample) float64 {
	score := 100.0

	switch {
	case s.PrecipitationMm > 10:
		score -= 40
	case s.PrecipitationMm > 5:
		score -= 25
	case s.PrecipitationMm > 2:
		score -= 10
	}

	switch {
	case s.WindKmh > 35:
		score -= 30
	case s.WindKmh > 25:
		score -= 20
	case s.WindKmh > 15:
		score -= 10
	}

	t := s.TemperatureC
	switch {
	case t < 0 || t > 40:
		score -= 30
	case t < 5 || t > 35:
		score -= 20
	case t < 10 || t > 30:
		score -= 10
	}

	return math.Max(0, score)
}
