// Package weather provides current-conditions samples along a route.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/farmroute/farmroute/internal/geo"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrMalformedSample     = errors.New("malformed weather sample")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Condition is the coarse weather condition that matters for road freight.
type Condition string

const (
	ConditionClear Condition = "clear"
	ConditionRain  Condition = "rain"
	ConditionFog   Condition = "fog"
	ConditionStorm Condition = "storm"
)

// Conditions lists every condition in increasing severity.
var Conditions = []Condition{ConditionClear, ConditionRain, ConditionFog, ConditionStorm}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ConditionClear, ConditionRain, ConditionFog, ConditionStorm:
		return true
	}
	return false
}

// Sample is the weather observed at one point.
type Sample struct {
	Point           geo.Coordinate `json:"point"`
	PrecipitationMm float64        `json:"precipitationMm"` // mm/h
	WindKmh         float64        `json:"windKmh"`
	Condition       Condition      `json:"condition"`
	TemperatureC    float64        `json:"temperatureC"`
	Description     string         `json:"description,omitempty"`
	ObservedAt      time.Time      `json:"observedAt"`
	Provider        string         `json:"provider"`
}

// Validate rejects samples a provider should never have produced.
func (s *Sample) Validate() error {
	switch {
	case !s.Condition.Valid():
		return fmt.Errorf("%w: condition %q", ErrMalformedSample, s.Condition)
	case math.IsNaN(s.PrecipitationMm) || s.PrecipitationMm < 0:
		return fmt.Errorf("%w: precipitation %v", ErrMalformedSample, s.PrecipitationMm)
	case math.IsNaN(s.WindKmh) || s.WindKmh < 0:
		return fmt.Errorf("%w: wind %v", ErrMalformedSample, s.WindKmh)
	case math.IsNaN(s.TemperatureC):
		return fmt.Errorf("%w: temperature NaN", ErrMalformedSample)
	}
	return nil
}

// Provider is the weather capability.
type Provider interface {
	// CurrentSample fetches current conditions at a point.
	CurrentSample(ctx context.Context, point geo.Coordinate) (*Sample, error)

	// Name returns the provider name for logging.
	Name() string
}

// MsToKmh converts metres per second to kilometres per hour.
func MsToKmh(ms float64) float64 {
	return ms * 3.6
}
