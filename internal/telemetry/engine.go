package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EngineMetrics counts route engine events.
type EngineMetrics struct {
	computes      metric.Int64Counter
	fallbacks     metric.Int64Counter
	candidates    metric.Int64Histogram
	weatherChecks metric.Int64Counter
	reroutes      metric.Int64Counter
}

// NewEngineMetrics creates the engine instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	computes, err := meter.Int64Counter(
		"farmroute.compute.total",
		metric.WithDescription("Route computations by candidate source"),
		metric.WithUnit("{compute}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"farmroute.compute.geometry_fallback",
		metric.WithDescription("Computations that synthesized routes because provider geometry was unavailable"),
		metric.WithUnit("{compute}"),
	)
	if err != nil {
		return nil, err
	}

	candidates, err := meter.Int64Histogram(
		"farmroute.compute.candidates",
		metric.WithDescription("Candidates produced per computation"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	weatherChecks, err := meter.Int64Counter(
		"farmroute.weather.check.total",
		metric.WithDescription("Weather checks by resulting risk level"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	reroutes, err := meter.Int64Counter(
		"farmroute.weather.reroute.total",
		metric.WithDescription("Active route switches caused by unsafe weather"),
		metric.WithUnit("{reroute}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		computes:      computes,
		fallbacks:     fallbacks,
		candidates:    candidates,
		weatherChecks: weatherChecks,
		reroutes:      reroutes,
	}, nil
}

// RecordCompute records one route computation.
func (m *EngineMetrics) RecordCompute(ctx context.Context, source string, candidates int, fallback bool) {
	attrs := metric.WithAttributes(attribute.String("route.source", source))
	m.computes.Add(ctx, 1, attrs)
	m.candidates.Record(ctx, int64(candidates), attrs)
	if fallback {
		m.fallbacks.Add(ctx, 1, attrs)
	}
}

// RecordWeatherCheck records one weather evaluation.
func (m *EngineMetrics) RecordWeatherCheck(ctx context.Context, level string, decision string) {
	m.weatherChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("risk.level", level),
		attribute.String("risk.decision", decision),
	))
	if decision == "reroute" {
		m.reroutes.Add(ctx, 1)
	}
}
