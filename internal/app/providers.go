// Package app assembles the provider stack shared by the API server and the worker.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/config"
	"github.com/farmroute/farmroute/internal/provider/resilience"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/routing/openrouteservice"
	"github.com/farmroute/farmroute/internal/routing/osrm"
	"github.com/farmroute/farmroute/internal/routing/sqlitecache"
	"github.com/farmroute/farmroute/internal/weather"
	"github.com/farmroute/farmroute/internal/weather/openmeteo"
	"github.com/farmroute/farmroute/internal/weather/openweathermap"
)

// Providers is the cached, circuit-broken provider stack.
type Providers struct {
	Registry   *resilience.Registry
	Directions *routing.Service
	Weather    *weather.Service

	cache *sqlitecache.Store
}

// NewProviders builds the routing and weather providers selected by cfg.
// The returned Providers must be closed to release the directions cache.
func NewProviders(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Providers, error) {
	p := &Providers{Registry: resilience.NewRegistry()}

	directions, err := p.directionsProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	svcCfg := routing.ServiceConfig{
		Provider: directions,
		Logger:   log,
		Timeout:  cfg.Routing.Timeout,
		CacheTTL: cfg.Routing.CacheTTL,
	}
	if cfg.Routing.CachePath != "" && directions.Name() != routing.LocalProviderName {
		store, err := sqlitecache.Open(ctx, cfg.Routing.CachePath)
		if err != nil {
			return nil, fmt.Errorf("open directions cache: %w", err)
		}
		p.cache = store
		svcCfg.Store = store
	}
	p.Directions = routing.NewService(svcCfg)

	p.Weather = weather.NewService(weather.ServiceConfig{
		Provider: p.weatherProvider(cfg, log),
		Logger:   log,
		CacheTTL: cfg.Weather.CacheTTL,
	})

	return p, nil
}

func (p *Providers) directionsProvider(cfg config.Config, log zerolog.Logger) (routing.Provider, error) {
	switch cfg.Routing.Provider {
	case config.RoutingORS:
		return openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.Routing.ORSAPIKey,
			BaseURL:  cfg.Routing.ORSBaseURL,
			Profile:  cfg.Routing.ORSProfile,
			Timeout:  cfg.Routing.Timeout,
			Registry: p.Registry,
			Logger:   log,
		}), nil
	case config.RoutingOSRM:
		return osrm.NewClient(osrm.ClientConfig{
			BaseURL:  cfg.Routing.OSRMBaseURL,
			Timeout:  cfg.Routing.Timeout,
			Registry: p.Registry,
			Logger:   log,
		}), nil
	case config.RoutingLocal:
		return routing.NewLocalProvider(BuilderConfig(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown routing provider %q", cfg.Routing.Provider)
	}
}

func (p *Providers) weatherProvider(cfg config.Config, log zerolog.Logger) weather.Provider {
	if cfg.Weather.Provider == config.WeatherOpenWeatherMap {
		return openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:   cfg.Weather.OWMAPIKey,
			BaseURL:  cfg.Weather.OWMBaseURL,
			Timeout:  cfg.Weather.Timeout,
			Registry: p.Registry,
			Logger:   log,
		})
	}
	return openmeteo.NewClient(openmeteo.ClientConfig{
		BaseURL:  cfg.Weather.OpenMeteoBaseURL,
		Timeout:  cfg.Weather.Timeout,
		Registry: p.Registry,
		Logger:   log,
	})
}

// BuilderConfig returns the candidate builder policy for cfg.
func BuilderConfig(cfg config.Config) routing.BuilderConfig {
	b := routing.DefaultBuilderConfig()
	b.MaxAlternatives = cfg.Routing.MaxAlternatives
	return b
}

// Persistent reports whether directions are cached on disk.
func (p *Providers) Persistent() bool {
	return p.cache != nil
}

// Ping checks the directions cache connection. It is a no-op when directions
// are not cached on disk.
func (p *Providers) Ping(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Ping(ctx)
}

// Close releases the directions cache.
func (p *Providers) Close() error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Close()
}
