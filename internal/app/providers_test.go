package app_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/app"
	"github.com/farmroute/farmroute/internal/config"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/routing/openrouteservice"
	"github.com/farmroute/farmroute/internal/routing/osrm"
	"github.com/farmroute/farmroute/internal/weather/openmeteo"
	"github.com/farmroute/farmroute/internal/weather/openweathermap"
)

func TestNewProviders_Local(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	// The local provider never hits the network, so no cache is opened.
	cfg.Routing.CachePath = ":memory:"

	p, err := app.NewProviders(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, routing.LocalProviderName, p.Directions.Name())
	assert.Equal(t, openmeteo.ProviderName, p.Weather.Name())
	assert.False(t, p.Persistent())
	assert.NoError(t, p.Ping(context.Background()))
	assert.ElementsMatch(t, []string{openmeteo.ProviderName}, p.Registry.GetProviderNames())
}

func TestNewProviders_ORSWithCache(t *testing.T) {
	t.Setenv("ROUTING_PROVIDER", "ors")
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("ROUTING_CACHE_PATH", ":memory:")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	p, err := app.NewProviders(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, openrouteservice.ProviderName, p.Directions.Name())
	assert.True(t, p.Persistent())
	assert.True(t, p.Directions.CacheStats().Persistent)
	assert.ElementsMatch(t,
		[]string{openrouteservice.ProviderName, openmeteo.ProviderName},
		p.Registry.GetProviderNames())
	assert.NoError(t, p.Ping(context.Background()))

	require.NoError(t, p.Close())
	assert.Error(t, p.Ping(context.Background()), "closed cache is reported unreachable")
}

func TestNewProviders_OSRMAndOpenWeatherMap(t *testing.T) {
	t.Setenv("ROUTING_PROVIDER", "osrm")
	t.Setenv("WEATHER_PROVIDER", "openweathermap")
	t.Setenv("OPENWEATHERMAP_API_KEY", "owm-key")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	p, err := app.NewProviders(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, osrm.ProviderName, p.Directions.Name())
	assert.Equal(t, openweathermap.ProviderName, p.Weather.Name())
	assert.Equal(t, 2, p.Registry.ProviderCount())
}

func TestNewProviders_UnknownRouting(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Routing.Provider = "carrier-pigeon"

	_, err = app.NewProviders(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestBuilderConfig(t *testing.T) {
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	cfg.Routing.MaxAlternatives = 1

	b := app.BuilderConfig(cfg)
	assert.Equal(t, 1, b.MaxAlternatives)
	assert.Equal(t, routing.DefaultBuilderConfig().Segments, b.Segments)
}
