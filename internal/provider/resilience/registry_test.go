package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/provider/resilience"
)

func register(t *testing.T, registry *resilience.Registry, names ...string) {
	t.Helper()
	for _, name := range names {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}
}

func TestRegistry_RegisterAndGetHealth(t *testing.T) {
	registry := resilience.NewRegistry()
	register(t, registry, "openrouteservice")

	assert.Equal(t, 1, registry.ProviderCount())

	health := registry.GetHealth("openrouteservice")
	require.NotNil(t, health)
	assert.Equal(t, "openrouteservice", health.Name)
	assert.Equal(t, gobreaker.StateClosed, health.CircuitState)
	assert.True(t, health.IsHealthy())
	assert.Nil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	assert.Nil(t, registry.GetHealth("osrm"))
}

func TestRegistry_RecordOutcomes(t *testing.T) {
	registry := resilience.NewRegistry()
	register(t, registry, "open-meteo")

	registry.RecordSuccess("open-meteo")
	registry.RecordFailure("open-meteo", assert.AnError)

	health := registry.GetHealth("open-meteo")
	require.NotNil(t, health)
	require.NotNil(t, health.LastSuccessAt)
	require.NotNil(t, health.LastFailureAt)
	assert.WithinDuration(t, time.Now(), *health.LastSuccessAt, time.Second)
	assert.WithinDuration(t, time.Now(), *health.LastFailureAt, time.Second)
	assert.Equal(t, assert.AnError.Error(), health.LastError)

	// Unknown names are ignored.
	registry.RecordSuccess("nominatim")
	registry.RecordFailure("nominatim", assert.AnError)
	assert.Equal(t, 1, registry.ProviderCount())
}

func TestRegistry_SortedListings(t *testing.T) {
	registry := resilience.NewRegistry()
	assert.Empty(t, registry.GetProviderNames())

	register(t, registry, "osrm", "open-meteo", "openrouteservice")

	assert.Equal(t, []string{"open-meteo", "openrouteservice", "osrm"}, registry.GetProviderNames())

	health := registry.GetAllHealth()
	require.Len(t, health, 3)
	for i, name := range []string{"open-meteo", "openrouteservice", "osrm"} {
		assert.Equal(t, name, health[i].Name)
	}
}

func TestRegistry_OpenCircuits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	register(t, registry, "open-meteo")

	cb := resilience.DefaultCircuitBreakerConfig("openrouteservice")
	cb.ReadyToTrip = func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 }
	cfg := resilience.DefaultClientConfig("openrouteservice")
	cfg.MaxRetries = 1
	cfg.InitialInterval = time.Millisecond
	cfg.CircuitBreaker = &cb
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	assert.Empty(t, registry.OpenCircuits())

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, _ := client.Do(req)
	if resp != nil {
		resp.Body.Close()
	}

	assert.Equal(t, []string{"openrouteservice"}, registry.OpenCircuits())
	assert.True(t, registry.GetHealth("openrouteservice").IsUnhealthy())
	assert.True(t, registry.GetHealth("open-meteo").IsHealthy())
}

func TestRegistry_ReplacesClientOnReregister(t *testing.T) {
	registry := resilience.NewRegistry()
	register(t, registry, "osrm", "osrm")
	assert.Equal(t, 1, registry.ProviderCount())
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := &resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
