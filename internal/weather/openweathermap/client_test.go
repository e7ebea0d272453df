package openweathermap_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/provider/resilience"
	"github.com/farmroute/farmroute/internal/weather"
	"github.com/farmroute/farmroute/internal/weather/openweathermap"
)

var isbt = geo.Coordinate{Lat: 30.3255, Lon: 78.0436}

func fastResilientClient() *resilience.Client {
	cfg := resilience.DefaultClientConfig("test")
	cfg.MaxRetries = 1
	cfg.InitialInterval = time.Millisecond
	return resilience.NewClient(cfg)
}

func TestClient_CurrentSample(t *testing.T) {
	observed := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("lat"), "30.3255")
		assert.Contains(t, r.URL.Query().Get("lon"), "78.0436")
		assert.Equal(t, "****", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		response := map[string]interface{}{
			"coord": map[string]float64{"lat": 30.3255, "lon": 78.0436},
			"weather": []map[string]interface{}{
				{"id": 502, "main": "Rain", "description": "heavy intensity rain"},
			},
			"main": map[string]float64{"temp": 24.5, "humidity": 94.0},
			"wind": map[string]float64{"speed": 10.0, "deg": 220.0},
			"rain": map[string]float64{"1h": 11.2},
			"dt":   observed.Unix(),
			"name": "Dehradun",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: fastResilientClient(),
	})

	sample, err := client.CurrentSample(context.Background(), isbt)
	require.NoError(t, err)
	require.NotNil(t, sample)

	assert.Equal(t, isbt, sample.Point)
	assert.Equal(t, weather.ConditionRain, sample.Condition)
	assert.InDelta(t, 36.0, sample.WindKmh, 1e-9)
	assert.InDelta(t, 11.2, sample.PrecipitationMm, 1e-9)
	assert.Equal(t, 24.5, sample.TemperatureC)
	assert.Equal(t, "heavy intensity rain", sample.Description)
	assert.Equal(t, observed, sample.ObservedAt)
	assert.Equal(t, "openweathermap", sample.Provider)
}

func TestClient_CurrentSample_AllConditions(t *testing.T) {
	conditions := []struct {
		owmMain  string
		expected weather.Condition
	}{
		{"Clear", weather.ConditionClear},
		{"Clouds", weather.ConditionClear},
		{"Rain", weather.ConditionRain},
		{"Drizzle", weather.ConditionRain},
		{"Thunderstorm", weather.ConditionStorm},
		{"Snow", weather.ConditionStorm},
		{"Mist", weather.ConditionFog},
		{"Fog", weather.ConditionFog},
		{"Haze", weather.ConditionFog},
		{"Dust", weather.ConditionFog},
	}

	for _, tc := range conditions {
		t.Run(tc.owmMain, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				response := map[string]interface{}{
					"weather": []map[string]interface{}{
						{"main": tc.owmMain, "description": "test"},
					},
					"main": map[string]float64{"temp": 20.0},
					"wind": map[string]float64{"speed": 5.0},
					"dt":   time.Now().Unix(),
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(response)
			}))
			defer server.Close()

			client := openweathermap.NewClient(openweathermap.ClientConfig{
				APIKey:     "****",
				BaseURL:    server.URL,
				HTTPClient: fastResilientClient(),
			})

			sample, err := client.CurrentSample(context.Background(), isbt)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sample.Condition)
		})
	}
}

func TestClient_CurrentSample_Malformed(t *testing.T) {
	bodies := []string{
		`{"weather":[],"main":{"temp":20}}`,
		`{"weather":[{"main":"Volcano"}],"main":{"temp":20}}`,
		`not json`,
	}

	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		client := openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     "****",
			BaseURL:    server.URL,
			HTTPClient: fastResilientClient(),
		})

		_, err := client.CurrentSample(context.Background(), isbt)
		assert.ErrorIs(t, err, weather.ErrMalformedSample, "body %s", body)
		server.Close()
	}
}

func TestClient_CurrentSample_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: fastResilientClient(),
	})

	_, err := client.CurrentSample(context.Background(), isbt)
	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_CurrentSample_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     "****",
		BaseURL:    server.URL,
		HTTPClient: fastResilientClient(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CurrentSample(ctx, isbt)
	require.Error(t, err)
}

func TestClient_Name(t *testing.T) {
	client := openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey: "****",
	})

	assert.Equal(t, "openweathermap", client.Name())
}
