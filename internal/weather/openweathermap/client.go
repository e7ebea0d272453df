// Package openweathermap provides a weather provider backed by the
// OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/provider/resilience"
	"github.com/farmroute/farmroute/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the per-request timeout for the default client (optional).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// CurrentSample fetches current weather at point.
func (c *Client) CurrentSample(ctx context.Context, point geo.Coordinate) (*weather.Sample, error) {
	url := fmt.Sprintf("%s/weather?lat=%.6f&lon=%.6f&appid=%s&units=metric",
		c.baseURL, point.Lat, point.Lon, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: executing request: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code: %d", weather.ErrProviderUnavailable, resp.StatusCode)
	}

	var owmResp currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrMalformedSample, err)
	}

	return c.toSample(point, &owmResp)
}

// toSample converts an OpenWeatherMap response to a sample. Wind arrives in m/s.
func (c *Client) toSample(point geo.Coordinate, resp *currentWeatherResponse) (*weather.Sample, error) {
	if len(resp.Weather) == 0 {
		return nil, fmt.Errorf("%w: no weather condition", weather.ErrMalformedSample)
	}

	condition, ok := mapCondition(resp.Weather[0].Main)
	if !ok {
		return nil, fmt.Errorf("%w: unknown condition %q", weather.ErrMalformedSample, resp.Weather[0].Main)
	}

	precip := resp.Rain.OneHour + resp.Snow.OneHour

	sample := &weather.Sample{
		Point:           point,
		PrecipitationMm: precip,
		WindKmh:         weather.MsToKmh(resp.Wind.Speed),
		Condition:       condition,
		TemperatureC:    resp.Main.Temp,
		Description:     resp.Weather[0].Description,
		ObservedAt:      time.Unix(resp.Dt, 0).UTC(),
		Provider:        ProviderName,
	}

	c.logger.Debug().
		Str("condition", string(condition)).
		Float64("precipitation_mm", precip).
		Float64("wind_kmh", sample.WindKmh).
		Msg("received weather from OpenWeatherMap")

	return sample, nil
}

// mapCondition maps an OpenWeatherMap condition group to a condition.
func mapCondition(owmCondition string) (weather.Condition, bool) {
	switch owmCondition {
	case "Clear", "Clouds":
		return weather.ConditionClear, true
	case "Rain", "Drizzle":
		return weather.ConditionRain, true
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return weather.ConditionFog, true
	case "Thunderstorm", "Snow", "Squall", "Tornado":
		return weather.ConditionStorm, true
	default:
		return "", false
	}
}

type currentWeatherResponse struct {
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Dt   int64  `json:"dt"`
	Name string `json:"name"`
}
