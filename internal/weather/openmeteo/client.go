// Package openmeteo provides a keyless weather provider backed by the
// Open-Meteo forecast API.
package openmeteo

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
	ProviderName = "open-meteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com"

	currentFields = "temperature_2m,precipitation,weather_code,wind_speed_10m"
	timeLayout    = "2006-01-02T15:04"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional).
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

// Client is an Open-Meteo API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
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
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type forecastResponse struct {
	Current *struct {
		Time          string   `json:"time"`
		Temperature   *float64 `json:"temperature_2m"`
		Precipitation *float64 `json:"precipitation"`
		WeatherCode   *int     `json:"weather_code"`
		WindSpeed     *float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// CurrentSample fetches current conditions at point.
func (c *Client) CurrentSample(ctx context.Context, point geo.Coordinate) (*weather.Sample, error) {
	url := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f&current=%s&wind_speed_unit=kmh&timezone=GMT",
		c.baseURL, point.Lat, point.Lon, currentFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var body forecastResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK {
		reason := body.Reason
		if decodeErr != nil || reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", weather.ErrProviderUnavailable, resp.StatusCode, reason)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrMalformedSample, decodeErr)
	}

	return c.toSample(point, &body)
}

func (c *Client) toSample(point geo.Coordinate, body *forecastResponse) (*weather.Sample, error) {
	cur := body.Current
	if cur == nil || cur.WeatherCode == nil || cur.Precipitation == nil || cur.WindSpeed == nil || cur.Temperature == nil {
		return nil, fmt.Errorf("%w: missing current fields", weather.ErrMalformedSample)
	}

	condition, ok := ConditionForCode(*cur.WeatherCode)
	if !ok {
		return nil, fmt.Errorf("%w: unknown weather code %d", weather.ErrMalformedSample, *cur.WeatherCode)
	}

	observed, err := time.Parse(timeLayout, cur.Time)
	if err != nil {
		c.logger.Debug().Str("time", cur.Time).Msg("unparseable observation time, using now")
		observed = time.Now().UTC()
	}

	return &weather.Sample{
		Point:           point,
		PrecipitationMm: *cur.Precipitation,
		WindKmh:         *cur.WindSpeed,
		Condition:       condition,
		TemperatureC:    *cur.Temperature,
		Description:     describe(*cur.WeatherCode),
		ObservedAt:      observed,
		Provider:        ProviderName,
	}, nil
}

// ConditionForCode maps a WMO weather interpretation code to a condition.
// Snow and hail count as storm.
func ConditionForCode(code int) (weather.Condition, bool) {
	switch {
	case code >= 0 && code <= 3:
		return weather.ConditionClear, true
	case code == 45 || code == 48:
		return weather.ConditionFog, true
	case code >= 51 && code <= 67, code >= 80 && code <= 82:
		return weather.ConditionRain, true
	case code >= 71 && code <= 77, code == 85 || code == 86:
		return weather.ConditionStorm, true
	case code >= 95 && code <= 99:
		return weather.ConditionStorm, true
	default:
		return "", false
	}
}

func describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	default:
		return "thunderstorm"
	}
}
