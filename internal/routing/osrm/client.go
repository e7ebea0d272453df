// Package osrm provides a road routing provider backed by the OSRM route service.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/provider/resilience"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/pkg/polyline"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// OSRM response codes.
const (
	codeOK        = "Ok"
	codeNoRoute   = "NoRoute"
	codeNoSegment = "NoSegment"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the OSRM server (optional, defaults to the public demo server).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OSRM route service client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
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

type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Geometry string  `json:"geometry"` // polyline6
	Legs     []struct {
		Summary string `json:"summary"`
	} `json:"legs"`
}

// Directions retrieves road paths between two points. OSRM decides how many
// alternatives to return; MaxAlternatives only caps the result.
func (c *Client) Directions(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if err := routing.ValidateEndpoints(req.Origin, req.Destination); err != nil {
		if rerr, ok := err.(*routing.Error); ok {
			rerr.Provider = ProviderName
		}
		return nil, err
	}

	alternatives := "true"
	if req.MaxAlternatives < 0 {
		alternatives = "false"
	}

	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?alternatives=%s&overview=full&geometries=polyline6",
		c.baseURL,
		req.Origin.Lon, req.Origin.Lat,
		req.Destination.Lon, req.Destination.Lat,
		alternatives,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting route from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var osrmResp routeResponse
	if jsonErr := json.Unmarshal(body, &osrmResp); jsonErr != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, statusError(resp.StatusCode, "")
		}
		return nil, fmt.Errorf("decoding response: %w", jsonErr)
	}

	switch {
	case osrmResp.Code == codeNoRoute || osrmResp.Code == codeNoSegment:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, statusError(resp.StatusCode, osrmResp.Message)
	case osrmResp.Code != codeOK:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     osrmResp.Code,
			Message:  osrmResp.Message,
			Err:      routing.ErrProviderUnavailable,
		}
	}

	result := c.toDirectionsResponse(osrmResp.Routes, req.MaxAlternatives)

	c.logger.Debug().
		Int("path_count", len(result.Paths)).
		Msg("received route from OSRM")

	return result, nil
}

func statusError(status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("routing provider returned status %d", status)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &routing.Error{Provider: ProviderName, Code: "RATE_LIMIT", Message: message, Err: routing.ErrRateLimitExceeded}
	case status == http.StatusBadRequest:
		return &routing.Error{Provider: ProviderName, Code: "BAD_REQUEST", Message: message, Err: routing.ErrInvalidCoordinate}
	default:
		return &routing.Error{Provider: ProviderName, Code: fmt.Sprintf("HTTP_%d", status), Message: message, Err: routing.ErrProviderUnavailable}
	}
}

func (c *Client) toDirectionsResponse(routes []route, maxAlternatives int) *routing.DirectionsResponse {
	limit := len(routes)
	if maxAlternatives > 0 && maxAlternatives+1 < limit {
		limit = maxAlternatives + 1
	}

	paths := make([]routing.Path, 0, limit)
	for i := 0; i < len(routes) && len(paths) < limit; i++ {
		r := routes[i]
		decoded, err := polyline.Decode(r.Geometry, polyline.Precision6)
		if err != nil {
			c.logger.Warn().Err(err).Int("route_index", i).Msg("skipping OSRM route with malformed geometry")
			continue
		}

		coords := make([]geo.Coordinate, len(decoded))
		for j, p := range decoded {
			coords[j] = geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
		}

		km := r.Distance / 1000
		mins := r.Duration / 60
		path := routing.Path{Coordinates: coords, DistanceKm: &km, DurationMin: &mins}
		if len(r.Legs) > 0 {
			path.Summary = r.Legs[0].Summary
		}
		paths = append(paths, path)
	}

	return &routing.DirectionsResponse{
		Paths:     paths,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
}
