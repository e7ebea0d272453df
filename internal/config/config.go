// Package config reads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/risk"
)

// Routing provider names accepted in ROUTING_PROVIDER.
const (
	RoutingORS   = "ors"
	RoutingOSRM  = "osrm"
	RoutingLocal = "local"
)

// Weather provider names accepted in WEATHER_PROVIDER.
const (
	WeatherOpenMeteo      = "open-meteo"
	WeatherOpenWeatherMap = "openweathermap"
)

// DevSigningKey is the session signing key used when none is configured.
const DevSigningKey = "local-dev-signing-key-change-in-production"

// Config is the full service configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string
	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	Telemetry TelemetryConfig
	Routing   RoutingConfig
	Weather   WeatherConfig
	Risk      risk.Thresholds
	Cargo     CargoConfig
	Session   SessionConfig
	Worker    WorkerConfig
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// RoutingConfig configures the routing provider and its caches.
type RoutingConfig struct {
	Provider        string
	ORSBaseURL      string
	ORSAPIKey       string
	ORSProfile      string
	OSRMBaseURL     string
	Timeout         time.Duration
	CacheTTL        time.Duration
	CachePath       string // SQLite file for the persistent directions cache, empty for none
	MaxAlternatives int
}

// WeatherConfig configures the weather provider.
type WeatherConfig struct {
	Provider         string
	OpenMeteoBaseURL string
	OWMBaseURL       string
	OWMAPIKey        string
	Timeout          time.Duration
	CacheTTL         time.Duration
	CheckBudget      time.Duration // bounds one weather check across all routes
}

// CargoConfig configures ETA policy.
type CargoConfig struct {
	BaseSpeedKmh float64
	Multipliers  cargo.Table
}

// SessionConfig configures session tokens and expiry.
type SessionConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
	IdleTTL    time.Duration
}

// WorkerConfig configures the pre-warm worker.
type WorkerConfig struct {
	Port               string
	PubSubProjectID    string
	PubSubSubscription string
	Interval           time.Duration
	Concurrency        int
}

// parser accumulates conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) duration(key, def string) time.Duration {
	v := getEnvOrDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

// FromEnv reads the configuration from environment variables.
func FromEnv() (Config, error) {
	p := &parser{}
	th := risk.DefaultThresholds()

	cfg := Config{
		Env:        getEnvOrDefault("APP_ENV", "development"),
		Port:       getEnvOrDefault("APP_PORT", "8080"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		RequireTLS: os.Getenv("REQUIRE_TLS") == "true",
		Telemetry: TelemetryConfig{
			Enabled:      os.Getenv("OTEL_ENABLED") == "true",
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  p.float("OTEL_SAMPLE_RATIO", 1),
		},
		Routing: RoutingConfig{
			Provider:        strings.ToLower(getEnvOrDefault("ROUTING_PROVIDER", RoutingLocal)),
			ORSBaseURL:      getEnvOrDefault("ORS_BASE_URL", "https://api.openrouteservice.org"),
			ORSAPIKey:       os.Getenv("ORS_API_KEY"),
			ORSProfile:      getEnvOrDefault("ORS_PROFILE", "driving-hgv"),
			OSRMBaseURL:     getEnvOrDefault("OSRM_BASE_URL", "https://router.project-osrm.org"),
			Timeout:         p.duration("ROUTING_TIMEOUT", "4s"),
			CacheTTL:        p.duration("ROUTING_CACHE_TTL", "30m"),
			CachePath:       os.Getenv("ROUTING_CACHE_PATH"),
			MaxAlternatives: p.int("ROUTING_MAX_ALTERNATIVES", 3),
		},
		Weather: WeatherConfig{
			Provider:         strings.ToLower(getEnvOrDefault("WEATHER_PROVIDER", WeatherOpenMeteo)),
			OpenMeteoBaseURL: getEnvOrDefault("OPEN_METEO_BASE_URL", "https://api.open-meteo.com"),
			OWMBaseURL:       getEnvOrDefault("OPENWEATHERMAP_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			OWMAPIKey:        os.Getenv("OPENWEATHERMAP_API_KEY"),
			Timeout:          p.duration("WEATHER_TIMEOUT", "4s"),
			CacheTTL:         p.duration("WEATHER_CACHE_TTL", "10m"),
			CheckBudget:      p.duration("WEATHER_CHECK_BUDGET", "10s"),
		},
		Risk: risk.Thresholds{
			CautionPrecipitationMm: p.float("RISK_CAUTION_PRECIPITATION_MM", th.CautionPrecipitationMm),
			UnsafePrecipitationMm:  p.float("RISK_UNSAFE_PRECIPITATION_MM", th.UnsafePrecipitationMm),
			CautionWindKmh:         p.float("RISK_CAUTION_WIND_KMH", th.CautionWindKmh),
			UnsafeWindKmh:          p.float("RISK_UNSAFE_WIND_KMH", th.UnsafeWindKmh),
		},
		Cargo: CargoConfig{
			BaseSpeedKmh: p.float("CARGO_BASE_SPEED_KMH", cargo.DefaultBaseSpeedKmh),
			Multipliers:  cargoTable(p),
		},
		Session: SessionConfig{
			SigningKey: getEnvOrDefault("SESSION_SIGNING_KEY", DevSigningKey),
			Issuer:     getEnvOrDefault("SESSION_ISSUER", "farmroute-api"),
			Audience:   getEnvOrDefault("SESSION_AUDIENCE", "farmroute-clients"),
			TokenTTL:   p.duration("SESSION_TOKEN_TTL", "12h"),
			IdleTTL:    p.duration("SESSION_IDLE_TTL", "30m"),
		},
		Worker: WorkerConfig{
			Port:               getEnvOrDefault("WORKER_PORT", "8081"),
			PubSubProjectID:    os.Getenv("GOOGLE_CLOUD_PROJECT"),
			PubSubSubscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
			Interval:           p.duration("PREWARM_INTERVAL", "10m"),
			Concurrency:        p.int("PREWARM_CONCURRENCY", 3),
		},
	}

	if len(p.errs) > 0 {
		return cfg, errors.Join(p.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// cargoTable reads CARGO_MULTIPLIER_<PROFILE> overrides on top of the default table.
func cargoTable(p *parser) cargo.Table {
	table := cargo.DefaultTable()
	for _, profile := range cargo.Profiles {
		key := "CARGO_MULTIPLIER_" + strings.ToUpper(string(profile))
		table[profile] = p.float(key, table[profile])
	}
	return table
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error

	switch c.Routing.Provider {
	case RoutingORS:
		if c.Routing.ORSAPIKey == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required when ROUTING_PROVIDER=ors"))
		}
	case RoutingOSRM, RoutingLocal:
	default:
		errs = append(errs, fmt.Errorf("ROUTING_PROVIDER: unknown provider %q", c.Routing.Provider))
	}

	switch c.Weather.Provider {
	case WeatherOpenWeatherMap:
		if c.Weather.OWMAPIKey == "" {
			errs = append(errs, errors.New("OPENWEATHERMAP_API_KEY is required when WEATHER_PROVIDER=openweathermap"))
		}
	case WeatherOpenMeteo:
	default:
		errs = append(errs, fmt.Errorf("WEATHER_PROVIDER: unknown provider %q", c.Weather.Provider))
	}

	if c.Routing.Timeout <= 0 || c.Weather.Timeout <= 0 {
		errs = append(errs, errors.New("provider timeouts must be positive"))
	}
	if c.Weather.CheckBudget < c.Weather.Timeout {
		errs = append(errs, errors.New("WEATHER_CHECK_BUDGET must be at least WEATHER_TIMEOUT"))
	}
	if c.Risk.CautionPrecipitationMm > c.Risk.UnsafePrecipitationMm || c.Risk.CautionWindKmh > c.Risk.UnsafeWindKmh {
		errs = append(errs, errors.New("risk caution thresholds must not exceed unsafe thresholds"))
	}
	if c.Cargo.BaseSpeedKmh <= 0 {
		errs = append(errs, errors.New("CARGO_BASE_SPEED_KMH must be positive"))
	}
	for profile, m := range c.Cargo.Multipliers {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("cargo multiplier for %s must be positive", profile))
		}
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("PREWARM_CONCURRENCY must be at least 1"))
	}

	return errors.Join(errs...)
}

// WriteTimeout is the HTTP write timeout. It leaves room for a full weather
// check plus the response.
func (c Config) WriteTimeout() time.Duration {
	return max(15*time.Second, c.Weather.CheckBudget+5*time.Second)
}

// UsesDevSigningKey reports whether the insecure default session key is in use.
func (c Config) UsesDevSigningKey() bool {
	return c.Session.SigningKey == DevSigningKey
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
