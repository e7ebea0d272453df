package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/provider/resilience"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/weather"
)

// Degradation flags reported by SystemStatus.
const (
	DegradationGeometrySynthesized = "geometry_synthesized"
	DegradationWeatherUnavailable  = "weather_unavailable"
	DegradationWeatherDisabled     = "weather_disabled"
)

const cachePingTimeout = 2 * time.Second

// OpsConfig holds the dependencies of the ops endpoints. Nil fields are reported as absent.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry tracks the circuit state of every external provider client.
	Registry *resilience.Registry

	// RoutingProvider and WeatherProvider name the configured providers.
	RoutingProvider string
	WeatherProvider string

	// DirectionsCache is the persistent directions cache, checked on readiness.
	DirectionsCache interface {
		Ping(ctx context.Context) error
	}

	Sessions interface{ Len() int }
	Routing  interface{ CacheStats() routing.CacheStats }
	Weather  interface{ CacheStats() weather.CacheStats }
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg     OpsConfig
	started time.Time
	now     func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg, started: time.Now(), now: time.Now}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
			"uptime":    h.now().Sub(h.started).Round(time.Second).String(),
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The engine can always answer with synthesized routes, so open circuits
// and an unreachable directions cache degrade readiness but never fail it.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	details := map[string]any{}
	if h.cfg.Registry != nil {
		if open := h.cfg.Registry.OpenCircuits(); len(open) > 0 {
			status = models.HealthStatusDegraded
			details["openCircuits"] = open
		}
	}
	if h.cfg.DirectionsCache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), cachePingTimeout)
		err := h.cfg.DirectionsCache.Ping(ctx)
		cancel()
		if err != nil {
			status = models.HealthStatusDegraded
			details["directionsCache"] = err.Error()
		}
	}
	if h.cfg.Sessions != nil {
		details["sessions"] = h.cfg.Sessions.Len()
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  status,
		Time:    models.Timestamp(h.now()),
		Details: details,
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	out := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.subsystems(),
		Providers:  h.providers(),
	}

	for _, p := range out.Providers {
		if p.Status == models.HealthStatusOK {
			continue
		}
		out.Status = models.HealthStatusDegraded
		switch p.Provider {
		case h.cfg.RoutingProvider:
			out.ActiveDegradationFlags = append(out.ActiveDegradationFlags, DegradationGeometrySynthesized)
		case h.cfg.WeatherProvider:
			out.ActiveDegradationFlags = append(out.ActiveDegradationFlags, DegradationWeatherUnavailable)
		}
	}
	if h.cfg.WeatherProvider == "" {
		out.ActiveDegradationFlags = append(out.ActiveDegradationFlags, DegradationWeatherDisabled)
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) subsystems() []models.SubsystemStatus {
	var out []models.SubsystemStatus
	if h.cfg.Sessions != nil {
		out = append(out, models.SubsystemStatus{
			Name:   "session-store",
			Status: models.HealthStatusOK,
			Detail: strPtr(fmt.Sprintf("%d active", h.cfg.Sessions.Len())),
		})
	}
	if h.cfg.Routing != nil {
		s := h.cfg.Routing.CacheStats()
		detail := fmt.Sprintf("%d fresh, %d stale", s.FreshEntries, s.StaleEntries)
		if s.Persistent {
			detail += ", persistent"
		}
		out = append(out, models.SubsystemStatus{Name: "routing-cache", Status: models.HealthStatusOK, Detail: &detail})
	}
	if h.cfg.Weather != nil {
		s := h.cfg.Weather.CacheStats()
		out = append(out, models.SubsystemStatus{
			Name:   "weather-cache",
			Status: models.HealthStatusOK,
			Detail: strPtr(fmt.Sprintf("%d fresh of %d", s.FreshEntries, s.Entries)),
		})
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	if h.cfg.Registry == nil {
		return []models.ProviderStatus{}
	}
	health := h.cfg.Registry.GetAllHealth()

	out := make([]models.ProviderStatus, 0, len(health))
	for _, p := range health {
		ps := models.ProviderStatus{
			Provider:     p.Name,
			Status:       providerStatus(p),
			CircuitState: p.CircuitState.String(),
		}
		if p.LastSuccessAt != nil {
			t := models.Timestamp(*p.LastSuccessAt)
			ps.LastSuccessAt = &t
		}
		if p.LastFailureAt != nil {
			t := models.Timestamp(*p.LastFailureAt)
			ps.LastFailureAt = &t
		}
		if p.LastError != "" {
			ps.Message = strPtr(p.LastError)
		}
		out = append(out, ps)
	}
	return out
}

func providerStatus(p *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case p.IsUnhealthy():
		return models.HealthStatusFail
	case p.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func strPtr(s string) *string { return &s }
