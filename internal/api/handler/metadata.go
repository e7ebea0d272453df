package handler

import (
	"net/http"

	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/api/response"
	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/weather"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	catalog        *catalog.Catalog
	calculator     *cargo.Calculator
	defaultProfile cargo.Profile
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(cat *catalog.Catalog, calc *cargo.Calculator, defaultProfile cargo.Profile) *MetadataHandler {
	return &MetadataHandler{
		catalog:        cat,
		calculator:     calc,
		defaultProfile: defaultProfile,
	}
}

// ListLocations handles GET /v1/metadata/locations.
// An optional ?kind=farm|market filters the catalog.
func (h *MetadataHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	var locations []catalog.Location
	switch kind := catalog.Kind(r.URL.Query().Get("kind")); kind {
	case "":
		locations = h.catalog.All()
	case catalog.KindFarm, catalog.KindMarket:
		locations = h.catalog.ByKind(kind)
	default:
		response.BadRequest(w, r, "unknown location kind", []models.FieldError{
			{Field: "kind", Message: "must be farm or market", Code: "INVALID_ENUM"},
		})
		return
	}

	out := models.Locations{Region: "Dehradun", Items: make([]models.Location, len(locations))}
	for i, l := range locations {
		out.Items[i] = models.Location{Name: l.Name, Kind: string(l.Kind), Point: toPoint(l.Point)}
	}
	response.JSON(w, r, http.StatusOK, out)
}

// ListCargoProfiles handles GET /v1/metadata/cargo-profiles.
func (h *MetadataHandler) ListCargoProfiles(w http.ResponseWriter, r *http.Request) {
	out := models.CargoProfiles{
		BaseSpeedKmh:   h.calculator.BaseSpeedKmh(),
		DefaultProfile: string(h.defaultProfile),
		Items:          make([]models.CargoProfile, 0, len(cargo.Profiles)),
	}
	for _, p := range cargo.Profiles {
		m, err := h.calculator.Multiplier(p)
		if err != nil {
			continue
		}
		// Advice at zero distance carries the profile constants without stops.
		advice := cargo.Advise(p, 0)
		out.Items = append(out.Items, models.CargoProfile{
			Profile:        string(p),
			Multiplier:     m,
			Priority:       string(advice.Priority),
			StopIntervalKm: advice.StopIntervalKm,
			Examples:       advice.Examples,
		})
	}
	response.JSON(w, r, http.StatusOK, out)
}

// GetEnums handles GET /v1/metadata/enums.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		CargoProfiles: stringsOf(cargo.Profiles),
		RiskLevels:    stringsOf(risk.Levels),
		Conditions:    stringsOf(weather.Conditions),
		Buckets: stringsOf([]routing.Bucket{
			routing.BucketShortest,
			routing.BucketComparable,
			routing.BucketLonger,
			routing.BucketMuchLonger,
		}),
		Decisions: stringsOf([]risk.Decision{
			risk.DecisionRetain,
			risk.DecisionReroute,
			risk.DecisionNoSafeAlternative,
		}),
		Warnings: stringsOf([]planner.Warning{
			planner.WarningGeometryUnavailable,
			planner.WarningWeatherUnavailable,
			planner.WarningWeatherCaution,
			planner.WarningNoSafeAlternative,
		}),
	}
	response.JSON(w, r, http.StatusOK, enums)
}

func stringsOf[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
