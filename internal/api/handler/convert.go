package handler

import (
	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/planner"
	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/weather"
	"github.com/farmroute/farmroute/pkg/polyline"
)

var warningMessages = map[planner.Warning]string{
	planner.WarningGeometryUnavailable: "Road directions were unavailable; routes are approximations.",
	planner.WarningWeatherUnavailable:  "Weather could not be fetched for every point on the route.",
	planner.WarningWeatherCaution:      "Rain, fog or wind on the active route; drive with caution.",
	planner.WarningNoSafeAlternative:   "The active route has unsafe weather and no safer alternative was found.",
}

func toPoint(c geo.Coordinate) models.Point {
	return models.Point{Lat: c.Lat, Lon: c.Lon}
}

func toCoordinate(p models.Point) geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

func toCandidate(c routing.Candidate, index, active int) models.Candidate {
	line := make([]polyline.Coordinate, len(c.Coordinates))
	for i, p := range c.Coordinates {
		line[i] = polyline.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return models.Candidate{
		ID:          c.ID,
		Index:       index,
		Name:        c.Name,
		Color:       c.Color,
		Geometry:    polyline.Encode(line, polyline.Precision5),
		Points:      len(c.Coordinates),
		DistanceKm:  c.DistanceKm,
		DurationMin: c.DurationMin,
		Primary:     c.Primary,
		Active:      index == active,
		Bucket:      string(c.Bucket),
		Source:      c.Source,
		Summary:     c.Summary,
	}
}

func toSample(s weather.Sample) models.WeatherSample {
	return models.WeatherSample{
		Point:           toPoint(s.Point),
		PrecipitationMm: s.PrecipitationMm,
		WindKmh:         s.WindKmh,
		TemperatureC:    s.TemperatureC,
		Condition:       string(s.Condition),
		Description:     s.Description,
		ObservedAt:      models.Timestamp(s.ObservedAt),
		Provider:        s.Provider,
	}
}

func toAssessment(a risk.Assessment) models.Assessment {
	out := models.Assessment{
		CandidateID:        a.CandidateID,
		Level:              string(a.Level),
		SafetyScore:        a.SafetyScore,
		WeatherUnavailable: a.WeatherUnavailable,
		Triggers:           make([]models.RiskTrigger, 0, len(a.Triggers)),
		Samples:            make([]models.WeatherSample, 0, len(a.Samples)),
	}
	for _, t := range a.Triggers {
		out.Triggers = append(out.Triggers, models.RiskTrigger{
			Point:  toPoint(t.Point),
			Level:  string(t.Level),
			Reason: t.Reason,
		})
	}
	for _, s := range a.Samples {
		out.Samples = append(out.Samples, toSample(s))
	}
	return out
}

func toWarnings(ws []planner.Warning) []models.Warning {
	out := make([]models.Warning, 0, len(ws))
	for _, w := range ws {
		out = append(out, models.Warning{Code: string(w), Message: warningMessages[w]})
	}
	return out
}

func toSessionView(v *planner.View) models.SessionView {
	out := models.SessionView{
		Origin:       toPoint(v.Origin),
		Destination:  toPoint(v.Destination),
		CargoProfile: string(v.Profile),
		ActiveIndex:  v.ActiveIndex,
		Active:       toCandidate(v.Active, v.ActiveIndex, v.ActiveIndex),
		Candidates:   make([]models.Candidate, len(v.Candidates)),
		Advice: models.Advice{
			RecommendedStops: v.Advice.RecommendedStops,
			StopIntervalKm:   v.Advice.StopIntervalKm,
			Priority:         string(v.Advice.Priority),
			Examples:         v.Advice.Examples,
		},
		Suitability: models.Suitability{
			Score: v.Suitability.Score,
			Grade: string(v.Suitability.Grade),
		},
		Warnings: toWarnings(v.Warnings),
	}
	for i, c := range v.Candidates {
		out.Candidates[i] = toCandidate(c, i, v.ActiveIndex)
	}
	if v.Assessment != nil {
		a := toAssessment(*v.Assessment)
		out.Assessment = &a
	}
	return out
}
