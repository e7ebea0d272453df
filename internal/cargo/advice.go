package cargo

import (
	"math"
)

// Priority is the delivery priority recommended for a load.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Advice is the handling recommendation for a load on a given route.
type Advice struct {
	Profile          Profile  `json:"profile"`
	RecommendedStops int      `json:"recommendedStops"`
	StopIntervalKm   float64  `json:"stopIntervalKm"`
	Priority         Priority `json:"priority"`
	Examples         []string `json:"examples"`
}

var examples = map[Profile][]string{
	HighlyPerishable:     {"Leafy Greens", "Strawberries", "Mushrooms"},
	ModeratelyPerishable: {"Tomatoes", "Apples", "Potatoes"},
	NonPerishable:        {"Grains", "Pulses", "Dried Fruits"},
	Fragile:              {"Eggs", "Litchis", "Peaches"},
	BulkHeavy:            {"Sugarcane", "Onions", "Pumpkins"},
}

// Examples returns typical produce for profile.
func Examples(profile Profile) []string {
	return append([]string(nil), examples[profile]...)
}

// Advise recommends stops and priority for carrying profile over distanceKm.
// Sensitive loads get an inspection stop every 100 km, others every 150 km.
func Advise(profile Profile, distanceKm float64) Advice {
	interval := 150.0
	if profile == HighlyPerishable || profile == Fragile {
		interval = 100.0
	}

	stops := 0
	if distanceKm > 0 {
		stops = int(math.Floor(distanceKm / interval))
	}

	priority := PriorityMedium
	if profile == HighlyPerishable {
		priority = PriorityHigh
	}

	return Advice{
		Profile:          profile,
		RecommendedStops: stops,
		StopIntervalKm:   interval,
		Priority:         priority,
		Examples:         Examples(profile),
	}
}

// Grade buckets a suitability score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
)

// urgency weights how quickly a profile loses value in transit.
var urgency = map[Profile]float64{
	HighlyPerishable:     1.5,
	ModeratelyPerishable: 1.0,
	NonPerishable:        0.8,
	Fragile:              1.2,
	BulkHeavy:            0.9,
}

// SuitabilityScore is how well a route serves a load.
type SuitabilityScore struct {
	Score float64 `json:"score"`
	Grade Grade   `json:"grade"`
}

// Suitability scores a route of distanceKm taking durationMin for profile on
// a 0-100 scale. The penalty starts beyond 20 minutes and 10 km.
func Suitability(profile Profile, distanceKm, durationMin float64) SuitabilityScore {
	u, ok := urgency[profile]
	if !ok {
		u = 1.0
	}

	score := 100 - (durationMin-20)*u - (distanceKm-10)*u*0.5
	score = math.Max(0, math.Min(100, score))
	score = math.Round(score*10) / 10

	grade := GradeC
	switch {
	case score >= 80:
		grade = GradeA
	case score >= 60:
		grade = GradeB
	}
	return SuitabilityScore{Score: score, Grade: grade}
}
