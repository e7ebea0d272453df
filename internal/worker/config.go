// Package worker pre-warms the weather and directions caches for the
// catalog's farms and markets.
package worker

import (
	"sort"
	"time"

	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/routing"
)

// RefreshTarget is a named point whose weather is kept warm.
type RefreshTarget struct {
	Name  string
	Point geo.Coordinate

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RoutePair is an origin and destination whose directions are kept warm.
type RoutePair struct {
	Origin      catalog.Location
	Destination catalog.Location
}

// RefreshConfig holds configuration for the pre-warm job.
type RefreshConfig struct {
	// Targets are the weather points. If Targets and Pairs are both empty,
	// DefaultRefreshConfig is used.
	Targets []RefreshTarget

	// Pairs are the farm to market routes whose directions are fetched.
	Pairs []RoutePair

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration

	// RefreshWeather enables weather refresh.
	RefreshWeather bool

	// RefreshDirections enables directions refresh.
	RefreshDirections bool

	// MaxAlternatives is sent with every directions request. It must match
	// the planner's value or the pre-warmed entries are never read.
	// Default: routing.DefaultBuilderConfig().RequestedAlternatives()
	MaxAlternatives int
}

// DefaultRefreshConfig returns the pre-warm configuration for the Dehradun catalog.
func DefaultRefreshConfig() RefreshConfig {
	c := catalog.Dehradun()
	return RefreshConfig{
		Targets:           TargetsFromCatalog(c),
		Pairs:             NearestMarketPairs(c),
		Concurrency:       3,
		Timeout:           30 * time.Second,
		RefreshWeather:    true,
		RefreshDirections: true,
		MaxAlternatives:   routing.DefaultBuilderConfig().RequestedAlternatives(),
	}
}

// TargetsFromCatalog turns every catalog location into a target. Markets
// come first since most routes end there.
func TargetsFromCatalog(c *catalog.Catalog) []RefreshTarget {
	var targets []RefreshTarget
	for _, l := range c.ByKind(catalog.KindMarket) {
		targets = append(targets, RefreshTarget{Name: l.Name, Point: l.Point, Priority: 1})
	}
	for _, l := range c.ByKind(catalog.KindFarm) {
		targets = append(targets, RefreshTarget{Name: l.Name, Point: l.Point, Priority: 2})
	}
	return targets
}

// NearestMarketPairs pairs every farm with its closest market.
func NearestMarketPairs(c *catalog.Catalog) []RoutePair {
	markets := c.ByKind(catalog.KindMarket)
	if len(markets) == 0 {
		return nil
	}

	var pairs []RoutePair
	for _, farm := range c.ByKind(catalog.KindFarm) {
		best := markets[0]
		for _, m := range markets[1:] {
			if geo.HaversineKm(farm.Point, m.Point) < geo.HaversineKm(farm.Point, best.Point) {
				best = m
			}
		}
		pairs = append(pairs, RoutePair{Origin: farm, Destination: best})
	}
	return pairs
}

// AllPoints returns all target points, ordered by priority.
func (c RefreshConfig) AllPoints() []geo.Coordinate {
	targets := append([]RefreshTarget(nil), c.Targets...)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Priority < targets[j].Priority
	})

	points := make([]geo.Coordinate, len(targets))
	for i, t := range targets {
		points[i] = t.Point
	}
	return points
}

// TotalPoints returns the number of weather points.
func (c RefreshConfig) TotalPoints() int {
	return len(c.Targets)
}
