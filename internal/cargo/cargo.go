// Package cargo adjusts route travel times for the sensitivity of the load
// being carried.
package cargo

import (
	"errors"
	"fmt"
	"math"

	"github.com/farmroute/farmroute/internal/routing"
)

// Sentinel errors for ETA calculation.
var (
	// ErrInvalidDistance indicates a non-positive or non-finite distance.
	ErrInvalidDistance = errors.New("invalid distance")
	// ErrUnknownProfile indicates a profile missing from the multiplier table.
	ErrUnknownProfile = errors.New("unknown cargo profile")
)

// Profile is a cargo sensitivity class.
type Profile string

const (
	HighlyPerishable     Profile = "highly_perishable"
	ModeratelyPerishable Profile = "moderately_perishable"
	NonPerishable        Profile = "non_perishable"
	Fragile              Profile = "fragile"
	BulkHeavy            Profile = "bulk_heavy"
)

// Profiles lists every profile in display order.
var Profiles = []Profile{HighlyPerishable, ModeratelyPerishable, NonPerishable, Fragile, BulkHeavy}

// ParseProfile returns the profile named s.
func ParseProfile(s string) (Profile, error) {
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// Table maps profiles to speed multipliers. Higher is faster.
type Table map[Profile]float64

// DefaultTable returns the default multipliers. Perishable loads are
// prioritised, fragile and heavy loads travel slower.
func DefaultTable() Table {
	return Table{
		HighlyPerishable:     1.15,
		ModeratelyPerishable: 1.00,
		NonPerishable:        0.95,
		BulkHeavy:            0.80,
		Fragile:              0.70,
	}
}

// DefaultBaseSpeedKmh is the average speed of a light commercial vehicle.
const DefaultBaseSpeedKmh = 50.0

// Calculator derives ETAs from distance and cargo profile.
type Calculator struct {
	baseSpeedKmh float64
	table        Table
}

// NewCalculator creates a calculator. A zero base speed or nil table uses the defaults.
func NewCalculator(baseSpeedKmh float64, table Table) *Calculator {
	if baseSpeedKmh <= 0 {
		baseSpeedKmh = DefaultBaseSpeedKmh
	}
	if table == nil {
		table = DefaultTable()
	}
	return &Calculator{baseSpeedKmh: baseSpeedKmh, table: table}
}

// BaseSpeedKmh returns the unadjusted speed.
func (c *Calculator) BaseSpeedKmh() float64 { return c.baseSpeedKmh }

// Multiplier returns the speed multiplier for profile.
func (c *Calculator) Multiplier(profile Profile) (float64, error) {
	m, ok := c.table[profile]
	if !ok || m <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
	return m, nil
}

// ETA returns the travel time in minutes for distanceKm under profile.
func (c *Calculator) ETA(distanceKm float64, profile Profile) (float64, error) {
	if distanceKm <= 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
		return 0, fmt.Errorf("%w: %v km", ErrInvalidDistance, distanceKm)
	}
	m, err := c.Multiplier(profile)
	if err != nil {
		return 0, err
	}
	return distanceKm / (c.baseSpeedKmh * m) * 60, nil
}

// Apply returns copies of candidates with DurationMin recomputed for profile.
// Distances are left untouched.
func (c *Calculator) Apply(candidates []routing.Candidate, profile Profile) ([]routing.Candidate, error) {
	if _, err := c.Multiplier(profile); err != nil {
		return nil, err
	}

	out := routing.CloneAll(candidates)
	for i := range out {
		eta, err := c.ETA(out[i].DistanceKm, profile)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", out[i].ID, err)
		}
		out[i].DurationMin = eta
	}
	return out, nil
}
