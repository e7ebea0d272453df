package geo_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/geo"
)

var (
	clockTower = geo.Coordinate{Lat: 30.3165, Lon: 78.0322}
	mussoorie  = geo.Coordinate{Lat: 30.4598, Lon: 78.0644}
)

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   geo.Coordinate
		wantErr bool
	}{
		{name: "dehradun", coord: clockTower},
		{name: "extreme lat", coord: geo.Coordinate{Lat: 90, Lon: 0}},
		{name: "extreme lon", coord: geo.Coordinate{Lat: 0, Lon: -180}},
		{name: "lat too high", coord: geo.Coordinate{Lat: 90.1}, wantErr: true},
		{name: "lat too low", coord: geo.Coordinate{Lat: -90.1}, wantErr: true},
		{name: "lon too high", coord: geo.Coordinate{Lon: 180.1}, wantErr: true},
		{name: "NaN", coord: geo.Coordinate{Lat: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, geo.ErrOutOfRange), "expected ErrOutOfRange, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHaversineKm(t *testing.T) {
	d := geo.HaversineKm(clockTower, mussoorie)
	assert.InDelta(t, 16.2, d, 0.5)
	assert.InDelta(t, d, geo.HaversineKm(mussoorie, clockTower), 1e-9, "distance must be symmetric")
	assert.Zero(t, geo.HaversineKm(clockTower, clockTower))

	// One degree of latitude is ~111 km everywhere.
	assert.InDelta(t, 111.2, geo.HaversineKm(geo.Coordinate{}, geo.Coordinate{Lat: 1}), 0.5)
}

func TestPathLengthKm(t *testing.T) {
	assert.Zero(t, geo.PathLengthKm(nil))
	assert.Zero(t, geo.PathLengthKm([]geo.Coordinate{clockTower}))

	line := geo.Interpolate(clockTower, mussoorie, 20)
	assert.InDelta(t, geo.HaversineKm(clockTower, mussoorie), geo.PathLengthKm(line), 0.01)
}

func TestBearingDegrees(t *testing.T) {
	origin := geo.Coordinate{Lat: 10, Lon: 10}
	assert.InDelta(t, 0, geo.BearingDegrees(origin, geo.Coordinate{Lat: 11, Lon: 10}), 0.01)
	assert.InDelta(t, 180, geo.BearingDegrees(origin, geo.Coordinate{Lat: 9, Lon: 10}), 0.01)
	assert.InDelta(t, 90, geo.BearingDegrees(geo.Coordinate{}, geo.Coordinate{Lon: 1}), 0.01)
	assert.InDelta(t, 270, geo.BearingDegrees(geo.Coordinate{}, geo.Coordinate{Lon: -1}), 0.01)
}

func TestInterpolate(t *testing.T) {
	points := geo.Interpolate(clockTower, mussoorie, 4)
	require.Len(t, points, 5)
	assert.Equal(t, clockTower, points[0])
	assert.Equal(t, mussoorie, points[4])
	assert.InDelta(t, (clockTower.Lat+mussoorie.Lat)/2, points[2].Lat, 1e-4)
	assert.InDelta(t, geo.HaversineKm(clockTower, points[2]), geo.HaversineKm(points[2], mussoorie), 1e-6)

	assert.Len(t, geo.Interpolate(clockTower, mussoorie, 0), 2)
}

func TestInterpolate_CrossesAntimeridian(t *testing.T) {
	east := geo.Coordinate{Lat: 10, Lon: 179.9}
	west := geo.Coordinate{Lat: 10, Lon: -179.9}

	points := geo.Interpolate(east, west, 20)
	require.Len(t, points, 21)
	assert.InDelta(t, geo.HaversineKm(east, west), geo.PathLengthKm(points), 1e-6)
	for _, p := range points {
		require.NoError(t, p.Validate())
		assert.Greater(t, math.Abs(p.Lon), 179.8, "point %v left the antimeridian", p)
	}
}

func TestInterpolate_OverPole(t *testing.T) {
	a := geo.Coordinate{Lat: 89.9, Lon: 0}
	b := geo.Coordinate{Lat: 89.9, Lon: 180}

	points := geo.Interpolate(a, b, 20)
	assert.InDelta(t, geo.HaversineKm(a, b), geo.PathLengthKm(points), 1e-6)
	assert.InDelta(t, 90, points[10].Lat, 1e-9)
}

func TestGreatCircle_Across(t *testing.T) {
	// due north along a meridian, so left is west
	arc := geo.NewGreatCircle(geo.Coordinate{Lat: 30, Lon: 78}, geo.Coordinate{Lat: 31, Lon: 78})

	left := arc.Across(0.5, 2)
	right := arc.Across(0.5, -2)
	mid := arc.At(0.5)

	assert.Less(t, left.Lon, 78.0)
	assert.Greater(t, right.Lon, 78.0)
	assert.InDelta(t, 2, geo.HaversineKm(mid, left), 1e-6)
	assert.InDelta(t, 2, geo.HaversineKm(mid, right), 1e-6)
	assert.Equal(t, mid, arc.Across(0.5, 0))
}

func TestPointAlong_AcrossAntimeridian(t *testing.T) {
	path := []geo.Coordinate{{Lat: 0, Lon: 179.5}, {Lat: 0, Lon: -179.5}}

	mid := geo.PointAlong(path, 0.5)
	assert.InDelta(t, 180, math.Abs(mid.Lon), 1e-6)
	assert.InDelta(t, 0, mid.Lat, 1e-9)
}

func TestOffset(t *testing.T) {
	moved := geo.Offset(clockTower, 90, 2)
	assert.InDelta(t, 2, geo.HaversineKm(clockTower, moved), 0.001)
	assert.InDelta(t, 90, geo.BearingDegrees(clockTower, moved), 0.1)
	assert.Equal(t, clockTower, geo.Offset(clockTower, 45, 0))
}

func TestSamplePoints(t *testing.T) {
	path := geo.Interpolate(clockTower, mussoorie, 10)
	samples := geo.SamplePoints(path)
	require.Len(t, samples, 3)
	assert.Equal(t, clockTower, samples[0])
	assert.Equal(t, mussoorie, samples[2])

	half := geo.PathLengthKm(path) / 2
	assert.InDelta(t, half, geo.HaversineKm(clockTower, samples[1]), 0.01)

	assert.Len(t, geo.SamplePoints([]geo.Coordinate{clockTower}), 1)
}

func TestCoordinate_Near(t *testing.T) {
	nearby := geo.Coordinate{Lat: clockTower.Lat + 0.00005, Lon: clockTower.Lon}
	assert.True(t, clockTower.Near(nearby, geo.SamePointToleranceKm))
	assert.False(t, clockTower.Near(mussoorie, geo.SamePointToleranceKm))
}
