package routing_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/routing"
)

var (
	clockTower = geo.Coordinate{Lat: 30.3165, Lon: 78.0322}
	mussoorie  = geo.Coordinate{Lat: 30.4598, Lon: 78.0644}
	selaqui    = geo.Coordinate{Lat: 30.3667, Lon: 77.8833}
)

func ptr(v float64) *float64 { return &v }

func assertEndpoints(t *testing.T, c routing.Candidate, origin, dest geo.Coordinate) {
	t.Helper()
	require.GreaterOrEqual(t, len(c.Coordinates), 2)
	assert.Equal(t, origin, c.Coordinates[0])
	assert.Equal(t, dest, c.Coordinates[len(c.Coordinates)-1])
}

func TestBuild_SynthesizesWithoutProvider(t *testing.T) {
	b := routing.NewBuilder(routing.BuilderConfig{})

	candidates, err := b.Build(clockTower, mussoorie, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 4)

	direct := geo.HaversineKm(clockTower, mussoorie)
	for i, c := range candidates {
		assert.Equal(t, i, c.ID)
		assert.Equal(t, routing.SourceLocal, c.Source)
		assert.Equal(t, i == 0, c.Primary)
		assert.Len(t, c.Coordinates, 21)
		assertEndpoints(t, c, clockTower, mussoorie)

		// distance agrees with the geometry within 0.1%
		geom := geo.PathLengthKm(c.Coordinates)
		assert.InEpsilon(t, geom, c.DistanceKm, 0.001)
		assert.GreaterOrEqual(t, c.DistanceKm, direct-1e-6)
	}
	assert.InEpsilon(t, direct, candidates[0].DistanceKm, 0.001)
}

func TestBuild_SyntheticDistancesStrictlyIncrease(t *testing.T) {
	b := routing.NewBuilder(routing.DefaultBuilderConfig())

	candidates, err := b.Build(clockTower, selaqui, &routing.DirectionsResponse{Provider: "ors"})
	require.NoError(t, err)

	for i := 1; i < len(candidates); i++ {
		assert.Greater(t, candidates[i].DistanceKm, candidates[i-1].DistanceKm,
			"candidate %d should be longer than candidate %d", i, i-1)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := routing.NewBuilder(routing.DefaultBuilderConfig())

	first, err := b.Build(clockTower, mussoorie, nil)
	require.NoError(t, err)
	second, err := b.Build(clockTower, mussoorie, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuild_ProviderPaths(t *testing.T) {
	b := routing.NewBuilder(routing.DefaultBuilderConfig())
	mid := geo.Coordinate{Lat: 30.40, Lon: 78.05}

	resp := &routing.DirectionsResponse{
		Provider: "openrouteservice",
		Paths: []routing.Path{
			{
				// endpoints a few metres off the requested points
				Coordinates: []geo.Coordinate{
					{Lat: 30.31652, Lon: 78.03221},
					mid,
					{Lat: 30.45978, Lon: 78.06441},
				},
				DistanceKm: ptr(24.8),
				Summary:    "Rajpur Road",
			},
			{
				Coordinates: []geo.Coordinate{mid},
			},
			{
				// no provider distance, endpoints far from the request
				Coordinates: []geo.Coordinate{{Lat: 30.33, Lon: 78.04}, mid, {Lat: 30.44, Lon: 78.06}},
			},
		},
	}

	candidates, err := b.Build(clockTower, mussoorie, resp)
	require.NoError(t, err)
	require.Len(t, candidates, 2, "single-point path is skipped")

	first := candidates[0]
	assert.True(t, first.Primary)
	assert.True(t, first.ProviderDistance)
	assert.Equal(t, 24.8, first.DistanceKm)
	assert.Equal(t, "openrouteservice", first.Source)
	assert.Equal(t, "Rajpur Road", first.Summary)
	assert.Len(t, first.Coordinates, 3, "near endpoints are replaced, not extended")
	assertEndpoints(t, first, clockTower, mussoorie)

	second := candidates[1]
	assert.False(t, second.Primary)
	assert.False(t, second.ProviderDistance)
	assert.Equal(t, 1, second.ID)
	assert.Len(t, second.Coordinates, 5, "far endpoints are extended")
	assertEndpoints(t, second, clockTower, mussoorie)
	assert.InDelta(t, geo.PathLengthKm(second.Coordinates), second.DistanceKm, 1e-9)
}

func TestBuild_ImplausibleProviderDistance(t *testing.T) {
	b := routing.NewBuilder(routing.DefaultBuilderConfig())
	direct := geo.HaversineKm(clockTower, mussoorie)

	tests := []struct {
		name string
		km   *float64
	}{
		{"zero", ptr(0)},
		{"negative", ptr(-4)},
		{"too long", ptr(direct * 3)},
		{"nan", ptr(math.NaN())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &routing.DirectionsResponse{
				Provider: "osrm",
				Paths:    []routing.Path{{Coordinates: []geo.Coordinate{clockTower, mussoorie}, DistanceKm: tt.km}},
			}
			candidates, err := b.Build(clockTower, mussoorie, resp)
			require.NoError(t, err)
			require.Len(t, candidates, 1)
			assert.False(t, candidates[0].ProviderDistance)
			assert.InDelta(t, direct, candidates[0].DistanceKm, 1e-9)
		})
	}
}

func TestBuild_InvalidInput(t *testing.T) {
	b := routing.NewBuilder(routing.DefaultBuilderConfig())

	tests := []struct {
		name     string
		origin   geo.Coordinate
		dest     geo.Coordinate
		wantCode string
	}{
		{"latitude out of range", geo.Coordinate{Lat: 95, Lon: 78}, mussoorie, "INVALID_ORIGIN"},
		{"longitude out of range", clockTower, geo.Coordinate{Lat: 30, Lon: -190}, "INVALID_DESTINATION"},
		{"same point", clockTower, clockTower, "ZERO_LENGTH"},
		{"within tolerance", clockTower, geo.Coordinate{Lat: 30.31655, Lon: 78.0322}, "ZERO_LENGTH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := b.Build(tt.origin, tt.dest, nil)
			assert.Nil(t, candidates)
			require.ErrorIs(t, err, routing.ErrInvalidCoordinate)

			var rerr *routing.Error
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.wantCode, rerr.Code)
		})
	}
}

func TestSynthesize_AlternatingSides(t *testing.T) {
	cfg := routing.DefaultBuilderConfig()
	// due north, so left is west and right is east
	origin := geo.Coordinate{Lat: 30.0, Lon: 78.0}
	dest := geo.Coordinate{Lat: 30.5, Lon: 78.0}

	paths := routing.Synthesize(origin, dest, cfg)
	require.Len(t, paths, cfg.MaxAlternatives+1)

	mid := cfg.Segments / 2
	assert.InDelta(t, 78.0, paths[0][mid].Lon, 1e-9)
	assert.Less(t, paths[1][mid].Lon, 78.0)
	assert.Greater(t, paths[2][mid].Lon, 78.0)
	assert.Less(t, paths[3][mid].Lon, paths[1][mid].Lon)
}

func TestNewBuilder_NegativeAlternatives(t *testing.T) {
	b := routing.NewBuilder(routing.BuilderConfig{MaxAlternatives: -1})

	candidates, err := b.Build(clockTower, mussoorie, nil)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestBuild_SynthesizesAcrossAntimeridianAndPole(t *testing.T) {
	tests := []struct {
		name        string
		origin      geo.Coordinate
		destination geo.Coordinate
	}{
		{"antimeridian", geo.Coordinate{Lat: 10, Lon: 179.9}, geo.Coordinate{Lat: 10, Lon: -179.9}},
		{"antimeridian westbound", geo.Coordinate{Lat: -35, Lon: -179.95}, geo.Coordinate{Lat: -34.9, Lon: 179.95}},
		{"over the pole", geo.Coordinate{Lat: 89.9, Lon: 10}, geo.Coordinate{Lat: 89.9, Lon: -170}},
		{"near the pole", geo.Coordinate{Lat: -89.5, Lon: 45}, geo.Coordinate{Lat: -89.6, Lon: 60}},
	}

	b := routing.NewBuilder(routing.DefaultBuilderConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := b.Build(tt.origin, tt.destination, nil)
			require.NoError(t, err)
			require.Len(t, candidates, 4)

			direct := geo.HaversineKm(tt.origin, tt.destination)
			assert.InEpsilon(t, direct, candidates[0].DistanceKm, 0.001)
			for i, c := range candidates {
				assertEndpoints(t, c, tt.origin, tt.destination)
				for _, p := range c.Coordinates {
					require.NoError(t, p.Validate())
				}
				if i > 0 {
					assert.Greater(t, c.DistanceKm, candidates[i-1].DistanceKm,
						"candidate %d should be longer than candidate %d", i, i-1)
				}
			}
			assert.Less(t, candidates[3].DistanceKm, direct*2)

			ranked, err := routing.Rank(candidates, routing.DefaultPalette())
			require.NoError(t, err)
			assert.Equal(t, 0, ranked[0].ID, "direct path stays primary after ranking")
		})
	}
}

func TestBuilderConfig_RequestedAlternatives(t *testing.T) {
	assert.Equal(t, 3, routing.BuilderConfig{}.RequestedAlternatives())
	assert.Equal(t, 1, routing.BuilderConfig{MaxAlternatives: 1}.RequestedAlternatives())
	assert.Equal(t, -1, routing.BuilderConfig{MaxAlternatives: -1}.RequestedAlternatives())
}
