package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmroute/farmroute/internal/catalog"
	"github.com/farmroute/farmroute/internal/geo"
)

func TestDehradun(t *testing.T) {
	c := catalog.Dehradun()

	assert.Len(t, c.All(), 15)
	assert.Len(t, c.ByKind(catalog.KindMarket), 4)
	assert.Len(t, c.ByKind(catalog.KindFarm), 11)
	assert.Len(t, c.Points(), 15)

	tower, err := c.Lookup("Clock Tower")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 30.3165, Lon: 78.0322}, tower.Point)
	assert.Equal(t, catalog.KindMarket, tower.Kind)
}

func TestLookup_Normalizes(t *testing.T) {
	c := catalog.Dehradun()

	for _, name := range []string{"mussoorie diversion", "  Mussoorie   Diversion ", "MUSSOORIE DIVERSION"} {
		l, err := c.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Mussoorie Diversion", l.Name)
	}

	_, err := c.Lookup("Haridwar")
	assert.ErrorIs(t, err, catalog.ErrUnknownLocation)
}

func TestNew_Rejects(t *testing.T) {
	_, err := catalog.New([]catalog.Location{
		{Name: "A", Kind: catalog.KindFarm, Point: geo.Coordinate{Lat: 30, Lon: 78}},
		{Name: "a", Kind: catalog.KindFarm, Point: geo.Coordinate{Lat: 31, Lon: 78}},
	})
	assert.Error(t, err)

	_, err = catalog.New([]catalog.Location{{Name: "Nowhere", Point: geo.Coordinate{Lat: 100}}})
	assert.ErrorIs(t, err, geo.ErrOutOfRange)
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := catalog.Dehradun()
	all := c.All()
	all[0].Name = "changed"

	_, err := c.Lookup("Clock Tower")
	assert.NoError(t, err)
	assert.Equal(t, "Clock Tower", c.All()[0].Name)
}
