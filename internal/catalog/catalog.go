// Package catalog lists the known farm and market locations around Dehradun.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/farmroute/farmroute/internal/geo"
)

// ErrUnknownLocation indicates a name missing from the catalog.
var ErrUnknownLocation = errors.New("unknown location")

// Kind tells farms from markets.
type Kind string

const (
	KindMarket Kind = "market"
	KindFarm   Kind = "farm"
)

// Location is a named point.
type Location struct {
	Name  string         `json:"name"`
	Kind  Kind           `json:"kind"`
	Point geo.Coordinate `json:"point"`
}

// Catalog is an ordered, name-indexed set of locations.
type Catalog struct {
	locations []Location
	byName    map[string]int
}

// New builds a catalog. Names are matched case-insensitively and must be unique.
func New(locations []Location) (*Catalog, error) {
	c := &Catalog{
		locations: make([]Location, 0, len(locations)),
		byName:    make(map[string]int, len(locations)),
	}
	for _, l := range locations {
		if err := l.Point.Validate(); err != nil {
			return nil, fmt.Errorf("location %q: %w", l.Name, err)
		}
		key := normalize(l.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("duplicate location %q", l.Name)
		}
		c.byName[key] = len(c.locations)
		c.locations = append(c.locations, l)
	}
	return c, nil
}

// Dehradun returns the built-in Dehradun catalog.
func Dehradun() *Catalog {
	c, err := New(dehradun)
	if err != nil {
		panic(err)
	}
	return c
}

var dehradun = []Location{
	{"Clock Tower", KindMarket, geo.Coordinate{Lat: 30.3165, Lon: 78.0322}},
	{"Rispana Market", KindMarket, geo.Coordinate{Lat: 30.2833, Lon: 78.0167}},
	{"ISBT Dehradun", KindMarket, geo.Coordinate{Lat: 30.3255, Lon: 78.0436}},
	{"Rajpur Road Market", KindMarket, geo.Coordinate{Lat: 30.3459, Lon: 78.0561}},
	{"Mussoorie Diversion", KindFarm, geo.Coordinate{Lat: 30.4598, Lon: 78.0644}},
	{"Sahastradhara Road", KindFarm, geo.Coordinate{Lat: 30.3255, Lon: 78.0644}},
	{"Clement Town", KindFarm, geo.Coordinate{Lat: 30.2667, Lon: 78.0167}},
	{"Patel Nagar", KindFarm, geo.Coordinate{Lat: 30.3344, Lon: 78.0403}},
	{"Rajendra Nagar", KindFarm, geo.Coordinate{Lat: 30.3031, Lon: 78.0417}},
	{"Ballupur", KindFarm, geo.Coordinate{Lat: 30.3511, Lon: 78.0736}},
	{"Raipur", KindFarm, geo.Coordinate{Lat: 30.2833, Lon: 78.0500}},
	{"Premnagar", KindFarm, geo.Coordinate{Lat: 30.3833, Lon: 78.1000}},
	{"Selaqui", KindFarm, geo.Coordinate{Lat: 30.3667, Lon: 77.8833}},
	{"Vikasnagar Road", KindFarm, geo.Coordinate{Lat: 30.4667, Lon: 77.7667}},
	{"Doiwala", KindFarm, geo.Coordinate{Lat: 30.1833, Lon: 78.1167}},
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Lookup returns the location called name.
func (c *Catalog) Lookup(name string) (Location, error) {
	i, ok := c.byName[normalize(name)]
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownLocation, name)
	}
	return c.locations[i], nil
}

// All returns every location in catalog order.
func (c *Catalog) All() []Location {
	return append([]Location(nil), c.locations...)
}

// ByKind returns the locations of one kind in catalog order.
func (c *Catalog) ByKind(kind Kind) []Location {
	var out []Location
	for _, l := range c.locations {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// Points returns every location's coordinate.
func (c *Catalog) Points() []geo.Coordinate {
	out := make([]geo.Coordinate, len(c.locations))
	for i, l := range c.locations {
		out[i] = l.Point
	}
	return out
}
