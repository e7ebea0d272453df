package routing

import (
	"math"

	"github.com/farmroute/farmroute/internal/geo"
)

// BuilderConfig holds the candidate builder policy.
type BuilderConfig struct {
	// PlausibilityFactor bounds accepted provider distances to
	// (0, factor x great-circle distance) (default: 3).
	PlausibilityFactor float64

	// Segments is the number of straight-line segments in a synthesized path (default: 20).
	Segments int

	// MaxAlternatives is the number of synthesized paths besides the direct one
	// (default: 3, negative for none).
	MaxAlternatives int

	// OffsetRatio scales the sinusoidal lateral displacement. Alternative i peaks at
	// i x OffsetRatio x direct distance (default: 0.08).
	OffsetRatio float64
}

// DefaultBuilderConfig returns the default builder policy.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		PlausibilityFactor: 3,
		Segments:           20,
		MaxAlternatives:    3,
		OffsetRatio:        0.08,
	}
}

// RequestedAlternatives is the alternative count sent to a directions
// provider for this policy. Every caller sharing a cache must send the same
// value, since it is part of the cache key.
func (c BuilderConfig) RequestedAlternatives() int {
	if c.MaxAlternatives == 0 {
		return DefaultBuilderConfig().MaxAlternatives
	}
	return c.MaxAlternatives
}

// Builder turns provider geometries, or their absence, into route candidates.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder creates a builder, filling zero config values with defaults.
func NewBuilder(cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.PlausibilityFactor <= 0 {
		cfg.PlausibilityFactor = def.PlausibilityFactor
	}
	if cfg.Segments < 2 {
		cfg.Segments = def.Segments
	}
	if cfg.MaxAlternatives == 0 {
		cfg.MaxAlternatives = def.MaxAlternatives
	} else if cfg.MaxAlternatives < 0 {
		cfg.MaxAlternatives = 0
	}
	if cfg.OffsetRatio <= 0 {
		cfg.OffsetRatio = def.OffsetRatio
	}
	return &Builder{cfg: cfg}
}

// Build returns a non-empty candidate list for origin and destination.
// Each usable path in resp becomes a candidate; when resp is nil or holds no
// usable path, a deterministic set is synthesized from the straight line.
// The first candidate is flagged primary.
func (b *Builder) Build(origin, destination geo.Coordinate, resp *DirectionsResponse) ([]Candidate, error) {
	if err := ValidateEndpoints(origin, destination); err != nil {
		return nil, err
	}

	var candidates []Candidate
	if resp != nil {
		candidates = b.fromPaths(origin, destination, resp)
	}
	if len(candidates) == 0 {
		candidates = b.synthesize(origin, destination)
	}

	candidates[0].Primary = true
	return candidates, nil
}

func (b *Builder) fromPaths(origin, destination geo.Coordinate, resp *DirectionsResponse) []Candidate {
	limit := b.cfg.PlausibilityFactor * geo.HaversineKm(origin, destination)

	candidates := make([]Candidate, 0, len(resp.Paths))
	for _, p := range resp.Paths {
		if len(p.Coordinates) < 2 {
			continue
		}
		coords := pinEndpoints(p.Coordinates, origin, destination)

		c := Candidate{
			ID:          len(candidates),
			Coordinates: coords,
			Source:      resp.Provider,
			Summary:     p.Summary,
		}
		if d := p.DistanceKm; d != nil && *d > 0 && *d < limit && !math.IsNaN(*d) {
			c.DistanceKm = *d
			c.ProviderDistance = true
		} else {
			c.DistanceKm = geo.PathLengthKm(coords)
		}
		if c.DistanceKm <= 0 {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// pinEndpoints makes the path start at origin and end at destination.
// Endpoints within tolerance are replaced, others are extended.
func pinEndpoints(path []geo.Coordinate, origin, destination geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, 0, len(path)+2)
	out = append(out, origin)
	if path[0].Near(origin, geo.SamePointToleranceKm) {
		path = path[1:]
	}
	out = append(out, path...)

	last := len(out) - 1
	if last > 0 && out[last].Near(destination, geo.SamePointToleranceKm) {
		out[last] = destination
	} else {
		out = append(out, destination)
	}
	return out
}

func (b *Builder) synthesize(origin, destination geo.Coordinate) []Candidate {
	paths := Synthesize(origin, destination, b.cfg)
	candidates := make([]Candidate, len(paths))
	for i, coords := range paths {
		candidates[i] = Candidate{
			ID:          i,
			Coordinates: coords,
			DistanceKm:  geo.PathLengthKm(coords),
			Source:      SourceLocal,
		}
	}
	return candidates
}

// Synthesize returns the direct great-circle path followed by up to
// cfg.MaxAlternatives sinusoidally displaced paths. Displacement amplitude
// grows with index and sides alternate, so path lengths strictly increase.
// The result depends only on the inputs.
func Synthesize(origin, destination geo.Coordinate, cfg BuilderConfig) [][]geo.Coordinate {
	direct := geo.Interpolate(origin, destination, cfg.Segments)
	paths := make([][]geo.Coordinate, 0, cfg.MaxAlternatives+1)
	paths = append(paths, direct)

	arc := geo.NewGreatCircle(origin, destination)
	directKm := arc.LengthKm()

	for i := 1; i <= cfg.MaxAlternatives; i++ {
		amplitude := directKm * cfg.OffsetRatio * float64(i)
		// odd alternatives go left of travel, even ones right
		if i%2 == 0 {
			amplitude = -amplitude
		}

		alt := make([]geo.Coordinate, len(direct))
		alt[0] = origin
		alt[len(alt)-1] = destination
		for j := 1; j < len(direct)-1; j++ {
			progress := float64(j) / float64(len(direct)-1)
			alt[j] = arc.Across(progress, math.Sin(progress*math.Pi)*amplitude)
		}
		paths = append(paths, alt)
	}
	return paths
}
