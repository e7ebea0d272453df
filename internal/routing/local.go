package routing

import (
	"context"
	"time"

	"github.com/farmroute/farmroute/internal/geo"
)

// LocalProviderName identifies the deterministic synthesizer.
const LocalProviderName = SourceLocal

// LocalProvider is a Provider that never leaves the process. It returns the
// synthesized straight-line path and its offset alternatives.
type LocalProvider struct {
	cfg BuilderConfig
}

// NewLocalProvider creates a local provider using the builder's synthesis policy.
func NewLocalProvider(cfg BuilderConfig) *LocalProvider {
	return &LocalProvider{cfg: NewBuilder(cfg).cfg}
}

// Name returns the provider name.
func (p *LocalProvider) Name() string {
	return LocalProviderName
}

// Directions synthesizes paths between the two points. It fails only on
// invalid endpoints.
func (p *LocalProvider) Directions(_ context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if err := ValidateEndpoints(req.Origin, req.Destination); err != nil {
		return nil, err
	}

	cfg := p.cfg
	if req.MaxAlternatives > 0 && req.MaxAlternatives < cfg.MaxAlternatives {
		cfg.MaxAlternatives = req.MaxAlternatives
	}

	synthesized := Synthesize(req.Origin, req.Destination, cfg)
	paths := make([]Path, len(synthesized))
	for i, coords := range synthesized {
		d := geo.PathLengthKm(coords)
		paths[i] = Path{Coordinates: coords, DistanceKm: &d}
	}

	return &DirectionsResponse{
		Paths:     paths,
		Provider:  LocalProviderName,
		FetchedAt: time.Now(),
	}, nil
}
