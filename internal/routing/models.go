// Package routing builds, ranks and caches candidate road routes between a
// farm and a market.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/farmroute/farmroute/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrInvalidCoordinate indicates an out-of-range coordinate or an origin equal to the destination.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrNoCandidates indicates an empty candidate list.
	ErrNoCandidates = errors.New("no route candidates")
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates the provider found no road between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the provider quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// SourceLocal marks candidates produced by the deterministic synthesizer.
const SourceLocal = "local"

// Provider is the map/routing capability. Real road providers and the local
// synthesizer both implement it; the caller decides which one is wired in.
type Provider interface {
	// Directions returns zero or more path geometries between two points.
	Directions(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// DirectionsRequest is the request for computing routes.
type DirectionsRequest struct {
	Origin          geo.Coordinate
	Destination     geo.Coordinate
	MaxAlternatives int // alternatives beyond the main route (default: 2)
}

// DirectionsResponse holds the provider's path geometries.
type DirectionsResponse struct {
	Paths     []Path    `json:"paths"`
	Provider  string    `json:"provider"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Path is one provider geometry with optional provider-reported totals.
type Path struct {
	Coordinates []geo.Coordinate `json:"coordinates"`
	DistanceKm  *float64         `json:"distanceKm,omitempty"`
	DurationMin *float64         `json:"durationMin,omitempty"`
	Summary     string           `json:"summary,omitempty"`
}

// Bucket classifies a candidate's length relative to the shortest one.
type Bucket string

const (
	BucketShortest   Bucket = "shortest"
	BucketComparable Bucket = "comparable"
	BucketLonger     Bucket = "longer"
	BucketMuchLonger Bucket = "much_longer"
)

// Candidate is one complete proposed path between origin and destination.
type Candidate struct {
	ID               int              // insertion order, stable across ranking
	Name             string           // display name assigned by Rank
	Color            string           // display color assigned by Rank
	Coordinates      []geo.Coordinate // first = origin, last = destination
	DistanceKm       float64
	DurationMin      float64 // derived from distance and cargo profile
	Primary          bool
	Bucket           Bucket
	Source           string // provider name or SourceLocal
	ProviderDistance bool   // DistanceKm came from the provider rather than the geometry
	Summary          string
}

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	c.Coordinates = append([]geo.Coordinate(nil), c.Coordinates...)
	return c
}

// CloneAll deep-copies a candidate list.
func CloneAll(candidates []Candidate) []Candidate {
	if candidates == nil {
		return nil
	}
	out := make([]Candidate, len(candidates))
	for i := range candidates {
		out[i] = candidates[i].Clone()
	}
	return out
}

// Error provides detailed error information from a routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}

// ValidateEndpoints checks both coordinates and rejects zero-length routes.
func ValidateEndpoints(origin, destination geo.Coordinate) error {
	if err := origin.Validate(); err != nil {
		return &Error{Code: "INVALID_ORIGIN", Message: "invalid origin coordinates", Err: errors.Join(ErrInvalidCoordinate, err)}
	}
	if err := destination.Validate(); err != nil {
		return &Error{Code: "INVALID_DESTINATION", Message: "invalid destination coordinates", Err: errors.Join(ErrInvalidCoordinate, err)}
	}
	if origin.Near(destination, geo.SamePointToleranceKm) {
		return &Error{Code: "ZERO_LENGTH", Message: "origin and destination are the same point", Err: ErrInvalidCoordinate}
	}
	return nil
}
