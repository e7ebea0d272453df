package risk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/weather"
)

// ErrInvalidActive indicates the active index does not address a candidate.
var ErrInvalidActive = errors.New("active index out of range")

// Decision is the outcome of a weather check.
type Decision string

const (
	// DecisionRetain keeps the active route. Caution is reported as a warning.
	DecisionRetain Decision = "retain"
	// DecisionReroute switches to the shortest alternative that is not unsafe.
	DecisionReroute Decision = "reroute"
	// DecisionNoSafeAlternative keeps the unsafe active route because every
	// alternative is unsafe or unverifiable.
	DecisionNoSafeAlternative Decision = "no_safe_alternative"
)

// Result is the outcome of Evaluate.
type Result struct {
	Decision      Decision     `json:"decision"`
	ActiveIndex   int          `json:"activeIndex"`
	PreviousIndex int          `json:"previousIndex"`
	Assessment    Assessment   `json:"assessment"`
	Considered    []Assessment `json:"considered,omitempty"`
}

// EvaluatorConfig holds configuration for the evaluator.
type EvaluatorConfig struct {
	// Provider supplies weather samples.
	Provider weather.Provider

	// Thresholds are the classification limits (default: DefaultThresholds).
	Thresholds *Thresholds

	// Timeout bounds the sampling of one route (default: 4 seconds).
	Timeout time.Duration

	// Budget bounds a whole Evaluate call, active route and alternatives
	// together (default: 10 seconds). Alternatives not sampled in time are
	// unverifiable.
	Budget time.Duration

	// Logger for evaluator operations.
	Logger zerolog.Logger
}

// Evaluator samples weather along routes and decides between them.
type Evaluator struct {
	provider   weather.Provider
	thresholds Thresholds
	timeout    time.Duration
	budget     time.Duration
	logger     zerolog.Logger
}

// NewEvaluator creates an evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	th := DefaultThresholds()
	if cfg.Thresholds != nil {
		th = *cfg.Thresholds
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 4 * time.Second
	}

	budget := cfg.Budget
	if budget == 0 {
		budget = 10 * time.Second
	}

	return &Evaluator{
		provider:   cfg.Provider,
		thresholds: th,
		timeout:    timeout,
		budget:     budget,
		logger:     cfg.Logger,
	}
}

// Thresholds returns the configured limits.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Assess samples weather at the start, midpoint and end of c concurrently.
// Failed samples are skipped and flag the assessment; it never returns an
// error. Samples keep the start, midpoint, end order.
func (e *Evaluator) Assess(ctx context.Context, c routing.Candidate) Assessment {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	points := geo.SamplePoints(c.Coordinates)
	fetched := make([]*weather.Sample, len(points))

	var wg sync.WaitGroup
	for i, p := range points {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetched[i] = e.sample(ctx, c.ID, p)
		}()
	}
	wg.Wait()

	samples := make([]weather.Sample, 0, len(points))
	failed := 0
	for _, s := range fetched {
		if s == nil {
			failed++
			continue
		}
		samples = append(samples, *s)
	}

	a := Aggregate(samples, e.thresholds)
	a.CandidateID = c.ID
	if failed > 0 {
		a.WeatherUnavailable = true
	}
	return a
}

// sample returns a validated sample at p, or nil.
func (e *Evaluator) sample(ctx context.Context, candidateID int, p geo.Coordinate) *weather.Sample {
	s, err := e.provider.CurrentSample(ctx, p)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		e.logger.Warn().Err(err).
			Int("candidate_id", candidateID).
			Float64("lat", p.Lat).
			Float64("lon", p.Lon).
			Msg("weather sample unavailable")
		return nil
	}
	return s
}

// Evaluate assesses the active candidate and, when it is unsafe, the others
// in ascending distance order. It reroutes to the first alternative whose
// own weather was observed and is not unsafe.
//
// An alternative with no successful sample aggregates to Safe but is never
// chosen: a reroute must be backed by observed weather. The whole call is
// bounded by the evaluator budget.
func (e *Evaluator) Evaluate(ctx context.Context, candidates []routing.Candidate, active int) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, routing.ErrNoCandidates
	}
	if active < 0 || active >= len(candidates) {
		return Result{}, fmt.Errorf("%w: %d of %d", ErrInvalidActive, active, len(candidates))
	}

	ctx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	current := e.Assess(ctx, candidates[active])
	result := Result{
		Decision:      DecisionRetain,
		ActiveIndex:   active,
		PreviousIndex: active,
		Assessment:    current,
	}

	if current.Level != LevelUnsafe {
		e.logger.Debug().
			Str("level", string(current.Level)).
			Bool("weather_unavailable", current.WeatherUnavailable).
			Msg("active route retained")
		return result, nil
	}

	for _, i := range alternativesByDistance(candidates, active) {
		alt := e.Assess(ctx, candidates[i])
		result.Considered = append(result.Considered, alt)

		if alt.Level == LevelUnsafe || len(alt.Samples) == 0 {
			continue
		}

		e.logger.Info().
			Int("from_index", active).
			Int("to_index", i).
			Str("level", string(alt.Level)).
			Msg("rerouting around unsafe weather")

		result.Decision = DecisionReroute
		result.ActiveIndex = i
		result.Assessment = alt
		return result, nil
	}

	e.logger.Warn().
		Int("active_index", active).
		Int("alternatives", len(candidates)-1).
		Msg("no safe alternative route")

	result.Decision = DecisionNoSafeAlternative
	return result, nil
}

// alternativesByDistance returns every index except active, shortest first.
func alternativesByDistance(candidates []routing.Candidate, active int) []int {
	idx := make([]int, 0, len(candidates)-1)
	for i := range candidates {
		if i != active {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ca, cb := candidates[idx[a]], candidates[idx[b]]
		if ca.DistanceKm != cb.DistanceKm {
			return ca.DistanceKm < cb.DistanceKm
		}
		return ca.ID < cb.ID
	})
	return idx
}
