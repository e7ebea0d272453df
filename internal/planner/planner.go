// Package planner runs the route planning flow for one session: provider
// directions, candidate building, ranking, cargo ETAs, selection and the
// weather check.
package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/cargo"
	"github.com/farmroute/farmroute/internal/geo"
	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/routing"
	"github.com/farmroute/farmroute/internal/selection"
)

// Warning is a degradation notice attached to a successful result.
type Warning string

const (
	// WarningGeometryUnavailable means the routing provider failed or returned
	// no usable path and candidates were synthesized.
	WarningGeometryUnavailable Warning = "geometry_unavailable"
	// WarningWeatherUnavailable means at least one weather sample could not be fetched.
	WarningWeatherUnavailable Warning = "weather_unavailable"
	// WarningWeatherCaution means the active route has caution-level weather.
	WarningWeatherCaution Warning = "weather_caution"
	// WarningNoSafeAlternative means the active route is unsafe and no alternative is better.
	WarningNoSafeAlternative Warning = "no_safe_alternative"
)

// Recorder receives engine events. telemetry.EngineMetrics implements it.
type Recorder interface {
	RecordCompute(ctx context.Context, source string, candidates int, fallback bool)
	RecordWeatherCheck(ctx context.Context, level string, decision string)
}

type nopRecorder struct{}

func (nopRecorder) RecordCompute(context.Context, string, int, bool)   {}
func (nopRecorder) RecordWeatherCheck(context.Context, string, string) {}

// Config holds configuration for the planner.
type Config struct {
	// Directions supplies provider geometry, usually a *routing.Service.
	Directions routing.Provider

	// Builder policy for candidate building and synthesis.
	Builder routing.BuilderConfig

	// Palette styles ranked candidates (default: routing.DefaultPalette).
	Palette *routing.Palette

	// Calculator computes cargo-adjusted ETAs (default: base 50 km/h, default table).
	Calculator *cargo.Calculator

	// Evaluator runs weather checks. Without one CheckWeather fails.
	Evaluator *risk.Evaluator

	// DefaultProfile applies when a compute names no cargo profile (default: moderately perishable).
	DefaultProfile cargo.Profile

	// Recorder receives engine events (optional).
	Recorder Recorder

	// Logger for planner operations.
	Logger zerolog.Logger
}

// Planner orchestrates route planning. It holds no per-user state and is
// safe for concurrent use; each Session must be used by one goroutine at a time.
type Planner struct {
	directions     routing.Provider
	builder        *routing.Builder
	maxAlts        int
	palette        routing.Palette
	calculator     *cargo.Calculator
	evaluator      *risk.Evaluator
	defaultProfile cargo.Profile
	recorder       Recorder
	logger         zerolog.Logger
}

// ErrWeatherDisabled indicates no weather evaluator is configured.
var ErrWeatherDisabled = errors.New("weather checks are not configured")

// New creates a planner.
func New(cfg Config) *Planner {
	palette := routing.DefaultPalette()
	if cfg.Palette != nil {
		palette = *cfg.Palette
	}

	calc := cfg.Calculator
	if calc == nil {
		calc = cargo.NewCalculator(cargo.DefaultBaseSpeedKmh, cargo.DefaultTable())
	}

	profile := cfg.DefaultProfile
	if profile == "" {
		profile = cargo.ModeratelyPerishable
	}

	directions := cfg.Directions
	if directions == nil {
		directions = routing.NewLocalProvider(cfg.Builder)
	}

	var recorder Recorder = nopRecorder{}
	if cfg.Recorder != nil {
		recorder = cfg.Recorder
	}

	return &Planner{
		directions:     directions,
		builder:        routing.NewBuilder(cfg.Builder),
		maxAlts:        cfg.Builder.RequestedAlternatives(),
		palette:        palette,
		calculator:     calc,
		evaluator:      cfg.Evaluator,
		defaultProfile: profile,
		recorder:       recorder,
		logger:         cfg.Logger,
	}
}

// Calculator returns the ETA calculator.
func (p *Planner) Calculator() *cargo.Calculator {
	return p.calculator
}

// DefaultProfile returns the profile used when a compute names none.
func (p *Planner) DefaultProfile() cargo.Profile {
	return p.defaultProfile
}

// Session is the caller-owned planning state of one user.
type Session struct {
	state       *selection.State
	profile     cargo.Profile
	origin      geo.Coordinate
	destination geo.Coordinate
}

// NewSession returns an empty session using the default cargo profile.
func (p *Planner) NewSession() *Session {
	return &Session{state: selection.New(), profile: p.defaultProfile}
}

// Profile returns the session's cargo profile.
func (s *Session) Profile() cargo.Profile {
	return s.profile
}

// ComputeRequest asks for routes between two points.
type ComputeRequest struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	// Profile overrides the session profile when set.
	Profile cargo.Profile
}

// View is a snapshot of a session.
type View struct {
	Origin      geo.Coordinate         `json:"origin"`
	Destination geo.Coordinate         `json:"destination"`
	Profile     cargo.Profile          `json:"cargoProfile"`
	Candidates  []routing.Candidate    `json:"candidates"`
	ActiveIndex int                    `json:"activeIndex"`
	Active      routing.Candidate      `json:"active"`
	Assessment  *risk.Assessment       `json:"assessment,omitempty"`
	Advice      cargo.Advice           `json:"advice"`
	Suitability cargo.SuitabilityScore `json:"suitability"`
	Warnings    []Warning              `json:"warnings"`
}

// Compute fetches directions, builds and ranks candidates, applies cargo
// ETAs and replaces the session's selection. Provider failures degrade to
// synthesized candidates with WarningGeometryUnavailable; invalid
// coordinates and unknown profiles fail.
func (p *Planner) Compute(ctx context.Context, s *Session, req ComputeRequest) (*View, error) {
	if err := routing.ValidateEndpoints(req.Origin, req.Destination); err != nil {
		return nil, err
	}

	profile := s.profile
	if req.Profile != "" {
		profile = req.Profile
	}
	if _, err := p.calculator.Multiplier(profile); err != nil {
		return nil, err
	}

	var warnings []Warning

	resp, err := p.directions.Directions(ctx, routing.DirectionsRequest{
		Origin:          req.Origin,
		Destination:     req.Destination,
		MaxAlternatives: p.maxAlts,
	})
	if err != nil {
		if errors.Is(err, routing.ErrInvalidCoordinate) {
			return nil, err
		}
		p.logger.Warn().Err(err).
			Str("provider", p.directions.Name()).
			Float64("origin_lat", req.Origin.Lat).
			Float64("origin_lon", req.Origin.Lon).
			Float64("dest_lat", req.Destination.Lat).
			Float64("dest_lon", req.Destination.Lon).
			Msg("directions unavailable, synthesizing routes")
		resp = nil
	}

	built, err := p.builder.Build(req.Origin, req.Destination, resp)
	if err != nil {
		return nil, err
	}

	fallback := built[0].Source == routing.SourceLocal && p.directions.Name() != routing.LocalProviderName
	if fallback {
		warnings = append(warnings, WarningGeometryUnavailable)
	}

	ranked, err := routing.Rank(built, p.palette)
	if err != nil {
		return nil, err
	}

	withETA, err := p.calculator.Apply(ranked, profile)
	if err != nil {
		return nil, fmt.Errorf("apply cargo profile: %w", err)
	}

	if err := s.state.Set(withETA); err != nil {
		return nil, err
	}
	s.profile = profile
	s.origin = req.Origin
	s.destination = req.Destination

	p.recorder.RecordCompute(ctx, built[0].Source, len(withETA), fallback)
	p.logger.Debug().
		Str("source", built[0].Source).
		Int("candidates", len(withETA)).
		Str("cargo_profile", string(profile)).
		Bool("fallback", fallback).
		Msg("routes computed")

	v, err := p.view(s)
	if err != nil {
		return nil, err
	}
	v.Warnings = append(v.Warnings, warnings...)
	return v, nil
}

// SetCargo changes the session profile and recomputes every candidate's ETA.
func (p *Planner) SetCargo(s *Session, profile cargo.Profile) (*View, error) {
	if _, err := p.calculator.Multiplier(profile); err != nil {
		return nil, err
	}

	cands, err := s.state.Candidates()
	if err != nil {
		return nil, err
	}
	updated, err := p.calculator.Apply(cands, profile)
	if err != nil {
		return nil, err
	}
	if err := s.state.Update(updated); err != nil {
		return nil, err
	}
	s.profile = profile

	return p.view(s)
}

// Select makes candidate i active.
func (p *Planner) Select(s *Session, i int) (*View, error) {
	if _, err := s.state.Select(i); err != nil {
		return nil, err
	}
	return p.view(s)
}

// CheckWeather evaluates the active route and switches to a safer
// alternative when it is unsafe. The resulting assessment is stored.
func (p *Planner) CheckWeather(ctx context.Context, s *Session) (*View, *risk.Result, error) {
	if p.evaluator == nil {
		return nil, nil, ErrWeatherDisabled
	}

	cands, err := s.state.Candidates()
	if err != nil {
		return nil, nil, err
	}
	active, err := s.state.ActiveIndex()
	if err != nil {
		return nil, nil, err
	}

	res, err := p.evaluator.Evaluate(ctx, cands, active)
	if err != nil {
		return nil, nil, err
	}

	if res.Decision == risk.DecisionReroute {
		if _, err := s.state.Select(res.ActiveIndex); err != nil {
			return nil, nil, err
		}
	}
	if err := s.state.SetAssessment(res.Assessment); err != nil {
		return nil, nil, err
	}

	p.recorder.RecordWeatherCheck(ctx, string(res.Assessment.Level), string(res.Decision))

	v, err := p.view(s)
	if err != nil {
		return nil, nil, err
	}
	return v, &res, nil
}

// Reset clears the session's selection. The cargo profile is kept.
func (p *Planner) Reset(s *Session) {
	s.state.Reset()
	s.origin = geo.Coordinate{}
	s.destination = geo.Coordinate{}
}

// View returns the current snapshot of s.
func (p *Planner) View(s *Session) (*View, error) {
	return p.view(s)
}

func (p *Planner) view(s *Session) (*View, error) {
	cands, err := s.state.Candidates()
	if err != nil {
		return nil, err
	}
	active, assessment, err := s.state.Active()
	if err != nil {
		return nil, err
	}
	idx, err := s.state.ActiveIndex()
	if err != nil {
		return nil, err
	}

	v := &View{
		Origin:      s.origin,
		Destination: s.destination,
		Profile:     s.profile,
		Candidates:  cands,
		ActiveIndex: idx,
		Active:      active,
		Assessment:  assessment,
		Advice:      cargo.Advise(s.profile, active.DistanceKm),
		Suitability: cargo.Suitability(s.profile, active.DistanceKm, active.DurationMin),
		Warnings:    []Warning{},
	}
	if assessment != nil {
		v.Warnings = append(v.Warnings, assessmentWarnings(*assessment)...)
	}
	return v, nil
}

func assessmentWarnings(a risk.Assessment) []Warning {
	var out []Warning
	if a.WeatherUnavailable {
		out = append(out, WarningWeatherUnavailable)
	}
	switch a.Level {
	case risk.LevelCaution:
		out = append(out, WarningWeatherCaution)
	case risk.LevelUnsafe:
		out = append(out, WarningNoSafeAlternative)
	}
	return out
}
