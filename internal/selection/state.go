// Package selection holds the caller-owned route selection state: the ranked
// candidates of the last compute, the active index and the last weather
// assessment of the active route.
//
// A State is not safe for concurrent use. Callers serialize access.
package selection

import (
	"errors"
	"fmt"

	"github.com/farmroute/farmroute/internal/risk"
	"github.com/farmroute/farmroute/internal/routing"
)

var (
	// ErrNotComputed indicates no candidates have been set since creation or the last reset.
	ErrNotComputed = errors.New("routes not computed")

	// ErrIndexOutOfRange indicates a selection index that addresses no candidate.
	ErrIndexOutOfRange = errors.New("candidate index out of range")

	// ErrCandidateMismatch indicates an update that does not match the stored candidate set.
	ErrCandidateMismatch = errors.New("candidate set mismatch")
)

// State is the selection state of one planning session.
type State struct {
	candidates []routing.Candidate
	active     int
	assessment *risk.Assessment
}

// New returns an empty state.
func New() *State {
	return &State{}
}

// Computed reports whether candidates are present.
func (s *State) Computed() bool {
	return len(s.candidates) > 0
}

// Set replaces the candidate set wholesale and activates the primary
// candidate. Any previous assessment is discarded.
func (s *State) Set(candidates []routing.Candidate) error {
	if len(candidates) == 0 {
		return routing.ErrNoCandidates
	}

	active := 0
	for i, c := range candidates {
		if c.Primary {
			active = i
			break
		}
	}

	s.candidates = routing.CloneAll(candidates)
	s.active = active
	s.assessment = nil
	return nil
}

// Update swaps in recomputed candidates (for example new ETAs after a cargo
// change) without moving the active index or dropping the assessment. The
// update must carry the same candidate IDs in the same order.
func (s *State) Update(candidates []routing.Candidate) error {
	if !s.Computed() {
		return ErrNotComputed
	}
	if len(candidates) != len(s.candidates) {
		return fmt.Errorf("%w: %d candidates, have %d", ErrCandidateMismatch, len(candidates), len(s.candidates))
	}
	for i := range candidates {
		if candidates[i].ID != s.candidates[i].ID {
			return fmt.Errorf("%w: position %d holds candidate %d, want %d",
				ErrCandidateMismatch, i, candidates[i].ID, s.candidates[i].ID)
		}
	}
	s.candidates = routing.CloneAll(candidates)
	return nil
}

// Select makes candidate i active and returns it. On error the state is
// unchanged. Selecting a different candidate drops the assessment, which
// described the previous route.
func (s *State) Select(i int) (routing.Candidate, error) {
	if !s.Computed() {
		return routing.Candidate{}, ErrNotComputed
	}
	if i < 0 || i >= len(s.candidates) {
		return routing.Candidate{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.candidates))
	}
	if i != s.active {
		s.assessment = nil
	}
	s.active = i
	return s.candidates[i].Clone(), nil
}

// SetAssessment records the weather assessment of the active route.
func (s *State) SetAssessment(a risk.Assessment) error {
	if !s.Computed() {
		return ErrNotComputed
	}
	cp := a.Clone()
	s.assessment = &cp
	return nil
}

// Reset clears the candidates, the active index and the assessment.
func (s *State) Reset() {
	s.candidates = nil
	s.active = 0
	s.assessment = nil
}

// Active returns the active candidate and the last assessment, which is nil
// when the active route has not been checked.
func (s *State) Active() (routing.Candidate, *risk.Assessment, error) {
	if !s.Computed() {
		return routing.Candidate{}, nil, ErrNotComputed
	}
	var a *risk.Assessment
	if s.assessment != nil {
		cp := s.assessment.Clone()
		a = &cp
	}
	return s.candidates[s.active].Clone(), a, nil
}

// ActiveIndex returns the index of the active candidate.
func (s *State) ActiveIndex() (int, error) {
	if !s.Computed() {
		return 0, ErrNotComputed
	}
	return s.active, nil
}

// Candidates returns a copy of every candidate in rank order.
func (s *State) Candidates() ([]routing.Candidate, error) {
	if !s.Computed() {
		return nil, ErrNotComputed
	}
	return routing.CloneAll(s.candidates), nil
}
