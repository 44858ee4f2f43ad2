package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Intervention kinds.
const (
	KindPhysicalDistancing = "physical_distancing"
)

var (
	// ErrPolicyApplied is returned when physical distancing is already in effect.
	ErrPolicyApplied = errors.New("physical distancing already applied")
	// ErrInvalidRate is returned for a retention rate outside [0, 1].
	ErrInvalidRate = errors.New("rate must be within [0, 1]")
)

// Intervention records a population-wide policy change.
type Intervention struct {
	Tick         uint64  `json:"tick" db:"tick"`
	Kind         string  `json:"kind" db:"kind"`
	Rate         float64 `json:"rate" db:"rate"`
	EdgesBefore  int     `json:"edges_before" db:"edges_before"`
	EdgesRemoved int     `json:"edges_removed" db:"edges_removed"`
}

// PhysicalDistancing keeps a uniform random floor(len × rate) of every
// individual's forward contacts and drops the rest. It can be applied once
// and is not reversible. It must not run concurrently with Step.
func (s *Simulation) PhysicalDistancing(rate float64) (Intervention, error) {
	if err := s.ready(); err != nil {
		return Intervention{}, err
	}
	if rate < 0 || rate > 1 {
		return Intervention{}, fmt.Errorf("physical distancing: %w (got %v)", ErrInvalidRate, rate)
	}
	if s.State == GraphPhysicalDistancing {
		return Intervention{}, fmt.Errorf("physical distancing at tick %d: %w", s.Tick, ErrPolicyApplied)
	}

	before := s.Graph.EdgeCount()
	removed := s.Graph.Thin(rate, s.rng)

	tick := s.Tick
	s.State = GraphPhysicalDistancing
	s.DistancingTick = &tick

	iv := Intervention{
		Tick:         tick,
		Kind:         KindPhysicalDistancing,
		Rate:         rate,
		EdgesBefore:  before,
		EdgesRemoved: removed,
	}
	s.Interventions = append(s.Interventions, iv)

	interventionCounter.WithLabelValues(KindPhysicalDistancing).Inc()
	edgeGauge.Set(float64(before - removed))
	slog.Info("physical distancing applied",
		"tick", tick,
		"rate", rate,
		"edges_before", humanize.Comma(int64(before)),
		"edges_removed", humanize.Comma(int64(removed)),
	)
	return iv, nil
}
