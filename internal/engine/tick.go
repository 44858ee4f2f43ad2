// Package engine provides the outbreak simulation stepper and the loop that
// drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DistancingPolicy triggers physical distancing once the ratio of infected to
// susceptible individuals exceeds Threshold. A zero Threshold disables it.
type DistancingPolicy struct {
	Threshold float64
	Rate      float64
}

// Engine drives a Simulation forward and serializes access to it.
type Engine struct {
	Sim           *Simulation
	MaxSteps      uint64        // Steps to run; 0 = until cleared or cancelled
	Interval      time.Duration // Pause between steps; 0 = as fast as possible
	StopWhenClear bool          // Stop once no one is infected
	Distancing    DistancingPolicy

	// Callbacks, invoked with the engine lock released.
	OnStep         func(rec StatsRecord)
	OnIntervention func(iv Intervention)

	mu      sync.RWMutex
	running atomic.Bool
}

// NewEngine creates an engine with the run defaults: 250 steps, stop when the
// outbreak is over, distance at 10% once I/S exceeds 0.1.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Sim:           sim,
		MaxSteps:      250,
		StopWhenClear: true,
		Distancing:    DistancingPolicy{Threshold: 0.1, Rate: 0.1},
	}
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// View runs fn with shared access to the simulation.
func (e *Engine) View(fn func(sim *Simulation)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.Sim)
}

// Update runs fn with exclusive access to the simulation, between steps.
func (e *Engine) Update(fn func(sim *Simulation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.Sim)
}

// Run steps the simulation until MaxSteps, until no one is infected (when
// StopWhenClear is set), until ctx is cancelled, or until a step fails.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("engine already running")
	}
	defer e.running.Store(false)

	slog.Info("simulation engine started", "tick", e.tick(), "max_steps", e.MaxSteps)

	for steps := uint64(0); e.MaxSteps == 0 || steps < e.MaxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine cancelled", "tick", e.tick())
			return nil
		}

		rec, iv, err := e.step()
		if err != nil {
			return fmt.Errorf("step %d: %w", steps+1, err)
		}

		if e.OnStep != nil {
			e.OnStep(rec)
		}
		if iv != nil && e.OnIntervention != nil {
			e.OnIntervention(*iv)
		}

		if e.StopWhenClear && rec.Infected == 0 {
			slog.Info("outbreak over", "tick", rec.Tick, "cumulative_infected", rec.CumulativeInfected)
			break
		}

		if e.Interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(e.Interval):
			}
		}
	}

	slog.Info("simulation engine stopped", "tick", e.tick())
	return nil
}

// step advances one tick and then applies the distancing policy if the new
// tallies call for it, so the thinned graph is in place for the next step.
func (e *Engine) step() (StatsRecord, *Intervention, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.Sim.Step()
	if err != nil {
		return StatsRecord{}, nil, err
	}

	if e.shouldDistance(rec) {
		iv, err := e.Sim.PhysicalDistancing(e.Distancing.Rate)
		if err != nil {
			return rec, nil, err
		}
		return rec, &iv, nil
	}
	return rec, nil, nil
}

func (e *Engine) shouldDistance(rec StatsRecord) bool {
	if e.Distancing.Threshold <= 0 || e.Sim.State != GraphNormal || rec.Infected == 0 {
		return false
	}
	if rec.Susceptible == 0 {
		return true
	}
	return float64(rec.Infected)/float64(rec.Susceptible) > e.Distancing.Threshold
}

func (e *Engine) tick() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Sim.CurrentTick()
}
