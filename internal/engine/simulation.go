// Simulation ties the partition, contact graph and compartment state machine
// together and advances them one step at a time.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lemonad/outbreak-simulation/internal/contact"
	"github.com/lemonad/outbreak-simulation/internal/distributions"
	"github.com/lemonad/outbreak-simulation/internal/entropy"
	"github.com/lemonad/outbreak-simulation/internal/epidemic"
	"github.com/lemonad/outbreak-simulation/internal/partition"
)

// DwellFixed selects the fixed 7 + 7 step dwell counters.
const DwellFixed = "fixed"

var (
	// ErrEmptyPopulation is returned by operations that need a built population.
	ErrEmptyPopulation = errors.New("population not constructed")
	// ErrConservation is returned when S+I+R no longer equals the population size.
	ErrConservation = errors.New("population conservation violated")
)

// Config holds population construction parameters.
type Config struct {
	Width                 int
	Height                int
	Seed                  int64   // 0 = random
	TransmissionRate      float64 // Per-contact, per-step probability
	TransmissionVariation float64 // Spatial swing around TransmissionRate, 0 = uniform
	Dwell                 string  // DwellFixed or a distributions profile name
}

// DefaultConfig returns the 100×100 population used by the outbreak runs.
func DefaultConfig() Config {
	return Config{
		Width:            100,
		Height:           100,
		TransmissionRate: epidemic.DefaultTransmissionRate,
		Dwell:            DwellFixed,
	}
}

// GraphState is the population-wide contact policy in effect.
type GraphState uint8

const (
	GraphNormal             GraphState = iota
	GraphPhysicalDistancing            // Contact lists thinned
	GraphOpeningUp                     // Reserved; nothing transitions here yet
)

// String returns the policy name.
func (g GraphState) String() string {
	switch g {
	case GraphNormal:
		return "normal"
	case GraphPhysicalDistancing:
		return "physical_distancing"
	case GraphOpeningUp:
		return "opening_up"
	default:
		return "unknown"
	}
}

// StatsRecord is the compartment tally after one step.
type StatsRecord struct {
	Tick               uint64 `json:"t" db:"tick"`
	Susceptible        int    `json:"S" db:"susceptible"`
	Infected           int    `json:"I" db:"infected"` // Latent + infectious
	Recovered          int    `json:"R" db:"recovered"`
	CumulativeInfected int    `json:"ICUM" db:"cumulative_infected"`
}

// Simulation holds the complete population state.
type Simulation struct {
	Tree  *partition.Tree
	Graph *contact.Graph
	Seed  int64

	Tick           uint64        // Most recent step processed
	History        []StatsRecord // One record per step
	State          GraphState
	DistancingTick *uint64 // Tick at which distancing was applied
	Interventions  []Intervention

	rng   *rand.Rand
	dwell epidemic.Dwell
}

// NewSimulation builds the partition tree and contact graph for cfg. All
// randomness comes from one generator seeded by cfg.Seed.
func NewSimulation(cfg Config) (*Simulation, error) {
	src := entropy.New(cfg.Seed)

	dwell, err := newDwell(cfg.Dwell, src.Rand)
	if err != nil {
		return nil, err
	}

	tree, err := partition.New(cfg.Width, cfg.Height, src.Rand)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}

	graph, err := contact.Build(tree, src.Rand, contact.Options{
		TransmissionRate:      cfg.TransmissionRate,
		TransmissionVariation: cfg.TransmissionVariation,
		NoiseSeed:             src.Seed + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("contact graph: %w", err)
	}

	edgeGauge.Set(float64(graph.EdgeCount()))
	slog.Info("population ready",
		"seed", src.Seed,
		"width", cfg.Width,
		"height", cfg.Height,
		"individuals", humanize.Comma(int64(graph.Len())),
		"dwell", cfg.Dwell,
	)

	return &Simulation{
		Tree:  tree,
		Graph: graph,
		Seed:  src.Seed,
		rng:   src.Rand,
		dwell: dwell,
	}, nil
}

func newDwell(name string, rng *rand.Rand) (epidemic.Dwell, error) {
	if name == "" || name == DwellFixed {
		return epidemic.DefaultFixedDwell(), nil
	}
	d, err := distributions.New(name, rng)
	if err != nil {
		return nil, fmt.Errorf("dwell: %w", err)
	}
	return d, nil
}

// CurrentTick returns the most recently processed step.
func (s *Simulation) CurrentTick() uint64 {
	return s.Tick
}

// Population returns the population size.
func (s *Simulation) Population() int {
	if s.Graph == nil {
		return 0
	}
	return s.Graph.Len()
}

func (s *Simulation) ready() error {
	if s.Graph == nil || s.Graph.Len() == 0 {
		return ErrEmptyPopulation
	}
	return nil
}

// InfectRandom seeds n individuals, drawn with replacement, straight into the
// infectious compartment. Draws that land on an individual already infectious
// or recovered leave it unchanged. It returns the drawn IDs.
func (s *Simulation) InfectRandom(n int) ([]epidemic.ID, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("infect random: negative count %d", n)
	}

	ids := make([]epidemic.ID, n)
	seeded := 0
	for i := range ids {
		ids[i] = epidemic.ID(s.rng.IntN(s.Graph.Len()))
		if s.Graph.Individuals[ids[i]].Seed(s.dwell) {
			seeded++
		}
	}
	slog.Info("outbreak seeded", "tick", s.Tick, "requested", n, "seeded", seeded)
	return ids, nil
}

// Step advances the population by one time unit: dwell bookkeeping for
// everyone, then one transmission pass over the forward adjacency, then a
// stats record.
func (s *Simulation) Step() (StatsRecord, error) {
	if err := s.ready(); err != nil {
		return StatsRecord{}, err
	}

	start := time.Now()
	s.Tick++

	population := s.Graph.Individuals
	for _, ind := range population {
		ind.PreStep(s.dwell)
	}

	transmissions := 0
	for _, ind := range population {
		contacts, err := s.Graph.Contacts(ind.ID)
		if err != nil {
			return StatsRecord{}, err
		}
		if _, ok := ind.Step(contacts, population, s.rng, s.dwell); ok {
			transmissions++
		}
	}

	rec, err := s.record()
	if err != nil {
		return StatsRecord{}, err
	}

	observeStep(rec, transmissions, time.Since(start))
	slog.Debug("step",
		"tick", rec.Tick,
		"S", rec.Susceptible,
		"I", rec.Infected,
		"R", rec.Recovered,
		"ICUM", rec.CumulativeInfected,
		"transmissions", transmissions,
	)
	return rec, nil
}

// Counts tallies the compartments.
func (s *Simulation) Counts() (susceptible, infected, recovered int) {
	if s.Graph == nil {
		return 0, 0, 0
	}
	for _, ind := range s.Graph.Individuals {
		switch ind.State {
		case epidemic.Susceptible:
			susceptible++
		case epidemic.Latent, epidemic.Infectious:
			infected++
		case epidemic.Recovered:
			recovered++
		}
	}
	return susceptible, infected, recovered
}

func (s *Simulation) record() (StatsRecord, error) {
	susceptible, infected, recovered := s.Counts()
	n := s.Graph.Len()
	if susceptible+infected+recovered != n {
		return StatsRecord{}, fmt.Errorf("%w at tick %d: S=%d I=%d R=%d N=%d",
			ErrConservation, s.Tick, susceptible, infected, recovered, n)
	}

	// S only decreases, so the drop in S is the number of new infections.
	cumulative := infected + recovered
	if prev, ok := s.Latest(); ok {
		cumulative = prev.CumulativeInfected - (susceptible - prev.Susceptible)
	}

	rec := StatsRecord{
		Tick:               s.Tick,
		Susceptible:        susceptible,
		Infected:           infected,
		Recovered:          recovered,
		CumulativeInfected: cumulative,
	}
	s.History = append(s.History, rec)
	return rec, nil
}

// Latest returns the most recent stats record.
func (s *Simulation) Latest() (StatsRecord, bool) {
	if len(s.History) == 0 {
		return StatsRecord{}, false
	}
	return s.History[len(s.History)-1], true
}

// Stats returns a copy of the recorded history.
func (s *Simulation) Stats() []StatsRecord {
	out := make([]StatsRecord, len(s.History))
	copy(out, s.History)
	return out
}
