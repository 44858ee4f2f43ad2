package epidemic

import (
	"math/rand/v2"

	"github.com/lemonad/outbreak-simulation/internal/geometry"
	"github.com/lemonad/outbreak-simulation/internal/partition"
)

// DefaultTransmissionRate is the per-contact, per-step transmission probability.
const DefaultTransmissionRate = 0.01

// ID is a handle issued when an individual is created. IDs are dense, starting
// at zero, and index the population slice.
type ID uint32

// Individual is one person bound to one point of the domain and one region.
type Individual struct {
	ID               ID              `json:"id"`
	Point            geometry.Point  `json:"point"`
	Region           *partition.Node `json:"-"` // Owning leaf, not owned
	RegionIndex      int             `json:"region"`
	State            State           `json:"state"`
	Counter          int             `json:"counter"` // Steps left in the current compartment
	TransmissionRate float64         `json:"transmission_rate"`
}

// apply moves the individual along the transition table and resets the
// counter for the compartment entered.
func (ind *Individual) apply(e Event, dwell Dwell) bool {
	next, ok := Transition(ind.State, e)
	if !ok {
		return false
	}
	ind.State = next
	switch next {
	case Latent:
		ind.Counter = dwell.LatentPeriod()
	case Infectious:
		ind.Counter = dwell.InfectiousPeriod()
	default:
		ind.Counter = 0
	}
	return true
}

// Infect moves a susceptible individual to latent.
func (ind *Individual) Infect(dwell Dwell) bool {
	return ind.apply(EventExposed, dwell)
}

// Seed moves a susceptible or latent individual straight to infectious.
func (ind *Individual) Seed(dwell Dwell) bool {
	return ind.apply(EventSeeded, dwell)
}

// PreStep runs the start-of-step dwell bookkeeping. A counter that has run
// out advances the compartment; otherwise it counts down by one.
func (ind *Individual) PreStep(dwell Dwell) {
	if ind.State == Recovered {
		return
	}
	if ind.Counter <= 0 && (ind.State == Latent || ind.State == Infectious) {
		ind.apply(EventDwellElapsed, dwell)
		return
	}
	if ind.Counter > 0 {
		ind.Counter--
	}
}

// Step scans the individual's forward contacts for a susceptible/infectious
// pairing and draws one transmission attempt per eligible contact using the
// individual's own rate. It stops after the first transmission and returns
// the newly latent individual.
//
// Contacts are read as they are now, so an individual infected earlier in the
// same pass is already latent here.
func (ind *Individual) Step(contacts []ID, population []*Individual, rng *rand.Rand, dwell Dwell) (*Individual, bool) {
	if ind.State == Recovered {
		return nil, false
	}

	for _, cid := range contacts {
		contact := population[cid]
		eligible := (ind.State == Infectious && contact.State == Susceptible) ||
			(ind.State == Susceptible && contact.State == Infectious)
		if !eligible || rng.Float64() >= ind.TransmissionRate {
			continue
		}
		target := contact
		if ind.State == Susceptible {
			target = ind
		}
		target.Infect(dwell)
		return target, true
	}
	return nil, false
}
