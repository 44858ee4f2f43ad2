// Package epidemic provides the per-individual compartment state machine:
// susceptible, latent, infectious and recovered, with dwell counters.
package epidemic

// State is an individual's compartment.
type State uint8

const (
	Susceptible State = iota // Never infected
	Latent                   // Infected, not yet able to transmit
	Infectious               // Able to transmit to susceptible contacts
	Recovered                // Terminal; no further transitions
)

// String returns the compartment name.
func (s State) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Latent:
		return "latent"
	case Infectious:
		return "infectious"
	case Recovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Infected reports whether the state counts toward the I compartment.
func (s State) Infected() bool {
	return s == Latent || s == Infectious
}

// Event drives a state transition.
type Event uint8

const (
	EventExposed      Event = iota // Successful transmission from an infectious contact
	EventDwellElapsed              // Dwell counter reached zero
	EventSeeded                    // Directly placed into the infectious compartment
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventExposed:
		return "exposed"
	case EventDwellElapsed:
		return "dwell_elapsed"
	case EventSeeded:
		return "seeded"
	default:
		return "unknown"
	}
}

// transitions is the complete set of legal moves. Anything missing is
// rejected, which keeps the compartments monotonic.
var transitions = map[State]map[Event]State{
	Susceptible: {
		EventExposed: Latent,
		EventSeeded:  Infectious,
	},
	Latent: {
		EventDwellElapsed: Infectious,
		EventSeeded:       Infectious,
	},
	Infectious: {
		EventDwellElapsed: Recovered,
	},
}

// Transition returns the state reached from s on event e, and false if the
// move is not allowed.
func Transition(s State, e Event) (State, bool) {
	next, ok := transitions[s][e]
	return next, ok
}
