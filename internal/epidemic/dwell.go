package epidemic

// DefaultDwell is the number of steps spent latent and then infectious.
const DefaultDwell = 7

// Dwell supplies the dwell counter set on entering the latent and infectious
// compartments.
type Dwell interface {
	LatentPeriod() int
	InfectiousPeriod() int
}

// FixedDwell uses the same counters for every individual.
type FixedDwell struct {
	Latent     int
	Infectious int
}

// DefaultFixedDwell returns the 7 + 7 step dwell policy.
func DefaultFixedDwell() FixedDwell {
	return FixedDwell{Latent: DefaultDwell, Infectious: DefaultDwell}
}

// LatentPeriod returns the fixed latent counter.
func (d FixedDwell) LatentPeriod() int { return d.Latent }

// InfectiousPeriod returns the fixed infectious counter.
func (d FixedDwell) InfectiousPeriod() int { return d.Infectious }
