package epidemic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonad/outbreak-simulation/internal/entropy"
)

func TestTransition_Table(t *testing.T) {
	tests := []struct {
		from   State
		event  Event
		want   State
		wantOK bool
	}{
		{Susceptible, EventExposed, Latent, true},
		{Susceptible, EventSeeded, Infectious, true},
		{Susceptible, EventDwellElapsed, Susceptible, false},
		{Latent, EventDwellElapsed, Infectious, true},
		{Latent, EventSeeded, Infectious, true},
		{Latent, EventExposed, Susceptible, false},
		{Infectious, EventDwellElapsed, Recovered, true},
		{Infectious, EventExposed, Susceptible, false},
		{Infectious, EventSeeded, Susceptible, false},
		{Recovered, EventExposed, Susceptible, false},
		{Recovered, EventDwellElapsed, Susceptible, false},
		{Recovered, EventSeeded, Susceptible, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+tt.event.String(), func(t *testing.T) {
			got, ok := Transition(tt.from, tt.event)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
				assert.Greater(t, got, tt.from, "transitions only move forward")
			}
		})
	}
}

func TestState_Infected(t *testing.T) {
	assert.False(t, Susceptible.Infected())
	assert.True(t, Latent.Infected())
	assert.True(t, Infectious.Infected())
	assert.False(t, Recovered.Infected())
	assert.Equal(t, "unknown", State(42).String())
}

func TestPreStep_LatentTimeline(t *testing.T) {
	dwell := DefaultFixedDwell()
	ind := &Individual{}
	require.True(t, ind.Infect(dwell))
	assert.Equal(t, Latent, ind.State)
	assert.Equal(t, 7, ind.Counter)

	// Seven steps of counting down, the eighth flips to infectious.
	for i := 0; i < 7; i++ {
		ind.PreStep(dwell)
		assert.Equal(t, Latent, ind.State, "step %d", i+1)
	}
	assert.Zero(t, ind.Counter)
	ind.PreStep(dwell)
	assert.Equal(t, Infectious, ind.State)
	assert.Equal(t, 7, ind.Counter)

	for i := 0; i < 7; i++ {
		ind.PreStep(dwell)
		assert.Equal(t, Infectious, ind.State)
	}
	ind.PreStep(dwell)
	assert.Equal(t, Recovered, ind.State)
	assert.Zero(t, ind.Counter)

	for i := 0; i < 5; i++ {
		ind.PreStep(dwell)
		assert.Equal(t, Recovered, ind.State)
		assert.Zero(t, ind.Counter)
	}
}

func TestInfect_OnlyFromSusceptible(t *testing.T) {
	dwell := DefaultFixedDwell()
	for _, s := range []State{Latent, Infectious, Recovered} {
		ind := &Individual{State: s, Counter: 3}
		assert.False(t, ind.Infect(dwell))
		assert.Equal(t, s, ind.State)
		assert.Equal(t, 3, ind.Counter)
	}
}

func TestSeed_BypassesLatent(t *testing.T) {
	dwell := FixedDwell{Latent: 2, Infectious: 4}
	ind := &Individual{}
	require.True(t, ind.Seed(dwell))
	assert.Equal(t, Infectious, ind.State)
	assert.Equal(t, 4, ind.Counter)
}

func population(states ...State) []*Individual {
	pop := make([]*Individual, len(states))
	for i, s := range states {
		pop[i] = &Individual{ID: ID(i), State: s, TransmissionRate: 1}
	}
	return pop
}

func TestStep_InfectiousStopsAfterFirstTransmission(t *testing.T) {
	// Flagged behaviour: one infectious individual infects at most one of its
	// forward contacts per step even when every draw would succeed.
	pop := population(Infectious, Susceptible, Susceptible, Susceptible)
	rng := entropy.NewRand(1)

	target, ok := pop[0].Step([]ID{1, 2, 3}, pop, rng, DefaultFixedDwell())
	require.True(t, ok)
	assert.Same(t, pop[1], target)
	assert.Equal(t, Latent, pop[1].State)
	assert.Equal(t, Susceptible, pop[2].State)
	assert.Equal(t, Susceptible, pop[3].State)
}

func TestStep_SusceptibleCatchesFromContact(t *testing.T) {
	pop := population(Susceptible, Recovered, Infectious)
	rng := entropy.NewRand(1)

	target, ok := pop[0].Step([]ID{1, 2}, pop, rng, DefaultFixedDwell())
	require.True(t, ok)
	assert.Same(t, pop[0], target)
	assert.Equal(t, Latent, pop[0].State)
	assert.Equal(t, Infectious, pop[2].State)
}

func TestStep_ZeroRateNeverTransmits(t *testing.T) {
	pop := population(Infectious, Susceptible)
	pop[0].TransmissionRate = 0
	rng := entropy.NewRand(3)

	for i := 0; i < 100; i++ {
		_, ok := pop[0].Step([]ID{1}, pop, rng, DefaultFixedDwell())
		assert.False(t, ok)
	}
	assert.Equal(t, Susceptible, pop[1].State)
}

func TestStep_NoEligiblePairs(t *testing.T) {
	tests := []struct {
		name  string
		self  State
		other State
	}{
		{"both susceptible", Susceptible, Susceptible},
		{"both infectious", Infectious, Infectious},
		{"latent self", Latent, Susceptible},
		{"latent contact", Susceptible, Latent},
		{"recovered self", Recovered, Infectious},
		{"recovered contact", Infectious, Recovered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop := population(tt.self, tt.other)
			_, ok := pop[0].Step([]ID{1}, pop, entropy.NewRand(1), DefaultFixedDwell())
			assert.False(t, ok)
			assert.Equal(t, tt.self, pop[0].State)
			assert.Equal(t, tt.other, pop[1].State)
		})
	}
}
