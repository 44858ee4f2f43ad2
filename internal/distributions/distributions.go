// Package distributions provides literature-backed latent period and
// infectious duration distributions. A profile can stand in for the fixed
// dwell counters: each infection then draws its own durations.
//
// The covid-19 profile uses the incubation time fit from Li et al.,
// "Transmission characteristics of the COVID-19 outbreak in China" (2020), as
// the latent period, and the infectious duration median from Bar-On et al.,
// "A quantitative compendium of COVID-19 epidemiology" (2020).
package distributions

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Covid19 is the name of the only supported profile.
const Covid19 = "covid-19"

// UnknownDistributionError is returned for a profile name other than Covid19.
type UnknownDistributionError struct {
	Name   string
	Reason string
}

func (e *UnknownDistributionError) Error() string {
	return fmt.Sprintf("unknown distribution %q: %s", e.Name, e.Reason)
}

// Distributions holds the two duration distributions of a profile, in steps (days).
type Distributions struct {
	Name       string
	Latent     distuv.Gamma
	Infectious distuv.Gamma
}

// New returns the named profile drawing from src.
func New(name string, src rand.Source) (*Distributions, error) {
	if name != Covid19 {
		return nil, &UnknownDistributionError{Name: name, Reason: fmt.Sprintf("only %q is accepted for now", Covid19)}
	}
	return &Distributions{
		Name: name,
		// Gamma(k=3.07, θ=2.35); gonum takes the rate 1/θ.
		Latent: distuv.Gamma{Alpha: 3.07, Beta: 1 / 2.35, Src: src},
		// Gamma(k=3.5, θ=1.5); population median of 4-5 days.
		Infectious: distuv.Gamma{Alpha: 3.5, Beta: 1 / 1.5, Src: src},
	}, nil
}

// LatentPeriod draws a latent period rounded to whole steps, at least one.
func (d *Distributions) LatentPeriod() int {
	return steps(d.Latent.Rand())
}

// InfectiousPeriod draws an infectious duration rounded to whole steps, at least one.
func (d *Distributions) InfectiousPeriod() int {
	return steps(d.Infectious.Rand())
}

// Summary describes a distribution for logging.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P05    float64 `json:"p05"`
	P95    float64 `json:"p95"`
}

// Summarize returns summary statistics for the latent and infectious distributions.
func (d *Distributions) Summarize() (latent, infectious Summary) {
	return summarize(d.Latent), summarize(d.Infectious)
}

func summarize(g distuv.Gamma) Summary {
	return Summary{
		Mean:   g.Mean(),
		Median: g.Quantile(0.5),
		P05:    g.Quantile(0.05),
		P95:    g.Quantile(0.95),
	}
}

func steps(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}
