package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// compartmentGauge tracks the latest S / I / R tallies.
	compartmentGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbreak_compartment_individuals",
		Help: "Individuals per compartment after the latest step",
	}, []string{"compartment"})

	cumulativeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbreak_cumulative_infected",
		Help: "Cumulative infections after the latest step",
	})

	stepCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbreak_steps_total",
		Help: "Simulation steps processed",
	})

	transmissionCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbreak_transmissions_total",
		Help: "Successful transmissions",
	})

	stepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbreak_step_duration_seconds",
		Help:    "Wall time of one simulation step",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})

	edgeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbreak_contact_edges",
		Help: "Forward contact edges in the current graph",
	})

	interventionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbreak_interventions_total",
		Help: "Population-wide interventions applied, by kind",
	}, []string{"kind"})
)

func observeStep(rec StatsRecord, transmissions int, elapsed time.Duration) {
	compartmentGauge.WithLabelValues("susceptible").Set(float64(rec.Susceptible))
	compartmentGauge.WithLabelValues("infected").Set(float64(rec.Infected))
	compartmentGauge.WithLabelValues("recovered").Set(float64(rec.Recovered))
	cumulativeGauge.Set(float64(rec.CumulativeInfected))
	stepCounter.Inc()
	transmissionCounter.Add(float64(transmissions))
	stepDuration.Observe(elapsed.Seconds())
}
