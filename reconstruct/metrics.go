package reconstruct

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "backbone"

// Metrics are the Prometheus collectors updated by reconstructions. A nil
// *Metrics records nothing.
type Metrics struct {
	Chains             *prometheus.CounterVec
	StageSeconds       *prometheus.HistogramVec
	CalphaIterations   prometheus.Histogram
	PlacementRMSD      prometheus.Histogram
	InexactLookups     prometheus.Counter
	HBondEnergyChange  prometheus.Histogram
	RefinedPeptides    prometheus.Counter
	GeometryViolations prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Chains: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "chains_total",
				Help:      "Chains reconstructed by outcome",
			},
			[]string{"status"},
		),
		StageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each reconstruction stage in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"stage"},
		),
		CalphaIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "calpha",
			Name:      "iterations",
			Help:      "Steepest descent iterations per chain",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PlacementRMSD: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "placement",
			Name:      "mean_rmsd_angstroms",
			Help:      "Mean template superposition RMSD per chain",
			Buckets:   []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
		}),
		InexactLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "placement",
			Name:      "inexact_lookups_total",
			Help:      "Library lookups without a row of identical bins",
		}),
		HBondEnergyChange: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "hbond",
			Name:      "energy_change",
			Help:      "Change of the total favorable hydrogen bond energy per chain",
			Buckets:   []float64{-50, -20, -10, -5, -2, -1, -0.5, 0},
		}),
		RefinedPeptides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "hbond",
			Name:      "rotated_peptides_total",
			Help:      "Peptide planes rotated by the hydrogen bond refiner",
		}),
		GeometryViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "calpha",
			Name:      "geometry_violations_total",
			Help:      "Cα distances and angles out of range after optimization",
		}),
	}
	reg.MustRegister(
		m.Chains,
		m.StageSeconds,
		m.CalphaIterations,
		m.PlacementRMSD,
		m.InexactLookups,
		m.HBondEnergyChange,
		m.RefinedPeptides,
		m.GeometryViolations,
	)
	return m
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeChain(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Chains.WithLabelValues(status).Inc()
}

func (m *Metrics) observeReport(rep *Report) {
	if m == nil {
		return
	}
	if rep.Calpha != nil {
		m.CalphaIterations.Observe(float64(rep.Calpha.Iterations))
		m.GeometryViolations.Add(float64(len(rep.Violations)))
	}
	if rep.Backbone != nil {
		m.PlacementRMSD.Observe(rep.Backbone.MeanRMSD)
		m.InexactLookups.Add(float64(rep.Backbone.Inexact))
	}
	if rep.HBonds != nil {
		m.HBondEnergyChange.Observe(rep.HBonds.After - rep.HBonds.Before)
		m.RefinedPeptides.Add(float64(rep.HBonds.Improved))
	}
}
