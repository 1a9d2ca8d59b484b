package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"f3/sector"
)

const metricsNamespace = "f3"

// File results, used as the result label and to pick the file map glyph.
const (
	resultOK      = "ok"
	resultDamaged = "damaged"
	resultMissing = "missing"
	resultFailed  = "failed"
	resultNoSpace = "no_space"
)

// runMetrics are the counters of one run. They are written as a node
// exporter textfile when the run ends.
type runMetrics struct {
	reg      *prometheus.Registry
	sectors  *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	files    *prometheus.CounterVec
	avgSpeed *prometheus.GaugeVec
}

func newRunMetrics(runID string) *runMetrics {
	labels := prometheus.Labels{"run": runID}
	m := &runMetrics{
		reg: prometheus.NewRegistry(),
		sectors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "sectors_total",
				Help:        "Sectors validated by class.",
				ConstLabels: labels,
			},
			[]string{"class"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "bytes_total",
				Help:        "Bytes written or read.",
				ConstLabels: labels,
			},
			[]string{"mode"},
		),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   metricsNamespace,
				Name:        "files_total",
				Help:        "h2w files processed by result.",
				ConstLabels: labels,
			},
			[]string{"mode", "result"},
		),
		avgSpeed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Name:        "average_speed_bytes",
				Help:        "Average throughput of the run in bytes per second.",
				ConstLabels: labels,
			},
			[]string{"mode"},
		),
	}
	m.reg.MustRegister(m.sectors, m.bytes, m.files, m.avgSpeed)
	return m
}

func (m *runMetrics) addBytes(mode string, n uint64) {
	m.bytes.WithLabelValues(mode).Add(float64(n))
}

func (m *runMetrics) addFile(mode, result string) {
	m.files.WithLabelValues(mode, result).Inc()
}

func (m *runMetrics) addStats(s *sector.FileStats) {
	m.sectors.WithLabelValues(sector.OK.String()).Add(float64(s.OK))
	m.sectors.WithLabelValues(sector.Changed.String()).Add(float64(s.Changed))
	m.sectors.WithLabelValues(sector.Corrupted.String()).Add(float64(s.Corrupted))
	m.sectors.WithLabelValues(sector.Overwritten.String()).Add(float64(s.Overwritten))
}

func (m *runMetrics) setSpeed(mode string, bps float64) {
	m.avgSpeed.WithLabelValues(mode).Set(bps)
}

func (m *runMetrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
