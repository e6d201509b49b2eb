// Package observability exposes Prometheus metrics for the simulation
// service.
package observability

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wetbench/labsim/pkg/domain"
)

// Metrics holds the service's instruments on a private registry so tests
// can create as many as they like without MustRegister collisions.
type Metrics struct {
	registry *prometheus.Registry

	runs     *prometheus.CounterVec
	commands *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates and registers the service instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labsim_runs_total",
				Help: "Total number of simulation runs by outcome",
			},
			[]string{"status"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labsim_commands_total",
				Help: "Total number of traced top-level commands",
			},
			[]string{"command"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "labsim_run_duration_seconds",
				Help: "Duration of simulation runs",
			},
		),
	}
	m.registry.MustRegister(m.runs, m.commands, m.duration)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records one finished run: its outcome, wall time, and the
// top-level commands in its run log.
func (m *Metrics) ObserveRun(status string, elapsed time.Duration, runlog domain.RunLog) {
	m.runs.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
	for _, span := range runlog {
		if span.Level != 0 {
			continue
		}
		text, _ := span.Payload["text"].(string)
		m.commands.WithLabelValues(commandLabel(text)).Inc()
	}
}

// commandLabel reduces a payload text template to a stable label: its
// first word, lowercased ("Aspirating {volume} ..." -> "aspirating").
func commandLabel(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
