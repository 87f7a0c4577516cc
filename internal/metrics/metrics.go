// Package metrics records install outcomes in a Prometheus registry that
// can be written as a node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pirakansa/kitup/internal/graph"
)

// Recorder owns one registry per run.
type Recorder struct {
	registry *prometheus.Registry

	installTotal    *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
	hostSuccess     *prometheus.GaugeVec
	lastRun         prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		installTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kitup_vertex_install_total",
				Help: "Number of tools visited by the installer, by outcome.",
			},
			[]string{"host", "provider", "outcome"},
		),
		installDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kitup_vertex_install_duration_seconds",
				Help:    "Time taken to check and install one tool.",
				Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
			},
			[]string{"provider"},
		),
		hostSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kitup_host_last_run_success",
				Help: "Whether the last install run against a host succeeded.",
			},
			[]string{"host"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "kitup_last_run_timestamp_seconds",
				Help: "Unix time the metrics were last written.",
			},
		),
	}
	r.registry.MustRegister(r.installTotal, r.installDuration, r.hostSuccess, r.lastRun)
	return r
}

// ForHost returns a graph observer that records vertices installed on
// host.
func (r *Recorder) ForHost(host string) graph.Observer {
	return graph.ObserverFunc(func(v graph.Vertex, outcome graph.Outcome, elapsed time.Duration) {
		provider := v.Provider.String()
		r.installTotal.WithLabelValues(host, provider, string(outcome)).Inc()
		if outcome != graph.OutcomeSkipped {
			r.installDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
		}
	})
}

// HostDone records whether the run against host succeeded.
func (r *Recorder) HostDone(host string, err error) {
	value := 1.0
	if err != nil {
		value = 0
	}
	r.hostSuccess.WithLabelValues(host).Set(value)
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes the registry to path in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, r.registry)
}
