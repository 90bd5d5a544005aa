package observability

import (
	"net/http"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records run, relay and node status measurements.
// It satisfies runner.Metrics.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	chunks       prometheus.Counter
	bytes        prometheus.Counter
	tools        *prometheus.CounterVec
	transactions prometheus.Counter
	transitions  *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_runs_total",
				Help: "Total number of worker runs by outcome",
			},
			[]string{"tool_name", "status", "mode"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weave_run_duration_seconds",
				Help:    "Duration of worker runs",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"mode"},
		),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_relay_chunks_total",
			Help: "Fragments forwarded by the streaming relay",
		}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_relay_bytes_total",
			Help: "Bytes forwarded by the streaming relay",
		}),
		tools: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_tool_announcements_total",
				Help: "Tool starts announced to clients",
			},
			[]string{"tool_name"},
		),
		transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weave_transactions_announced_total",
			Help: "Successful transactions announced to clients",
		}),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weave_node_status_transitions_total",
				Help: "Node execution status changes",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(
		m.runs, m.runDuration, m.chunks, m.bytes, m.tools, m.transactions, m.transitions,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunFinished implements runner.Metrics.
func (m *Metrics) RunFinished(tool string, status domain.NodeStatus, mode string, elapsed time.Duration) {
	m.runs.WithLabelValues(tool, string(status), mode).Inc()
	m.runDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RelayFinished implements runner.Metrics.
func (m *Metrics) RelayFinished(chunks, bytes int) {
	m.chunks.Add(float64(chunks))
	m.bytes.Add(float64(bytes))
}

// ToolAnnounced implements runner.Metrics.
func (m *Metrics) ToolAnnounced(tool string) {
	m.tools.WithLabelValues(tool).Inc()
}

// TransactionAnnounced implements runner.Metrics.
func (m *Metrics) TransactionAnnounced() {
	m.transactions.Inc()
}

// ObserveStatus counts a node status change. It has the shape of a
// graph.StatusListener.
func (m *Metrics) ObserveStatus(ev domain.StatusEvent) {
	m.transitions.WithLabelValues(string(ev.Status)).Inc()
}
