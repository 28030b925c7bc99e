// Package metrics exposes Prometheus collectors for the core runtime's
// HTTP surfaces, heartbeat ingestion, job lifecycle transitions, the outbox
// flusher, and the chain event client, plus a self-process resource gauge
// sampled via gopsutil.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Metrics holds all Prometheus collectors registered by the runtime.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ErrorsTotal *prometheus.CounterVec

	HeartbeatsTotal     *prometheus.CounterVec
	HeartbeatLatency    prometheus.Histogram
	NodesActive         prometheus.Gauge
	NodesStale          prometheus.Gauge
	NodesOffline        prometheus.Gauge

	JobTransitionsTotal *prometheus.CounterVec
	JobsInState         *prometheus.GaugeVec
	SchedulerDuration   prometheus.Histogram

	OutboxDepth        *prometheus.GaugeVec
	OutboxDeliveries   *prometheus.CounterVec
	OutboxDeadLetters  prometheus.Counter

	ChainEventsTotal   *prometheus.CounterVec
	ChainReconnects    prometheus.Counter

	ProcessCPUPercent prometheus.Gauge
	ProcessMemBytes   prometheus.Gauge
	SystemMemPercent  prometheus.Gauge
}

// New creates and registers a Metrics instance against the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Metrics instance against a specific registerer,
// letting tests use a fresh prometheus.NewRegistry() to avoid collisions.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests handled, by router/method/path/status.",
		}, []string{"router", "method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"router", "method", "path"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being handled.",
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total errors, by component/code.",
		}, []string{"component", "code"}),

		HeartbeatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heartbeats_total",
			Help: "Total heartbeats received, by outcome (accepted/rejected).",
		}, []string{"outcome", "reason"}),
		HeartbeatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heartbeat_processing_seconds",
			Help:    "Time to verify and apply a single heartbeat.",
			Buckets: prometheus.DefBuckets,
		}),
		NodesActive:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "nodes_active", Help: "Nodes currently active."}),
		NodesStale:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "nodes_stale", Help: "Nodes currently stale."}),
		NodesOffline: prometheus.NewGauge(prometheus.GaugeOpts{Name: "nodes_offline", Help: "Nodes currently offline."}),

		JobTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_transitions_total",
			Help: "Job state transitions, by from/to state.",
		}, []string{"from", "to"}),
		JobsInState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobs_in_state",
			Help: "Current number of jobs in each state.",
		}, []string{"state"}),
		SchedulerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_decision_seconds",
			Help:    "Time to produce a scheduling decision for one job.",
			Buckets: prometheus.DefBuckets,
		}),

		OutboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "outbox_depth",
			Help: "Pending/inflight outbox entries, by kind and state.",
		}, []string{"kind", "state"}),
		OutboxDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_deliveries_total",
			Help: "Outbox delivery attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		OutboxDeadLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_dead_letters_total",
			Help: "Outbox entries moved to the dead state.",
		}),

		ChainEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chain_events_total",
			Help: "Chain events dispatched, by type.",
		}, []string{"type"}),
		ChainReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chain_client_reconnects_total",
			Help: "Chain event client reconnect attempts.",
		}),

		ProcessCPUPercent: prometheus.NewGauge(prometheus.GaugeOpts{Name: "process_cpu_percent", Help: "Self-process CPU utilization percent."}),
		ProcessMemBytes:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "process_memory_bytes", Help: "Self-process resident memory in bytes."}),
		SystemMemPercent:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "system_memory_percent", Help: "Host memory utilization percent."}),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal, m.RequestDuration, m.RequestsInFlight, m.ErrorsTotal,
			m.HeartbeatsTotal, m.HeartbeatLatency, m.NodesActive, m.NodesStale, m.NodesOffline,
			m.JobTransitionsTotal, m.JobsInState, m.SchedulerDuration,
			m.OutboxDepth, m.OutboxDeliveries, m.OutboxDeadLetters,
			m.ChainEventsTotal, m.ChainReconnects,
			m.ProcessCPUPercent, m.ProcessMemBytes, m.SystemMemPercent,
		)
	}
	return m
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(router, method, path, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(router, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(router, method, path).Observe(d.Seconds())
}

// RecordHeartbeat records a heartbeat outcome.
func (m *Metrics) RecordHeartbeat(outcome, reason string, d time.Duration) {
	m.HeartbeatsTotal.WithLabelValues(outcome, reason).Inc()
	m.HeartbeatLatency.Observe(d.Seconds())
}

// RecordTransition records a job state transition.
func (m *Metrics) RecordTransition(from, to string) {
	m.JobTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordOutboxDelivery records one outbox flush attempt.
func (m *Metrics) RecordOutboxDelivery(kind, outcome string) {
	m.OutboxDeliveries.WithLabelValues(kind, outcome).Inc()
	if outcome == "dead" {
		m.OutboxDeadLetters.Inc()
	}
}

// SampleSelfProcess samples this process's CPU/memory via gopsutil and the
// host's memory utilization, updating the process gauges. Intended to be
// called on a short ticker by the runtime's health loop.
func (m *Metrics) SampleSelfProcess(ctx context.Context) error {
	proc, err := process.NewProcess(int32(currentPID()))
	if err != nil {
		return err
	}
	if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
		m.ProcessCPUPercent.Set(pct)
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err == nil && info != nil {
		m.ProcessMemBytes.Set(float64(info.RSS))
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.SystemMemPercent.Set(vm.UsedPercent)
	}
	// cpu.PercentWithContext touches /proc once to warm gopsutil's sampling
	// window; ignore the result, SampleSelfProcess only reports this process.
	_, _ = cpu.PercentWithContext(ctx, 0, false)
	return nil
}
