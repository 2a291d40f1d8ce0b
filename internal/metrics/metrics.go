// Package metrics wraps the Prometheus collectors the daemon exposes over
// its metrics HTTP listener, grounding go-server-3/internal/metrics's
// Registry/Handler shape.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps every Prometheus collector the daemon publishes, along
// with the prometheus.Gatherer they're registered against. Taking an
// explicit Registerer (rather than registering against the package-level
// default, as promauto.New* does with no options) lets callers — tests
// included — build more than one Registry in the same process without
// tripping "duplicate metrics collector registration".
type Registry struct {
	gatherer prometheus.Gatherer

	Connections  connectionGauges
	Messages     messageCounters
	Operations   operationCounters
	ChildProcess childGauges
}

type connectionGauges struct {
	Active prometheus.Gauge
}

type messageCounters struct {
	Received prometheus.Counter
	Sent     prometheus.Counter
	Dropped  prometheus.Counter
}

type operationCounters struct {
	Performed *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Restarts  prometheus.Counter
}

type childGauges struct {
	CPUPercent prometheus.Gauge
	MemoryMB   prometheus.Gauge
	Threads    prometheus.Gauge
}

// NewRegistry creates and registers every collector against reg.
func NewRegistry(reg *prometheus.Registry) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		gatherer: reg,
		Connections: connectionGauges{
			Active: factory.NewGauge(prometheus.GaugeOpts{
				Name: "raphy_connections_active",
				Help: "Number of clients currently connected over unix or tcp sockets",
			}),
		},
		Messages: messageCounters{
			Received: factory.NewCounter(prometheus.CounterOpts{
				Name: "raphy_messages_received_total",
				Help: "Total number of client-to-server messages received",
			}),
			Sent: factory.NewCounter(prometheus.CounterOpts{
				Name: "raphy_messages_sent_total",
				Help: "Total number of server-to-client messages sent",
			}),
			Dropped: factory.NewCounter(prometheus.CounterOpts{
				Name: "raphy_messages_dropped_total",
				Help: "Total number of child output events dropped due to back pressure",
			}),
		},
		Operations: operationCounters{
			Performed: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "raphy_operations_performed_total",
				Help: "Total number of start/stop/restart operations that succeeded, by operation",
			}, []string{"operation"}),
			Failed: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "raphy_operations_failed_total",
				Help: "Total number of start/stop/restart operations that failed, by operation",
			}, []string{"operation"}),
			Restarts: factory.NewCounter(prometheus.CounterOpts{
				Name: "raphy_child_restarts_total",
				Help: "Total number of times the supervised child process was restarted",
			}),
		},
		ChildProcess: childGauges{
			CPUPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "raphy_child_cpu_percent",
				Help: "Most recent CPU usage sample of the supervised child process",
			}),
			MemoryMB: factory.NewGauge(prometheus.GaugeOpts{
				Name: "raphy_child_memory_megabytes",
				Help: "Most recent resident memory sample of the supervised child process, in megabytes",
			}),
			Threads: factory.NewGauge(prometheus.GaugeOpts{
				Name: "raphy_child_threads",
				Help: "Most recent thread count sample of the supervised child process",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing every collector registered
// against this Registry's gatherer.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// ConnectionOpened records a new client connection.
func (r *Registry) ConnectionOpened() { r.Connections.Active.Inc() }

// ConnectionClosed records a client disconnecting.
func (r *Registry) ConnectionClosed() { r.Connections.Active.Dec() }

// MessageReceived records an inbound client-to-server message.
func (r *Registry) MessageReceived() { r.Messages.Received.Inc() }

// MessageSent records an outbound server-to-client message.
func (r *Registry) MessageSent() { r.Messages.Sent.Inc() }

// OutputDropped records a child stdout/stderr event dropped for back
// pressure.
func (r *Registry) OutputDropped() { r.Messages.Dropped.Inc() }

// OperationPerformed records a successful start/stop/restart operation.
func (r *Registry) OperationPerformed(operation string) {
	r.Operations.Performed.WithLabelValues(operation).Inc()
}

// OperationFailed records a failed start/stop/restart operation.
func (r *Registry) OperationFailed(operation string) {
	r.Operations.Failed.WithLabelValues(operation).Inc()
}

// ChildRestarted records a completed child process restart.
func (r *Registry) ChildRestarted() { r.Operations.Restarts.Inc() }

// SetChildResources publishes the most recent resource sample for the
// supervised child process.
func (r *Registry) SetChildResources(cpuPercent, memoryMB float64, threads int32) {
	r.ChildProcess.CPUPercent.Set(cpuPercent)
	r.ChildProcess.MemoryMB.Set(memoryMB)
	r.ChildProcess.Threads.Set(float64(threads))
}
