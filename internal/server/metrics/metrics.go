// Package metrics exposes the node's Prometheus collectors and the HTTP
// surface serving them alongside a health probe.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "gophrelief"

// Metrics owns a private registry so several nodes can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
	txQueued    *prometheus.CounterVec
	txApplied   *prometheus.CounterVec
	decryptions *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "Total number of gRPC requests handled.",
			},
			[]string{"method", "code"},
		),
		rpcDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "grpc",
				Name:      "request_duration_seconds",
				Help:      "Duration of gRPC requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"method"},
		),
		txQueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "transactions_queued_total",
				Help:      "Write transactions accepted into the sequencer queue.",
			},
			[]string{"kind"},
		),
		txApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "transactions_applied_total",
				Help:      "Write transactions applied by the sequencer, by final status.",
			},
			[]string{"kind", "status"},
		),
		decryptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "decryptions_total",
				Help:      "Decryption requests served by the oracle, by result.",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.rpcRequests,
		m.rpcDuration,
		m.txQueued,
		m.txApplied,
		m.decryptions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) TxQueued(kind string) {
	m.txQueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) TxApplied(kind, status string) {
	m.txApplied.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) Decryption(result string) {
	m.decryptions.WithLabelValues(result).Inc()
}

// Registry is exposed for tests and for embedding extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// UnaryServerInterceptor counts and times every unary call by method and
// status code.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		m.rpcRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		m.rpcDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		return resp, err
	}
}
