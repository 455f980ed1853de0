package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vovakirdan/wsrelay/internal/core"
)

const namespace = "wsrelay"

// Recorder exports relay activity as Prometheus metrics. It implements core.Observer.
type Recorder struct {
	registry *prometheus.Registry

	connections  prometheus.Gauge
	messages     *prometheus.CounterVec
	deliveries   prometheus.Counter
	sendFailures prometheus.Counter
}

// New builds a recorder with its own registry, including Go runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Number of currently connected clients.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages received from clients and relayed.",
		}, []string{"kind"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Messages successfully handed to a recipient.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Sends that failed and caused the recipient to be dropped.",
		}),
	}

	reg.MustRegister(
		r.connections,
		r.messages,
		r.deliveries,
		r.sendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ConnectionOpened() { r.connections.Inc() }

func (r *Recorder) ConnectionClosed() { r.connections.Dec() }

func (r *Recorder) MessageRelayed(kind core.MessageKind, delivered int) {
	r.messages.WithLabelValues(kind.String()).Inc()
	r.deliveries.Add(float64(delivered))
}

func (r *Recorder) SendFailed() { r.sendFailures.Inc() }

var _ core.Observer = (*Recorder)(nil)
