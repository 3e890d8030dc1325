// Package monitor exports node metrics to prometheus.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/IceFireDB/IceFireDB-Chord/utils"
)

const Namespace = "chord"

const (
	resultOK    = "ok"
	resultError = "error"
)

// Monitor collects request, routing and connection metrics. It satisfies
// router.Observer and transport.Observer.
type Monitor struct {
	Requests        *prometheus.CounterVec
	RemoteCalls     *prometheus.CounterVec
	LookupHops      prometheus.Histogram
	ConnectionGauge prometheus.Gauge
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer, host string) *Monitor {
	labels := prometheus.Labels{"host": host}
	m := &Monitor{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "requests_total",
			Help:        "Commands served, by command and result.",
			ConstLabels: labels,
		}, []string{"op", "result"}),
		RemoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   Namespace,
			Name:        "remote_calls_total",
			Help:        "Calls made to peers, by operation and result.",
			ConstLabels: labels,
		}, []string{"op", "result"}),
		LookupHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   Namespace,
			Name:        "lookup_hops",
			Help:        "Peers contacted per lookup.",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0, 1, 9),
		}),
		ConnectionGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   Namespace,
			Name:        "connected_clients",
			Help:        "Count of connection",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.Requests, m.RemoteCalls, m.LookupHops, m.ConnectionGauge)
	return m
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultOK
}

func (m *Monitor) ObserveRemoteCall(op string, err error) {
	m.RemoteCalls.WithLabelValues(op, result(err)).Inc()
}

func (m *Monitor) ObserveLookup(hops int, err error) {
	if err != nil {
		return
	}
	m.LookupHops.Observe(float64(hops))
}

func (m *Monitor) ObserveRequest(cmd string, err error) {
	m.Requests.WithLabelValues(cmd, result(err)).Inc()
}

func (m *Monitor) SetConnectedClients(n int64) {
	m.ConnectionGauge.Set(float64(n))
}

// NewRegistry returns a registry with the go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux}

	utils.GoWithRecover(func() {
		logrus.Infof("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Error("metrics exporter: ", err)
		}
	}, nil)
	return srv
}
