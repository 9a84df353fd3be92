package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "printq"

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "requests_total",
		Help:      "Total number of handled requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "request_duration_ms",
		Help:      "Request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

type ConversionMetrics struct {
	Conversions *prometheus.CounterVec
	DurationSec prometheus.Histogram
	InFlight    prometheus.Gauge
}

func NewConversionMetrics(reg prometheus.Registerer) *ConversionMetrics {
	conversions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "converter",
		Name:      "conversions_total",
		Help:      "Conversions by outcome code.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "converter",
		Name:      "subprocess_duration_seconds",
		Help:      "Wall time of converter subprocess runs.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "converter",
		Name:      "subprocesses_in_flight",
		Help:      "Converter subprocesses currently running.",
	})

	reg.MustRegister(conversions, duration, inFlight)
	return &ConversionMetrics{Conversions: conversions, DurationSec: duration, InFlight: inFlight}
}

type OrderMetrics struct {
	Files         *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "files_total",
		Help:      "Per-file order outcomes.",
	}, []string{"outcome"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "notifications_total",
		Help:      "Confirmation deliveries by outcome.",
	}, []string{"outcome"})

	reg.MustRegister(files, notifications)
	return &OrderMetrics{Files: files, Notifications: notifications}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
