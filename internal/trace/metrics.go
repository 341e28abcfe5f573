package trace

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors updated by a Tracer.
type Metrics struct {
	hops     *prometheus.GaugeVec
	reached  *prometheus.GaugeVec
	rtt      *prometheus.GaugeVec
	hopRTT   *prometheus.HistogramVec
	timeouts *prometheus.CounterVec
}

// NewMetrics initializes the trace metric collectors.
func NewMetrics() *Metrics {
	labels := []string{"target", "method"}

	return &Metrics{
		hops: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nettool_trace_hops",
				Help: "Number of hops recorded by the last trace to the target.",
			},
			labels,
		),
		reached: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nettool_trace_reached",
				Help: "Specifies if the last trace reached the target (1) or not (0).",
			},
			labels,
		),
		rtt: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nettool_trace_rtt_seconds",
				Help: "Round-trip time to the target in seconds, -1 if it was not reached.",
			},
			labels,
		),
		hopRTT: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nettool_hop_rtt_seconds",
				Help:    "Histogram of round-trip times of responding hops in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			labels,
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nettool_hop_timeouts_total",
				Help: "Total number of hops that did not respond.",
			},
			labels,
		),
	}
}

// GetCollectors returns all metric collectors.
func (m *Metrics) GetCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.hops,
		m.reached,
		m.rtt,
		m.hopRTT,
		m.timeouts,
	}
}

// ObserveHop records a single hop.
func (m *Metrics) ObserveHop(target, method string, h Hop) {
	if h.Unreachable() {
		m.timeouts.WithLabelValues(target, method).Inc()
		return
	}
	m.hopRTT.WithLabelValues(target, method).Observe(h.RTT.Seconds())
}

// ObserveRoute records the summary of a finished route.
func (m *Metrics) ObserveRoute(target, method string, r *Route) {
	m.hops.WithLabelValues(target, method).Set(float64(r.Len()))

	if r.IsReached() {
		m.reached.WithLabelValues(target, method).Set(1)
		m.rtt.WithLabelValues(target, method).Set(r.TotalRoundTripTime().Seconds())
		return
	}
	m.reached.WithLabelValues(target, method).Set(0)
	m.rtt.WithLabelValues(target, method).Set(-1)
}
