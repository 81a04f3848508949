package platform

import "github.com/prometheus/client_golang/prometheus"

var (
	resolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cpuplatd",
			Subsystem: "platform",
			Name:      "resolve_total",
			Help:      "Configuration resolution passes by outcome",
		},
		[]string{"outcome"},
	)

	correctionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cpuplatd",
			Subsystem: "platform",
			Name:      "corrections_total",
			Help:      "Compatibility rewrites applied by the resolver, by rule",
		},
		[]string{"rule"},
	)
)

func init() {
	prometheus.MustRegister(resolveTotal, correctionsTotal)
}
