package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	BrokerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradecore",
			Subsystem: "broker",
			Name:      "latency_seconds",
			Help:      "Latency of broker adapter calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"broker", "op"},
	)

	BrokerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradecore",
			Subsystem: "broker",
			Name:      "errors_total",
			Help:      "Errors by broker adapter and operation",
		},
		[]string{"broker", "op"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(BrokerLatency, BrokerErrors)
	})
}
