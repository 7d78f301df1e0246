package sse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	clients prometheus.Gauge
	events  *prometheus.CounterVec
	dropped prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "licaudit_sse_clients",
			Help: "Connected event stream clients",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "licaudit_sse_events_total",
			Help: "Events broadcast by type",
		}, []string{"type"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "licaudit_sse_dropped_total",
			Help: "Messages skipped because a client buffer was full",
		}),
	}
}
