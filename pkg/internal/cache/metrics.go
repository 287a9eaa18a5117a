package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circle",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Read-through cache hits by entity kind.",
	}, []string{"kind"})
	missCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circle",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Read-through cache misses by entity kind.",
	}, []string{"kind"})
	writeCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "circle",
		Subsystem: "cache",
		Name:      "writes_total",
		Help:      "Cache replacements and evictions by entity kind and operation.",
	}, []string{"kind", "op"})
)

func RecordHit(kind string) {
	hitCounter.WithLabelValues(kind).Inc()
}

func RecordMiss(kind string) {
	missCounter.WithLabelValues(kind).Inc()
}

func RecordWrite(kind, op string) {
	writeCounter.WithLabelValues(kind, op).Inc()
}
