// Package observability holds the Prometheus collectors of the service and
// the helpers that update them.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	findTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wherewolf_find_total",
			Help: "Point lookups per layer by outcome (match, miss).",
		},
		[]string{"layer", "outcome"},
	)

	findDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wherewolf_find_duration_seconds",
			Help:    "Duration of point lookups in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16),
		},
		[]string{"scope"},
	)

	layersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wherewolf_layers",
		Help: "Number of loaded layers.",
	})

	featuresGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wherewolf_features",
		Help: "Number of features across all loaded layers.",
	})

	geocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Geocoder calls by result (ok, empty, error, cached).",
		},
		[]string{"result"},
	)

	geocodeDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geocode_duration_seconds",
		Help:    "Latency of upstream geocoder calls in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	layerEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layer_events_total",
			Help: "Layer sync events by op and result.",
		},
		[]string{"op", "result"},
	)

	hotKeysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wherewolf_hot_keys",
		Help: "Number of layer/cell keys tracked for hotness.",
	})

	hitEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hit_events_total",
			Help: "Hit events by result (enqueued, dropped, error).",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		findTotal, findDurationSeconds, layersGauge, featuresGauge,
		geocodeRequestsTotal, geocodeDurationSeconds,
		layerEventsTotal, hitEventsTotal, hotKeysGauge,
	}
}

// Init registers the collectors on reg. It is a no-op when disabled, and
// registering on the same registry twice is tolerated.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

// InitDefault registers on the global registry once.
func InitDefault() {
	registerOnce.Do(func() { Init(prometheus.DefaultRegisterer, true) })
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveFind records one lookup. scope is "all" or "layer"; matches maps
// each queried layer to whether it matched.
func ObserveFind(scope string, matches map[string]bool, durationSeconds float64) {
	findDurationSeconds.WithLabelValues(scope).Observe(durationSeconds)
	for layer, ok := range matches {
		outcome := "miss"
		if ok {
			outcome = "match"
		}
		findTotal.WithLabelValues(layer, outcome).Inc()
	}
}

func SetLayerStats(layers, features int) {
	layersGauge.Set(float64(layers))
	featuresGauge.Set(float64(features))
}

func ObserveGeocode(result string, durationSeconds float64) {
	geocodeRequestsTotal.WithLabelValues(result).Inc()
	if result != "cached" {
		geocodeDurationSeconds.Observe(durationSeconds)
	}
}

func IncLayerEvent(op, result string) {
	layerEventsTotal.WithLabelValues(op, result).Inc()
}

func IncHitEvent(result string) {
	hitEventsTotal.WithLabelValues(result).Inc()
}

func SetHotKeys(n int) {
	hotKeysGauge.Set(float64(n))
}
