package providers

import (
	"aprsd/internal/structures"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(namespace string)
	IncCacheMisses(namespace string)
	ObservePersistenceDuration(duration time.Duration)
	IncPackets(channel string)
	IncDuplicates(channel string)
	IncRejected(channel string)
	IncSent(channel string)
	SetChannelState(channel string, state int)
	SetHeardTotal(channel string, count int)
	SetStationsTotal(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
	packetsTotal        *prometheus.CounterVec
	duplicatesTotal     *prometheus.CounterVec
	rejectedTotal       *prometheus.CounterVec
	sentTotal           *prometheus.CounterVec
	channelState        *prometheus.GaugeVec
	heardTotal          *prometheus.GaugeVec
	stationsTotal       prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(namespace string) {
	m.cacheHits.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) IncCacheMisses(namespace string) {
	m.cacheMisses.WithLabelValues(namespace).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncPackets(channel string) {
	m.packetsTotal.WithLabelValues(channel).Inc()
}

func (m *MetricsProvider) IncDuplicates(channel string) {
	m.duplicatesTotal.WithLabelValues(channel).Inc()
}

func (m *MetricsProvider) IncRejected(channel string) {
	m.rejectedTotal.WithLabelValues(channel).Inc()
}

func (m *MetricsProvider) IncSent(channel string) {
	m.sentTotal.WithLabelValues(channel).Inc()
}

func (m *MetricsProvider) SetChannelState(channel string, state int) {
	m.channelState.WithLabelValues(channel).Set(float64(state))
}

func (m *MetricsProvider) SetHeardTotal(channel string, count int) {
	m.heardTotal.WithLabelValues(channel).Set(float64(count))
}

func (m *MetricsProvider) SetStationsTotal(count int) {
	m.stationsTotal.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aprsd_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_cache_hits_total",
			Help: "Response cache hits per endpoint namespace",
		}, []string{"namespace"}),

		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_cache_misses_total",
			Help: "Response cache misses per endpoint namespace",
		}, []string{"namespace"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "aprsd_checkpoint_duration_seconds",
			Help:    "Duration of station store checkpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		packetsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_packets_total",
			Help: "Packets received per channel",
		}, []string{"channel"}),

		duplicatesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_duplicates_total",
			Help: "Duplicate packets per channel",
		}, []string{"channel"}),

		rejectedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_rejected_total",
			Help: "Malformed or filtered packets per channel",
		}, []string{"channel"}),

		sentTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "aprsd_sent_total",
			Help: "Packets transmitted per channel",
		}, []string{"channel"}),

		channelState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsd_channel_state",
			Help: "Channel state (0=off, 1=starting, 2=running, 3=failed)",
		}, []string{"channel"}),

		heardTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "aprsd_heard_stations",
			Help: "Stations in the heard table per channel",
		}, []string{"channel"}),

		stationsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "aprsd_stations_total",
			Help: "Tracked stations and objects",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncPackets(_ string)                              {}
func (n *noopMetrics) IncDuplicates(_ string)                           {}
func (n *noopMetrics) IncRejected(_ string)                             {}
func (n *noopMetrics) IncSent(_ string)                                 {}
func (n *noopMetrics) SetChannelState(_ string, _ int)                  {}
func (n *noopMetrics) SetHeardTotal(_ string, _ int)                    {}
func (n *noopMetrics) SetStationsTotal(_ int)                           {}
