package metrics

import "github.com/prometheus/client_golang/prometheus"

// Spatial snapshot Prometheus metrics.
var (
	SnapshotRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stardex",
			Name:      "snapshot_rebuilds_total",
			Help:      "Total number of snapshot rebuild attempts",
		},
		[]string{"result"}, // "ok" / "error"
	)

	SnapshotRebuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stardex",
			Name:      "snapshot_rebuild_duration_seconds",
			Help:      "Snapshot rebuild duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SnapshotCacheLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stardex",
			Name:      "snapshot_cache_loads_total",
			Help:      "Snapshot cache load attempts by outcome",
		},
		[]string{"result"}, // "hit" / "miss" / "stale" / "corrupt"
	)

	SnapshotSystems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stardex",
			Name:      "snapshot_systems",
			Help:      "Number of systems in the published snapshot",
		},
	)

	SnapshotBuiltTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stardex",
			Name:      "snapshot_built_timestamp_seconds",
			Help:      "Unix time the published snapshot was built",
		},
	)

	SpatialQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stardex",
			Name:      "spatial_query_duration_seconds",
			Help:      "In-memory spatial query duration in seconds",
			Buckets:   []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
		[]string{"kind"}, // "radius" / "nearest" / "autocomplete" / "lookup"
	)
)

var spatialMetricsRegistered bool

// RegisterSpatialMetrics registers Prometheus snapshot metrics. Must be called once from main.
func RegisterSpatialMetrics() {
	if spatialMetricsRegistered {
		return
	}
	prometheus.MustRegister(SnapshotRebuildsTotal)
	prometheus.MustRegister(SnapshotRebuildDuration)
	prometheus.MustRegister(SnapshotCacheLoadsTotal)
	prometheus.MustRegister(SnapshotSystems)
	prometheus.MustRegister(SnapshotBuiltTimestamp)
	prometheus.MustRegister(SpatialQueryDuration)
	spatialMetricsRegistered = true
}
