package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"method", "route", "status"},
	)

	routeQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_queries_total",
			Help: "Route queries by facility category and outcome.",
		},
		[]string{"category", "status"},
	)

	routeQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "route_query_duration_seconds",
			Help:    "Time spent computing a route, excluding cache hits.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"category"},
	)

	routePathNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "route_path_nodes",
			Help:    "Number of graph nodes on returned routes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		},
	)

	routeCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_cache_results_total",
			Help: "Route cache lookups by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)

	cacheOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graph_nodes",
		Help: "Nodes in the loaded road graph.",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "graph_edges",
		Help: "Edges in the loaded road graph.",
	})

	graphBuildSkipped = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graph_build_skipped",
			Help: "Input items ignored while building the road graph, by reason.",
		},
		[]string{"reason"},
	)

	facilitiesLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "facilities_loaded",
			Help: "Facility records loaded per category.",
		},
		[]string{"category"},
	)

	dispatchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_events_total",
			Help: "Dispatch route events by outcome.",
		},
		[]string{"outcome"},
	)

	hotCells = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "incident_hot_cells",
		Help: "H3 cells currently tracked by the incident hotspot tracker.",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		routeQueriesTotal, routeQueryDurationSeconds, routePathNodes,
		routeCacheResults, cacheOpTotal, redisOpDurationSeconds,
		graphNodes, graphEdges, graphBuildSkipped, facilitiesLoaded,
		dispatchEventsTotal, hotCells,
	}
}

// Init also registers the collectors with reg, e.g. a dedicated metrics registry.
// Collectors already present in reg are left as they are.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveRoute(category, status string, durationSeconds float64, pathNodes int) {
	routeQueriesTotal.WithLabelValues(category, status).Inc()
	routeQueryDurationSeconds.WithLabelValues(category).Observe(durationSeconds)
	if pathNodes > 0 {
		routePathNodes.Observe(float64(pathNodes))
	}
}

func ObserveRouteCache(tier, outcome string) {
	routeCacheResults.WithLabelValues(tier, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheOpTotal.WithLabelValues(op, result).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func SetGraphStats(nodes, edges int, skipped map[string]int) {
	graphNodes.Set(float64(nodes))
	graphEdges.Set(float64(edges))
	for reason, n := range skipped {
		graphBuildSkipped.WithLabelValues(reason).Set(float64(n))
	}
}

func SetFacilitiesLoaded(category string, n int) {
	facilitiesLoaded.WithLabelValues(category).Set(float64(n))
}

func IncDispatchEvent(outcome string) {
	dispatchEventsTotal.WithLabelValues(outcome).Inc()
}

func SetHotCells(n int) {
	hotCells.Set(float64(n))
}
