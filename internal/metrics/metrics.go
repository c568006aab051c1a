package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GridPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_grid_points_total",
		Help: "Total number of deduplicated grid points generated",
	})
	GridCellsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_grid_cells_total",
		Help: "Total number of grid cells that contributed corners",
	})
	SectorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_sectors_total",
		Help: "Total number of sector polygons built",
	})
	IntersectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_intersections_total",
		Help: "Total number of (point, sector) pairs found",
	})
	StageDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sectorgrid_stage_duration_ms",
		Help:    "Pipeline stage duration in milliseconds",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 30000, 120000},
	}, []string{"stage"})
	StageErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorgrid_stage_errors_total",
		Help: "Pipeline stage failures by stage",
	}, []string{"stage"})
	APIRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sectorgrid_api_requests_total",
		Help: "Total API requests by route and status class",
	}, []string{"route", "code"})
	APIDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sectorgrid_api_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_cache_hits_total",
		Help: "Total redis response cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sectorgrid_cache_misses_total",
		Help: "Total redis response cache misses",
	})
)

func init() {
	prometheus.MustRegister(
		GridPointsTotal,
		GridCellsTotal,
		SectorsTotal,
		IntersectionsTotal,
		StageDurationMs,
		StageErrorsTotal,
		APIRequestsTotal,
		APIDurationMs,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}

// 文档注释：返回 Prometheus 指标处理器，由服务入口挂载到 /metrics
func Handler() http.Handler { return promhttp.Handler() }
