package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForecastRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atmoscast_forecast_runs_total",
			Help: "Total multi-horizon forecast invocations",
		},
		[]string{"status"},
	)

	ForecastHorizonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atmoscast_forecast_horizons_total",
			Help: "Forecast horizons produced or skipped",
		},
		[]string{"outcome"},
	)

	ForecastLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "atmoscast_forecast_latency_seconds",
			Help:    "End-to-end forecast call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ForecastConfidence = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "atmoscast_forecast_confidence",
			Help: "Confidence of the latest forecast per horizon",
		},
		[]string{"hours_ahead"},
	)

	CalibrationCombosTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "atmoscast_calibration_combinations_total",
			Help: "Factor combinations evaluated by calibration runs",
		},
	)

	LoaderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "atmoscast_loader_fetches_total",
			Help: "External data fetches by source and status",
		},
		[]string{"source", "status"},
	)
)
