package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResearchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodscout_research_runs_total",
			Help: "Research runs by outcome",
		},
		[]string{"outcome"},
	)

	KeywordSearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodscout_keyword_searches_total",
			Help: "Per-keyword directory searches by status",
		},
		[]string{"status"},
	)

	DirectoryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prodscout_directory_request_duration_seconds",
			Help:    "Duration of product directory requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	ResearchProducts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prodscout_research_products",
			Help:    "Number of deduplicated products returned per research run",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 200},
		},
	)

	EnrichmentFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prodscout_enrichment_fetches_total",
			Help: "Deep research enrichment fetches by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordKeywordSearch counts one keyword search. Failed searches and
// searches that matched nothing are counted separately.
func RecordKeywordSearch(count int, failed bool) {
	status := "ok"
	switch {
	case failed:
		status = "failed"
	case count == 0:
		status = "empty"
	}
	KeywordSearchesTotal.WithLabelValues(status).Inc()
}

func ObserveDirectoryRequest(status string, elapsed time.Duration) {
	DirectoryRequestDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
