package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searches by mode
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_search_requests_total",
			Help: "Total number of market searches by mode",
		},
		[]string{"mode"},
	)

	searchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marchelocal_search_errors_total",
			Help: "Total number of market searches that failed in the store",
		},
		[]string{"mode"},
	)

	// candidates returned by the store before exact filtering
	searchCandidates = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marchelocal_search_candidates",
			Help:    "Number of candidate markets fetched per search",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500, 1000, 5000},
		},
		[]string{"mode"},
	)

	searchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marchelocal_search_results",
			Help:    "Number of markets returned per search after capping",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"mode"},
	)
)
