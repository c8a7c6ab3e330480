package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

var (
	documentsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodssearch_documents_indexed_total",
			Help: "Total number of goods documents written to the index store",
		},
	)

	documentsRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "goodssearch_documents_removed_total",
			Help: "Total number of goods documents removed from the index store",
		},
	)

	documentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodssearch_document_failures_total",
			Help: "Total number of failed index or remove operations",
		},
		[]string{"operation"},
	)

	searchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goodssearch_search_requests_total",
			Help: "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)
)
