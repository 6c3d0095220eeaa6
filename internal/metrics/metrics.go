// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names.
const (
	LabelMethod = "method"
	LabelPath   = "path"
	LabelStatus = "status"
	LabelKind   = "kind"
	LabelResult = "result"
	LabelType   = "type"
)

// Import results.
const (
	ResultImported  = "imported"
	ResultUnchanged = "unchanged"
	ResultFailed    = "failed"
)

// HTTPLatencyBuckets covers a local service answering from memory and SQLite.
var HTTPLatencyBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests being served",
		},
	)
)

// Domain metrics.
var (
	CatalogSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_kind_reloads_total",
			Help: "Total number of catalog kinds reloaded from data files",
		},
		[]string{LabelKind},
	)

	CatalogEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_entities",
			Help: "Number of catalog entities loaded, by kind",
		},
		[]string{LabelKind},
	)

	SkillUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skill_updates_total",
			Help: "Total number of skill level updates",
		},
	)

	AutosaveImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autosave_imports_total",
			Help: "Total number of autosave import attempts, by result",
		},
		[]string{LabelResult},
	)

	GraphQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_queries_total",
			Help: "Total number of graph queries, by outcome",
		},
		[]string{LabelResult},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of server-sent events published",
		},
		[]string{LabelType},
	)
)
