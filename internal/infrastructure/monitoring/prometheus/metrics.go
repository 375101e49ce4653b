package prometheus

import (
	"database/sql"
	"strconv"
	"time"
)

// QBankMetrics holds every metric the QuestionBank binaries export.
type QBankMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Ingestion
	IngestPartsTotal     CounterVec
	IngestDuration       HistogramVec
	NumberingErrorsTotal CounterVec

	// Answer keys
	AnswerMatchesTotal   CounterVec
	AnswerKeyRejectTotal CounterVec

	// Classification
	ClassificationsTotal  CounterVec
	LabelCorrectionsTotal CounterVec
	LabelsDroppedTotal    CounterVec

	// Infrastructure
	CacheHitsTotal       CounterVec
	CacheMissesTotal     CounterVec
	EventsPublishedTotal CounterVec
	DBPoolConnections    GaugeVec
	WorkerBatchDuration  HistogramVec
	WorkerMessagesTotal  CounterVec
}

var (
	DefaultHTTPDurationBuckets   = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultIngestDurationBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
)

// NewQBankMetrics registers the QuestionBank metric set on collector.
func NewQBankMetrics(collector MetricsCollector) *QBankMetrics {
	m := &QBankMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.IngestPartsTotal = collector.RegisterCounter("ingest_parts_total", "Question parts processed by ingestion", "outcome")
	m.IngestDuration = collector.RegisterHistogram("ingest_duration_seconds", "Duration of one paper ingestion", DefaultIngestDurationBuckets, "section")
	m.NumberingErrorsTotal = collector.RegisterCounter("numbering_errors_total", "Question numbers that failed normalisation", "code")

	m.AnswerMatchesTotal = collector.RegisterCounter("answer_matches_total", "Answer key entries by match kind", "kind")
	m.AnswerKeyRejectTotal = collector.RegisterCounter("answer_key_rejects_total", "Answer key entries that could not be parsed", "code")

	m.ClassificationsTotal = collector.RegisterCounter("classifications_total", "Reconciled classification proposals", "outcome")
	m.LabelCorrectionsTotal = collector.RegisterCounter("label_corrections_total", "Labels corrected to a canonical name", "category", "kind")
	m.LabelsDroppedTotal = collector.RegisterCounter("labels_dropped_total", "Labels dropped during reconciliation", "category", "reason")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Domain events handed to the broker", "type", "status")
	m.DBPoolConnections = collector.RegisterGauge("db_pool_connections", "Database pool connections by state", "state")
	m.WorkerBatchDuration = collector.RegisterHistogram("worker_batch_duration_seconds", "Duration of one worker batch", DefaultIngestDurationBuckets, "topic")
	m.WorkerMessagesTotal = collector.RegisterCounter("worker_messages_total", "Messages handled by the worker", "topic", "status")

	return m
}

// NewNopMetrics returns a metric set that records nothing.
func NewNopMetrics() *QBankMetrics {
	return NewQBankMetrics(NewNopCollector())
}

func (m *QBankMetrics) CacheHit(cache string)  { m.CacheHitsTotal.WithLabelValues(cache).Inc() }
func (m *QBankMetrics) CacheMiss(cache string) { m.CacheMissesTotal.WithLabelValues(cache).Inc() }

func (m *QBankMetrics) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordIngest adds the per-outcome counts of one ingestion run.
func (m *QBankMetrics) RecordIngest(inserted, updated, skipped, rejected int) {
	for outcome, n := range map[string]int{
		"inserted": inserted,
		"updated":  updated,
		"skipped":  skipped,
		"rejected": rejected,
	} {
		if n > 0 {
			m.IngestPartsTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}
}

func (m *QBankMetrics) RecordEvent(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// ObservePool copies database/sql pool statistics into the pool gauge.
func (m *QBankMetrics) ObservePool(stats sql.DBStats) {
	m.DBPoolConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	m.DBPoolConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.DBPoolConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}

//Personal.AI order the ending
