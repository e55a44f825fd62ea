// Package metrics exposes Prometheus instruments for the sync engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_api_requests_total",
		Help: "Requests sent to the transcription API, by route and response code",
	}, []string{"route", "code"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcribe_api_request_duration_seconds",
		Help:    "Latency of transcription API requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route"})

	ListFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_list_fetches_total",
		Help: "Job list fetches, by result (changed, unchanged, error)",
	}, []string{"result"})

	ListRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_list_retries_total",
		Help: "Scheduled network retries of the job list, by attempt",
	}, []string{"attempt"})

	PollingSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcribe_polling_sessions_total",
		Help: "Insight polling sessions, by mode and terminal state",
	}, []string{"mode", "outcome"})

	JobsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcribe_jobs",
		Help: "Jobs in the last reconciled snapshot, by status",
	}, []string{"status"})

	TimeSavedSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcribe_time_saved_seconds",
		Help: "Total duration of completed videos",
	})
)

// ObserveRequest records one API round trip. code is 0 for transport failures.
func ObserveRequest(route string, code int, elapsed time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	APIRequestsTotal.WithLabelValues(route, label).Inc()
	APIRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveRetry records a scheduled list retry.
func ObserveRetry(attempt int) {
	ListRetriesTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

// SetJobCounts replaces the per-status gauge values.
func SetJobCounts(counts map[string]int, timeSaved int) {
	JobsByStatus.Reset()
	for status, n := range counts {
		JobsByStatus.WithLabelValues(status).Set(float64(n))
	}
	TimeSavedSeconds.Set(float64(timeSaved))
}
