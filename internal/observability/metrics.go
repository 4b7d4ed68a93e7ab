package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	attendanceLoggedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_engine",
		Subsystem: "ledger",
		Name:      "records_logged_total",
		Help:      "Number of attendance records written, grouped by entry path and meeting type.",
	}, []string{"path", "meeting_type"})

	excuseTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_engine",
		Subsystem: "excuses",
		Name:      "transitions_total",
		Help:      "Number of excuse request transitions and direct excuses.",
	}, []string{"transition"})

	importRowsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_engine",
		Subsystem: "importer",
		Name:      "rows_total",
		Help:      "Number of imported sheet rows grouped by kind and outcome.",
	}, []string{"kind", "outcome"})

	reportDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance_engine",
		Subsystem: "reports",
		Name:      "compute_duration_seconds",
		Help:      "Time spent computing compliance metrics.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"scope"})

	httpRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance_engine",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of API requests grouped by resource, method and status code.",
	}, []string{"resource", "method", "code"})
)

func init() {
	prometheus.MustRegister(attendanceLoggedCounter, excuseTransitionCounter, importRowsCounter, reportDuration, httpRequestsCounter)
}

// RecordAttendanceLogged counts a written attendance record.
func RecordAttendanceLogged(path, meetingType string) {
	attendanceLoggedCounter.WithLabelValues(path, meetingType).Inc()
}

// RecordExcuseTransition counts a submitted, approved, denied or direct excuse.
func RecordExcuseTransition(transition string) {
	excuseTransitionCounter.WithLabelValues(transition).Inc()
}

// RecordImportRows adds n rows with the given outcome.
func RecordImportRows(kind, outcome string, n int) {
	if n <= 0 {
		return
	}
	importRowsCounter.WithLabelValues(kind, outcome).Add(float64(n))
}

// ObserveReport records how long a metrics computation took.
func ObserveReport(scope string, seconds float64) {
	reportDuration.WithLabelValues(scope).Observe(seconds)
}

// RecordHTTPRequest counts a served API request.
func RecordHTTPRequest(resource, method string, status int) {
	httpRequestsCounter.WithLabelValues(resource, method, strconv.Itoa(status)).Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// WriteTextfile dumps every registered metric to path in the Prometheus
// text format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
