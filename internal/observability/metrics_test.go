package observability

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAttendanceLogged(t *testing.T) {
	before := testutil.ToFloat64(attendanceLoggedCounter.WithLabelValues("time_range", "regular"))
	RecordAttendanceLogged("time_range", "regular")
	after := testutil.ToFloat64(attendanceLoggedCounter.WithLabelValues("time_range", "regular"))

	assert.Equal(t, before+1, after)
}

func TestRecordImportRows_IgnoresEmptyBatches(t *testing.T) {
	before := testutil.ToFloat64(importRowsCounter.WithLabelValues("outreach", "imported"))
	RecordImportRows("outreach", "imported", 0)
	RecordImportRows("outreach", "imported", 3)
	after := testutil.ToFloat64(importRowsCounter.WithLabelValues("outreach", "imported"))

	assert.Equal(t, before+3, after)
}

func TestWriteTextfile(t *testing.T) {
	RecordExcuseTransition("approved")
	path := filepath.Join(t.TempDir(), "attendance.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "attendance_engine_excuses_transitions_total")
}

func TestHandlerServesRequestCounter(t *testing.T) {
	RecordHTTPRequest("meetings", "GET", 200)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `attendance_engine_http_requests_total{code="200",method="GET",resource="meetings"}`)
}
