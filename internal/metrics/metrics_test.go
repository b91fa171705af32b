package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordImage("extracted", 2*time.Second)
	m.RecordImage("failed", time.Second)
	m.RecordImage("extracted", time.Second)
	m.RecordSave(3, 1)
	m.RecordSnapshotLookup(true)
	m.RecordSnapshotLookup(false)
	m.SetSnapshotSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.imagesProcessed.WithLabelValues("extracted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.imagesProcessed.WithLabelValues("failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reviewsSaved.WithLabelValues("saved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reviewsSaved.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotLookups.WithLabelValues("hit")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.snapshotSize))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordImage("failed", time.Second)
		m.RecordSave(1, 1)
		m.RecordSnapshotLookup(true)
		m.SetSnapshotSize(1)
		m.RecordReport("English", "success", time.Second)
		m.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordReport("English", "success", 3*time.Second)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `review_reports_total{language="English",status="success"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
