package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DatasetLifecycle(t *testing.T) {
	m := New()
	loadedAt := time.Unix(1_700_000_000, 0)

	m.DatasetLoaded(42, loadedAt, false)
	m.DatasetLoaded(7, loadedAt, true)
	m.DatasetLoadFailed()

	assert.Equal(t, float64(7), testutil.ToFloat64(m.datasetRecords))
	assert.Equal(t, float64(1_700_000_000), testutil.ToFloat64(m.datasetLoadedAt))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reloads.WithLabelValues(ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reloads.WithLabelValues(ResultFallback)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reloads.WithLabelValues(ResultFailure)))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.DatasetLoaded(1, time.Now(), false)
		m.DatasetLoadFailed()
		m.ObserveQuery("topline", time.Millisecond)
		m.RowsIngested(3)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveQuery("share", 3*time.Millisecond)
	m.RowsIngested(5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `vahan_query_duration_seconds_count{endpoint="share"} 1`))
	assert.Contains(t, body, "vahan_ingested_rows_total 5")
	assert.Contains(t, body, "go_goroutines")
}
