package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFlush(t *testing.T) {
	r := New()
	r.ObserveFlush("akas", 10, 7, 3, 5*time.Millisecond)
	r.ObserveFlush("akas", 5, 5, 0, time.Millisecond)

	assert.Equal(t, 15.0, testutil.ToFloat64(r.rowsOffered.WithLabelValues("akas")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.rowsInserted.WithLabelValues("akas")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.rowsFiltered.WithLabelValues("akas")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.flushes.WithLabelValues("akas")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveFlush("ratings", 1, 1, 0, 0)
		r.ObserveRetry("ratings")
		r.ObserveRequest("/health", "200")
	})
}

func TestHandlerExposesCounters(t *testing.T) {
	r := New()
	r.ObserveRetry("principals")
	r.ObserveRequest("/name_basics", "201")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `imdbload_flush_retries_total{relation="principals"} 1`)
	assert.Contains(t, string(body), `imdbload_http_requests_total{code="201",route="/name_basics"} 1`)
}

func TestRecordersDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.ObserveRetry("x")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.flushRetries.WithLabelValues("x")))
}
