package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("POST", "/api/chat", 200, 10*time.Millisecond)
	m.RecordRequest("POST", "/api/chat", 200, 20*time.Millisecond)
	m.RecordProviderCall("bedrock", "stream", "ok", time.Second)
	m.RecordStreamed(3, 11)
	m.RecordAbort("provider")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/chat", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProviderCallsTotal.WithLabelValues("bedrock", "stream", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.StreamFragmentsTotal))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.StreamBytesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreamAbortsTotal.WithLabelValues("provider")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.RecordStreamed(1, 1)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.StreamFragmentsTotal))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordStreamed(2, 5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ragchat_stream_fragments_total 2")
}
