package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_BookingCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.BookingCreated()
	c.BookingCreated()
	c.BookingCancelled()
	c.BookingRejected("weekend")
	c.BookingRejected("weekend")
	c.BookingRejected("cutoff")

	assert.Equal(t, 2.0, counterValue(t, reg, "seatserve_bookings_created_total", ""))
	assert.Equal(t, 1.0, counterValue(t, reg, "seatserve_bookings_cancelled_total", ""))
	assert.Equal(t, 2.0, counterValue(t, reg, "seatserve_bookings_rejected_total", "weekend"))
	assert.Equal(t, 1.0, counterValue(t, reg, "seatserve_bookings_rejected_total", "cutoff"))
}

func TestCollector_SuggestionOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SuggestionCompleted("ok", 200*time.Millisecond)
	c.SuggestionCompleted("unavailable", 3*time.Second)

	assert.Equal(t, 1.0, counterValue(t, reg, "seatserve_suggestions_total", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "seatserve_suggestions_total", "unavailable"))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "seatserve_suggestion_latency_seconds" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		hist := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), hist.GetSampleCount())
		assert.InDelta(t, 3.2, hist.GetSampleSum(), 1e-9)
	}
	assert.True(t, found, "latency histogram not registered")
}

func TestCollector_HTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(http.StatusOK)
	c.RecordHTTPStatus(http.StatusConflict)
	c.RecordHTTPStatus(http.StatusConflict)

	assert.Equal(t, 1.0, counterValue(t, reg, "seatserve_http_responses_total", "200"))
	assert.Equal(t, 2.0, counterValue(t, reg, "seatserve_http_responses_total", "409"))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.BookingCreated()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := rec.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "seatserve_bookings_created_total 1")
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)
	assert.Panics(t, func() { NewCollector(reg) })
}

// counterValue returns the counter sample of family name whose single label
// equals label; an empty label matches an unlabelled counter.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := m.GetLabel()
			if label == "" && len(labels) == 0 {
				return m.GetCounter().GetValue()
			}
			if len(labels) == 1 && labels[0].GetValue() == label {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s{%s} not found", name, label)
	return 0
}
