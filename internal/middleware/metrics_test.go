package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datavend/backend/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*observability.Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return observability.NewMetrics("test", reg), reg
}

// seriesCounts returns metric family name -> number of label combinations.
func seriesCounts(t *testing.T, reg *prometheus.Registry) map[string]int {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]int{}
	for _, mf := range families {
		counts[mf.GetName()] = len(mf.Metric)
	}
	return counts
}

func TestMetrics_RecordsCountAndDuration(t *testing.T) {
	metrics, reg := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/api/v1/bundles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/bundles", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	counts := seriesCounts(t, reg)
	assert.Equal(t, 1, counts["test_http_requests_total"])
	assert.Equal(t, 1, counts["test_http_request_duration_seconds"])
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	metrics, reg := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/orders/{orderNumber}", func(w http.ResponseWriter, r *http.Request) {})

	for _, path := range []string{"/orders/ORD-20260815-483920", "/orders/ORD-20260816-102238"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Two order numbers, one route pattern, one series.
	assert.Equal(t, 1, seriesCounts(t, reg)["test_http_requests_total"])
}

func TestMetrics_CapturesHandlerStatus(t *testing.T) {
	for _, code := range []int{http.StatusCreated, http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError} {
		metrics, _ := newTestMetrics(t)

		r := chi.NewRouter()
		r.Use(Metrics(metrics))
		r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/orders", nil))
		assert.Equal(t, code, w.Code)
	}
}

func TestMetrics_WithoutChiRouting(t *testing.T) {
	metrics, reg := newTestMetrics(t)

	h := Metrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	// Falls back to the raw path as the label.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, seriesCounts(t, reg)["test_http_requests_total"])
}

func TestStatusWriter_CapturesExplicitStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusConflict)

	assert.Equal(t, http.StatusConflict, sw.status)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStatusWriter_DefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Write([]byte("body"))

	assert.Equal(t, http.StatusOK, sw.status)
}
