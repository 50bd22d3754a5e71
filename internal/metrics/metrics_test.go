package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)
	assert.Greater(t, timer.Seconds(), 0.0)
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.OrderWrites.WithLabelValues("created").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.OrderWrites.WithLabelValues("created")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OrderWrites.WithLabelValues("created")))
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/orders/{id}", "GET", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPLatency))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.Notifications.WithLabelValues("paid").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `checkout_payment_notifications_total{outcome="paid"} 1`))
}
