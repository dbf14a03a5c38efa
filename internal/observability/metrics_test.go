package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func serve(m *Metrics, status int) {
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusSeeOther {
			http.Redirect(w, r, "/auth/login", status)
			return
		}
		w.WriteHeader(status)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil))
}

func TestMiddlewareCountsDenials(t *testing.T) {
	m := NewMetrics()

	serve(m, http.StatusForbidden)
	serve(m, http.StatusUnauthorized)
	serve(m, http.StatusOK)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authDenials.WithLabelValues("forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authDenials.WithLabelValues("unauthorized")))
}

func TestMiddlewareCountsRedirects(t *testing.T) {
	m := NewMetrics()

	serve(m, http.StatusSeeOther)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("unknown", "303")))
	assert.Zero(t, testutil.ToFloat64(m.authDenials.WithLabelValues("forbidden")))
}
