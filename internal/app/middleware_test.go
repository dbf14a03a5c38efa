package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bookshelf-cms/bookshelf/internal/observability"
	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

func TestMetricsObserveGateRedirects(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	metrics := observability.NewMetrics()

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	stack := MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionManager: sessionManager,
		CSRFManager:    shared.NewCSRFManager("csrfsecret"),
		Metrics:        metrics,
	})
	for i := len(stack) - 1; i >= 0; i-- {
		handler = stack[i](handler)
	}

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/books", nil))
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected the gate to redirect, got %d", res.Code)
	}

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	if !strings.Contains(body, `bookshelf_http_requests_total`) || !strings.Contains(body, `code="303"`) {
		t.Fatalf("expected the gate redirect in the request counters, got:\n%s", body)
	}
}
