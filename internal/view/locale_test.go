package view

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNegotiateLocale(t *testing.T) {
	cases := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "zh"},
		{"accept header chinese", "/", "zh-CN,zh;q=0.9", "zh"},
		{"accept header english", "/", "en-GB", "en"},
		{"query overrides header", "/?lang=en", "zh-CN", "en"},
		{"unsupported falls back", "/", "fr-FR", "zh"},
		{"garbage query ignored", "/?lang=!!!", "en", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			if got := NegotiateLocale(req); got != tc.want {
				t.Fatalf("NegotiateLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestLocaleMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LocaleFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/?lang=zh", nil)
	LocaleMiddleware(next).ServeHTTP(httptest.NewRecorder(), req)

	if seen != "zh" {
		t.Fatalf("expected zh in context, got %q", seen)
	}
}

func TestLocaleFromContextDefault(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "zh" {
		t.Fatalf("expected zh default, got %q", got)
	}
}
