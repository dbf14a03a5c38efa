package view

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

var supportedLocales = language.NewMatcher([]language.Tag{
	language.Chinese, // default
	language.English,
})

type localeContextKey struct{}

// NegotiateLocale picks the UI locale for a request: an explicit ?lang
// parameter wins, otherwise the Accept-Language header is matched
// against the supported set.
func NegotiateLocale(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			matched, _, _ := supportedLocales.Match(tag)
			return baseLocale(matched)
		}
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return "zh"
	}
	matched, _, _ := supportedLocales.Match(tags...)
	return baseLocale(matched)
}

// LocaleMiddleware stores the negotiated locale in the request context.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), localeContextKey{}, NegotiateLocale(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext returns the negotiated locale, defaulting to "zh".
func LocaleFromContext(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "zh"
}

func baseLocale(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
