package app

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// LoginPath is where anonymous callers of protected endpoints are sent.
const LoginPath = "/auth/login"

// publicExact and publicPrefixes declare the only endpoints reachable
// without an identity. Everything else, including paths no route claims,
// requires an authenticated caller: unknown is protected, not public.
var (
	publicExact = map[string]struct{}{
		"/auth/login":    {},
		"/auth/register": {},
		"/welcome":       {},
		"/healthz":       {},
		"/metrics":       {},
	}
	publicPrefixes = []string{"/static/"}
)

// IsPublicPath reports whether the path is declared public.
func IsPublicPath(path string) bool {
	if _, ok := publicExact[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AccessGate denies-by-default: requests to anything not declared public
// proceed only with a resolved caller; anonymous callers are redirected
// to login carrying the original URL so they land back where they
// started after authenticating.
func AccessGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if shared.UserFromContext(r.Context()) == nil {
			target := r.URL.Path
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(target), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
